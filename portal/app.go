package portal

import (
	"context"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"saferoads/assessment"
	"saferoads/intake"
	"saferoads/models"
	"saferoads/osm"
	"saferoads/policy"
	"saferoads/weather"

	"github.com/apex/log"
	"github.com/golang/geo/s2"
	geojson "github.com/paulmach/go.geojson"
)

const (
	unknownLocation   = "Unknown Location"
	segmentSeverity   = 50
	segmentReportType = "Road Segment Repair"
	nearestPerType    = 3
)

// Broadcaster receives escalations raised from the portal.
type Broadcaster interface {
	BroadcastEscalation(e models.Escalation)
}

// Options carries the thresholds the portal shares with the server.
type Options struct {
	EmergencyRadiusMeters int
	ImageMaxDimension     int
}

// Upload is a file picked in the citizen report section.
type Upload struct {
	Name string
	Type string
	Size int64
	Body io.Reader
}

// App drives the citizen and authority portal on top of Store.
type App struct {
	store       *Store
	assessor    *assessment.Assessor
	finder      osm.EmergencyFinder
	monitor     *weather.Monitor
	broadcaster Broadcaster
	opts        Options
	now         func() time.Time

	mu        sync.Mutex
	emergency *Future[[]osm.Place]
}

func NewApp(store *Store, assessor *assessment.Assessor, finder osm.EmergencyFinder, monitor *weather.Monitor, opts Options) *App {
	return &App{
		store:    store,
		assessor: assessor,
		finder:   finder,
		monitor:  monitor,
		opts:     opts,
		now:      time.Now,
	}
}

func (a *App) WithBroadcaster(b Broadcaster) *App {
	a.broadcaster = b
	return a
}

func (a *App) Store() *Store {
	return a.store
}

// SetLocation records the position (nil falls back to the default), drops any
// earlier emergency lookup and checks visibility at the new spot.
func (a *App) SetLocation(ctx context.Context, loc *models.Location) models.Location {
	a.mu.Lock()
	resolved := a.store.SetLocation(loc)
	a.emergency = nil
	a.mu.Unlock()

	if loc == nil {
		log.WithFields(log.Fields{"lat": resolved.Lat, "lng": resolved.Lng}).Warn("Location unavailable, using default")
	}

	a.CheckWeather(ctx)
	return resolved
}

func (a *App) location() *models.Location {
	return a.store.Snapshot().Location
}

// ShowSection switches the citizen section. Opening the emergency section starts the
// nearby services lookup once per location.
func (a *App) ShowSection(sec Section) error {
	if err := a.store.ShowSection(sec); err != nil {
		return err
	}
	if sec == SectionEmergency {
		a.emergencyLookup()
	}
	return nil
}

func (a *App) emergencyLookup() *Future[[]osm.Place] {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.emergency != nil {
		return a.emergency
	}

	loc := a.location()
	if loc == nil {
		resolved := a.store.SetLocation(nil)
		loc = &resolved
	}
	lat, lng := loc.Lat, loc.Lng
	var f *Future[[]osm.Place]
	f = Go(func() ([]osm.Place, error) {
		places, err := a.finder.NearbyEmergencyServices(context.Background(), lat, lng, a.opts.EmergencyRadiusMeters)

		a.mu.Lock()
		defer a.mu.Unlock()
		// A location change while the lookup was in flight makes the result stale.
		current := a.emergency == f
		if err != nil {
			log.WithError(err).Warn("Nearby emergency services lookup failed")
			if current {
				a.emergency = nil
				a.store.Notify("Could not load nearby emergency services", NotifyWarning)
			}
			return nil, err
		}
		nearest := osm.NearestByType(places, nearestPerType)
		if current {
			a.store.SetEmergencyServices(nearest)
		}
		return nearest, nil
	})
	a.emergency = f
	return a.emergency
}

// EmergencyServices waits for the nearby services lookup, starting it if needed.
func (a *App) EmergencyServices(ctx context.Context) ([]osm.Place, error) {
	return a.emergencyLookup().Await(ctx)
}

// Scan runs the citizen flow on one upload. Inference problems never surface here:
// the assessment falls back to a simulated one.
func (a *App) Scan(ctx context.Context, up Upload) (*ScanView, error) {
	if up.Size > intake.MaxFileSize {
		a.store.Notify(intake.ErrTooLarge.Error(), NotifyError)
		return nil, intake.ErrTooLarge
	}

	data, err := intake.Read(ctx, up.Body, intake.MaxFileSize)
	if err != nil {
		a.store.Notify(err.Error(), NotifyError)
		return nil, err
	}

	// Browsers send application/octet-stream for some camera files.
	mimeType := intake.DetectType(up.Type, data)
	if err := intake.Validate(intake.File{Name: up.Name, Type: mimeType, Size: int64(len(data))}); err != nil {
		a.store.Notify(err.Error(), NotifyError)
		return nil, err
	}

	payload, payloadType, err := intake.Normalize(data, mimeType, a.opts.ImageMaxDimension)
	if err != nil {
		log.WithError(err).Warn("Failed to normalize upload, sending original")
		payload, payloadType = data, mimeType
	}

	result, simulated := a.assessor.AssessOrSimulate(ctx, payload, payloadType)
	view := ScanView{Assessment: result, Simulated: simulated, Source: a.assessor.Source()}
	if simulated {
		view.Source = "Simulator"
	}

	threshold := a.store.Threshold()
	if policy.ShouldEscalate(result.DamageScore, threshold) {
		now := a.now()
		loc := a.location()
		e := policy.NewEscalation(result, threshold, view.Source, now, loc)
		view.Escalation = &e

		r := Report{
			Type:     "AI Detected - " + result.DamageType,
			Location: unknownLocation,
			Severity: result.DamageScore,
			Status:   policy.StatusFor(result.DamageScore, threshold),
			Date:     now.Format("2006-01-02"),
		}
		if loc != nil {
			r.Location = policy.FormatLocation(loc)
			r.Lat, r.Lng = loc.Lat, loc.Lng
		}
		a.store.AddReport(r)
		a.store.Notify("Critical damage auto-reported to authorities!", NotifySuccess)
		if a.broadcaster != nil {
			a.broadcaster.BroadcastEscalation(e)
		}
	}

	a.store.ShowScanResult(view)
	return &view, nil
}

// ReportRoadSegment files a repair request for the stretch between two points.
func (a *App) ReportRoadSegment(from, to models.Location) Report {
	meters := osm.DistanceMeters(s2.LatLngFromDegrees(from.Lat, from.Lng), s2.LatLngFromDegrees(to.Lat, to.Lng))
	km := math.Round(meters/10) / 100

	r := a.store.AddReport(Report{
		Type:       segmentReportType,
		Location:   fmt.Sprintf("%s to %s", policy.FormatLocation(&from), policy.FormatLocation(&to)),
		Severity:   segmentSeverity,
		Status:     policy.StatusFor(segmentSeverity, a.store.Threshold()),
		Date:       a.now().Format("2006-01-02"),
		Lat:        from.Lat,
		Lng:        from.Lng,
		DistanceKm: &km,
	})
	a.store.Notify(fmt.Sprintf("Road segment reported for repair! (%.2f km)", km), NotifySuccess)
	return r
}

// CheckWeather refreshes visibility at the current location and raises an alert
// when it is below the threshold.
func (a *App) CheckWeather(ctx context.Context) (weather.Conditions, *weather.Alert) {
	loc := a.location()
	if loc == nil {
		resolved := a.store.SetLocation(nil)
		loc = &resolved
	}
	cond, alert := a.monitor.Check(ctx, loc.Lat, loc.Lng)
	a.store.SetWeather(cond, alert)
	if alert != nil {
		a.store.Notify(alert.Message, NotifyWarning)
	}
	return cond, alert
}

// ReportsGeoJSON returns the report list as point features for the map.
func (a *App) ReportsGeoJSON() ([]byte, error) {
	fc := geojson.NewFeatureCollection()
	for _, r := range a.store.Snapshot().Reports {
		f := geojson.NewPointFeature([]float64{r.Lng, r.Lat})
		f.SetProperty("id", r.Id)
		f.SetProperty("type", r.Type)
		f.SetProperty("location", r.Location)
		f.SetProperty("severity", r.Severity)
		f.SetProperty("status", string(r.Status))
		f.SetProperty("date", r.Date)
		f.SetProperty("color", MarkerColor(r.Severity))
		fc.AddFeature(f)
	}
	return fc.MarshalJSON()
}
