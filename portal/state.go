package portal

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"saferoads/models"
	"saferoads/osm"
	"saferoads/policy"
	"saferoads/weather"

	"github.com/shopspring/decimal"
)

type Mode string

const (
	ModeCitizen   Mode = "citizen"
	ModeAuthority Mode = "authority"
)

type Section string

const (
	SectionHome      Section = "home"
	SectionReport    Section = "report"
	SectionEmergency Section = "emergency"
	SectionTenders   Section = "tenders"
	SectionWeather   Section = "weather"
)

var sections = map[Section]bool{
	SectionHome:      true,
	SectionReport:    true,
	SectionEmergency: true,
	SectionTenders:   true,
	SectionWeather:   true,
}

var (
	ErrUnknownMode    = errors.New("unknown mode")
	ErrUnknownSection = errors.New("unknown section")
)

// Report is one entry of the portal's own report list. Its id is local to the
// session and unrelated to the ids stored by the server.
type Report struct {
	Id         int           `json:"id"`
	Type       string        `json:"type"`
	Location   string        `json:"location"`
	Severity   int           `json:"severity"`
	Status     models.Status `json:"status"`
	Date       string        `json:"date"`
	Lat        float64       `json:"lat"`
	Lng        float64       `json:"lng"`
	DistanceKm *float64      `json:"distance_km,omitempty"`
}

type Project struct {
	Id         int             `json:"id"`
	Name       string          `json:"name"`
	Budget     decimal.Decimal `json:"budget"`
	Contractor string          `json:"contractor"`
	Materials  decimal.Decimal `json:"materials"`
	Labor      decimal.Decimal `json:"labor"`
	Progress   int             `json:"progress"`
	Completion string          `json:"completion"`
	Area       string          `json:"area"`
	Status     string          `json:"status"`
}

type NotificationKind string

const (
	NotifyInfo    NotificationKind = "info"
	NotifySuccess NotificationKind = "success"
	NotifyWarning NotificationKind = "warning"
	NotifyError   NotificationKind = "error"
)

type Notification struct {
	Message string           `json:"message"`
	Kind    NotificationKind `json:"kind"`
	At      time.Time        `json:"at"`
}

const maxNotifications = 5

// ScanView is the last assessment shown in the report section.
type ScanView struct {
	Assessment models.Assessment  `json:"assessment"`
	Simulated  bool               `json:"simulated"`
	Source     string             `json:"source"`
	Escalation *models.Escalation `json:"escalation,omitempty"`
}

// State is everything the portal renders. Values handed out by Store are copies.
type State struct {
	Mode              Mode                `json:"mode"`
	Section           Section             `json:"section"`
	Location          *models.Location    `json:"location,omitempty"`
	Reports           []Report            `json:"reports"`
	PriorityReports   []Report            `json:"priority_reports"`
	Projects          []Project           `json:"projects"`
	ProjectQuery      string              `json:"project_query"`
	EmergencyServices []osm.Place         `json:"emergency_services"`
	Weather           *weather.Conditions `json:"weather,omitempty"`
	WeatherAlert      *weather.Alert      `json:"weather_alert,omitempty"`
	LastScan          *ScanView           `json:"last_scan,omitempty"`
	Notifications     []Notification      `json:"notifications"`
}

func (s State) CitizenVisible() bool {
	return s.Mode == ModeCitizen
}

func (s State) AuthorityVisible() bool {
	return s.Mode == ModeAuthority
}

// VisibleProjects applies the current search query.
func (s State) VisibleProjects() []Project {
	return FilterProjects(s.Projects, s.ProjectQuery)
}

// Store serializes every change to the portal state.
type Store struct {
	mu              sync.RWMutex
	state           State
	threshold       int
	defaultLocation models.Location
	now             func() time.Time
}

func NewStore(threshold int, defaultLocation models.Location, reports []Report, projects []Project) *Store {
	s := &Store{
		threshold:       threshold,
		defaultLocation: defaultLocation,
		now:             time.Now,
		state: State{
			Mode:     ModeCitizen,
			Section:  SectionHome,
			Reports:  append([]Report{}, reports...),
			Projects: append([]Project{}, projects...),
		},
	}
	return s
}

func (s *Store) Threshold() int {
	return s.threshold
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.state
	out.Reports = append([]Report{}, s.state.Reports...)
	out.PriorityReports = append([]Report{}, s.state.PriorityReports...)
	out.Projects = append([]Project{}, s.state.Projects...)
	out.EmergencyServices = append([]osm.Place{}, s.state.EmergencyServices...)
	out.Notifications = append([]Notification{}, s.state.Notifications...)
	if s.state.Location != nil {
		loc := *s.state.Location
		out.Location = &loc
	}
	return out
}

// SwitchMode shows one root container and hides the other. Entering the authority
// view recomputes the priority list.
func (s *Store) SwitchMode(m Mode) error {
	if m != ModeCitizen && m != ModeAuthority {
		return fmt.Errorf("%w: %q", ErrUnknownMode, m)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Mode = m
	if m == ModeAuthority {
		s.state.PriorityReports = PriorityReports(s.state.Reports, s.threshold)
	}
	return nil
}

func (s *Store) ShowSection(sec Section) error {
	if !sections[sec] {
		return fmt.Errorf("%w: %q", ErrUnknownSection, sec)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Section = sec
	return nil
}

// AddReport numbers the report after the current list and puts it first.
func (s *Store) AddReport(r Report) Report {
	s.mu.Lock()
	defer s.mu.Unlock()

	r.Id = len(s.state.Reports) + 1
	s.state.Reports = append([]Report{r}, s.state.Reports...)
	if s.state.Mode == ModeAuthority {
		s.state.PriorityReports = PriorityReports(s.state.Reports, s.threshold)
	}
	s.notifyLocked("Report submitted successfully!", NotifySuccess)
	return r
}

// SetLocation records the caller's position. nil means geolocation was unavailable.
func (s *Store) SetLocation(loc *models.Location) models.Location {
	resolved := s.defaultLocation
	if loc != nil {
		resolved = *loc
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Location = &resolved
	s.state.EmergencyServices = nil
	return resolved
}

func (s *Store) SetProjectQuery(q string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.ProjectQuery = q
}

func (s *Store) SetEmergencyServices(places []osm.Place) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.EmergencyServices = append([]osm.Place{}, places...)
}

func (s *Store) SetWeather(c weather.Conditions, alert *weather.Alert) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Weather = &c
	s.state.WeatherAlert = alert
}

func (s *Store) ShowScanResult(v ScanView) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.LastScan = &v
}

// Notify queues a toast; only the most recent few are kept.
func (s *Store) Notify(message string, kind NotificationKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifyLocked(message, kind)
}

func (s *Store) notifyLocked(message string, kind NotificationKind) {
	s.state.Notifications = append(s.state.Notifications, Notification{Message: message, Kind: kind, At: s.now()})
	if n := len(s.state.Notifications); n > maxNotifications {
		s.state.Notifications = s.state.Notifications[n-maxNotifications:]
	}
}

// PriorityReports keeps reports marked Priority or scored above the threshold.
func PriorityReports(reports []Report, threshold int) []Report {
	out := make([]Report, 0, len(reports))
	for _, r := range reports {
		if policy.IsPriority(r.Status, r.Severity, threshold) {
			out = append(out, r)
		}
	}
	return out
}

// FilterProjects matches the query against name, area and contractor, ignoring case.
func FilterProjects(projects []Project, query string) []Project {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return append([]Project{}, projects...)
	}
	out := make([]Project, 0, len(projects))
	for _, p := range projects {
		if strings.Contains(strings.ToLower(p.Name), q) ||
			strings.Contains(strings.ToLower(p.Area), q) ||
			strings.Contains(strings.ToLower(p.Contractor), q) {
			out = append(out, p)
		}
	}
	return out
}
