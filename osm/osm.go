package osm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"saferoads/metrics"

	"github.com/golang/geo/s2"
)

const (
	// DefaultOverpassURL is the public Overpass API endpoint
	DefaultOverpassURL = "https://overpass-api.de/api/interpreter"
	// UserAgent identifies the service to the Overpass operators
	UserAgent = "SafeRoads/1.0"

	defaultName    = "Emergency Service"
	defaultAmenity = "unknown"

	// earthRadiusMeters converts s2 angles into distances.
	earthRadiusMeters = 6371010.0
)

// EmergencyAmenities are the amenity values treated as emergency services.
var EmergencyAmenities = []string{"hospital", "police", "fire_station"}

// Place is one emergency service near the caller.
type Place struct {
	Name           string  `json:"name"`
	Type           string  `json:"type"`
	Lat            float64 `json:"lat"`
	Lon            float64 `json:"lon"`
	DistanceMeters float64 `json:"distance_m"`
}

// EmergencyFinder looks up emergency services around a coordinate.
type EmergencyFinder interface {
	NearbyEmergencyServices(ctx context.Context, lat, lon float64, radiusMeters int) ([]Place, error)
}

// OverpassResponse is the response from the Overpass API
type OverpassResponse struct {
	Elements []OverpassElement `json:"elements"`
}

// OverpassElement represents an element from Overpass
type OverpassElement struct {
	Type string            `json:"type"`
	ID   int64             `json:"id"`
	Lat  float64           `json:"lat,omitempty"`
	Lon  float64           `json:"lon,omitempty"`
	Tags map[string]string `json:"tags,omitempty"`
}

// Client queries Overpass. It performs one attempt per call.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultOverpassURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
	}
}

// EmergencyQuery builds the Overpass QL for emergency amenities within radius of a point.
func EmergencyQuery(lat, lon float64, radiusMeters int) string {
	return fmt.Sprintf(`[out:json];node["amenity"~"%s"](around:%d,%s,%s);out;`,
		strings.Join(EmergencyAmenities, "|"), radiusMeters, formatCoord(lat), formatCoord(lon))
}

// formatCoord never uses exponent notation, which Overpass QL does not parse.
func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// NearbyEmergencyServices returns services in the order Overpass lists them.
func (c *Client) NearbyEmergencyServices(ctx context.Context, lat, lon float64, radiusMeters int) ([]Place, error) {
	places, err := c.nearby(ctx, lat, lon, radiusMeters)
	metrics.UpstreamRequestsTotal.WithLabelValues("overpass", metrics.Result(err)).Inc()
	return places, err
}

func (c *Client) nearby(ctx context.Context, lat, lon float64, radiusMeters int) ([]Place, error) {
	form := url.Values{"data": {EmergencyQuery(lat, lon, radiusMeters)}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create Overpass request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute Overpass request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("Overpass returned status %d: %s", resp.StatusCode, string(body))
	}

	var overpassResp OverpassResponse
	if err := json.NewDecoder(resp.Body).Decode(&overpassResp); err != nil {
		return nil, fmt.Errorf("failed to decode Overpass response: %w", err)
	}

	origin := s2.LatLngFromDegrees(lat, lon)
	places := make([]Place, 0, len(overpassResp.Elements))
	for _, elem := range overpassResp.Elements {
		places = append(places, toPlace(elem, origin))
	}
	return places, nil
}

func toPlace(elem OverpassElement, origin s2.LatLng) Place {
	p := Place{
		Name: elem.Tags["name"],
		Type: elem.Tags["amenity"],
		Lat:  elem.Lat,
		Lon:  elem.Lon,
	}
	if p.Name == "" {
		p.Name = defaultName
	}
	if p.Type == "" {
		p.Type = defaultAmenity
	}
	p.DistanceMeters = DistanceMeters(origin, s2.LatLngFromDegrees(elem.Lat, elem.Lon))
	return p
}

// DistanceMeters is the great-circle distance between two points.
func DistanceMeters(a, b s2.LatLng) float64 {
	return a.Distance(b).Radians() * earthRadiusMeters
}

// NearestByType keeps the n closest places of each amenity type, closest first.
func NearestByType(places []Place, n int) []Place {
	sorted := make([]Place, len(places))
	copy(sorted, places)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].DistanceMeters < sorted[j].DistanceMeters
	})

	seen := make(map[string]int)
	out := make([]Place, 0, len(sorted))
	for _, p := range sorted {
		if seen[p.Type] >= n {
			continue
		}
		seen[p.Type]++
		out = append(out, p)
	}
	return out
}
