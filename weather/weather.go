package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"saferoads/config"
	"saferoads/metrics"
)

// DefaultBaseURL is the OpenWeather data API root.
const DefaultBaseURL = "https://api.openweathermap.org/data/2.5"

var ErrNotConfigured = errors.New("weather provider not configured")

// Conditions is the subset of current weather the visibility monitor needs.
type Conditions struct {
	VisibilityKm float64   `json:"visibility_km"`
	Weather      string    `json:"weather"`
	Description  string    `json:"description"`
	TemperatureC float64   `json:"temperature_c"`
	Humidity     int       `json:"humidity"`
	WindSpeed    float64   `json:"wind_speed"`
	Simulated    bool      `json:"simulated"`
	Timestamp    time.Time `json:"timestamp"`
}

type currentWeatherResponse struct {
	Visibility float64 `json:"visibility"`
	Weather    []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity int     `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
}

// Client talks to OpenWeather. An empty or template API key leaves it unconfigured.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

func NewClient(apiKey, baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) Configured() bool {
	return c != nil && !config.IsPlaceholder(c.apiKey)
}

// AirPollution returns the upstream air_pollution payload untouched. lat and lon are
// forwarded as given.
func (c *Client) AirPollution(ctx context.Context, lat, lon string) (json.RawMessage, error) {
	q := url.Values{"lat": {lat}, "lon": {lon}, "appid": {c.apiKey}}
	body, err := c.get(ctx, "/air_pollution", q)
	metrics.UpstreamRequestsTotal.WithLabelValues("openweather_air", metrics.Result(err)).Inc()
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("air pollution response is not JSON")
	}
	return json.RawMessage(body), nil
}

// CurrentConditions fetches current weather in metric units.
func (c *Client) CurrentConditions(ctx context.Context, lat, lon float64) (*Conditions, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	q := url.Values{
		"lat":   {strconv.FormatFloat(lat, 'f', -1, 64)},
		"lon":   {strconv.FormatFloat(lon, 'f', -1, 64)},
		"appid": {c.apiKey},
		"units": {"metric"},
	}
	body, err := c.get(ctx, "/weather", q)
	metrics.UpstreamRequestsTotal.WithLabelValues("openweather_current", metrics.Result(err)).Inc()
	if err != nil {
		return nil, err
	}

	var wr currentWeatherResponse
	if err := json.Unmarshal(body, &wr); err != nil {
		return nil, fmt.Errorf("failed to decode weather response: %w", err)
	}

	cond := &Conditions{
		VisibilityKm: wr.Visibility / 1000,
		TemperatureC: wr.Main.Temp,
		Humidity:     wr.Main.Humidity,
		WindSpeed:    wr.Wind.Speed,
		Timestamp:    time.Now(),
	}
	if len(wr.Weather) > 0 {
		cond.Weather = wr.Weather[0].Main
		cond.Description = wr.Weather[0].Description
	}
	return cond, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create weather request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("weather request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read weather response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("OpenWeather returned status %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}
