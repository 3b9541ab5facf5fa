// Package client calls the SafeRoads HTTP API. It backs the roadctl dev tool.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"saferoads/api"
	"saferoads/models"
)

const DefaultServiceURL = "http://127.0.0.1:5500"

// APIError is a non-2xx answer from the service.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d: %s", e.StatusCode, e.Message)
}

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultServiceURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Scan uploads one photo. loc may be nil.
func (c *Client) Scan(ctx context.Context, filename, contentType string, image io.Reader, loc *models.Location) (*api.ScanResponse, error) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, api.ImageField, filepath.Base(filename)))
	if contentType != "" {
		hdr.Set("Content-Type", contentType)
	}
	part, err := w.CreatePart(hdr)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, image); err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if loc != nil {
		_ = w.WriteField("lat", strconv.FormatFloat(loc.Lat, 'f', -1, 64))
		_ = w.WriteField("lng", strconv.FormatFloat(loc.Lng, 'f', -1, 64))
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+api.ScanEndpoint, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	var resp api.ScanResponse
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Reports(ctx context.Context) ([]api.Report, error) {
	var reports []api.Report
	if err := c.get(ctx, api.ReportsEndpoint, nil, &reports); err != nil {
		return nil, err
	}
	return reports, nil
}

func (c *Client) Emergency(ctx context.Context, lat, lon float64) ([]api.EmergencyService, error) {
	q := url.Values{
		"lat": {strconv.FormatFloat(lat, 'f', -1, 64)},
		"lon": {strconv.FormatFloat(lon, 'f', -1, 64)},
	}
	var services []api.EmergencyService
	if err := c.get(ctx, api.EmergencyEndpoint, q, &services); err != nil {
		return nil, err
	}
	return services, nil
}

// Air returns the raw air quality payload.
func (c *Client) Air(ctx context.Context, lat, lon string) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.get(ctx, api.AirEndpoint, url.Values{"lat": {lat}, "lon": {lon}}, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (c *Client) Config(ctx context.Context) (*api.ConfigResponse, error) {
	var cfg api.ConfigResponse
	if err := c.get(ctx, api.ConfigEndpoint, nil, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out interface{}) error {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e api.ErrorResponse
		if json.Unmarshal(body, &e) == nil && e.Error != "" {
			return &APIError{StatusCode: resp.StatusCode, Message: e.Error}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
