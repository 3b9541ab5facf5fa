package handlers

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"saferoads/api"
	"saferoads/assessment"
	"saferoads/config"
	"saferoads/database"
	"saferoads/llm"
	"saferoads/osm"
	"saferoads/service"

	"github.com/gin-gonic/gin"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLLM struct {
	replies []string
	err     error
}

func (f *fakeLLM) AnalyzeImage(ctx context.Context, image []byte, mimeType, prompt string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	reply := f.replies[0]
	if len(f.replies) > 1 {
		f.replies = f.replies[1:]
	}
	return reply, nil
}

func (f *fakeLLM) SourceName() string { return "Fake" }

type fakeFinder struct {
	places []osm.Place
	err    error
	radius int
}

func (f *fakeFinder) NearbyEmergencyServices(ctx context.Context, lat, lon float64, radiusMeters int) ([]osm.Place, error) {
	f.radius = radiusMeters
	return f.places, f.err
}

type fakeAir struct {
	raw json.RawMessage
	err error
}

func (f *fakeAir) AirPollution(ctx context.Context, lat, lon string) (json.RawMessage, error) {
	return f.raw, f.err
}

type testEnv struct {
	router *gin.Engine
	db     *database.Database
	finder *fakeFinder
	air    *fakeAir
}

func newTestEnv(t *testing.T, fake *fakeLLM) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	sqlDB, err := sql.Open(config.DriverSQLite, ":memory:")
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	db := database.New(sqlDB, config.DriverSQLite)
	require.NoError(t, db.InitSchema(context.Background()))

	cfg := &config.Config{DamageThreshold: 75, VisibilityThresholdKm: 1.0, EmergencyRadiusMeters: 5000}

	var client llm.Client
	if fake != nil {
		client = fake
	}
	assessor := assessment.NewAssessor(client, assessment.NewSimulator(1))
	scans := service.NewScanService(assessor, db, cfg.DamageThreshold, 1024)

	env := &testEnv{db: db, finder: &fakeFinder{}, air: &fakeAir{}}
	h := NewHandlers(cfg, scans, env.finder, env.air, nil)
	env.router = NewRouter(h, []string{"*"})
	return env
}

func pngUpload(t *testing.T, contentType string) (*bytes.Buffer, string) {
	t.Helper()
	var img bytes.Buffer
	require.NoError(t, png.Encode(&img, image.NewRGBA(image.Rect(0, 0, 8, 8))))

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", `form-data; name="image"; filename="road.png"`)
	hdr.Set("Content-Type", contentType)
	part, err := w.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(img.Bytes())
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func (e *testEnv) scan(t *testing.T, contentType string) *httptest.ResponseRecorder {
	body, ct := pngUpload(t, contentType)
	req := httptest.NewRequest(http.MethodPost, api.ScanEndpoint, body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) get(path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestScanRecordsAndEscalates(t *testing.T) {
	env := newTestEnv(t, &fakeLLM{replies: []string{`{"damage_score": 90}`}})

	rec := env.scan(t, "image/png")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"damage_score":90,"auto_reported":true}`, rec.Body.String())

	n, err := env.db.CountReports(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestScanBelowThreshold(t *testing.T) {
	env := newTestEnv(t, &fakeLLM{replies: []string{"Here you go: {\"damage_score\": 75, \"severity\": \"minor\"} thanks"}})

	rec := env.scan(t, "image/png")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"damage_score":75,"auto_reported":false}`, rec.Body.String())
}

func TestScanFailures(t *testing.T) {
	testCases := []struct {
		name        string
		llm         *fakeLLM
		contentType string
		wantError   string
	}{
		{
			name:        "upstream error",
			llm:         &fakeLLM{err: errors.New("503 Service Unavailable")},
			contentType: "image/png",
			wantError:   api.ErrScanFailed,
		},
		{
			name:        "reply without json",
			llm:         &fakeLLM{replies: []string{"the road looks fine"}},
			contentType: "image/png",
			wantError:   api.ErrScanFailed,
		},
		{
			name:        "score out of range",
			llm:         &fakeLLM{replies: []string{`{"damage_score": 140}`}},
			contentType: "image/png",
			wantError:   api.ErrScanFailed,
		},
		{
			name:        "no inference service",
			llm:         nil,
			contentType: "image/png",
			wantError:   api.ErrScanFailed,
		},
		{
			name:        "unsupported type",
			llm:         &fakeLLM{replies: []string{`{"damage_score": 10}`}},
			contentType: "image/gif",
			wantError:   "Please upload a valid image (JPG, PNG) or video (MP4)",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t, tc.llm)

			rec := env.scan(t, tc.contentType)

			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			var resp api.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tc.wantError, resp.Error)

			n, err := env.db.CountReports(context.Background())
			require.NoError(t, err)
			assert.Equal(t, 0, n)
		})
	}
}

func TestScanMissingImage(t *testing.T) {
	env := newTestEnv(t, &fakeLLM{replies: []string{`{"damage_score": 10}`}})

	req := httptest.NewRequest(http.MethodPost, api.ScanEndpoint, nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"AI Scan Failed"}`, rec.Body.String())
}

func TestGetReportsNewestFirst(t *testing.T) {
	env := newTestEnv(t, &fakeLLM{replies: []string{`{"damage_score": 20}`, `{"damage_score": 80}`}})

	rec := env.get(api.ReportsEndpoint)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	require.Equal(t, http.StatusOK, env.scan(t, "image/png").Code)
	require.Equal(t, http.StatusOK, env.scan(t, "image/png").Code)

	rec = env.get(api.ReportsEndpoint)
	require.Equal(t, http.StatusOK, rec.Code)

	var reports []api.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reports))
	require.Len(t, reports, 2)
	assert.Equal(t, 80, reports[0].DamageScore)
	assert.Equal(t, 20, reports[1].DamageScore)
	assert.Greater(t, reports[0].Id, reports[1].Id)
}

func TestGetReportsStoreFailure(t *testing.T) {
	env := newTestEnv(t, nil)
	require.NoError(t, env.db.Close())

	rec := env.get(api.ReportsEndpoint)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Failed to load reports"}`, rec.Body.String())
}

func TestGetEmergency(t *testing.T) {
	env := newTestEnv(t, nil)
	env.finder.places = []osm.Place{
		{Name: "City Hospital", Type: "hospital", DistanceMeters: 1200},
		{Name: "Emergency Service", Type: "police"},
	}

	rec := env.get(api.EmergencyEndpoint + "?lat=22.5726&lon=88.3639")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"name":"City Hospital","type":"hospital"},{"name":"Emergency Service","type":"police"}]`, rec.Body.String())
	assert.Equal(t, 5000, env.finder.radius)
}

func TestGetEmergencyFailures(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.get(api.EmergencyEndpoint + "?lat=north&lon=88.3639")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Emergency lookup failed"}`, rec.Body.String())

	env.finder.err = errors.New("overpass timeout")
	rec = env.get(api.EmergencyEndpoint + "?lat=22.5&lon=88.3")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Emergency lookup failed"}`, rec.Body.String())
}

func TestGetAirPassesThrough(t *testing.T) {
	env := newTestEnv(t, nil)
	env.air.raw = json.RawMessage(`{"list":[{"main":{"aqi":2}}]}`)

	rec := env.get(api.AirEndpoint + "?lat=1&lon=2")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"list":[{"main":{"aqi":2}}]}`, rec.Body.String())

	env.air.err = errors.New("401 Unauthorized")
	rec = env.get(api.AirEndpoint + "?lat=1&lon=2")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Weather fetch failed"}`, rec.Body.String())
}

func TestGetConfigAndHealth(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.get(api.ConfigEndpoint)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"damage_threshold":75,"visibility_threshold_km":1,"emergency_radius_m":5000}`, rec.Body.String())

	rec = env.get(api.HealthEndpoint)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy","service":"saferoads"}`, rec.Body.String())

	rec = env.get(api.EscalationsEndpoint)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t, nil)

	req := httptest.NewRequest(http.MethodOptions, api.ScanEndpoint, nil)
	req.Header.Set("Origin", "http://localhost:5500")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
