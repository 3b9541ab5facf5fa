package osm

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang/geo/s2"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const overpassBody = `{"elements":[
	{"type":"node","id":1,"lat":22.5800,"lon":88.3639,"tags":{"amenity":"hospital","name":"City Hospital"}},
	{"type":"node","id":2,"lat":22.5730,"lon":88.3640,"tags":{"amenity":"police"}},
	{"type":"node","id":3,"lat":22.5727,"lon":88.3639}
]}`

func TestEmergencyQuery(t *testing.T) {
	q := EmergencyQuery(22.5726, 88.3639, 5000)
	assert.Equal(t, `[out:json];node["amenity"~"hospital|police|fire_station"](around:5000,22.5726,88.3639);out;`, q)

	q = EmergencyQuery(0.00001, -0.0000005, 300)
	assert.Equal(t, `[out:json];node["amenity"~"hospital|police|fire_station"](around:300,0.00001,-0.0000005);out;`, q)
}

func TestNearbyEmergencyServices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.True(t, strings.Contains(r.Form.Get("data"), "around:5000,22.5726,88.3639"))
		assert.Equal(t, UserAgent, r.Header.Get("User-Agent"))
		w.Write([]byte(overpassBody))
	}))
	defer srv.Close()

	places, err := NewClient(srv.URL, time.Second).NearbyEmergencyServices(context.Background(), 22.5726, 88.3639, 5000)

	require.NoError(t, err)
	require.Len(t, places, 3)
	assert.Equal(t, "City Hospital", places[0].Name)
	assert.Equal(t, "hospital", places[0].Type)
	assert.Equal(t, "Emergency Service", places[1].Name)
	assert.Equal(t, "police", places[1].Type)
	assert.Equal(t, "unknown", places[2].Type)
	assert.InDelta(t, 822, places[0].DistanceMeters, 5)
}

func TestNearbyEmergencyServicesErrors(t *testing.T) {
	for _, body := range []string{"rate limited", "not json"} {
		status := http.StatusTooManyRequests
		if body == "not json" {
			status = http.StatusOK
		}
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			w.Write([]byte(body))
		}))
		_, err := NewClient(srv.URL, time.Second).NearbyEmergencyServices(context.Background(), 1, 2, 100)
		assert.Error(t, err, body)
		srv.Close()
	}
}

func TestNearestByType(t *testing.T) {
	places := []Place{
		{Name: "far hospital", Type: "hospital", DistanceMeters: 900},
		{Name: "near hospital", Type: "hospital", DistanceMeters: 100},
		{Name: "police", Type: "police", DistanceMeters: 300},
		{Name: "mid hospital", Type: "hospital", DistanceMeters: 400},
	}

	got := NearestByType(places, 2)

	require.Len(t, got, 3)
	assert.Equal(t, "near hospital", got[0].Name)
	assert.Equal(t, "police", got[1].Name)
	assert.Equal(t, "mid hospital", got[2].Name)
	assert.Equal(t, "far hospital", places[0].Name, "input must not be reordered")
}

func TestDistanceMeters(t *testing.T) {
	a := s2.LatLngFromDegrees(0, 0)
	b := s2.LatLngFromDegrees(0, 1)
	assert.InDelta(t, 111195, DistanceMeters(a, b), 10)
}

type countingFinder struct {
	calls  int
	places []Place
	err    error
}

func (f *countingFinder) NearbyEmergencyServices(ctx context.Context, lat, lon float64, radius int) ([]Place, error) {
	f.calls++
	return f.places, f.err
}

func newCache(t *testing.T, finder EmergencyFinder) *CachedEmergencyService {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	s := NewCachedEmergencyService(finder, db, "sqlite3", time.Hour)
	require.NoError(t, s.CreateCacheTable(context.Background()))
	return s
}

func TestCachedEmergencyService(t *testing.T) {
	ctx := context.Background()
	finder := &countingFinder{places: []Place{{Name: "Fire Station 4", Type: "fire_station"}}}
	s := newCache(t, finder)
	now := time.Date(2026, 1, 6, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	first, err := s.NearbyEmergencyServices(ctx, 22.5726, 88.3639, 5000)
	require.NoError(t, err)
	second, err := s.NearbyEmergencyServices(ctx, 22.57261, 88.36391, 5000)
	require.NoError(t, err)

	assert.Equal(t, 1, finder.calls, "nearby point in the same grid cell must hit the cache")
	assert.Equal(t, first, second)

	_, err = s.NearbyEmergencyServices(ctx, 22.5726, 88.3639, 1000)
	require.NoError(t, err)
	assert.Equal(t, 2, finder.calls, "radius is part of the key")

	now = now.Add(2 * time.Hour)
	_, err = s.NearbyEmergencyServices(ctx, 22.5726, 88.3639, 5000)
	require.NoError(t, err)
	assert.Equal(t, 3, finder.calls, "expired entries are refetched")

	now = now.Add(2 * time.Hour)
	removed, err := s.CleanExpiredCache(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)
}

func TestCachedEmergencyServiceDoesNotCacheErrors(t *testing.T) {
	finder := &countingFinder{err: errors.New("overpass down")}
	s := newCache(t, finder)

	_, err := s.NearbyEmergencyServices(context.Background(), 1, 1, 100)
	assert.Error(t, err)
	_, err = s.NearbyEmergencyServices(context.Background(), 1, 1, 100)
	assert.Error(t, err)
	assert.Equal(t, 2, finder.calls)
}
