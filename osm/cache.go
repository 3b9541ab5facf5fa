package osm

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"saferoads/common"
	"saferoads/metrics"

	"github.com/apex/log"
)

// CacheGridSize is the grid size in meters for coordinate rounding
const CacheGridSize = 100.0

// CachedEmergencyService wraps an EmergencyFinder with a SQL-backed cache keyed by
// grid cell and radius.
type CachedEmergencyService struct {
	finder EmergencyFinder
	db     *sql.DB
	driver string
	ttl    time.Duration
	now    func() time.Time
}

func NewCachedEmergencyService(finder EmergencyFinder, db *sql.DB, driver string, ttl time.Duration) *CachedEmergencyService {
	return &CachedEmergencyService{
		finder: finder,
		db:     db,
		driver: driver,
		ttl:    ttl,
		now:    time.Now,
	}
}

const (
	sqliteCacheTable = `CREATE TABLE IF NOT EXISTS emergency_cache (
		lat_grid REAL NOT NULL,
		lon_grid REAL NOT NULL,
		radius_m INTEGER NOT NULL,
		places TEXT NOT NULL,
		expires_at TIMESTAMP NOT NULL,
		PRIMARY KEY (lat_grid, lon_grid, radius_m)
	)`

	mysqlCacheTable = `CREATE TABLE IF NOT EXISTS emergency_cache (
		lat_grid DOUBLE NOT NULL,
		lon_grid DOUBLE NOT NULL,
		radius_m INT NOT NULL,
		places JSON NOT NULL,
		expires_at TIMESTAMP NOT NULL,
		PRIMARY KEY (lat_grid, lon_grid, radius_m),
		INDEX idx_expires (expires_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`
)

// CreateCacheTable creates the emergency cache table if it doesn't exist
func (s *CachedEmergencyService) CreateCacheTable(ctx context.Context) error {
	ddl := sqliteCacheTable
	if s.driver == "mysql" {
		ddl = mysqlCacheTable
	}
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create emergency_cache table: %w", err)
	}
	log.Info("emergency_cache table verified/created")
	return nil
}

// roundToGrid snaps a coordinate to the cache grid so nearby callers share an entry.
func roundToGrid(coord float64) float64 {
	metersPerDegree := 111320.0
	gridDegrees := CacheGridSize / metersPerDegree
	return math.Round(coord/gridDegrees) * gridDegrees
}

// NearbyEmergencyServices answers from the cache when a fresh entry exists and
// otherwise asks the wrapped finder. Cache failures never fail the lookup.
func (s *CachedEmergencyService) NearbyEmergencyServices(ctx context.Context, lat, lon float64, radiusMeters int) ([]Place, error) {
	latGrid, lonGrid := roundToGrid(lat), roundToGrid(lon)

	places, err := s.getFromCache(ctx, latGrid, lonGrid, radiusMeters)
	if err != nil {
		log.WithError(err).Warn("emergency cache read failed")
	}
	if places != nil {
		metrics.EmergencyCacheTotal.WithLabelValues("hit").Inc()
		log.Debugf("emergency cache hit for (%.6f, %.6f)", lat, lon)
		return places, nil
	}
	metrics.EmergencyCacheTotal.WithLabelValues("miss").Inc()

	places, err = s.finder.NearbyEmergencyServices(ctx, lat, lon, radiusMeters)
	if err != nil {
		return nil, err
	}

	if err := s.saveToCache(ctx, latGrid, lonGrid, radiusMeters, places); err != nil {
		log.WithError(err).Warn("failed to cache emergency lookup")
	}
	return places, nil
}

func (s *CachedEmergencyService) getFromCache(ctx context.Context, latGrid, lonGrid float64, radius int) ([]Place, error) {
	var placesJSON string
	err := s.db.QueryRowContext(ctx, `
		SELECT places FROM emergency_cache
		WHERE lat_grid = ? AND lon_grid = ? AND radius_m = ? AND expires_at > ?`,
		latGrid, lonGrid, radius, s.now().UTC()).Scan(&placesJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query cache: %w", err)
	}

	places := make([]Place, 0)
	if err := json.Unmarshal([]byte(placesJSON), &places); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached places: %w", err)
	}
	return places, nil
}

func (s *CachedEmergencyService) saveToCache(ctx context.Context, latGrid, lonGrid float64, radius int, places []Place) error {
	placesJSON, err := json.Marshal(places)
	if err != nil {
		return fmt.Errorf("failed to marshal places: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		REPLACE INTO emergency_cache (lat_grid, lon_grid, radius_m, places, expires_at)
		VALUES (?, ?, ?, ?, ?)`,
		latGrid, lonGrid, radius, string(placesJSON), s.now().UTC().Add(s.ttl))
	common.LogResult("saveToCache", result, err, false)
	if err != nil {
		return fmt.Errorf("failed to save to cache: %w", err)
	}
	return nil
}

// CleanExpiredCache removes expired cache entries
func (s *CachedEmergencyService) CleanExpiredCache(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM emergency_cache WHERE expires_at < ?", s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to clean expired cache: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows, nil
}
