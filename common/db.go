package common

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/apex/log"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
)

// PoolSettings sizes the connection pool and bounds the startup ping loop.
type PoolSettings struct {
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeMin int
	PingMaxWaitSec     int
}

// DBConnect opens a pool for the given driver and waits until the database answers a ping.
func DBConnect(driver, dsn string, pool PoolSettings) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		log.Errorf("Failed to connect to the database: %v", err)
		return nil, err
	}

	// SQLite serializes writers; a single connection also keeps :memory: databases shared.
	if driver == "sqlite3" {
		pool.MaxOpenConns = 1
		pool.MaxIdleConns = 1
	}

	if pool.MaxOpenConns > 0 {
		db.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		db.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetimeMin > 0 {
		db.SetConnMaxLifetime(time.Duration(pool.ConnMaxLifetimeMin) * time.Minute)
	}

	if err := waitForPing(db, time.Duration(pool.PingMaxWaitSec)*time.Second); err != nil {
		db.Close()
		return nil, err
	}

	log.WithFields(log.Fields{
		"driver":           driver,
		"open":             pool.MaxOpenConns,
		"idle":             pool.MaxIdleConns,
		"max_lifetime_min": pool.ConnMaxLifetimeMin,
	}).Info("Established db connection pool")
	return db, nil
}

func waitForPing(db *sql.DB, maxWait time.Duration) error {
	deadline := time.Now().Add(maxWait)
	waitInterval := time.Second
	for {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		pingErr := db.PingContext(ctx)
		cancel()
		if pingErr == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("database ping timeout after %v: %w", maxWait, pingErr)
		}
		log.Warnf("Database connection failed, retrying in %v: %v", waitInterval, pingErr)
		time.Sleep(waitInterval)
		waitInterval *= 2
		if waitInterval > 30*time.Second {
			waitInterval = 30 * time.Second
		}
	}
}
