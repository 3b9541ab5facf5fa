package database

import (
	"context"
	"database/sql"
	"fmt"

	"saferoads/common"
	"saferoads/config"

	"github.com/apex/log"
)

// Database wraps the reports store for one SQL driver.
type Database struct {
	db     *sql.DB
	driver string
}

// NewDatabase connects using the configured driver and makes sure the schema exists.
func NewDatabase(ctx context.Context, cfg *config.Config) (*Database, error) {
	db, err := common.DBConnect(cfg.DBDriver, cfg.DSN(), common.PoolSettings{
		MaxOpenConns:       cfg.DBMaxOpenConns,
		MaxIdleConns:       cfg.DBMaxIdleConns,
		ConnMaxLifetimeMin: cfg.DBConnMaxLifetimeMin,
		PingMaxWaitSec:     cfg.DBPingMaxWaitSec,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	d := New(db, cfg.DBDriver)
	if err := d.InitSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

// New wraps an already opened pool.
func New(db *sql.DB, driver string) *Database {
	return &Database{db: db, driver: driver}
}

func (d *Database) DB() *sql.DB {
	return d.db
}

func (d *Database) Driver() string {
	return d.driver
}

func (d *Database) Close() error {
	return d.db.Close()
}

// InitSchema creates the reports table if it does not exist.
func (d *Database) InitSchema(ctx context.Context) error {
	ddl := sqliteReportsTable
	if d.driver == config.DriverMySQL {
		ddl = mysqlReportsTable
	}
	if _, err := d.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create reports table: %w", err)
	}
	log.Info("reports table verified/created")
	return nil
}

const (
	sqliteReportsTable = `CREATE TABLE IF NOT EXISTS reports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		damage_score INTEGER NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

	mysqlReportsTable = `CREATE TABLE IF NOT EXISTS reports (
		id INT AUTO_INCREMENT PRIMARY KEY,
		damage_score INT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`
)
