// Package store persists complaints, reference neighborhoods, aggregates and
// ETL runs with GORM. Production runs on Postgres with PostGIS; tests and local
// runs use SQLite.
package store

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Store is the GORM-backed persistence layer.
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

// Open connects to Postgres using a DSN or URL.
func Open(dsn string, logger *slog.Logger) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return New(db, logger), nil
}

// OpenSQLite opens a SQLite database. Writes are serialized over a single
// connection, which also keeps in-memory databases alive for the store's
// lifetime.
func OpenSQLite(dsn string, logger *slog.Logger) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	return New(db, logger), nil
}

// New wraps an existing GORM handle.
func New(db *gorm.DB, logger *slog.Logger) *Store {
	return &Store{db: db, logger: logger}
}

func gormConfig() *gorm.Config {
	return &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)}
}

// Migrate creates or updates the schema. On Postgres it also adds the PostGIS
// boundary column used by the neighborhood resolver.
func (s *Store) Migrate(ctx context.Context) error {
	db := s.db.WithContext(ctx)
	if err := db.AutoMigrate(&Neighborhood{}, &Complaint{}, &AggregateDaily{}, &AggregateSummary{}, &EtlRun{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	if s.db.Dialector.Name() != "postgres" {
		return nil
	}
	for _, stmt := range postgisDDL {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("postgis migration: %w", err)
		}
	}
	return nil
}

var postgisDDL = []string{
	`CREATE EXTENSION IF NOT EXISTS postgis`,
	`ALTER TABLE neighborhoods ADD COLUMN IF NOT EXISTS boundary geometry(MultiPolygon, 4326)`,
	`CREATE INDEX IF NOT EXISTS idx_neighborhoods_boundary ON neighborhoods USING GIST (boundary)`,
}

// CheckReadiness pings the database.
func (s *Store) CheckReadiness(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
