// Package postgres implements the storage.Backend interface on a
// PostgreSQL/PostGIS database through the GORM backend.
package postgres

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/apronsim/apronsim/internal/config"
	"github.com/apronsim/apronsim/internal/database"
	gormstorage "github.com/apronsim/apronsim/internal/storage/gorm"
)

// Backend connects to Postgres on Init and delegates to the GORM backend.
type Backend struct {
	*gormstorage.Backend
	cfg           config.DBConfig
	flushInterval time.Duration
	log           *slog.Logger
}

// New creates a new Postgres storage backend. No connection is made
// until Init.
func New(cfg config.DBConfig, flushInterval time.Duration, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		cfg:           cfg,
		flushInterval: flushInterval,
		log:           logger,
	}
}

// Init connects, validates the connection and starts the GORM backend.
func (b *Backend) Init() error {
	b.log.Debug("connecting to Postgres", "host", b.cfg.Host, "port", b.cfg.Port, "database", b.cfg.Database)

	db, err := database.GetPostgresDB(b.cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}

	b.Backend = gormstorage.New(gormstorage.Dependencies{
		DB:            db,
		Logger:        b.log,
		FlushInterval: b.flushInterval,
	})
	if err := b.Backend.Init(); err != nil {
		return err
	}

	b.log.Info("Connected to database", "host", b.cfg.Host, "database", b.cfg.Database)
	return nil
}

// Close flushes and stops the GORM backend, then closes the pool.
func (b *Backend) Close() error {
	if b.Backend == nil {
		return nil
	}
	if err := b.Backend.Close(); err != nil {
		return err
	}
	sqlDB, err := b.DB().DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
