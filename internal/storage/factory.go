package storage

import (
	"fmt"
	"log/slog"

	"github.com/apronsim/apronsim/internal/config"
	"github.com/apronsim/apronsim/internal/storage/memory"
	"github.com/apronsim/apronsim/internal/storage/postgres"
	sqlitestorage "github.com/apronsim/apronsim/internal/storage/sqlite"
)

// NewBackend creates a journal backend based on configuration. The
// returned backend still needs Init.
func NewBackend(cfg config.StorageConfig, db config.DBConfig, logger *slog.Logger) (Backend, error) {
	switch cfg.Type {
	case "postgres":
		return postgres.New(db, cfg.FlushInterval, logger), nil
	case "sqlite":
		return sqlitestorage.New(cfg.SQLite, cfg.FlushInterval, logger)
	case "memory":
		return memory.New(cfg.Memory), nil
	case "none", "":
		return Nop{}, nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
