// Package backend selects and constructs the storage engine.
package backend

import (
	"fmt"
	"log/slog"

	"fintrack/internal/storage"
	"fintrack/internal/storage/jsonfile"
)

type Type string

const (
	SQLiteBackend   Type = "sqlite"
	JSONFileBackend Type = "jsonfile"
)

func (t Type) IsValid() bool {
	return t == SQLiteBackend || t == JSONFileBackend
}

type Config struct {
	Type         Type
	SQLiteDBPath string
	DataDir      string
}

// Open builds the configured store. Callers own the returned handle and
// must Close it on shutdown.
func Open(cfg Config, logger *slog.Logger) (storage.Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if !cfg.Type.IsValid() {
		return nil, fmt.Errorf("invalid backend type: %s", cfg.Type)
	}

	switch cfg.Type {
	case SQLiteBackend:
		store, err := storage.NewSQLiteStore(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("initialize sqlite store: %w", err)
		}
		logger.Info("Initialized SQLite backend", "path", cfg.SQLiteDBPath)
		return store, nil
	default:
		store, err := jsonfile.NewStore(cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("initialize jsonfile store: %w", err)
		}
		logger.Info("Initialized JSON file backend", "dir", cfg.DataDir)
		return store, nil
	}
}
