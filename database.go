package main

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"go-editor/observability"
	"go-editor/plugin"
)

// openStore opens the SQLite database backing the scripts' storage module.
// An empty path disables storage and returns a nil db.
func openStore(path string, logger *observability.Logger) (*sql.DB, error) {
	if path == "" {
		return nil, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	logger.Infow("using plugin storage", "path", path)
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	// Enable WAL mode for better concurrent access
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		logger.Warnw("failed to enable WAL mode", "error", err)
	}

	if err := plugin.EnsureStorageSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
