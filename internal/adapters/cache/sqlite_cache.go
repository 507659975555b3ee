package cache

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// SQLiteCache keeps results in a local SQLite file
type SQLiteCache struct {
	*sqlCache
}

// NewSQLiteCache opens or creates the database at dbPath
func NewSQLiteCache(dbPath string, logger *zap.Logger, cleanupFreq time.Duration) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// a single writer avoids SQLITE_BUSY from the cleanup goroutine
	db.SetMaxOpenConns(1)

	if err := migrate(db,
		`CREATE TABLE IF NOT EXISTS analysis_cache (
			cache_key TEXT PRIMARY KEY,
			result TEXT NOT NULL,
			expires_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_analysis_cache_expires_at ON analysis_cache(expires_at)`,
	); err != nil {
		return nil, err
	}

	upsert := `INSERT OR REPLACE INTO analysis_cache (cache_key, result, expires_at) VALUES (?, ?, ?)`
	return &SQLiteCache{newSQLCache(db, "sqlite", upsert, logger, cleanupFreq)}, nil
}
