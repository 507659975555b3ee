package cache

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

// MySQLCache keeps results in a shared MySQL table
type MySQLCache struct {
	*sqlCache
}

// NewMySQLCache connects to dsn and creates the cache table if needed
func NewMySQLCache(dsn string, logger *zap.Logger, cleanupFreq time.Duration) (*MySQLCache, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	if err := migrate(db,
		`CREATE TABLE IF NOT EXISTS analysis_cache (
			cache_key CHAR(64) PRIMARY KEY,
			result MEDIUMTEXT NOT NULL,
			expires_at BIGINT NOT NULL,
			INDEX idx_expires_at (expires_at)
		)`,
	); err != nil {
		return nil, err
	}

	upsert := `INSERT INTO analysis_cache (cache_key, result, expires_at) VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE result = VALUES(result), expires_at = VALUES(expires_at)`
	return &MySQLCache{newSQLCache(db, "mysql", upsert, logger, cleanupFreq)}, nil
}
