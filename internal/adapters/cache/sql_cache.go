package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/mailpilot/internal/core"
)

// sqlCache holds the statements shared by the SQL backends. Expiry is stored as unix nanoseconds.
type sqlCache struct {
	db          *sql.DB
	backend     string
	upsert      string
	logger      *zap.Logger
	cleanupFreq time.Duration
	stopCh      chan struct{}
	stopOnce    sync.Once
}

func newSQLCache(db *sql.DB, backend, upsert string, logger *zap.Logger, cleanupFreq time.Duration) *sqlCache {
	c := &sqlCache{
		db:          db,
		backend:     backend,
		upsert:      upsert,
		logger:      logger.With(zap.String("cache", backend)),
		cleanupFreq: cleanupFreq,
		stopCh:      make(chan struct{}),
	}
	if cleanupFreq > 0 {
		go c.startCleanupTask()
	}
	return c
}

// Get retrieves a cached result
func (c *sqlCache) Get(ctx context.Context, key string) (*core.AnalysisResult, error) {
	var data []byte
	err := c.db.QueryRowContext(ctx,
		`SELECT result FROM analysis_cache WHERE cache_key = ? AND expires_at > ?`,
		key, time.Now().UnixNano(),
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query %s cache: %w", c.backend, err)
	}
	return decodeResult(data)
}

// Set stores result until ttl elapses, replacing any previous entry for key
func (c *sqlCache) Set(ctx context.Context, key string, result *core.AnalysisResult, ttl time.Duration) error {
	data, err := encodeResult(result)
	if err != nil {
		return err
	}
	if _, err := c.db.ExecContext(ctx, c.upsert, key, string(data), time.Now().Add(ttl).UnixNano()); err != nil {
		return fmt.Errorf("failed to store %s cache entry: %w", c.backend, err)
	}
	return nil
}

// Delete removes a cache entry
func (c *sqlCache) Delete(ctx context.Context, key string) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM analysis_cache WHERE cache_key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete %s cache entry: %w", c.backend, err)
	}
	return nil
}

// Cleanup removes expired entries
func (c *sqlCache) Cleanup(ctx context.Context) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM analysis_cache WHERE expires_at <= ?`, time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to clean up %s cache: %w", c.backend, err)
	}
	if n, err := res.RowsAffected(); err == nil {
		c.logger.Debug("Cleaned up expired cache entries", zap.Int64("expired_count", n))
	}
	return nil
}

func (c *sqlCache) startCleanupTask() {
	ticker := time.NewTicker(c.cleanupFreq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.Cleanup(context.Background()); err != nil {
				c.logger.Error("Failed to clean up cache", zap.Error(err))
			}
		case <-c.stopCh:
			return
		}
	}
}

// Stop ends the cleanup task and closes the database
func (c *sqlCache) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
		if err := c.db.Close(); err != nil {
			c.logger.Error("Failed to close cache database", zap.Error(err))
		}
	})
}

// migrate runs each statement in order and closes db on the first failure
func migrate(db *sql.DB, statements ...string) error {
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return fmt.Errorf("failed to create cache schema: %w", err)
		}
	}
	return nil
}
