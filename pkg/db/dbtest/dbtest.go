// Package dbtest opens isolated in-memory sqlite databases for repository
// tests.
package dbtest

import (
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/creatorhub-backend/pkg/db"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Open returns a fresh database with the given models migrated. Timestamps
// come from a clock that advances one millisecond per reading so ordering by
// created_at is deterministic.
func Open(t *testing.T, models ...any) *gorm.DB {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	cfg := db.NewGormConfig(nil)
	cfg.NowFunc = NewClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)).Now

	conn, err := gorm.Open(sqlite.Open(dsn), cfg)
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if len(models) > 0 {
		require.NoError(t, conn.AutoMigrate(models...))
	}
	return conn
}

// Clock is a monotonically advancing fake clock.
type Clock struct {
	mu      sync.Mutex
	current time.Time
	step    time.Duration
}

func NewClock(start time.Time) *Clock {
	return &Clock{current: start, step: time.Millisecond}
}

// Now returns the current reading and advances the clock.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.current
	c.current = c.current.Add(c.step)
	return now
}

// Set moves the clock to t.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = t
}
