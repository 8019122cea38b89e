package registry

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/clefside/auditiond/services/audition-service/internal/model"
)

const activeWindowsKey = "auditions:windows:active"

// Source is the read contract the booking core consumes.
type Source interface {
	ListActiveWindows(ctx context.Context) ([]model.RecruitingWindow, error)
	GetWindow(ctx context.Context, id string) (model.RecruitingWindow, error)
}

// Cache fronts the window repository with a short-TTL Redis cache for
// the active-window list. Windows are read-mostly; staleness only
// affects which dates appear open, never booking correctness, so every
// Redis failure falls open to the database.
type Cache struct {
	next   Source
	rdb    *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewCache(next Source, rdb *redis.Client, ttl time.Duration, logger *slog.Logger) *Cache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Cache{next: next, rdb: rdb, ttl: ttl, logger: logger}
}

func (c *Cache) ListActiveWindows(ctx context.Context) ([]model.RecruitingWindow, error) {
	if c.rdb != nil {
		raw, err := c.rdb.Get(ctx, activeWindowsKey).Bytes()
		if err == nil {
			var windows []model.RecruitingWindow
			if jsonErr := json.Unmarshal(raw, &windows); jsonErr == nil {
				return windows, nil
			}
			// Corrupt entry; fall through and repopulate.
		} else if err != redis.Nil {
			c.logger.Warn("window cache read failed", "err", err)
		}
	}

	windows, err := c.next.ListActiveWindows(ctx)
	if err != nil {
		return nil, err
	}
	c.store(ctx, windows)
	return windows, nil
}

// GetWindow always hits the database: single-window reads sit on the
// reserve path, where a stale definition would let an applicant claim
// a slot in a just-deactivated window.
func (c *Cache) GetWindow(ctx context.Context, id string) (model.RecruitingWindow, error) {
	return c.next.GetWindow(ctx, id)
}

// Invalidate drops the cached list after an admin write.
func (c *Cache) Invalidate(ctx context.Context) {
	if c.rdb == nil {
		return
	}
	if err := c.rdb.Del(ctx, activeWindowsKey).Err(); err != nil {
		c.logger.Warn("window cache invalidation failed", "err", err)
	}
}

func (c *Cache) store(ctx context.Context, windows []model.RecruitingWindow) {
	if c.rdb == nil {
		return
	}
	raw, err := json.Marshal(windows)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, activeWindowsKey, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("window cache write failed", "err", err)
	}
}
