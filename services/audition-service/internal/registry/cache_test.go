package registry

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/clefside/auditiond/services/audition-service/internal/model"
)

type fakeSource struct {
	windows []model.RecruitingWindow
	calls   int
}

func (f *fakeSource) ListActiveWindows(_ context.Context) ([]model.RecruitingWindow, error) {
	f.calls++
	return f.windows, nil
}

func (f *fakeSource) GetWindow(_ context.Context, id string) (model.RecruitingWindow, error) {
	f.calls++
	for _, w := range f.windows {
		if w.ID == id {
			return w, nil
		}
	}
	return model.RecruitingWindow{}, context.Canceled
}

func testCache(t *testing.T, src Source, ttl time.Duration) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewCache(src, rdb, ttl, slog.Default()), mr
}

func TestCache_ListActiveWindowsCachesResult(t *testing.T) {
	start := time.Date(2026, 9, 12, 13, 0, 0, 0, time.UTC)
	src := &fakeSource{windows: []model.RecruitingWindow{
		{ID: "w1", StartAt: start, EndAt: start.Add(time.Hour), SlotMinutes: 30, Active: true},
	}}
	cache, _ := testCache(t, src, 30*time.Second)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		windows, err := cache.ListActiveWindows(ctx)
		if err != nil {
			t.Fatalf("ListActiveWindows failed: %v", err)
		}
		if len(windows) != 1 || windows[0].ID != "w1" {
			t.Fatalf("unexpected windows %+v", windows)
		}
	}
	if src.calls != 1 {
		t.Fatalf("expected 1 repository call, got %d", src.calls)
	}
}

func TestCache_TTLExpiryRefetches(t *testing.T) {
	src := &fakeSource{}
	cache, mr := testCache(t, src, 5*time.Second)
	ctx := context.Background()

	if _, err := cache.ListActiveWindows(ctx); err != nil {
		t.Fatalf("first read failed: %v", err)
	}
	mr.FastForward(6 * time.Second)
	if _, err := cache.ListActiveWindows(ctx); err != nil {
		t.Fatalf("second read failed: %v", err)
	}
	if src.calls != 2 {
		t.Fatalf("expected refetch after TTL, got %d calls", src.calls)
	}
}

func TestCache_InvalidateDropsEntry(t *testing.T) {
	src := &fakeSource{}
	cache, _ := testCache(t, src, time.Minute)
	ctx := context.Background()

	if _, err := cache.ListActiveWindows(ctx); err != nil {
		t.Fatalf("first read failed: %v", err)
	}
	cache.Invalidate(ctx)
	if _, err := cache.ListActiveWindows(ctx); err != nil {
		t.Fatalf("second read failed: %v", err)
	}
	if src.calls != 2 {
		t.Fatalf("expected refetch after invalidation, got %d calls", src.calls)
	}
}

func TestCache_FallsOpenWhenRedisDown(t *testing.T) {
	src := &fakeSource{}
	cache, mr := testCache(t, src, time.Minute)
	mr.Close()

	windows, err := cache.ListActiveWindows(context.Background())
	if err != nil {
		t.Fatalf("expected fail-open read, got %v", err)
	}
	if windows != nil && len(windows) != 0 {
		t.Fatalf("unexpected windows %+v", windows)
	}
	if src.calls != 1 {
		t.Fatalf("expected repository fallback, got %d calls", src.calls)
	}
}

func TestCache_GetWindowBypassesCache(t *testing.T) {
	start := time.Date(2026, 9, 12, 13, 0, 0, 0, time.UTC)
	src := &fakeSource{windows: []model.RecruitingWindow{
		{ID: "w1", StartAt: start, EndAt: start.Add(time.Hour), SlotMinutes: 30, Active: true},
	}}
	cache, _ := testCache(t, src, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		w, err := cache.GetWindow(ctx, "w1")
		if err != nil {
			t.Fatalf("GetWindow failed: %v", err)
		}
		if w.ID != "w1" {
			t.Fatalf("unexpected window %+v", w)
		}
	}
	if src.calls != 2 {
		t.Fatalf("GetWindow must always hit the source, got %d calls", src.calls)
	}
}
