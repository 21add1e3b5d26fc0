package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestMemoryStoreCreateAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour, 10)

	id, err := store.Create(ctx, "CSV Headers: a | b")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !validID(id) {
		t.Fatalf("expected uuid session id, got %q", id)
	}
	got, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Content != "CSV Headers: a | b" {
		t.Fatalf("content mismatch: %q", got.Content)
	}

	// Returned sessions are copies.
	got.Content = "mutated"
	again, _ := store.Get(ctx, id)
	if again.Content != "CSV Headers: a | b" {
		t.Fatalf("stored content was modified through returned value")
	}
}

func TestMemoryStoreDistinctIDs(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour, 0)
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		id, err := store.Create(ctx, "same text")
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}

func TestMemoryStoreUnknownID(t *testing.T) {
	store := NewMemoryStore(time.Hour, 10)
	if _, err := store.Get(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := store.Invalidate(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on invalidate, got %v", err)
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := NewMemoryStore(time.Hour, 10)
	store.now = clock.Now

	id, _ := store.Create(ctx, "ctx")
	clock.Advance(59 * time.Minute)
	if _, err := store.Get(ctx, id); err != nil {
		t.Fatalf("session should still be live: %v", err)
	}
	clock.Advance(time.Minute)
	if _, err := store.Get(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expired session to be gone, got %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("expired session should be dropped on access")
	}
}

func TestMemoryStoreCapacityEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour, 3)

	ids := make([]string, 3)
	for i := range ids {
		ids[i], _ = store.Create(ctx, fmt.Sprintf("file %d", i))
	}
	// Touch the oldest so the second one becomes the eviction candidate.
	if _, err := store.Get(ctx, ids[0]); err != nil {
		t.Fatalf("get: %v", err)
	}
	newest, _ := store.Create(ctx, "file 3")

	if store.Len() != 3 {
		t.Fatalf("expected capacity to hold at 3, got %d", store.Len())
	}
	if _, err := store.Get(ctx, ids[1]); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected least recently used session to be evicted, got %v", err)
	}
	for _, id := range []string{ids[0], ids[2], newest} {
		if _, err := store.Get(ctx, id); err != nil {
			t.Fatalf("session %s should survive: %v", id, err)
		}
	}
}

func TestMemoryStoreInvalidate(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour, 10)
	id, _ := store.Create(ctx, "ctx")

	if err := store.Invalidate(ctx, id); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, err := store.Get(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after invalidate, got %v", err)
	}
	if err := store.Invalidate(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second invalidate should report ErrNotFound, got %v", err)
	}
}

func TestMemoryStorePurgeExpired(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := NewMemoryStore(time.Hour, 10)
	store.now = clock.Now

	store.Create(ctx, "old-1")
	store.Create(ctx, "old-2")
	clock.Advance(30 * time.Minute)
	fresh, _ := store.Create(ctx, "fresh")
	clock.Advance(45 * time.Minute)

	n, err := store.PurgeExpired(ctx)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 purged sessions, got %d", n)
	}
	if _, err := store.Get(ctx, fresh); err != nil {
		t.Fatalf("fresh session should remain: %v", err)
	}
}

func TestMemoryStoreConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour, 50)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				content := fmt.Sprintf("%d-%d", i, j)
				id, err := store.Create(ctx, content)
				if err != nil {
					t.Errorf("create: %v", err)
					return
				}
				se, err := store.Get(ctx, id)
				if err == nil && se.Content != content {
					t.Errorf("content mismatch for %s", id)
				}
			}
		}(i)
	}
	wg.Wait()
	if store.Len() > 50 {
		t.Fatalf("capacity exceeded: %d", store.Len())
	}
}

func TestStartCleanerPurgesMemoryStore(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := NewMemoryStore(10*time.Millisecond, 10)
	store.Create(ctx, "short lived")
	StartCleaner(ctx, store, 5*time.Millisecond)

	deadline := time.Now().Add(2 * time.Second)
	for store.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("cleaner did not purge expired session")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
