package cache

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

// exerciseStore checks the TTL contract shared by every backend.
func exerciseStore(t *testing.T, s Store, clock *fakeClock) {
	t.Helper()
	ctx := context.Background()

	if _, ok, err := s.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("Get(missing) = ok %v, err %v; want miss", ok, err)
	}

	if err := s.Set(ctx, "k", []byte("v1"), 2*time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok, err := s.Get(ctx, "k")
	if err != nil || !ok || string(got) != "v1" {
		t.Fatalf("Get(k) = %q, %v, %v; want v1 hit", got, ok, err)
	}

	clock.Advance(2 * time.Minute)
	if _, ok, _ := s.Get(ctx, "k"); !ok {
		t.Errorf("entry at exactly ttl should still be fresh")
	}
	clock.Advance(time.Second)
	if _, ok, _ := s.Get(ctx, "k"); ok {
		t.Errorf("entry past ttl should be a miss")
	}

	// Last write wins and resets the age.
	s.Set(ctx, "k", []byte("v2"), time.Minute)
	s.Set(ctx, "k", []byte("v3"), time.Minute)
	got, ok, _ = s.Get(ctx, "k")
	if !ok || string(got) != "v3" {
		t.Errorf("Get(k) after overwrite = %q, %v; want v3", got, ok)
	}
}

func TestMemoryStore(t *testing.T) {
	clock := newClock()
	s := NewMemoryStore(0).WithClock(clock.Now)
	defer s.Close()
	exerciseStore(t, s, clock)
}

func TestMemoryStore_Sweep(t *testing.T) {
	clock := newClock()
	s := NewMemoryStore(0).WithClock(clock.Now)
	defer s.Close()

	ctx := context.Background()
	s.Set(ctx, "short", []byte("a"), time.Minute)
	s.Set(ctx, "long", []byte("b"), time.Hour)
	clock.Advance(2 * time.Minute)
	s.Sweep()

	if s.Len() != 1 {
		t.Errorf("Len after sweep = %d, want 1", s.Len())
	}
	if _, ok, _ := s.Get(ctx, "long"); !ok {
		t.Errorf("long-lived entry should survive the sweep")
	}
}

func TestMemoryStore_SetCopiesValue(t *testing.T) {
	s := NewMemoryStore(0)
	defer s.Close()

	ctx := context.Background()
	buf := []byte("abc")
	s.Set(ctx, "k", buf, time.Minute)
	buf[0] = 'z'
	got, _, _ := s.Get(ctx, "k")
	if string(got) != "abc" {
		t.Errorf("stored value mutated through caller slice: %q", got)
	}
}

func TestMemoryStore_CloseTwice(t *testing.T) {
	s := NewMemoryStore(time.Millisecond)
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestSQLiteStore(t *testing.T) {
	clock := newClock()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer s.Close()
	s.WithClock(clock.Now)
	exerciseStore(t, s, clock)
}

func TestSQLiteStore_Sweep(t *testing.T) {
	clock := newClock()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer s.Close()
	s.WithClock(clock.Now)

	ctx := context.Background()
	s.Set(ctx, "short", []byte("a"), time.Minute)
	s.Set(ctx, "long", []byte("b"), time.Hour)
	clock.Advance(2 * time.Minute)

	n, err := s.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if n != 1 {
		t.Errorf("Sweep removed %d rows, want 1", n)
	}
}

func TestSQLiteStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	ctx := context.Background()

	s, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	s.Set(ctx, "k", []byte("persisted"), time.Hour)
	s.Close()

	s, err = NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	got, ok, err := s.Get(ctx, "k")
	if err != nil || !ok || string(got) != "persisted" {
		t.Errorf("Get after reopen = %q, %v, %v", got, ok, err)
	}
}

type payload struct {
	Symbol string  `json:"symbol"`
	Score  float64 `json:"score"`
}

func TestTypedCache(t *testing.T) {
	store := NewMemoryStore(0)
	defer store.Close()
	ctx := context.Background()

	c := New[[]payload](store, "candidates:")
	want := []payload{{"AAAUSDT", 81}, {"BBBUSDT", 64}}
	if err := c.Set(ctx, "explosion", want, time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok := c.Get(ctx, "explosion")
	if !ok || len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("Get = %+v, %v; want %+v", got, ok, want)
	}

	// The prefix keeps value types apart in a shared store.
	if _, ok, _ := store.Get(ctx, "explosion"); ok {
		t.Errorf("unprefixed key should not exist")
	}
}

func TestTypedCache_DecodeFailureIsMiss(t *testing.T) {
	store := NewMemoryStore(0)
	defer store.Close()
	ctx := context.Background()

	store.Set(ctx, "p:x", []byte("not json"), time.Minute)
	c := New[payload](store, "p:")
	if _, ok := c.Get(ctx, "x"); ok {
		t.Errorf("undecodable entry should be reported as a miss")
	}
}
