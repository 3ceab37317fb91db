package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value      []byte
	insertedAt time.Time
	ttl        time.Duration
}

func (e memoryEntry) expired(now time.Time) bool {
	return now.Sub(e.insertedAt) > e.ttl
}

// MemoryStore is an in-process Store. Expired entries are hidden on read and
// removed by a background sweeper.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
	cleaner *time.Ticker
	done    chan struct{}
	once    sync.Once
}

// NewMemoryStore creates a MemoryStore sweeping expired keys every sweepEvery.
// sweepEvery <= 0 disables the sweeper.
func NewMemoryStore(sweepEvery time.Duration) *MemoryStore {
	m := &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
		done:    make(chan struct{}),
	}
	if sweepEvery > 0 {
		m.cleaner = time.NewTicker(sweepEvery)
		go m.backgroundCleaner()
	}
	return m
}

// WithClock replaces the time source; used by tests.
func (m *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	m.mu.Lock()
	m.now = now
	m.mu.Unlock()
	return m
}

func (m *MemoryStore) backgroundCleaner() {
	for {
		select {
		case <-m.cleaner.C:
			m.Sweep()
		case <-m.done:
			m.cleaner.Stop()
			return
		}
	}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[key]
	if !ok || e.expired(m.now()) {
		return nil, false, nil
	}
	return e.value, true, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = memoryEntry{
		value:      append([]byte(nil), value...),
		insertedAt: m.now(),
		ttl:        ttl,
	}
	return nil
}

// Sweep drops every expired entry.
func (m *MemoryStore) Sweep() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for k, e := range m.entries {
		if e.expired(now) {
			delete(m.entries, k)
		}
	}
}

// Len returns the number of stored entries, expired or not.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *MemoryStore) Close() error {
	m.once.Do(func() { close(m.done) })
	return nil
}
