package cache

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ecoscore/backend/internal/domain"
)

const (
	defaultCleanupInterval = 10 * time.Minute
	defaultMaxEntries      = 10000
)

type entry struct {
	value     []byte
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// Stats is a point-in-time view of cache effectiveness
type Stats struct {
	Entries   int    `json:"entries"`
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
}

// Option configures a MemoryCache
type Option func(*MemoryCache)

// WithMaxEntries bounds the number of live entries. n <= 0 means unbounded.
func WithMaxEntries(n int) Option {
	return func(c *MemoryCache) { c.maxEntries = n }
}

// WithCleanupInterval sets how often expired entries are swept
func WithCleanupInterval(d time.Duration) Option {
	return func(c *MemoryCache) {
		if d > 0 {
			c.cleanupInterval = d
		}
	}
}

// MemoryCache is a bounded, TTL-aware byte cache safe for concurrent use.
// When full, the entries closest to expiry are evicted first.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]entry

	maxEntries      int
	cleanupInterval time.Duration
	now             func() time.Time

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64

	stop     chan struct{}
	stopOnce sync.Once
}

// NewMemoryCache creates a cache and starts its background sweeper.
// Call Close to stop the sweeper.
func NewMemoryCache(opts ...Option) *MemoryCache {
	c := &MemoryCache{
		entries:         make(map[string]entry),
		maxEntries:      defaultMaxEntries,
		cleanupInterval: defaultCleanupInterval,
		now:             time.Now,
		stop:            make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	go c.sweepLoop()

	return c
}

func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || e.expired(c.now()) {
		c.misses.Add(1)
		return nil, domain.ErrCacheMiss
	}

	c.hits.Add(1)
	return append([]byte(nil), e.value...), nil
}

func (c *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, replacing := c.entries[key]; !replacing && c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		c.makeRoomLocked(now)
	}

	c.entries[key] = entry{
		value:     append([]byte(nil), value...),
		expiresAt: now.Add(ttl),
	}
	return nil
}

func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Exists(ctx context.Context, key string) (bool, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	return ok && !e.expired(c.now()), nil
}

// Stats reports entry count and hit/miss/eviction counters
func (c *MemoryCache) Stats() Stats {
	c.mu.RLock()
	n := len(c.entries)
	c.mu.RUnlock()

	return Stats{
		Entries:   n,
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
}

// Len returns the number of stored entries, including expired ones not yet swept
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear drops every entry. Counters are kept.
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()
}

// Close stops the background sweeper. It is safe to call more than once.
func (c *MemoryCache) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *MemoryCache) sweepLoop() {
	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

// sweep removes expired entries and returns how many were dropped
func (c *MemoryCache) sweep() int {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropExpiredLocked(now)
}

func (c *MemoryCache) dropExpiredLocked(now time.Time) int {
	dropped := 0
	for key, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, key)
			dropped++
		}
	}
	return dropped
}

// makeRoomLocked frees space for a new key. Expired entries go first. When
// none have expired, the evictBatch live entries with the earliest expiry are
// dropped together so a full cache scans once per batch rather than per Set.
func (c *MemoryCache) makeRoomLocked(now time.Time) {
	if c.dropExpiredLocked(now) > 0 {
		return
	}

	type candidate struct {
		key       string
		expiresAt time.Time
	}
	victims := make([]candidate, 0, len(c.entries))
	for key, e := range c.entries {
		victims = append(victims, candidate{key: key, expiresAt: e.expiresAt})
	}
	slices.SortFunc(victims, func(a, b candidate) int {
		return a.expiresAt.Compare(b.expiresAt)
	})

	n := min(c.evictBatch(), len(victims))
	for _, v := range victims[:n] {
		delete(c.entries, v.key)
	}
	c.evictions.Add(uint64(n))
}

// evictBatch is one percent of the capacity, at least one entry
func (c *MemoryCache) evictBatch() int {
	return max(1, c.maxEntries/100)
}
