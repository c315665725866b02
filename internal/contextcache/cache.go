package contextcache

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"switchyard/internal/metrics"
	"switchyard/pkg/logging"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

const subsystem = "ContextCache"

// Config bounds the cache.
type Config struct {
	MaxSize    int
	DefaultTTL time.Duration
	// CompressionThreshold is the serialized size in bytes above which values
	// are stored gzip-compressed. Zero or negative disables compression.
	CompressionThreshold int
}

// DefaultConfig mirrors the cache section of the default configuration.
func DefaultConfig() Config {
	return Config{
		MaxSize:              1000,
		DefaultTTL:           time.Hour,
		CompressionThreshold: 10000,
	}
}

type entry struct {
	key        string
	value      any
	payload    encoded
	createdAt  time.Time
	ttl        time.Duration
	compressed bool
}

func (e *entry) expired(now time.Time) bool {
	return now.After(e.createdAt.Add(e.ttl))
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Entries    int     `json:"entries"`
	MaxSize    int     `json:"maxSize"`
	Hits       uint64  `json:"hits"`
	Misses     uint64  `json:"misses"`
	Expired    uint64  `json:"expired"`
	Evictions  uint64  `json:"evictions"`
	Compressed int     `json:"compressed"`
	HitRate    float64 `json:"hitRate"`
}

// Cache is a size-bounded LRU with per-entry TTL and transparent compression.
//
// Expiry is lazy: an entry older than its TTL is removed when it is next read
// or listed, never by a background sweep.
type Cache struct {
	cfg     Config
	metrics *metrics.Metrics
	now     func() time.Time

	mu        sync.Mutex
	lru       *simplelru.LRU[string, *entry]
	hits      uint64
	misses    uint64
	expired   uint64
	evictions uint64
}

// New creates a cache. A non-positive MaxSize or DefaultTTL falls back to DefaultConfig.
func New(cfg Config, m *metrics.Metrics) (*Cache, error) {
	defaults := DefaultConfig()
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = defaults.MaxSize
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = defaults.DefaultTTL
	}

	lru, err := simplelru.NewLRU[string, *entry](cfg.MaxSize, nil)
	if err != nil {
		return nil, fmt.Errorf("creating LRU: %w", err)
	}

	return &Cache{
		cfg:     cfg,
		metrics: m,
		now:     time.Now,
		lru:     lru,
	}, nil
}

// Get returns the value stored under key and marks it most recently used.
// Expired entries are removed and reported as absent. When a compressed
// payload cannot be restored the raw stored bytes are returned instead.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	e, ok := c.lru.Peek(key)
	if !ok {
		c.misses++
		c.mu.Unlock()
		c.metrics.IncCacheLookup("miss")
		return nil, false
	}
	if e.expired(c.now()) {
		c.lru.Remove(key)
		c.expired++
		c.misses++
		n := c.lru.Len()
		c.mu.Unlock()
		c.metrics.IncCacheLookup("expired")
		c.metrics.SetCacheEntries(n)
		return nil, false
	}
	c.lru.Get(key) // promote
	c.hits++
	c.mu.Unlock()
	c.metrics.IncCacheLookup("hit")

	if !e.compressed {
		return e.value, true
	}
	value, err := decompress(e.payload)
	if err != nil {
		logging.Error(subsystem, err, "Failed to decompress cache entry %s, returning raw payload", key)
		return e.payload.raw, true
	}
	return value, true
}

// GetAs is a typed Get. It reports false when the entry is absent or holds a
// value of another type.
func GetAs[T any](c *Cache, key string) (T, bool) {
	var zero T
	value, ok := c.Get(key)
	if !ok {
		return zero, false
	}
	typed, ok := value.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}

// Put inserts or replaces key at the most recently used position. A
// non-positive ttl uses the default TTL. When the cache is full the least
// recently used entry is evicted.
func (c *Cache) Put(key string, value any, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.cfg.DefaultTTL
	}

	e := &entry{key: key, value: value, ttl: ttl}
	if c.cfg.CompressionThreshold > 0 {
		plain, err := encode(value)
		if err != nil {
			return err
		}
		if len(plain.raw) > c.cfg.CompressionThreshold {
			zipped, err := plain.gzipped()
			if err != nil {
				return fmt.Errorf("storing %s: %w", key, err)
			}
			e.payload = zipped
			e.value = nil
			e.compressed = true
		}
	}

	c.mu.Lock()
	e.createdAt = c.now()
	evicted := c.lru.Add(key, e)
	if evicted {
		c.evictions++
	}
	n := c.lru.Len()
	c.mu.Unlock()

	if evicted {
		c.metrics.IncCacheEviction()
		logging.Debug(subsystem, "Evicted least recently used entry to store %s", key)
	}
	c.metrics.SetCacheEntries(n)
	return nil
}

// Remove deletes key and reports whether it was present.
func (c *Cache) Remove(key string) bool {
	c.mu.Lock()
	removed := c.lru.Remove(key)
	n := c.lru.Len()
	c.mu.Unlock()
	c.metrics.SetCacheEntries(n)
	return removed
}

// InvalidatePrefix removes every entry whose key starts with prefix.
func (c *Cache) InvalidatePrefix(prefix string) int {
	c.mu.Lock()
	removed := 0
	for _, key := range c.lru.Keys() {
		if strings.HasPrefix(key, prefix) {
			c.lru.Remove(key)
			removed++
		}
	}
	n := c.lru.Len()
	c.mu.Unlock()

	if removed > 0 {
		logging.Debug(subsystem, "Invalidated %d entries with prefix %s", removed, prefix)
	}
	c.metrics.SetCacheEntries(n)
	return removed
}

// Clear removes every entry. Counters are kept.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.lru.Purge()
	c.mu.Unlock()
	c.metrics.SetCacheEntries(0)
}

// Len returns the number of stored entries, including expired entries that
// have not been read since they expired.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Keys returns live keys from least to most recently used. Expired entries
// found on the way are removed.
func (c *Cache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	keys := c.lru.Keys()
	live := make([]string, 0, len(keys))
	for _, key := range keys {
		e, ok := c.lru.Peek(key)
		if !ok {
			continue
		}
		if e.expired(now) {
			c.lru.Remove(key)
			c.expired++
			continue
		}
		live = append(live, key)
	}
	return live
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	compressed := 0
	for _, key := range c.lru.Keys() {
		if e, ok := c.lru.Peek(key); ok && e.compressed {
			compressed++
		}
	}

	s := Stats{
		Entries:    c.lru.Len(),
		MaxSize:    c.cfg.MaxSize,
		Hits:       c.hits,
		Misses:     c.misses,
		Expired:    c.expired,
		Evictions:  c.evictions,
		Compressed: compressed,
	}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}
	return s
}
