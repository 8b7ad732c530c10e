// Package cache holds finished extraction results keyed by content hash.
package cache

import (
	"container/list"
	"encoding/hex"
	"encoding/json"
	"log"
	"sync"
	"time"

	"golang.org/x/crypto/blake2b"

	"payslipx/internal/domain"
)

// defaultCost is charged when a result cannot be sized.
const defaultCost = 4 << 10

// Config bounds the cache.
type Config struct {
	TTL      time.Duration
	MaxItems int
	MaxBytes int64
}

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Hits        uint64 `json:"hits"`
	Misses      uint64 `json:"misses"`
	Evictions   uint64 `json:"evictions"`
	Expirations uint64 `json:"expirations"`
	Items       int    `json:"items"`
	Bytes       int64  `json:"bytes"`
}

type entry struct {
	key       string
	result    *domain.ExtractionResult
	cost      int64
	expiresAt time.Time
}

// Cache is a TTL-bounded, cost-aware LRU. Results are deep-copied in and out.
type Cache struct {
	mu    sync.Mutex
	cfg   Config
	ll    *list.List
	items map[string]*list.Element
	bytes int64
	stats Stats
	now   func() time.Time
}

// New creates a Cache.
func New(cfg Config) *Cache {
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}
	if cfg.MaxItems <= 0 {
		cfg.MaxItems = 100
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 10 << 20
	}
	return &Cache{
		cfg:   cfg,
		ll:    list.New(),
		items: make(map[string]*list.Element),
		now:   time.Now,
	}
}

// SetClock replaces the time source.
func (c *Cache) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// Key returns the hex blake2b-256 digest of the mode and payload.
func Key(mode domain.ExtractionMode, payload []byte) string {
	h, _ := blake2b.New256(nil)
	h.Write([]byte(mode))
	h.Write([]byte{0})
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns a copy of the cached result. Expired entries are removed and
// reported as absent.
func (c *Cache) Get(key string) (*domain.ExtractionResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		c.stats.Misses++
		return nil, false
	}
	e := el.Value.(*entry)
	if !c.now().Before(e.expiresAt) {
		c.removeElement(el)
		c.stats.Expirations++
		c.stats.Misses++
		return nil, false
	}
	c.ll.MoveToFront(el)
	c.stats.Hits++
	return e.result.Clone(), true
}

// Put stores a copy of r under key, evicting least recently used entries
// until both bounds hold. A result larger than MaxBytes is not stored.
func (c *Cache) Put(key string, r *domain.ExtractionResult) {
	if r == nil {
		return
	}
	cost := estimateCost(r)

	c.mu.Lock()
	defer c.mu.Unlock()

	if cost > c.cfg.MaxBytes {
		log.Printf("cache.Cache.Put: result %s costs %d bytes, above limit %d; not cached", key, cost, c.cfg.MaxBytes)
		return
	}
	if el, ok := c.items[key]; ok {
		c.removeElement(el)
	}
	e := &entry{key: key, result: r.Clone(), cost: cost, expiresAt: c.now().Add(c.cfg.TTL)}
	c.items[key] = c.ll.PushFront(e)
	c.bytes += cost

	for c.ll.Len() > c.cfg.MaxItems || c.bytes > c.cfg.MaxBytes {
		oldest := c.ll.Back()
		if oldest == nil {
			break
		}
		c.removeElement(oldest)
		c.stats.Evictions++
	}
}

// Delete removes key if present.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.removeElement(el)
	}
}

// Purge removes every entry. Counters are kept.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	c.items = make(map[string]*list.Element)
	c.bytes = 0
}

// Stats returns a snapshot of the counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Items = c.ll.Len()
	s.Bytes = c.bytes
	return s
}

func (c *Cache) removeElement(el *list.Element) {
	e := c.ll.Remove(el).(*entry)
	delete(c.items, e.key)
	c.bytes -= e.cost
}

func estimateCost(r *domain.ExtractionResult) int64 {
	b, err := json.Marshal(r)
	if err != nil {
		return defaultCost
	}
	return int64(len(b))
}
