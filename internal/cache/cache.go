// Package cache implements the request pipeline's fingerprint cache:
// bounded LRU storage with absolute TTL expiration, single-flight fetch
// coalescing per fingerprint, and invalidation by key, glob pattern, and
// version stamp, with fan-out observers for invalidation events.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/vitaliisemenov/configserver/internal/backend"
)

// FetchFunc performs the underlying backend fetch for a cache miss.
type FetchFunc func(ctx context.Context) (*backend.ResponseDocument, error)

// Cache is a process-local, thread-safe fingerprint cache.
type Cache struct {
	store *lru.LRU[string, *backend.ResponseDocument]
	group singleflight.Group

	mu        sync.Mutex
	observers map[int]*observerSlot
	nextObs   int
}

// Config bundles the cache's tunables.
type Config struct {
	MaxEntries int
	TTL        time.Duration
}

// New constructs a Cache bounded to cfg.MaxEntries, expiring entries
// cfg.TTL after insertion.
func New(cfg Config) *Cache {
	return &Cache{
		store:     lru.NewLRU[string, *backend.ResponseDocument](cfg.MaxEntries, nil, cfg.TTL),
		observers: make(map[int]*observerSlot),
	}
}

// Get looks up key without affecting its expiry or LRU recency.
func (c *Cache) Get(key string) (*backend.ResponseDocument, bool) {
	return c.store.Peek(key)
}

// GetOrFetch returns the cached entry for key, or calls fetch exactly once
// on a cache miss and shares its result with any concurrent caller using
// the same key — single-flight coalescing per fingerprint.
func (c *Cache) GetOrFetch(ctx context.Context, key string, fetch FetchFunc) (*backend.ResponseDocument, error) {
	if doc, ok := c.Get(key); ok {
		return doc, nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		doc, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.store.Add(key, doc)
		return doc, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*backend.ResponseDocument), nil
}

// InvalidateKey removes a single entry.
func (c *Cache) InvalidateKey(key string) {
	if c.store.Remove(key) {
		c.publish(Event{Reason: ReasonManual, Keys: []string{key}})
	}
}

// InvalidatePattern removes every entry whose rendered key matches the glob
// pattern ('*' any run of characters, including across '/', '?' one
// character). The rendered key is a flat fingerprint string, not a
// filesystem path, so matching is done directly over it rather than via
// path.Match, which would stop '*' at a '/' in a label like "feature/x".
func (c *Cache) InvalidatePattern(pattern string) []string {
	var dropped []string
	for _, key := range c.store.Keys() {
		if globMatch(pattern, key) {
			if c.store.Remove(key) {
				dropped = append(dropped, key)
			}
		}
	}
	if len(dropped) > 0 {
		c.publish(Event{Reason: ReasonPattern, Keys: dropped})
	}
	return dropped
}

// InvalidateStaleVersion drops every entry whose stamped version differs
// from currentCommit. It implements refresh.CacheInvalidator, letting the
// refresh worker drop cache entries as soon as the default label advances.
func (c *Cache) InvalidateStaleVersion(currentCommit string) int {
	var dropped []string
	for _, key := range c.store.Keys() {
		doc, ok := c.store.Peek(key)
		if !ok || doc.Version == currentCommit {
			continue
		}
		if c.store.Remove(key) {
			dropped = append(dropped, key)
		}
	}
	if len(dropped) > 0 {
		c.publish(Event{Reason: ReasonRefresh, Keys: dropped})
	}
	return len(dropped)
}

// Flush removes every entry.
func (c *Cache) Flush() {
	keys := c.store.Keys()
	c.store.Purge()
	if len(keys) > 0 {
		c.publish(Event{Reason: ReasonManual, Keys: keys})
	}
}

// Len returns the number of entries currently stored.
func (c *Cache) Len() int {
	return c.store.Len()
}

// Subscribe registers an observer and returns its event channel and an
// unsubscribe function. The channel is buffered; a slow observer that
// falls behind has events dropped rather than blocking invalidation, and
// can read its own drop count via DroppedCount.
func (c *Cache) Subscribe(buffer int) (events <-chan Event, unsubscribe func(), droppedCount func() uint64) {
	if buffer <= 0 {
		buffer = 16
	}
	slot := &observerSlot{ch: make(chan Event, buffer)}

	c.mu.Lock()
	id := c.nextObs
	c.nextObs++
	c.observers[id] = slot
	c.mu.Unlock()

	unsubscribe = func() {
		c.mu.Lock()
		delete(c.observers, id)
		c.mu.Unlock()
		close(slot.ch)
	}
	droppedCount = func() uint64 {
		c.mu.Lock()
		defer c.mu.Unlock()
		return slot.dropped
	}
	return slot.ch, unsubscribe, droppedCount
}

func (c *Cache) publish(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, slot := range c.observers {
		select {
		case slot.ch <- ev:
		default:
			slot.dropped++
		}
	}
}

// String renders a small diagnostic summary, useful for status endpoints.
func (c *Cache) String() string {
	return fmt.Sprintf("cache(entries=%d)", c.Len())
}
