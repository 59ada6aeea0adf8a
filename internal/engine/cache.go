package engine

import (
	"context"
	"strings"
	"time"
)

// Attacher makes namespaces queryable. *store.Store implements it.
type Attacher interface {
	Attach(ctx context.Context, namespace string) error
}

type cacheKey struct {
	namespace string
	table     string
}

// keyFor folds case; SQLite resolves schema and table names case-insensitively.
func keyFor(namespace, table string) cacheKey {
	return cacheKey{namespace: strings.ToLower(namespace), table: strings.ToLower(table)}
}

// Cache tracks which namespaces are attached and when each table was last
// refreshed.
//
// A table is fresh when it has been refreshed and less than the TTL has
// passed since. A table that was never refreshed is stale.
//
// Thread-safety: Cache is not safe for concurrent use. It belongs to one
// Engine, whose callers serialize queries.
type Cache struct {
	attacher Attacher
	clock    Clock
	ttl      time.Duration
	attached map[string]bool
	entries  map[cacheKey]time.Time
}

// NewCache creates an empty cache.
func NewCache(attacher Attacher, clock Clock, ttl time.Duration) *Cache {
	return &Cache{
		attacher: attacher,
		clock:    clock,
		ttl:      ttl,
		attached: make(map[string]bool),
		entries:  make(map[cacheKey]time.Time),
	}
}

// TTL returns the freshness window.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// IsAttached reports whether namespace was attached through this cache.
func (c *Cache) IsAttached(namespace string) bool {
	return c.attached[strings.ToLower(namespace)]
}

// Attach attaches namespace unless it is already attached.
func (c *Cache) Attach(ctx context.Context, namespace string) error {
	if c.IsAttached(namespace) {
		return nil
	}
	if err := c.attacher.Attach(ctx, namespace); err != nil {
		return err
	}
	c.attached[strings.ToLower(namespace)] = true
	return nil
}

// Attached returns the number of namespaces attached so far.
func (c *Cache) Attached() int {
	return len(c.attached)
}

// IsFresh reports whether namespace.table was refreshed less than the TTL ago.
func (c *Cache) IsFresh(namespace, table string) bool {
	last, ok := c.entries[keyFor(namespace, table)]
	if !ok {
		return false
	}
	return c.clock.Now().Sub(last) < c.ttl
}

// MarkRefreshed records that namespace.table was refreshed at ts.
func (c *Cache) MarkRefreshed(namespace, table string, ts time.Time) {
	c.entries[keyFor(namespace, table)] = ts
}

// LastRefresh returns when namespace.table was last refreshed.
// ok is false if it never was.
func (c *Cache) LastRefresh(namespace, table string) (ts time.Time, ok bool) {
	ts, ok = c.entries[keyFor(namespace, table)]
	return ts, ok
}
