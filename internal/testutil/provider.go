package testutil

import (
	"context"
	"sync"

	"github.com/lebinh/aq/internal/ir"
	"github.com/lebinh/aq/internal/provider"
)

// CountingProvider wraps a provider and counts List calls per table.
// It can also be told to fail List for a table.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type CountingProvider struct {
	provider.Provider

	mu       sync.Mutex
	fetches  map[string]int
	failures map[string]error
}

// NewCountingProvider wraps p.
func NewCountingProvider(p provider.Provider) *CountingProvider {
	return &CountingProvider{
		Provider: p,
		fetches:  make(map[string]int),
		failures: make(map[string]error),
	}
}

func fetchKey(namespace, resource, collection string) string {
	return namespace + "." + resource + "_" + collection
}

// List counts the call, then delegates unless a failure is set.
func (p *CountingProvider) List(ctx context.Context, namespace, resource, collection string) ([]ir.Item, error) {
	key := fetchKey(namespace, resource, collection)

	p.mu.Lock()
	p.fetches[key]++
	err := p.failures[key]
	p.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return p.Provider.List(ctx, namespace, resource, collection)
}

// FailList makes List fail with err for namespace.table until cleared
// with a nil err.
func (p *CountingProvider) FailList(namespace, table string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := namespace + "." + table
	if err == nil {
		delete(p.failures, key)
		return
	}
	p.failures[key] = err
}

// Fetches returns how many times List was called for namespace.table.
func (p *CountingProvider) Fetches(namespace, table string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fetches[namespace+"."+table]
}

// TotalFetches returns the number of List calls across all tables.
func (p *CountingProvider) TotalFetches() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	total := 0
	for _, n := range p.fetches {
		total += n
	}
	return total
}

// Counts returns a copy of the per-table counters, keyed "namespace.table".
func (p *CountingProvider) Counts() map[string]int {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]int, len(p.fetches))
	for k, n := range p.fetches {
		out[k] = n
	}
	return out
}

// Reset clears the counters.
func (p *CountingProvider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fetches = make(map[string]int)
}
