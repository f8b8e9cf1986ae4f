// Package source defines the uniform music source contract and an adapter
// that backs it with a sandboxed script engine. Sources degrade instead of
// failing: a misbehaving source yields empty results, never an error that
// could abort an aggregate flow across all installed sources.
package source

import (
	"context"
	"sync"
)

// Source is one installed music provider. Methods return zero values on
// failure by contract, which is why none of them return an error.
type Source interface {
	ID() string
	Name() string
	Search(ctx context.Context, keyword string, page int) SearchResult
	GetPlayURL(ctx context.Context, musicID string) string
	GetLyrics(ctx context.Context, musicID string) *string
}

// Browser is implemented by sources that can serve a home/browse page.
type Browser interface {
	GetHomeList(ctx context.Context, page int) SearchResult
}

// BatchLookup is implemented by sources that can resolve tracks by id.
type BatchLookup interface {
	GetMusicListByIDs(ctx context.Context, ids []string) []Music
}

// Registry holds the installed sources keyed by id.
type Registry struct {
	mu      sync.RWMutex
	sources map[string]Source
	order   []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sources: make(map[string]Source)}
}

// Replace swaps the full source set, preserving the given order for
// aggregate operations.
func (r *Registry) Replace(sources []Source) {
	m := make(map[string]Source, len(sources))
	order := make([]string, 0, len(sources))
	for _, s := range sources {
		if _, dup := m[s.ID()]; !dup {
			order = append(order, s.ID())
		}
		m[s.ID()] = s
	}

	r.mu.Lock()
	r.sources = m
	r.order = order
	r.mu.Unlock()
}

// Get returns one source, or nil if the id is unknown.
func (r *Registry) Get(id string) Source {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sources[id]
}

// Remove drops one source from the registry.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sources[id]; !ok {
		return
	}
	delete(r.sources, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// List returns all sources in registration order.
func (r *Registry) List() []Source {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Source, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.sources[id])
	}
	return out
}

// SearchAll fans a search out to every source concurrently and merges the
// results, grouped by source in registration order. A source that fails
// contributes nothing.
func (r *Registry) SearchAll(ctx context.Context, keyword string, page int) SearchResult {
	sources := r.List()

	parts := make([]SearchResult, len(sources))
	var wg sync.WaitGroup
	for i, s := range sources {
		wg.Add(1)
		go func(i int, s Source) {
			defer wg.Done()
			parts[i] = s.Search(ctx, keyword, page)
		}(i, s)
	}
	wg.Wait()

	var merged SearchResult
	for _, p := range parts {
		merged.Items = append(merged.Items, p.Items...)
		merged.Total += p.Total
	}
	return merged
}
