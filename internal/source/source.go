package source

import (
	"context"
	"fmt"

	"trendsense/internal/domain"
)

// Searcher captures a single provider strategy (Hacker News, NewsAPI, Reddit).
// Implementations translate one provider's search-by-keyword response into
// the common item shape.
type Searcher interface {
	Name() string
	Search(ctx context.Context, keyword string, limit int) ([]domain.Item, error)
}

// Registry keeps a mapping from provider names to their implementations.
type Registry struct {
	searchers map[string]Searcher
	order     []string
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{searchers: map[string]Searcher{}}
}

// Register adds or replaces a searcher implementation, preserving
// registration order for deterministic fetch sequencing.
func (r *Registry) Register(searcher Searcher) {
	if r.searchers == nil {
		r.searchers = map[string]Searcher{}
	}
	if _, exists := r.searchers[searcher.Name()]; !exists {
		r.order = append(r.order, searcher.Name())
	}
	r.searchers[searcher.Name()] = searcher
}

// Resolve returns a searcher by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Searcher, error) {
	if searcher, ok := r.searchers[name]; ok {
		return searcher, nil
	}
	return nil, fmt.Errorf("searcher %s is not registered", name)
}

// Names lists registered searchers in registration order.
func (r *Registry) Names() []string {
	return r.order
}
