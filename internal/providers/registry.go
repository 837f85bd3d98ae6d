package providers

import (
	"fmt"
	"math"
	"sort"
)

// UnrankedPriority is the priority of provider ids the registry does not know,
// such as providers only reported by the aggregator
const UnrankedPriority = math.MaxInt

// Registry is the read-only catalog of known providers, ordered by priority.
// It is built once and safe to share between goroutines.
type Registry struct {
	ordered []Provider
	byID    map[string]Provider
	byKind  map[MediaKind][]Provider
}

// NewRegistry builds a registry from the given providers
func NewRegistry(providers ...Provider) (*Registry, error) {
	r := &Registry{
		ordered: make([]Provider, 0, len(providers)),
		byID:    make(map[string]Provider, len(providers)),
		byKind:  make(map[MediaKind][]Provider),
	}

	for _, p := range providers {
		if p.ID == "" {
			return nil, fmt.Errorf("provider must have a name")
		}
		if _, exists := r.byID[p.ID]; exists {
			return nil, fmt.Errorf("provider %s is already registered", p.ID)
		}
		r.byID[p.ID] = p
		r.ordered = append(r.ordered, p)
	}

	sort.SliceStable(r.ordered, func(i, j int) bool {
		return r.ordered[i].Priority < r.ordered[j].Priority
	})

	for _, p := range r.ordered {
		for _, kind := range p.Kinds {
			r.byKind[kind] = append(r.byKind[kind], p)
		}
	}

	return r, nil
}

// MustRegistry is like NewRegistry but panics on error
func MustRegistry(providers ...Provider) *Registry {
	r, err := NewRegistry(providers...)
	if err != nil {
		panic(err)
	}
	return r
}

// Get returns a provider by id
func (r *Registry) Get(id string) (Provider, error) {
	p, ok := r.byID[id]
	if !ok {
		return Provider{}, fmt.Errorf("provider %s not found", id)
	}
	return p, nil
}

// ForKind returns the providers that declare support for kind, in priority order
func (r *Registry) ForKind(kind MediaKind) []Provider {
	return append([]Provider(nil), r.byKind[kind]...)
}

// All returns every provider in priority order
func (r *Registry) All() []Provider {
	return append([]Provider(nil), r.ordered...)
}

// Priority returns the rank of a provider id, or UnrankedPriority if unknown
func (r *Registry) Priority(id string) int {
	if p, ok := r.byID[id]; ok {
		return p.Priority
	}
	return UnrankedPriority
}

// List returns provider ids in priority order
func (r *Registry) List() []string {
	ids := make([]string, 0, len(r.ordered))
	for _, p := range r.ordered {
		ids = append(ids, p.ID)
	}
	return ids
}

// Len returns the number of providers
func (r *Registry) Len() int {
	return len(r.ordered)
}

// SortByPriority orders sources by provider rank. Ties keep their input order.
func (r *Registry) SortByPriority(sources []VideoSource) {
	sort.SliceStable(sources, func(i, j int) bool {
		return r.Priority(sources[i].Provider) < r.Priority(sources[j].Provider)
	})
}
