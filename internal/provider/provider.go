package provider

import (
	"errors"
	"fmt"
	"strings"
)

// Provider describes an upstream tile source. Immutable once registered.
type Provider struct {
	ID             string
	Name           string
	Description    string
	URLTemplate    string
	MaxZoom        int
	CacheNamespace string
	Subdomains     []string
	ExtraHeaders   map[string]string
}

// Namespace returns the storage namespace tiles for this provider are cached
// under, defaulting to the provider id.
func (p *Provider) Namespace() string {
	if p.CacheNamespace != "" {
		return p.CacheNamespace
	}
	return p.ID
}

// Registry is an immutable, ordered snapshot of the configured providers.
// Safe for unsynchronized concurrent reads.
type Registry struct {
	order     []string
	providers map[string]*Provider
}

var templatePlaceholders = []string{"{z}", "{x}", "{y}"}

func NewRegistry(providers []Provider) (*Registry, error) {
	r := &Registry{providers: make(map[string]*Provider, len(providers))}
	for i := range providers {
		p := providers[i]
		if p.ID == "" {
			return nil, errors.New("provider id must not be empty")
		}
		if _, dup := r.providers[p.ID]; dup {
			return nil, fmt.Errorf("duplicate provider id %q", p.ID)
		}
		if p.MaxZoom < 0 {
			return nil, fmt.Errorf("provider %q: max zoom must be >= 0", p.ID)
		}
		for _, ph := range templatePlaceholders {
			if !strings.Contains(p.URLTemplate, ph) {
				return nil, fmt.Errorf("provider %q: url template missing %s", p.ID, ph)
			}
		}
		r.providers[p.ID] = &p
		r.order = append(r.order, p.ID)
	}
	return r, nil
}

func (r *Registry) Get(id string) (*Provider, bool) {
	p, ok := r.providers[id]
	return p, ok
}

func (r *Registry) Exists(id string) bool {
	_, ok := r.providers[id]
	return ok
}

// List returns the providers in registration order.
func (r *Registry) List() []*Provider {
	out := make([]*Provider, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.providers[id])
	}
	return out
}

func (r *Registry) IDs() []string {
	return append([]string(nil), r.order...)
}
