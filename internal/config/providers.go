package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/tilemirror/tilemirror/internal/provider"
)

type providerRecord struct {
	ID             string            `yaml:"id"`
	Name           string            `yaml:"name"`
	Description    string            `yaml:"description"`
	URL            string            `yaml:"url"`
	MaxZoom        int               `yaml:"maxZoom"`
	CacheNamespace string            `yaml:"cacheNamespace"`
	Subdomains     []string          `yaml:"subdomains"`
	Headers        map[string]string `yaml:"headers"`
}

// LoadProviders reads the provider catalogue and builds the registry,
// preserving file order.
func LoadProviders(path string) (*provider.Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var records []providerRecord
	if err := yaml.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	providers := make([]provider.Provider, 0, len(records))
	for _, rec := range records {
		providers = append(providers, provider.Provider{
			ID:             rec.ID,
			Name:           rec.Name,
			Description:    rec.Description,
			URLTemplate:    rec.URL,
			MaxZoom:        rec.MaxZoom,
			CacheNamespace: rec.CacheNamespace,
			Subdomains:     rec.Subdomains,
			ExtraHeaders:   rec.Headers,
		})
	}
	return provider.NewRegistry(providers)
}
