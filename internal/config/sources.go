package config

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// SourceSpec is one entry in the source catalog file. It carries the static
// configuration for a provider plus the HTTP settings its adapter needs.
type SourceSpec struct {
	ID             string   `yaml:"id"`
	Name           string   `yaml:"name"`
	Type           string   `yaml:"type"` // api, scraper, hybrid
	Endpoint       string   `yaml:"endpoint"`
	APIKey         string   `yaml:"api_key"`
	Priority       int      `yaml:"priority"`
	Reliability    int      `yaml:"reliability"`
	CostPerRequest float64  `yaml:"cost_per_request"`
	DailyLimit     int      `yaml:"daily_limit"`
	RateLimit      float64  `yaml:"rate_limit"` // requests per second, 0 = unlimited
	Burst          int      `yaml:"burst"`
	Capabilities   []string `yaml:"capabilities"`
	Regions        []string `yaml:"regions"`
}

// Catalog is the parsed source catalog.
type Catalog struct {
	Sources []SourceSpec `yaml:"sources"`
}

// LoadSources reads the source catalog from a YAML file.
func LoadSources(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "config: read sources %s", path)
	}

	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, eris.Wrap(err, "config: parse sources")
	}

	seen := make(map[string]bool, len(cat.Sources))
	for i := range cat.Sources {
		spec := &cat.Sources[i]
		if spec.ID == "" {
			return nil, eris.Errorf("config: source %d missing id", i)
		}
		if seen[spec.ID] {
			return nil, eris.Errorf("config: duplicate source id %s", spec.ID)
		}
		seen[spec.ID] = true

		if spec.Type == "" {
			spec.Type = "api"
		}
		if spec.Reliability == 0 {
			spec.Reliability = 80
		}
		if spec.Priority == 0 {
			spec.Priority = 5
		}
	}

	return &cat, nil
}
