// Package loader reads the MVP spawn catalog.
//
// The catalog is a YAML file maintained by the guild:
//
//	version: "1"
//	mvps:
//	  - mob_id: 1511
//	    name: Amon Ra
//	    map_name: moc_pryd06
//	    spawn_delay: 60     # minutes
//	    spawn_variance: 10  # minutes
//
// Entries are keyed by id when given, otherwise by mob id; the same mob may
// appear on several maps as long as each entry has its own id.
package loader

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"bigfish/internal/domain"
)

// CatalogYAML represents the catalog file structure
type CatalogYAML struct {
	Version string    `yaml:"version"`
	Mvps    []MvpYAML `yaml:"mvps"`
}

// MvpYAML represents one catalog entry
type MvpYAML struct {
	ID            string `yaml:"id,omitempty"`
	MobID         int    `yaml:"mob_id"`
	Name          string `yaml:"name"`
	MapName       string `yaml:"map_name"`
	SpawnDelay    int    `yaml:"spawn_delay"`
	SpawnVariance int    `yaml:"spawn_variance,omitempty"`
	Notes         string `yaml:"notes,omitempty"`
}

// LoadCatalog reads and validates a catalog file
func LoadCatalog(path string) ([]domain.Mvp, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog parses catalog YAML
func ParseCatalog(data []byte) ([]domain.Mvp, error) {
	var cat CatalogYAML
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	seen := make(map[string]int, len(cat.Mvps))
	mvps := make([]domain.Mvp, 0, len(cat.Mvps))
	for i, entry := range cat.Mvps {
		m := entry.toDomain()
		if err := m.Validate(); err != nil {
			return nil, fmt.Errorf("catalog entry %d (%s): %w", i, entry.Name, err)
		}
		if prev, dup := seen[m.ID]; dup {
			return nil, fmt.Errorf("catalog entry %d: id %s already used by entry %d", i, m.ID, prev)
		}
		seen[m.ID] = i
		mvps = append(mvps, m)
	}
	return mvps, nil
}

func (y MvpYAML) toDomain() domain.Mvp {
	m := domain.Mvp{
		ID:            y.ID,
		MobID:         y.MobID,
		Name:          y.Name,
		MapName:       y.MapName,
		SpawnDelay:    y.SpawnDelay,
		SpawnVariance: y.SpawnVariance,
		Status:        domain.MvpAlive,
	}
	if m.ID == "" {
		m.ID = strconv.Itoa(y.MobID)
	}
	if y.Notes != "" {
		notes := y.Notes
		m.Notes = &notes
	}
	return m
}
