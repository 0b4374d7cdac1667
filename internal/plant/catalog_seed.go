package plant

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// catalogFile is the on-disk layout of a catalog seed file.
type catalogFile struct {
	Species []Species `yaml:"species"`
}

// LoadCatalogFile reads species definitions from a YAML file.
func LoadCatalogFile(path string) ([]Species, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from trusted config
	if err != nil {
		return nil, fmt.Errorf("reading catalog file: %w", err)
	}

	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing catalog file: %w", err)
	}
	for i := range f.Species {
		if err := ValidateSpecies(&f.Species[i]); err != nil {
			return nil, fmt.Errorf("catalog entry %d: %w", i, err)
		}
	}
	return f.Species, nil
}

// SeedCatalog inserts every species whose species_id is not yet in the
// catalog. Existing entries are left untouched. It returns how many were added.
func SeedCatalog(ctx context.Context, repo CatalogRepository, species []Species) (int, error) {
	added := 0
	for i := range species {
		s := species[i]
		_, err := repo.GetBySpeciesID(ctx, s.SpeciesID)
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrSpeciesNotFound) {
			return added, fmt.Errorf("checking species %s: %w", s.SpeciesID, err)
		}
		if err := repo.Create(ctx, &s); err != nil {
			if errors.Is(err, ErrSpeciesExists) {
				continue
			}
			return added, fmt.Errorf("seeding species %s: %w", s.SpeciesID, err)
		}
		added++
	}
	return added, nil
}
