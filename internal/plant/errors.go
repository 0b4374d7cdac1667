package plant

import (
	"errors"
	"fmt"

	"github.com/nerrad567/forestos-core/internal/infrastructure/database"
)

var (
	// ErrSpeciesNotFound is returned when no catalog entry has the species id.
	ErrSpeciesNotFound = fmt.Errorf("species: %w", database.ErrNotFound)

	// ErrSpeciesExists is returned when a species id is already in the catalog.
	ErrSpeciesExists = errors.New("species already exists")

	// ErrPlantNotFound is returned when a user plant id does not exist.
	ErrPlantNotFound = fmt.Errorf("plant: %w", database.ErrNotFound)

	// ErrInvalidPlant wraps every validation failure.
	ErrInvalidPlant = errors.New("invalid plant")

	// ErrInvalidCareLevel is returned for care levels other than easy, moderate, difficult.
	ErrInvalidCareLevel = errors.New("invalid care level")
)
