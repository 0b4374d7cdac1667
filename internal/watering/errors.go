package watering

import (
	"errors"
	"fmt"

	"github.com/nerrad567/forestos-core/internal/infrastructure/database"
)

var (
	// ErrEventNotFound is returned when a watering event id does not exist.
	ErrEventNotFound = fmt.Errorf("watering event: %w", database.ErrNotFound)

	// ErrInvalidTrigger is returned for triggers other than manual, automatic, scheduled.
	ErrInvalidTrigger = errors.New("invalid watering trigger")

	// ErrInvalidEvent wraps every event patch validation failure.
	ErrInvalidEvent = errors.New("invalid watering event")
)
