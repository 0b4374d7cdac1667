package alert

import (
	"fmt"

	"github.com/nerrad567/forestos-core/internal/infrastructure/database"
)

// ErrAlertNotFound is returned when an alert id does not exist.
var ErrAlertNotFound = fmt.Errorf("alert: %w", database.ErrNotFound)
