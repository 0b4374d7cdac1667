package sensor

import (
	"errors"
	"fmt"

	"github.com/nerrad567/forestos-core/internal/infrastructure/database"
)

var (
	// ErrSensorNotFound is returned when no sensor has the device id.
	ErrSensorNotFound = fmt.Errorf("sensor: %w", database.ErrNotFound)

	// ErrNoReadings is returned when a sensor has never reported.
	ErrNoReadings = fmt.Errorf("readings: %w", database.ErrNotFound)

	// ErrDeviceExists is returned when a device id is already registered.
	ErrDeviceExists = errors.New("device already registered")

	// ErrInvalidReading wraps reading validation failures.
	ErrInvalidReading = errors.New("invalid reading")

	// ErrInvalidSensor wraps registration and patch validation failures.
	ErrInvalidSensor = errors.New("invalid sensor")
)
