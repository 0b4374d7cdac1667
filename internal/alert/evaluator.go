package alert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nerrad567/forestos-core/internal/auth"
	"github.com/nerrad567/forestos-core/internal/infrastructure/database"
	"github.com/nerrad567/forestos-core/internal/plant"
	"github.com/nerrad567/forestos-core/internal/sensor"
	"github.com/nerrad567/forestos-core/internal/watering"
)

// Default thresholds.
const (
	DefaultLowBatteryPct      = 20
	DefaultHighMoistureMargin = 30
)

// Thresholds configures the Evaluator.
type Thresholds struct {
	// LowBatteryPct raises low_battery below this level.
	LowBatteryPct float64
	// HighMoistureMargin is added to the moisture target to get the
	// high_moisture bound.
	HighMoistureMargin int
}

// DefaultThresholds returns the stock thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{LowBatteryPct: DefaultLowBatteryPct, HighMoistureMargin: DefaultHighMoistureMargin}
}

// CareProfiles resolves the moisture thresholds of a plant.
type CareProfiles interface {
	CareProfile(ctx context.Context, id int64) (*plant.CareProfile, error)
}

// Notifier receives every alert the Evaluator creates. It must not block.
type Notifier func(Alert)

// Evaluator raises alerts from readings, sensor liveness and watering outcomes.
type Evaluator struct {
	repo       Repository
	plants     CareProfiles
	thresholds Thresholds
	logger     *slog.Logger

	mu        sync.RWMutex
	notifiers []Notifier
}

// NewEvaluator creates an Evaluator.
func NewEvaluator(repo Repository, plants CareProfiles, thresholds Thresholds, logger *slog.Logger) *Evaluator {
	return &Evaluator{repo: repo, plants: plants, thresholds: thresholds, logger: logger}
}

// OnAlert registers a notifier.
func (e *Evaluator) OnAlert(n Notifier) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.notifiers = append(e.notifiers, n)
}

// EvaluateReading checks a reading from a paired sensor against its plant.
// Readings from unpaired sensors raise nothing.
func (e *Evaluator) EvaluateReading(ctx context.Context, device *auth.Device, reading *sensor.Reading, batteryLevel *float64) error {
	if !device.Paired() || device.OwnerID == 0 {
		return nil
	}

	profile, err := e.plants.CareProfile(ctx, *device.PlantID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil
		}
		return err
	}

	var errs []error
	moisture := reading.MoisturePct
	data := map[string]any{"device_id": device.DeviceID, "moisture_pct": moisture}

	switch high := float64(profile.MoistureTarget + e.thresholds.HighMoistureMargin); {
	case moisture < float64(profile.MoistureMin):
		data["threshold_pct"] = profile.MoistureMin
		errs = append(errs, e.raise(ctx, profile.OwnerID, &profile.PlantID, TypeLowMoisture,
			"Low soil moisture",
			fmt.Sprintf("%s needs water: soil moisture is %.1f%%, below the %d%% minimum.",
				profile.Nickname, moisture, profile.MoistureMin),
			data))
	case moisture > high:
		data["threshold_pct"] = high
		errs = append(errs, e.raise(ctx, profile.OwnerID, &profile.PlantID, TypeHighMoisture,
			"High soil moisture",
			fmt.Sprintf("%s may be overwatered: soil moisture is %.1f%%, above %.0f%%.",
				profile.Nickname, moisture, high),
			data))
	}

	if batteryLevel != nil && *batteryLevel < e.thresholds.LowBatteryPct {
		errs = append(errs, e.raise(ctx, profile.OwnerID, &profile.PlantID, TypeLowBattery,
			"Low sensor battery",
			fmt.Sprintf("Sensor %s on %s is at %.0f%% battery.", device.DeviceID, profile.Nickname, *batteryLevel),
			map[string]any{"device_id": device.DeviceID, "battery_level": *batteryLevel}))
	}
	return errors.Join(errs...)
}

// SensorOffline raises sensor_offline for a paired sensor.
func (e *Evaluator) SensorOffline(ctx context.Context, s sensor.Sensor) error {
	if s.Owner == 0 || s.UserPlantID == nil {
		return nil
	}
	data := map[string]any{"device_id": s.DeviceID}
	if s.LastSeen != nil {
		data["last_seen"] = s.LastSeen.UTC().Format(time.RFC3339)
	}
	return e.raise(ctx, s.Owner, s.UserPlantID, TypeSensorOffline,
		"Sensor offline",
		fmt.Sprintf("Sensor %s has stopped reporting.", s.DeviceID),
		data)
}

// WateringFailed raises watering_failed for a failed event.
func (e *Evaluator) WateringFailed(ctx context.Context, ev watering.Event) error {
	msg := "A watering did not complete."
	data := map[string]any{"event_id": ev.ID, "trigger": string(ev.Trigger)}
	if ev.ErrorMessage != nil && *ev.ErrorMessage != "" {
		msg = fmt.Sprintf("A watering did not complete: %s", *ev.ErrorMessage)
		data["error_message"] = *ev.ErrorMessage
	}
	plantID := ev.PlantID
	return e.raise(ctx, ev.Owner, &plantID, TypeWateringFailed, "Watering failed", msg, data)
}

// raise stores and publishes an alert unless an unread one of the same
// type already exists for the plant.
func (e *Evaluator) raise(ctx context.Context, userID int64, plantID *int64, t Type, title, message string, data map[string]any) error {
	if plantID != nil {
		unread, err := e.repo.HasUnread(ctx, userID, *plantID, t)
		if err != nil {
			return err
		}
		if unread {
			e.logger.Debug("alert suppressed, unread one exists", "type", t, "plant_id", *plantID)
			return nil
		}
	}

	a := &Alert{UserID: userID, UserPlantID: plantID, Type: t, Title: title, Message: message, Data: data}
	if err := e.repo.Create(ctx, a); err != nil {
		return fmt.Errorf("creating %s alert: %w", t, err)
	}
	e.logger.Info("alert raised", "type", t, "user_id", userID, "alert_id", a.ID)

	e.mu.RLock()
	notifiers := e.notifiers
	e.mu.RUnlock()
	for _, n := range notifiers {
		n(*a)
	}
	return nil
}
