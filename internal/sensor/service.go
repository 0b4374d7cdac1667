package sensor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nerrad567/forestos-core/internal/auth"
	"github.com/nerrad567/forestos-core/internal/infrastructure/influxdb"
)

// Evaluator inspects a stored reading and raises alerts.
type Evaluator interface {
	EvaluateReading(ctx context.Context, device *auth.Device, reading *Reading, batteryLevel *float64) error
}

// TimeSeries mirrors readings to a time-series store.
type TimeSeries interface {
	WriteSensorReading(r influxdb.SensorReading)
}

// ReadingEvent is delivered to listeners after a reading is stored.
type ReadingEvent struct {
	OwnerID  int64
	DeviceID string
	Reading  Reading
}

// Listener receives ReadingEvents. It must not block.
type Listener func(ReadingEvent)

// Service is the single path every reading takes, regardless of transport.
type Service struct {
	repo      Repository
	evaluator Evaluator
	series    TimeSeries
	logger    *slog.Logger
	now       func() time.Time

	mu        sync.RWMutex
	listeners []Listener
}

// NewService creates a Service. evaluator and series may be nil.
func NewService(repo Repository, evaluator Evaluator, series TimeSeries, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		evaluator: evaluator,
		series:    series,
		logger:    logger,
		now:       time.Now,
	}
}

// OnReading registers a listener.
func (s *Service) OnReading(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// Submit validates and stores a reading from an authenticated device, then
// evaluates alerts, mirrors it to the time-series store and notifies
// listeners. Only validation and storage failures are returned; later steps
// are logged.
func (s *Service) Submit(ctx context.Context, device *auth.Device, sub Submission) (*Reading, error) {
	at, err := sub.Validate(s.now().UTC())
	if err != nil {
		return nil, err
	}

	reading, err := s.repo.RecordReading(ctx, device.SensorID, sub, at)
	if err != nil {
		return nil, fmt.Errorf("recording reading for %s: %w", device.DeviceID, err)
	}

	if s.evaluator != nil {
		if err := s.evaluator.EvaluateReading(ctx, device, reading, sub.BatteryLevel); err != nil {
			s.logger.Error("evaluating reading", "device_id", device.DeviceID, "error", err)
		}
	}

	if s.series != nil {
		s.series.WriteSensorReading(influxdb.SensorReading{
			DeviceID:       device.DeviceID,
			PlantID:        device.PlantID,
			MoisturePct:    reading.MoisturePct,
			TemperatureC:   reading.TemperatureCelsius,
			HumidityPct:    reading.HumidityPct,
			LightLux:       reading.LightLux,
			BatteryVoltage: reading.BatteryVoltage,
			BatteryLevel:   sub.BatteryLevel,
			Timestamp:      reading.Timestamp,
		})
	}

	if device.OwnerID != 0 {
		s.notify(ReadingEvent{OwnerID: device.OwnerID, DeviceID: device.DeviceID, Reading: *reading})
	}
	return reading, nil
}

func (s *Service) notify(ev ReadingEvent) {
	s.mu.RLock()
	listeners := s.listeners
	s.mu.RUnlock()
	for _, l := range listeners {
		l(ev)
	}
}
