package watering

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nerrad567/forestos-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/forestos-core/internal/plant"
)

// Dispatcher sends a watering command to the plant's pump controller.
type Dispatcher interface {
	SendCommand(ev Event) error
}

// TimeSeries mirrors watering events to a time-series store.
type TimeSeries interface {
	WriteWateringEvent(e influxdb.WateringEvent)
}

// FailureNotifier is told when an event moves to failed.
type FailureNotifier interface {
	WateringFailed(ctx context.Context, ev Event) error
}

// Listener receives every created or updated event. It must not block.
type Listener func(Event)

// Service runs watering triggers and status changes. Callers check
// ownership before calling it.
type Service struct {
	repo       Repository
	dispatcher Dispatcher
	series     TimeSeries
	failures   FailureNotifier
	logger     *slog.Logger
	now        func() time.Time

	mu        sync.RWMutex
	listeners []Listener
}

// NewService creates a Service. dispatcher, series and failures may be nil.
func NewService(repo Repository, dispatcher Dispatcher, series TimeSeries, failures FailureNotifier, logger *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		dispatcher: dispatcher,
		series:     series,
		failures:   failures,
		logger:     logger,
		now:        time.Now,
	}
}

// OnEvent registers a listener.
func (s *Service) OnEvent(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// Trigger creates a pending event for the plant and sends the pump command.
// A failed send is logged; the event stays pending.
func (s *Service) Trigger(ctx context.Context, plantID int64, trigger Trigger) (*Event, error) {
	ev, err := s.repo.Trigger(ctx, plantID, trigger, s.now())
	if err != nil {
		return nil, err
	}

	if s.dispatcher != nil {
		if err := s.dispatcher.SendCommand(*ev); err != nil {
			s.logger.Error("sending watering command", "event_id", ev.ID, "plant_id", plantID, "error", err)
		}
	}
	s.changed(*ev)
	return ev, nil
}

// Get returns an event with its owner.
func (s *Service) Get(ctx context.Context, id int64) (*Event, error) {
	return s.repo.GetByID(ctx, id)
}

// History returns one page of the plant's events from the last days days
// and the total across all pages.
func (s *Service) History(ctx context.Context, plantID int64, days, skip, limit int) ([]Event, int, error) {
	since := s.now().Add(-time.Duration(days) * day)
	events, err := s.repo.History(ctx, plantID, since, skip, limit)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.CountHistory(ctx, plantID, since)
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

// Statistics aggregates the plant's completed events from the last days days.
func (s *Service) Statistics(ctx context.Context, p *plant.UserPlant, days int) (Statistics, error) {
	completed, err := s.repo.Completed(ctx, p.ID, s.now().Add(-time.Duration(days)*day))
	if err != nil {
		return Statistics{}, err
	}
	return ComputeStatistics(p.ID, days, completed, p.LastWatered), nil
}

// Update applies a patch. Completing an event without a completion time
// stamps it with now; moving it to failed notifies the FailureNotifier.
func (s *Service) Update(ctx context.Context, id int64, patch EventPatch) (*Event, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	if patch.Status != nil && *patch.Status == StatusCompleted && patch.CompletedTime == nil {
		now := s.now().UTC()
		patch.CompletedTime = &now
	}

	ev, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	if patch.Status != nil && *patch.Status == StatusFailed && s.failures != nil {
		if err := s.failures.WateringFailed(ctx, *ev); err != nil {
			s.logger.Error("raising watering failure alert", "event_id", ev.ID, "error", err)
		}
	}
	s.changed(*ev)
	return ev, nil
}

// Delete removes an event.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// ApplyReport folds a pump controller's status report into its event.
// Reports naming an event of another plant are rejected as not found.
func (s *Service) ApplyReport(ctx context.Context, plantID int64, report StatusReport) error {
	ev, err := s.repo.GetByID(ctx, report.EventID)
	if err != nil {
		return err
	}
	if ev.PlantID != plantID {
		return fmt.Errorf("event %d reported for plant %d: %w", report.EventID, plantID, ErrEventNotFound)
	}
	_, err = s.Update(ctx, report.EventID, report.EventPatch)
	return err
}

func (s *Service) changed(ev Event) {
	if s.series != nil {
		s.series.WriteWateringEvent(influxdb.WateringEvent{
			EventID:         ev.ID,
			PlantID:         ev.PlantID,
			Trigger:         string(ev.Trigger),
			Status:          string(ev.Status),
			WaterML:         ev.WaterML,
			DurationSeconds: ev.DurationSeconds,
			Timestamp:       eventTime(ev),
		})
	}

	s.mu.RLock()
	listeners := s.listeners
	s.mu.RUnlock()
	for _, l := range listeners {
		l(ev)
	}
}

func eventTime(ev Event) time.Time {
	if ev.CompletedTime != nil {
		return *ev.CompletedTime
	}
	return ev.ScheduledTime
}
