package watering

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/forestos-core/internal/infrastructure/database"
	"github.com/nerrad567/forestos-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/forestos-core/internal/plant"
)

type recordingDispatcher struct {
	sent []Event
	err  error
}

func (d *recordingDispatcher) SendCommand(ev Event) error {
	d.sent = append(d.sent, ev)
	return d.err
}

type recordingSeries struct {
	points []influxdb.WateringEvent
}

func (s *recordingSeries) WriteWateringEvent(e influxdb.WateringEvent) {
	s.points = append(s.points, e)
}

type recordingFailures struct {
	events []Event
}

func (f *recordingFailures) WateringFailed(_ context.Context, ev Event) error {
	f.events = append(f.events, ev)
	return nil
}

type serviceFixture struct {
	db         *database.DB
	svc        *Service
	dispatcher *recordingDispatcher
	series     *recordingSeries
	failures   *recordingFailures
	owner      int64
	plantID    int64
	seen       []Event
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	db := testDB(t)
	f := &serviceFixture{
		db:         db,
		dispatcher: &recordingDispatcher{},
		series:     &recordingSeries{},
		failures:   &recordingFailures{},
	}
	f.owner, f.plantID = seedPlant(t, db, "alice@example.com")
	f.svc = NewService(NewRepository(db), f.dispatcher, f.series, f.failures, discardLogger())
	f.svc.OnEvent(func(ev Event) { f.seen = append(f.seen, ev) })
	return f
}

func TestService_Trigger(t *testing.T) {
	f := newServiceFixture(t)

	ev, err := f.svc.Trigger(t.Context(), f.plantID, TriggerManual)
	if err != nil {
		t.Fatalf("Trigger() error = %v", err)
	}
	if len(f.dispatcher.sent) != 1 || f.dispatcher.sent[0].ID != ev.ID {
		t.Errorf("commands sent = %+v", f.dispatcher.sent)
	}
	if len(f.series.points) != 1 || f.series.points[0].Status != "pending" || f.series.points[0].Trigger != "manual" {
		t.Errorf("series points = %+v", f.series.points)
	}
	if len(f.seen) != 1 || f.seen[0].Owner != f.owner {
		t.Errorf("listener saw %+v", f.seen)
	}
}

func TestService_TriggerSurvivesDispatchFailure(t *testing.T) {
	f := newServiceFixture(t)
	f.dispatcher.err = errors.New("broker down")

	ev, err := f.svc.Trigger(t.Context(), f.plantID, TriggerScheduled)
	if err != nil {
		t.Fatalf("Trigger() error = %v", err)
	}
	got, err := f.svc.Get(t.Context(), ev.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != StatusPending {
		t.Errorf("status = %s, want pending", got.Status)
	}
}

func TestService_UpdateCompletedStampsTime(t *testing.T) {
	f := newServiceFixture(t)
	fixed := time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return fixed }

	ev, err := f.svc.Trigger(t.Context(), f.plantID, TriggerManual)
	if err != nil {
		t.Fatalf("Trigger() error = %v", err)
	}
	got, err := f.svc.Update(t.Context(), ev.ID, EventPatch{Status: ptr(StatusCompleted)})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if got.CompletedTime == nil || !got.CompletedTime.Equal(fixed) {
		t.Errorf("CompletedTime = %v, want %v", got.CompletedTime, fixed)
	}
	if len(f.failures.events) != 0 {
		t.Errorf("failure notifier called for completed event")
	}
}

func TestService_UpdateFailedNotifies(t *testing.T) {
	f := newServiceFixture(t)
	ev, err := f.svc.Trigger(t.Context(), f.plantID, TriggerAutomatic)
	if err != nil {
		t.Fatalf("Trigger() error = %v", err)
	}

	if _, err := f.svc.Update(t.Context(), ev.ID, EventPatch{
		Status:       ptr(StatusFailed),
		ErrorMessage: ptr("pump stalled"),
	}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if len(f.failures.events) != 1 || *f.failures.events[0].ErrorMessage != "pump stalled" {
		t.Errorf("failures = %+v", f.failures.events)
	}
	if f.failures.events[0].Owner != f.owner {
		t.Errorf("failure owner = %d, want %d", f.failures.events[0].Owner, f.owner)
	}
}

func TestService_UpdateRejectsInvalidPatch(t *testing.T) {
	f := newServiceFixture(t)
	ev, err := f.svc.Trigger(t.Context(), f.plantID, TriggerManual)
	if err != nil {
		t.Fatalf("Trigger() error = %v", err)
	}
	if _, err := f.svc.Update(t.Context(), ev.ID, EventPatch{Status: ptr(Status("exploded"))}); !errors.Is(err, ErrInvalidEvent) {
		t.Errorf("Update() error = %v, want ErrInvalidEvent", err)
	}
}

func TestService_HistoryAndStatistics(t *testing.T) {
	f := newServiceFixture(t)
	ctx := t.Context()
	now := time.Now().UTC()

	for i, age := range []time.Duration{4 * day, 2 * day, 0} {
		f.svc.now = func() time.Time { return now.Add(-age) }
		ev, err := f.svc.Trigger(ctx, f.plantID, TriggerManual)
		if err != nil {
			t.Fatalf("Trigger() error = %v", err)
		}
		if i < 2 {
			if _, err := f.svc.Update(ctx, ev.ID, EventPatch{Status: ptr(StatusCompleted), WaterML: ptr(200.0)}); err != nil {
				t.Fatalf("Update() error = %v", err)
			}
		}
	}
	f.svc.now = func() time.Time { return now }

	events, total, err := f.svc.History(ctx, f.plantID, 30, 0, 2)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(events) != 2 || total != 3 {
		t.Errorf("History() = %d events, total %d", len(events), total)
	}

	p := &plant.UserPlant{ID: f.plantID, LastWatered: &now}
	stats, err := f.svc.Statistics(ctx, p, 30)
	if err != nil {
		t.Fatalf("Statistics() error = %v", err)
	}
	if stats.TotalEvents != 2 || stats.TotalWaterML != 400 || stats.AverageIntervalDays == nil || *stats.AverageIntervalDays != 2 {
		t.Errorf("Statistics() = %+v", stats)
	}
	if stats.TriggerCounts[TriggerManual] != 2 {
		t.Errorf("manual count = %d", stats.TriggerCounts[TriggerManual])
	}
}

func TestService_ApplyReport(t *testing.T) {
	f := newServiceFixture(t)
	_, otherPlant := seedPlant(t, f.db, "bob@example.com")
	ev, err := f.svc.Trigger(t.Context(), f.plantID, TriggerManual)
	if err != nil {
		t.Fatalf("Trigger() error = %v", err)
	}

	report := StatusReport{EventID: ev.ID, EventPatch: EventPatch{Status: ptr(StatusInProgress)}}
	if err := f.svc.ApplyReport(t.Context(), otherPlant, report); !errors.Is(err, ErrEventNotFound) {
		t.Errorf("ApplyReport(wrong plant) error = %v, want ErrEventNotFound", err)
	}
	if err := f.svc.ApplyReport(t.Context(), f.plantID, report); err != nil {
		t.Fatalf("ApplyReport() error = %v", err)
	}
	got, _ := f.svc.Get(t.Context(), ev.ID) //nolint:errcheck // checked by value
	if got.Status != StatusInProgress {
		t.Errorf("status = %s, want in_progress", got.Status)
	}
}
