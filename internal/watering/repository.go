package watering

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nerrad567/forestos-core/internal/infrastructure/database"
	"github.com/nerrad567/forestos-core/internal/plant"
)

// Repository persists watering events.
type Repository interface {
	Trigger(ctx context.Context, plantID int64, trigger Trigger, at time.Time) (*Event, error)
	GetByID(ctx context.Context, id int64) (*Event, error)
	History(ctx context.Context, plantID int64, since time.Time, skip, limit int) ([]Event, error)
	CountHistory(ctx context.Context, plantID int64, since time.Time) (int, error)
	Completed(ctx context.Context, plantID int64, since time.Time) ([]Event, error)
	Update(ctx context.Context, id int64, patch EventPatch) (*Event, error)
	Delete(ctx context.Context, id int64) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *database.DB
}

// NewRepository creates a SQLite-backed watering repository.
func NewRepository(db *database.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const eventSelect = `SELECT e.id, e.user_plant_id, e.trigger_type, e.status, e.scheduled_time,
	e.completed_time, e.water_ml, e.duration_seconds, e.moisture_before_pct, e.moisture_after_pct,
	e.notes, e.error_message, p.owner_id
	FROM watering_events e JOIN user_plants p ON p.id = e.user_plant_id`

// Trigger creates a pending event scheduled at at and stamps the plant's
// last_watered in one transaction.
func (r *SQLiteRepository) Trigger(ctx context.Context, plantID int64, trigger Trigger, at time.Time) (*Event, error) {
	at = at.UTC().Truncate(time.Second)
	ev := &Event{PlantID: plantID, Trigger: trigger, Status: StatusPending, ScheduledTime: at}

	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx,
			"SELECT owner_id FROM user_plants WHERE id = ?", plantID).Scan(&ev.Owner); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return plant.ErrPlantNotFound
			}
			return fmt.Errorf("loading plant %d: %w", plantID, err)
		}

		result, err := tx.ExecContext(ctx,
			`INSERT INTO watering_events (user_plant_id, trigger_type, status, scheduled_time)
			 VALUES (?, ?, ?, ?)`,
			plantID, trigger, StatusPending, database.Timestamp(at))
		if err != nil {
			return fmt.Errorf("inserting watering event: %w", err)
		}
		if ev.ID, err = result.LastInsertId(); err != nil {
			return fmt.Errorf("reading event id: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			"UPDATE user_plants SET last_watered = ?, updated_at = ? WHERE id = ?",
			database.Timestamp(at), database.Timestamp(time.Now()), plantID); err != nil {
			return fmt.Errorf("stamping last_watered: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ev, nil
}

// GetByID retrieves an event with the owner of its plant.
func (r *SQLiteRepository) GetByID(ctx context.Context, id int64) (*Event, error) {
	ev, err := scanEvent(r.db.QueryRowContext(ctx, eventSelect+" WHERE e.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEventNotFound
	}
	return ev, err
}

// History returns events scheduled at or after since, newest first.
func (r *SQLiteRepository) History(ctx context.Context, plantID int64, since time.Time, skip, limit int) ([]Event, error) {
	rows, err := r.db.QueryContext(ctx,
		eventSelect+` WHERE e.user_plant_id = ? AND e.scheduled_time >= ?
		 ORDER BY e.scheduled_time DESC, e.id DESC LIMIT ? OFFSET ?`,
		plantID, database.Timestamp(since), limit, skip)
	if err != nil {
		return nil, fmt.Errorf("listing watering history: %w", err)
	}
	defer rows.Close()
	return collectEvents(rows)
}

// CountHistory returns how many events History would page through.
func (r *SQLiteRepository) CountHistory(ctx context.Context, plantID int64, since time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM watering_events WHERE user_plant_id = ? AND scheduled_time >= ?",
		plantID, database.Timestamp(since)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting watering history: %w", err)
	}
	return n, nil
}

// Completed returns completed events scheduled at or after since, oldest first.
func (r *SQLiteRepository) Completed(ctx context.Context, plantID int64, since time.Time) ([]Event, error) {
	rows, err := r.db.QueryContext(ctx,
		eventSelect+` WHERE e.user_plant_id = ? AND e.scheduled_time >= ? AND e.status = ?
		 ORDER BY e.scheduled_time ASC, e.id ASC`,
		plantID, database.Timestamp(since), StatusCompleted)
	if err != nil {
		return nil, fmt.Errorf("listing completed waterings: %w", err)
	}
	defer rows.Close()
	return collectEvents(rows)
}

// Update applies the non-nil fields of patch and returns the stored event.
func (r *SQLiteRepository) Update(ctx context.Context, id int64, patch EventPatch) (*Event, error) {
	if patch.IsEmpty() {
		return r.GetByID(ctx, id)
	}

	var (
		sets []string
		args []any
	)
	set := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if patch.Status != nil {
		set("status", *patch.Status)
	}
	if patch.CompletedTime != nil {
		set("completed_time", database.Timestamp(*patch.CompletedTime))
	}
	if patch.WaterML != nil {
		set("water_ml", *patch.WaterML)
	}
	if patch.DurationSeconds != nil {
		set("duration_seconds", *patch.DurationSeconds)
	}
	if patch.MoistureBeforePct != nil {
		set("moisture_before_pct", *patch.MoistureBeforePct)
	}
	if patch.MoistureAfterPct != nil {
		set("moisture_after_pct", *patch.MoistureAfterPct)
	}
	if patch.Notes != nil {
		set("notes", *patch.Notes)
	}
	if patch.ErrorMessage != nil {
		set("error_message", *patch.ErrorMessage)
	}
	args = append(args, id)

	result, err := r.db.ExecContext(ctx,
		"UPDATE watering_events SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return nil, fmt.Errorf("updating watering event %d: %w", id, err)
	}
	if n, _ := result.RowsAffected(); n == 0 { //nolint:errcheck // always succeeds on SQLite
		return nil, ErrEventNotFound
	}
	return r.GetByID(ctx, id)
}

// Delete removes an event.
func (r *SQLiteRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM watering_events WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting watering event %d: %w", id, err)
	}
	if n, _ := result.RowsAffected(); n == 0 { //nolint:errcheck // always succeeds on SQLite
		return ErrEventNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func collectEvents(rows *sql.Rows) ([]Event, error) {
	events := []Event{}
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating watering events: %w", err)
	}
	return events, nil
}

func scanEvent(sc scanner) (*Event, error) {
	var (
		ev                Event
		scheduled         string
		completed         sql.NullString
		water, before     sql.NullFloat64
		after             sql.NullFloat64
		duration          sql.NullInt64
		notes, errMessage sql.NullString
	)
	err := sc.Scan(&ev.ID, &ev.PlantID, &ev.Trigger, &ev.Status, &scheduled, &completed,
		&water, &duration, &before, &after, &notes, &errMessage, &ev.Owner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning watering event: %w", err)
	}
	if ev.ScheduledTime, err = database.ParseTimestamp(scheduled); err != nil {
		return nil, err
	}
	ev.CompletedTime = database.ParseNullTimestamp(completed)
	if water.Valid {
		ev.WaterML = &water.Float64
	}
	if duration.Valid {
		ev.DurationSeconds = &duration.Int64
	}
	if before.Valid {
		ev.MoistureBeforePct = &before.Float64
	}
	if after.Valid {
		ev.MoistureAfterPct = &after.Float64
	}
	if notes.Valid {
		ev.Notes = &notes.String
	}
	if errMessage.Valid {
		ev.ErrorMessage = &errMessage.String
	}
	return &ev, nil
}
