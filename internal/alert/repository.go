package alert

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/forestos-core/internal/infrastructure/database"
)

// Repository persists alerts.
type Repository interface {
	Create(ctx context.Context, a *Alert) error
	GetByID(ctx context.Context, id int64) (*Alert, error)
	List(ctx context.Context, userID int64, filter Filter) ([]Alert, error)
	Count(ctx context.Context, userID int64, filter Filter) (int, error)
	MarkRead(ctx context.Context, id int64) (*Alert, error)
	MarkAllRead(ctx context.Context, userID int64) (int, error)
	Delete(ctx context.Context, id int64) error
	HasUnread(ctx context.Context, userID, plantID int64, t Type) (bool, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *database.DB
}

// NewRepository creates a SQLite-backed alert repository.
func NewRepository(db *database.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const alertColumns = "id, user_id, user_plant_id, alert_type, title, message, is_read, read_at, data, created_at"

// Create inserts an alert and fills in ID and CreatedAt.
func (r *SQLiteRepository) Create(ctx context.Context, a *Alert) error {
	var data sql.NullString
	if len(a.Data) > 0 {
		b, err := json.Marshal(a.Data)
		if err != nil {
			return fmt.Errorf("encoding alert data: %w", err)
		}
		data = sql.NullString{String: string(b), Valid: true}
	}

	now := time.Now().UTC().Truncate(time.Second)
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO alerts (user_id, user_plant_id, alert_type, title, message, is_read, data, created_at)
		 VALUES (?, ?, ?, ?, ?, 0, ?, ?)`,
		a.UserID, a.UserPlantID, a.Type, a.Title, a.Message, data, database.Timestamp(now),
	)
	if err != nil {
		return fmt.Errorf("inserting alert: %w", err)
	}
	if a.ID, err = result.LastInsertId(); err != nil {
		return fmt.Errorf("reading alert id: %w", err)
	}
	a.IsRead = false
	a.ReadAt = nil
	a.CreatedAt = now
	return nil
}

// GetByID retrieves an alert.
func (r *SQLiteRepository) GetByID(ctx context.Context, id int64) (*Alert, error) {
	a, err := scanAlert(r.db.QueryRowContext(ctx, "SELECT "+alertColumns+" FROM alerts WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAlertNotFound
	}
	return a, err
}

func filterClause(userID int64, filter Filter) (string, []any) {
	where := " WHERE user_id = ?"
	args := []any{userID}
	if filter.IsRead != nil {
		where += " AND is_read = ?"
		args = append(args, *filter.IsRead)
	}
	return where, args
}

// List returns a user's alerts, newest first.
func (r *SQLiteRepository) List(ctx context.Context, userID int64, filter Filter) ([]Alert, error) {
	where, args := filterClause(userID, filter)
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+alertColumns+" FROM alerts"+where+" ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		append(args, filter.Limit, filter.Skip)...)
	if err != nil {
		return nil, fmt.Errorf("listing alerts: %w", err)
	}
	defer rows.Close()

	alerts := []Alert{}
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating alerts: %w", err)
	}
	return alerts, nil
}

// Count returns how many alerts List would page through.
func (r *SQLiteRepository) Count(ctx context.Context, userID int64, filter Filter) (int, error) {
	where, args := filterClause(userID, filter)
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM alerts"+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting alerts: %w", err)
	}
	return n, nil
}

// MarkRead flags an alert read. Reading an already read alert keeps the
// original read_at.
func (r *SQLiteRepository) MarkRead(ctx context.Context, id int64) (*Alert, error) {
	result, err := r.db.ExecContext(ctx,
		"UPDATE alerts SET is_read = 1, read_at = COALESCE(read_at, ?) WHERE id = ?",
		database.Timestamp(time.Now()), id)
	if err != nil {
		return nil, fmt.Errorf("marking alert %d read: %w", id, err)
	}
	if n, _ := result.RowsAffected(); n == 0 { //nolint:errcheck // always succeeds on SQLite
		return nil, ErrAlertNotFound
	}
	return r.GetByID(ctx, id)
}

// MarkAllRead flags every unread alert of a user read and returns how many changed.
func (r *SQLiteRepository) MarkAllRead(ctx context.Context, userID int64) (int, error) {
	result, err := r.db.ExecContext(ctx,
		"UPDATE alerts SET is_read = 1, read_at = ? WHERE user_id = ? AND is_read = 0",
		database.Timestamp(time.Now()), userID)
	if err != nil {
		return 0, fmt.Errorf("marking alerts read: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting marked alerts: %w", err)
	}
	return int(n), nil
}

// Delete removes an alert.
func (r *SQLiteRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM alerts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting alert %d: %w", id, err)
	}
	if n, _ := result.RowsAffected(); n == 0 { //nolint:errcheck // always succeeds on SQLite
		return ErrAlertNotFound
	}
	return nil
}

// HasUnread reports whether the user has an unread alert of type t for the plant.
func (r *SQLiteRepository) HasUnread(ctx context.Context, userID, plantID int64, t Type) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM alerts
			WHERE user_id = ? AND user_plant_id = ? AND alert_type = ? AND is_read = 0)`,
		userID, plantID, t).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking unread %s alerts: %w", t, err)
	}
	return exists, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAlert(sc scanner) (*Alert, error) {
	var (
		a         Alert
		plantID   sql.NullInt64
		readAt    sql.NullString
		data      sql.NullString
		createdAt string
	)
	err := sc.Scan(&a.ID, &a.UserID, &plantID, &a.Type, &a.Title, &a.Message, &a.IsRead, &readAt, &data, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning alert: %w", err)
	}
	if plantID.Valid {
		a.UserPlantID = &plantID.Int64
	}
	a.ReadAt = database.ParseNullTimestamp(readAt)
	if data.Valid && data.String != "" {
		if err := json.Unmarshal([]byte(data.String), &a.Data); err != nil {
			return nil, fmt.Errorf("decoding alert data: %w", err)
		}
	}
	if a.CreatedAt, err = database.ParseTimestamp(createdAt); err != nil {
		return nil, err
	}
	return &a, nil
}
