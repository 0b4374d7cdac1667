package sensor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nerrad567/forestos-core/internal/auth"
	"github.com/nerrad567/forestos-core/internal/infrastructure/database"
)

// Repository persists sensors and their readings.
type Repository interface {
	Create(ctx context.Context, s *Sensor) error
	GetByDeviceID(ctx context.Context, deviceID string) (*Sensor, error)
	ListByOwner(ctx context.Context, ownerID int64, skip, limit int) ([]Sensor, error)
	CountByOwner(ctx context.Context, ownerID int64) (int, error)
	Update(ctx context.Context, id int64, patch Patch) (*Sensor, error)
	Delete(ctx context.Context, id int64) error
	GetCredentials(ctx context.Context, deviceID string) (*auth.Device, error)
	RecordReading(ctx context.Context, sensorID int64, sub Submission, at time.Time) (*Reading, error)
	ListReadings(ctx context.Context, sensorID int64, since time.Time, skip, limit int) ([]Reading, error)
	CountReadings(ctx context.Context, sensorID int64, since time.Time) (int, error)
	LatestReading(ctx context.Context, sensorID int64) (*Reading, error)
	MarkStaleOffline(ctx context.Context, olderThan time.Time) ([]Sensor, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *database.DB
}

// NewRepository creates a SQLite-backed sensor repository.
func NewRepository(db *database.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// sensorSelect resolves the owner through the paired plant.
const sensorSelect = `SELECT s.id, s.device_id, s.hardware_version, s.firmware_version, s.auth_token,
	s.user_plant_id, s.is_online, s.battery_level, s.last_seen,
	s.moisture_dry_value, s.moisture_wet_value, s.created_at, s.updated_at,
	COALESCE(p.owner_id, 0)
	FROM sensors s LEFT JOIN user_plants p ON p.id = s.user_plant_id`

const readingColumns = "id, sensor_id, moisture_pct, temperature_celsius, humidity_pct, light_lux, battery_voltage, timestamp"

// Create inserts a sensor and fills in ID and timestamps.
func (r *SQLiteRepository) Create(ctx context.Context, s *Sensor) error {
	now := time.Now().UTC().Truncate(time.Second)
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO sensors (device_id, hardware_version, firmware_version, auth_token, user_plant_id,
			is_online, battery_level, last_seen, moisture_dry_value, moisture_wet_value, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.DeviceID, s.HardwareVersion, s.FirmwareVersion, s.AuthToken, s.UserPlantID,
		s.IsOnline, s.BatteryLevel, database.NullTimestamp(s.LastSeen),
		s.MoistureDryValue, s.MoistureWetValue, database.Timestamp(now), database.Timestamp(now),
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return ErrDeviceExists
		}
		return fmt.Errorf("inserting sensor %s: %w", s.DeviceID, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading sensor id: %w", err)
	}
	s.ID = id
	s.CreatedAt = now
	s.UpdatedAt = now
	return nil
}

// GetByDeviceID retrieves a sensor with its resolved owner.
func (r *SQLiteRepository) GetByDeviceID(ctx context.Context, deviceID string) (*Sensor, error) {
	return r.getSensor(ctx, sensorSelect+" WHERE s.device_id = ?", deviceID)
}

func (r *SQLiteRepository) getByID(ctx context.Context, id int64) (*Sensor, error) {
	return r.getSensor(ctx, sensorSelect+" WHERE s.id = ?", id)
}

func (r *SQLiteRepository) getSensor(ctx context.Context, query string, arg any) (*Sensor, error) {
	s, err := scanSensor(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSensorNotFound
	}
	return s, err
}

// ListByOwner returns sensors paired with the user's plants, ordered by id.
func (r *SQLiteRepository) ListByOwner(ctx context.Context, ownerID int64, skip, limit int) ([]Sensor, error) {
	rows, err := r.db.QueryContext(ctx,
		sensorSelect+" WHERE p.owner_id = ? ORDER BY s.id LIMIT ? OFFSET ?", ownerID, limit, skip)
	if err != nil {
		return nil, fmt.Errorf("listing sensors: %w", err)
	}
	defer rows.Close()
	return collectSensors(rows)
}

// CountByOwner returns how many sensors are paired with the user's plants.
func (r *SQLiteRepository) CountByOwner(ctx context.Context, ownerID int64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sensors s JOIN user_plants p ON p.id = s.user_plant_id WHERE p.owner_id = ?",
		ownerID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting sensors: %w", err)
	}
	return n, nil
}

// Update applies the non-nil fields of patch and returns the stored sensor.
// Pairing with a plant that does not exist yields an error wrapping
// database.ErrNotFound.
func (r *SQLiteRepository) Update(ctx context.Context, id int64, patch Patch) (*Sensor, error) {
	var (
		sets []string
		args []any
	)
	set := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if patch.IsOnline != nil {
		set("is_online", *patch.IsOnline)
	}
	if patch.BatteryLevel != nil {
		set("battery_level", *patch.BatteryLevel)
	}
	if patch.LastSeen != nil {
		set("last_seen", database.Timestamp(*patch.LastSeen))
	}
	if patch.UserPlantID != nil {
		set("user_plant_id", *patch.UserPlantID)
	}
	if patch.FirmwareVersion != nil {
		set("firmware_version", *patch.FirmwareVersion)
	}
	if patch.MoistureDryValue != nil {
		set("moisture_dry_value", *patch.MoistureDryValue)
	}
	if patch.MoistureWetValue != nil {
		set("moisture_wet_value", *patch.MoistureWetValue)
	}
	if len(sets) == 0 {
		return r.getByID(ctx, id)
	}
	set("updated_at", database.Timestamp(time.Now()))
	args = append(args, id)

	result, err := r.db.ExecContext(ctx, "UPDATE sensors SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return nil, fmt.Errorf("pairing sensor %d: plant %d: %w", id, *patch.UserPlantID, database.ErrNotFound)
		}
		return nil, fmt.Errorf("updating sensor %d: %w", id, err)
	}
	if n, _ := result.RowsAffected(); n == 0 { //nolint:errcheck // always succeeds on SQLite
		return nil, ErrSensorNotFound
	}
	return r.getByID(ctx, id)
}

// Delete removes a sensor and its readings.
func (r *SQLiteRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM sensors WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting sensor %d: %w", id, err)
	}
	if n, _ := result.RowsAffected(); n == 0 { //nolint:errcheck // always succeeds on SQLite
		return ErrSensorNotFound
	}
	return nil
}

// GetCredentials returns the device principal for a device id.
func (r *SQLiteRepository) GetCredentials(ctx context.Context, deviceID string) (*auth.Device, error) {
	s, err := r.GetByDeviceID(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	return &auth.Device{
		SensorID:  s.ID,
		DeviceID:  s.DeviceID,
		AuthToken: s.AuthToken,
		PlantID:   s.UserPlantID,
		OwnerID:   s.Owner,
	}, nil
}

// RecordReading stores a reading and marks the sensor online in one
// transaction. A nil BatteryLevel leaves the stored level unchanged.
func (r *SQLiteRepository) RecordReading(ctx context.Context, sensorID int64, sub Submission, at time.Time) (*Reading, error) {
	reading := &Reading{
		SensorID:           sensorID,
		TemperatureCelsius: sub.TemperatureCelsius,
		HumidityPct:        sub.HumidityPercent,
		LightLux:           sub.LightLux,
		BatteryVoltage:     sub.BatteryVoltage,
		Timestamp:          at.UTC().Truncate(time.Second),
	}
	if sub.MoisturePercent != nil {
		reading.MoisturePct = *sub.MoisturePercent
	}

	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`INSERT INTO sensor_readings (sensor_id, moisture_pct, temperature_celsius, humidity_pct, light_lux, battery_voltage, timestamp)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			sensorID, reading.MoisturePct, reading.TemperatureCelsius, reading.HumidityPct,
			reading.LightLux, reading.BatteryVoltage, database.Timestamp(reading.Timestamp),
		)
		if err != nil {
			if database.IsForeignKeyViolation(err) {
				return ErrSensorNotFound
			}
			return fmt.Errorf("inserting reading: %w", err)
		}
		if reading.ID, err = result.LastInsertId(); err != nil {
			return fmt.Errorf("reading id: %w", err)
		}

		now := database.Timestamp(time.Now())
		_, err = tx.ExecContext(ctx,
			`UPDATE sensors SET is_online = 1, last_seen = ?, battery_level = COALESCE(?, battery_level), updated_at = ?
			 WHERE id = ?`,
			now, sub.BatteryLevel, now, sensorID,
		)
		if err != nil {
			return fmt.Errorf("updating sensor status: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reading, nil
}

// ListReadings returns readings at or after since, newest first.
func (r *SQLiteRepository) ListReadings(ctx context.Context, sensorID int64, since time.Time, skip, limit int) ([]Reading, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+readingColumns+` FROM sensor_readings
		 WHERE sensor_id = ? AND timestamp >= ?
		 ORDER BY timestamp DESC, id DESC LIMIT ? OFFSET ?`,
		sensorID, database.Timestamp(since), limit, skip)
	if err != nil {
		return nil, fmt.Errorf("listing readings: %w", err)
	}
	defer rows.Close()

	readings := []Reading{}
	for rows.Next() {
		rd, err := scanReading(rows)
		if err != nil {
			return nil, err
		}
		readings = append(readings, *rd)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating readings: %w", err)
	}
	return readings, nil
}

// CountReadings returns how many readings a sensor has at or after since.
func (r *SQLiteRepository) CountReadings(ctx context.Context, sensorID int64, since time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sensor_readings WHERE sensor_id = ? AND timestamp >= ?",
		sensorID, database.Timestamp(since)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting readings: %w", err)
	}
	return n, nil
}

// LatestReading returns the newest reading of a sensor.
func (r *SQLiteRepository) LatestReading(ctx context.Context, sensorID int64) (*Reading, error) {
	rd, err := scanReading(r.db.QueryRowContext(ctx,
		"SELECT "+readingColumns+" FROM sensor_readings WHERE sensor_id = ? ORDER BY timestamp DESC, id DESC LIMIT 1",
		sensorID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoReadings
	}
	return rd, err
}

// MarkStaleOffline flips online sensors not seen since olderThan to offline
// and returns them as they were before the change.
func (r *SQLiteRepository) MarkStaleOffline(ctx context.Context, olderThan time.Time) ([]Sensor, error) {
	var stale []Sensor
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx,
			sensorSelect+" WHERE s.is_online = 1 AND (s.last_seen IS NULL OR s.last_seen < ?) ORDER BY s.id",
			database.Timestamp(olderThan))
		if err != nil {
			return fmt.Errorf("finding stale sensors: %w", err)
		}
		stale, err = collectSensors(rows)
		rows.Close()
		if err != nil {
			return err
		}

		now := database.Timestamp(time.Now())
		for _, s := range stale {
			if _, err := tx.ExecContext(ctx,
				"UPDATE sensors SET is_online = 0, updated_at = ? WHERE id = ?", now, s.ID); err != nil {
				return fmt.Errorf("marking sensor %s offline: %w", s.DeviceID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stale, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func collectSensors(rows *sql.Rows) ([]Sensor, error) {
	sensors := []Sensor{}
	for rows.Next() {
		s, err := scanSensor(rows)
		if err != nil {
			return nil, err
		}
		sensors = append(sensors, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sensors: %w", err)
	}
	return sensors, nil
}

func scanSensor(sc scanner) (*Sensor, error) {
	var (
		s                    Sensor
		hw, fw               sql.NullString
		plantID              sql.NullInt64
		battery              sql.NullFloat64
		lastSeen             sql.NullString
		dry, wet             sql.NullInt64
		createdAt, updatedAt string
	)
	err := sc.Scan(&s.ID, &s.DeviceID, &hw, &fw, &s.AuthToken, &plantID, &s.IsOnline, &battery, &lastSeen,
		&dry, &wet, &createdAt, &updatedAt, &s.Owner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning sensor: %w", err)
	}
	if hw.Valid {
		s.HardwareVersion = &hw.String
	}
	if fw.Valid {
		s.FirmwareVersion = &fw.String
	}
	if plantID.Valid {
		s.UserPlantID = &plantID.Int64
	}
	if battery.Valid {
		s.BatteryLevel = &battery.Float64
	}
	s.LastSeen = database.ParseNullTimestamp(lastSeen)
	if dry.Valid {
		v := int(dry.Int64)
		s.MoistureDryValue = &v
	}
	if wet.Valid {
		v := int(wet.Int64)
		s.MoistureWetValue = &v
	}
	if s.CreatedAt, err = database.ParseTimestamp(createdAt); err != nil {
		return nil, err
	}
	if s.UpdatedAt, err = database.ParseTimestamp(updatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func scanReading(sc scanner) (*Reading, error) {
	var (
		rd        Reading
		temp, hum sql.NullFloat64
		lux       sql.NullInt64
		voltage   sql.NullFloat64
		timestamp string
	)
	err := sc.Scan(&rd.ID, &rd.SensorID, &rd.MoisturePct, &temp, &hum, &lux, &voltage, &timestamp)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning reading: %w", err)
	}
	if temp.Valid {
		rd.TemperatureCelsius = &temp.Float64
	}
	if hum.Valid {
		rd.HumidityPct = &hum.Float64
	}
	if lux.Valid {
		rd.LightLux = &lux.Int64
	}
	if voltage.Valid {
		rd.BatteryVoltage = &voltage.Float64
	}
	if rd.Timestamp, err = database.ParseTimestamp(timestamp); err != nil {
		return nil, err
	}
	return &rd, nil
}
