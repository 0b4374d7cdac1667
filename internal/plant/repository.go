package plant

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nerrad567/forestos-core/internal/infrastructure/database"
)

// Repository persists user plants.
type Repository interface {
	Create(ctx context.Context, p *UserPlant) error
	GetByID(ctx context.Context, id int64) (*UserPlant, error)
	ListByOwner(ctx context.Context, ownerID int64, filter UserPlantFilter) ([]UserPlant, error)
	CountByOwner(ctx context.Context, ownerID int64, filter UserPlantFilter) (int, error)
	Update(ctx context.Context, id int64, patch UserPlantPatch) (*UserPlant, error)
	Delete(ctx context.Context, id int64) error
	MarkWatered(ctx context.Context, id int64, at time.Time) (*UserPlant, error)
	SpeciesCounts(ctx context.Context, ownerID int64) (map[string]int, error)
	CareProfile(ctx context.Context, id int64) (*CareProfile, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewRepository creates a SQLite-backed user plant repository.
func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const plantColumns = `id, owner_id, species_id, nickname, location, pot_size, pot_material,
	notes, is_active, last_watered, custom_moisture_target, custom_moisture_min,
	auto_watering_enabled, created_at, updated_at`

// Create inserts a plant. The species must exist in the catalog.
func (r *SQLiteRepository) Create(ctx context.Context, p *UserPlant) error {
	now := time.Now().UTC().Truncate(time.Second)
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO user_plants (owner_id, species_id, nickname, location, pot_size, pot_material,
			notes, is_active, last_watered, custom_moisture_target, custom_moisture_min,
			auto_watering_enabled, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.UserID, p.SpeciesID, strings.TrimSpace(p.Nickname), p.Location, p.PotSize, p.PotMaterial,
		p.Notes, p.IsActive, database.NullTimestamp(p.LastWatered),
		p.CustomMoistureTarget, p.CustomMoistureMin, p.AutoWateringEnabled,
		database.Timestamp(now), database.Timestamp(now),
	)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return ErrSpeciesNotFound
		}
		return fmt.Errorf("inserting plant: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading plant id: %w", err)
	}
	p.ID = id
	p.Nickname = strings.TrimSpace(p.Nickname)
	p.CreatedAt = now
	p.UpdatedAt = now
	return nil
}

// GetByID retrieves a plant. UserID carries the owner.
func (r *SQLiteRepository) GetByID(ctx context.Context, id int64) (*UserPlant, error) {
	p, err := scanPlant(r.db.QueryRowContext(ctx, "SELECT "+plantColumns+" FROM user_plants WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPlantNotFound
	}
	return p, err
}

func ownerClause(ownerID int64, filter UserPlantFilter) (string, []any) {
	where := " WHERE owner_id = ?"
	args := []any{ownerID}
	if filter.IsActive != nil {
		where += " AND is_active = ?"
		args = append(args, *filter.IsActive)
	}
	return where, args
}

// ListByOwner returns one page of a user's plants ordered by id.
func (r *SQLiteRepository) ListByOwner(ctx context.Context, ownerID int64, filter UserPlantFilter) ([]UserPlant, error) {
	where, args := ownerClause(ownerID, filter)
	args = append(args, filter.Limit, filter.Skip)

	rows, err := r.db.QueryContext(ctx,
		"SELECT "+plantColumns+" FROM user_plants"+where+" ORDER BY id LIMIT ? OFFSET ?", args...)
	if err != nil {
		return nil, fmt.Errorf("listing plants: %w", err)
	}
	defer rows.Close()

	plants := []UserPlant{}
	for rows.Next() {
		p, err := scanPlant(rows)
		if err != nil {
			return nil, err
		}
		plants = append(plants, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating plants: %w", err)
	}
	return plants, nil
}

// CountByOwner returns how many of a user's plants match filter.
func (r *SQLiteRepository) CountByOwner(ctx context.Context, ownerID int64, filter UserPlantFilter) (int, error) {
	where, args := ownerClause(ownerID, filter)
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM user_plants"+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting plants: %w", err)
	}
	return n, nil
}

// Update applies the non-nil fields of patch and returns the stored plant.
func (r *SQLiteRepository) Update(ctx context.Context, id int64, patch UserPlantPatch) (*UserPlant, error) {
	var (
		sets []string
		args []any
	)
	set := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if patch.Nickname != nil {
		set("nickname", strings.TrimSpace(*patch.Nickname))
	}
	if patch.Location != nil {
		set("location", *patch.Location)
	}
	if patch.PotSize != nil {
		set("pot_size", string(*patch.PotSize))
	}
	if patch.PotMaterial != nil {
		set("pot_material", string(*patch.PotMaterial))
	}
	if patch.Notes != nil {
		set("notes", *patch.Notes)
	}
	if patch.IsActive != nil {
		set("is_active", *patch.IsActive)
	}
	if patch.LastWatered != nil {
		set("last_watered", database.Timestamp(*patch.LastWatered))
	}
	if patch.CustomMoistureTarget != nil {
		set("custom_moisture_target", *patch.CustomMoistureTarget)
	}
	if patch.CustomMoistureMin != nil {
		set("custom_moisture_min", *patch.CustomMoistureMin)
	}
	if patch.AutoWateringEnabled != nil {
		set("auto_watering_enabled", *patch.AutoWateringEnabled)
	}
	if len(sets) == 0 {
		return r.GetByID(ctx, id)
	}
	set("updated_at", database.Timestamp(time.Now()))
	args = append(args, id)

	result, err := r.db.ExecContext(ctx,
		"UPDATE user_plants SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return nil, fmt.Errorf("updating plant %d: %w", id, err)
	}
	if n, _ := result.RowsAffected(); n == 0 { //nolint:errcheck // always succeeds on SQLite
		return nil, ErrPlantNotFound
	}
	return r.GetByID(ctx, id)
}

// Delete removes a plant. Sensors, readings, events and alerts cascade.
func (r *SQLiteRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM user_plants WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting plant %d: %w", id, err)
	}
	if n, _ := result.RowsAffected(); n == 0 { //nolint:errcheck // always succeeds on SQLite
		return ErrPlantNotFound
	}
	return nil
}

// MarkWatered sets last_watered.
func (r *SQLiteRepository) MarkWatered(ctx context.Context, id int64, at time.Time) (*UserPlant, error) {
	return r.Update(ctx, id, UserPlantPatch{LastWatered: &at})
}

// SpeciesCounts returns how many plants of each species a user owns.
func (r *SQLiteRepository) SpeciesCounts(ctx context.Context, ownerID int64) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT species_id, COUNT(*) FROM user_plants WHERE owner_id = ? GROUP BY species_id", ownerID)
	if err != nil {
		return nil, fmt.Errorf("counting plants by species: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			species string
			n       int
		)
		if err := rows.Scan(&species, &n); err != nil {
			return nil, fmt.Errorf("scanning species count: %w", err)
		}
		counts[species] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating species counts: %w", err)
	}
	return counts, nil
}

// CareProfile returns the moisture thresholds that apply to a plant.
func (r *SQLiteRepository) CareProfile(ctx context.Context, id int64) (*CareProfile, error) {
	var (
		cp                  CareProfile
		customMin, customTg sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT p.id, p.owner_id, p.nickname, p.custom_moisture_min, p.custom_moisture_target,
			s.soil_moisture_min_pct, s.soil_moisture_target_pct
		 FROM user_plants p JOIN plant_species s ON s.species_id = p.species_id
		 WHERE p.id = ?`, id,
	).Scan(&cp.PlantID, &cp.OwnerID, &cp.Nickname, &customMin, &customTg, &cp.MoistureMin, &cp.MoistureTarget)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlantNotFound
		}
		return nil, fmt.Errorf("loading care profile of plant %d: %w", id, err)
	}
	if customMin.Valid {
		cp.MoistureMin = int(customMin.Int64)
	}
	if customTg.Valid {
		cp.MoistureTarget = int(customTg.Int64)
	}
	return &cp, nil
}

func scanPlant(sc scanner) (*UserPlant, error) {
	var (
		p                    UserPlant
		location, notes      sql.NullString
		lastWatered          sql.NullString
		customTg, customMin  sql.NullInt64
		potSize, potMaterial string
		createdAt, updatedAt string
	)
	err := sc.Scan(&p.ID, &p.UserID, &p.SpeciesID, &p.Nickname, &location, &potSize, &potMaterial,
		&notes, &p.IsActive, &lastWatered, &customTg, &customMin,
		&p.AutoWateringEnabled, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning plant: %w", err)
	}
	p.PotSize = PotSize(potSize)
	p.PotMaterial = PotMaterial(potMaterial)
	p.Location = strPtr(location)
	p.Notes = strPtr(notes)
	p.LastWatered = database.ParseNullTimestamp(lastWatered)
	p.CustomMoistureTarget = intPtr(customTg)
	p.CustomMoistureMin = intPtr(customMin)
	if p.CreatedAt, err = database.ParseTimestamp(createdAt); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = database.ParseTimestamp(updatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}
