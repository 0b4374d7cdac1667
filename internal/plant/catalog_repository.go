package plant

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nerrad567/forestos-core/internal/infrastructure/database"
)

// CatalogRepository persists catalog species.
type CatalogRepository interface {
	Create(ctx context.Context, s *Species) error
	GetBySpeciesID(ctx context.Context, speciesID string) (*Species, error)
	List(ctx context.Context, filter SpeciesFilter) ([]Species, error)
	Count(ctx context.Context, filter SpeciesFilter) (int, error)
	Search(ctx context.Context, q string, limit int) ([]Species, error)
	ListByCareLevel(ctx context.Context, level CareLevel, limit int) ([]Species, error)
	Update(ctx context.Context, speciesID string, patch SpeciesPatch) (*Species, error)
}

// SQLiteCatalogRepository implements CatalogRepository using SQLite.
type SQLiteCatalogRepository struct {
	db *sql.DB
}

// NewCatalogRepository creates a SQLite-backed catalog repository.
func NewCatalogRepository(db *sql.DB) *SQLiteCatalogRepository {
	return &SQLiteCatalogRepository{db: db}
}

const speciesColumns = `id, species_id, common_names, scientific_name, family,
	water_frequency_days_min, water_frequency_days_max,
	soil_moisture_target_pct, soil_moisture_min_pct, drainage_required,
	light_level, min_lux, optimal_lux_min, optimal_lux_max,
	temp_celsius_min, temp_celsius_optimal_min, temp_celsius_optimal_max, temp_celsius_max,
	humidity_pct_min, humidity_pct_optimal_min, humidity_pct_optimal_max,
	growth_rate, toxicity_pets, toxicity_humans, health_indicators,
	description, image_url, created_at, updated_at`

// Create inserts a species and fills in ID and timestamps.
func (r *SQLiteCatalogRepository) Create(ctx context.Context, s *Species) error {
	names := s.CommonNames
	if names == nil {
		names = []string{}
	}
	namesJSON, err := json.Marshal(names)
	if err != nil {
		return fmt.Errorf("encoding common names: %w", err)
	}
	var indicators sql.NullString
	if s.HealthIndicators != nil {
		b, err := json.Marshal(s.HealthIndicators)
		if err != nil {
			return fmt.Errorf("encoding health indicators: %w", err)
		}
		indicators = sql.NullString{String: string(b), Valid: true}
	}

	now := time.Now().UTC().Truncate(time.Second)
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO plant_species (species_id, common_names, scientific_name, family,
			water_frequency_days_min, water_frequency_days_max,
			soil_moisture_target_pct, soil_moisture_min_pct, drainage_required,
			light_level, min_lux, optimal_lux_min, optimal_lux_max,
			temp_celsius_min, temp_celsius_optimal_min, temp_celsius_optimal_max, temp_celsius_max,
			humidity_pct_min, humidity_pct_optimal_min, humidity_pct_optimal_max,
			growth_rate, toxicity_pets, toxicity_humans, health_indicators,
			description, image_url, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.SpeciesID, string(namesJSON), s.ScientificName, s.Family,
		s.WaterFrequencyDaysMin, s.WaterFrequencyDaysMax,
		s.SoilMoistureTargetPct, s.SoilMoistureMinPct, s.DrainageRequired,
		s.LightLevel, s.MinLux, s.OptimalLuxMin, s.OptimalLuxMax,
		s.TempCelsiusMin, s.TempCelsiusOptimalMin, s.TempCelsiusOptimalMax, s.TempCelsiusMax,
		s.HumidityPctMin, s.HumidityPctOptimalMin, s.HumidityPctOptimalMax,
		s.GrowthRate, s.ToxicityPets, s.ToxicityHumans, indicators,
		s.Description, s.ImageURL, database.Timestamp(now), database.Timestamp(now),
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return ErrSpeciesExists
		}
		return fmt.Errorf("inserting species %s: %w", s.SpeciesID, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading species id: %w", err)
	}
	s.ID = id
	s.CommonNames = names
	s.CreatedAt = now
	s.UpdatedAt = now
	return nil
}

// GetBySpeciesID retrieves a species by its catalog id.
func (r *SQLiteCatalogRepository) GetBySpeciesID(ctx context.Context, speciesID string) (*Species, error) {
	s, err := scanSpecies(r.db.QueryRowContext(ctx,
		"SELECT "+speciesColumns+" FROM plant_species WHERE species_id = ?", speciesID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSpeciesNotFound
	}
	return s, err
}

func filterClause(filter SpeciesFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if filter.LightLevel != "" {
		conds = append(conds, "light_level = ?")
		args = append(args, filter.LightLevel)
	}
	if filter.GrowthRate != "" {
		conds = append(conds, "growth_rate = ?")
		args = append(args, filter.GrowthRate)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// List returns one page of the catalog ordered by id.
func (r *SQLiteCatalogRepository) List(ctx context.Context, filter SpeciesFilter) ([]Species, error) {
	where, args := filterClause(filter)
	args = append(args, filter.Limit, filter.Skip)
	return r.query(ctx, "SELECT "+speciesColumns+" FROM plant_species"+where+" ORDER BY id LIMIT ? OFFSET ?", args...)
}

// Count returns how many species match filter, ignoring Skip and Limit.
func (r *SQLiteCatalogRepository) Count(ctx context.Context, filter SpeciesFilter) (int, error) {
	where, args := filterClause(filter)
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM plant_species"+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting species: %w", err)
	}
	return n, nil
}

// Search matches q case-insensitively against the scientific name and
// every common name.
func (r *SQLiteCatalogRepository) Search(ctx context.Context, q string, limit int) ([]Species, error) {
	pattern := "%" + escapeLike(strings.ToLower(q)) + "%"
	return r.query(ctx,
		"SELECT "+speciesColumns+` FROM plant_species
		 WHERE lower(scientific_name) LIKE ? ESCAPE '\'
		    OR EXISTS (SELECT 1 FROM json_each(plant_species.common_names) WHERE lower(json_each.value) LIKE ? ESCAPE '\')
		 ORDER BY id LIMIT ?`,
		pattern, pattern, limit)
}

// ListByCareLevel returns species whose light and watering needs fit level.
func (r *SQLiteCatalogRepository) ListByCareLevel(ctx context.Context, level CareLevel, limit int) ([]Species, error) {
	var where string
	switch level {
	case CareEasy:
		where = "light_level = 'low' AND water_frequency_days_max >= 10"
	case CareModerate:
		where = "light_level IN ('medium', 'bright_indirect') AND water_frequency_days_max BETWEEN 5 AND 10"
	case CareDifficult:
		where = "light_level = 'bright_direct' OR water_frequency_days_max < 5"
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidCareLevel, level)
	}
	return r.query(ctx, "SELECT "+speciesColumns+" FROM plant_species WHERE "+where+" ORDER BY id LIMIT ?", limit)
}

// Update applies patch to a species and returns the stored row.
func (r *SQLiteCatalogRepository) Update(ctx context.Context, speciesID string, patch SpeciesPatch) (*Species, error) {
	var (
		sets []string
		args []any
	)
	if patch.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *patch.Description)
	}
	if patch.ImageURL != nil {
		sets = append(sets, "image_url = ?")
		args = append(args, *patch.ImageURL)
	}
	if len(sets) == 0 {
		return r.GetBySpeciesID(ctx, speciesID)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, database.Timestamp(time.Now()), speciesID)

	result, err := r.db.ExecContext(ctx,
		"UPDATE plant_species SET "+strings.Join(sets, ", ")+" WHERE species_id = ?", args...)
	if err != nil {
		return nil, fmt.Errorf("updating species %s: %w", speciesID, err)
	}
	if n, _ := result.RowsAffected(); n == 0 { //nolint:errcheck // always succeeds on SQLite
		return nil, ErrSpeciesNotFound
	}
	return r.GetBySpeciesID(ctx, speciesID)
}

func (r *SQLiteCatalogRepository) query(ctx context.Context, query string, args ...any) ([]Species, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying species: %w", err)
	}
	defer rows.Close()

	out := []Species{}
	for rows.Next() {
		s, err := scanSpecies(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating species: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSpecies(sc scanner) (*Species, error) {
	var (
		s                                    Species
		names                                string
		family, light, growth, pets, humans  sql.NullString
		indicators, description, image       sql.NullString
		waterMin, waterMax, minLux, luxMin   sql.NullInt64
		luxMax, tMin, tOptMin, tOptMax, tMax sql.NullInt64
		humMin, humOptMin, humOptMax         sql.NullInt64
		createdAt, updatedAt                 string
	)
	err := sc.Scan(&s.ID, &s.SpeciesID, &names, &s.ScientificName, &family,
		&waterMin, &waterMax,
		&s.SoilMoistureTargetPct, &s.SoilMoistureMinPct, &s.DrainageRequired,
		&light, &minLux, &luxMin, &luxMax,
		&tMin, &tOptMin, &tOptMax, &tMax,
		&humMin, &humOptMin, &humOptMax,
		&growth, &pets, &humans, &indicators,
		&description, &image, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning species: %w", err)
	}

	if err := json.Unmarshal([]byte(names), &s.CommonNames); err != nil {
		return nil, fmt.Errorf("decoding common names of %s: %w", s.SpeciesID, err)
	}
	if s.CommonNames == nil {
		s.CommonNames = []string{}
	}
	if indicators.Valid && indicators.String != "" {
		if err := json.Unmarshal([]byte(indicators.String), &s.HealthIndicators); err != nil {
			return nil, fmt.Errorf("decoding health indicators of %s: %w", s.SpeciesID, err)
		}
	}

	s.Family = strPtr(family)
	s.ToxicityPets = strPtr(pets)
	s.ToxicityHumans = strPtr(humans)
	s.Description = strPtr(description)
	s.ImageURL = strPtr(image)
	if light.Valid {
		l := LightLevel(light.String)
		s.LightLevel = &l
	}
	if growth.Valid {
		g := GrowthRate(growth.String)
		s.GrowthRate = &g
	}
	s.WaterFrequencyDaysMin = intPtr(waterMin)
	s.WaterFrequencyDaysMax = intPtr(waterMax)
	s.MinLux = intPtr(minLux)
	s.OptimalLuxMin = intPtr(luxMin)
	s.OptimalLuxMax = intPtr(luxMax)
	s.TempCelsiusMin = intPtr(tMin)
	s.TempCelsiusOptimalMin = intPtr(tOptMin)
	s.TempCelsiusOptimalMax = intPtr(tOptMax)
	s.TempCelsiusMax = intPtr(tMax)
	s.HumidityPctMin = intPtr(humMin)
	s.HumidityPctOptimalMin = intPtr(humOptMin)
	s.HumidityPctOptimalMax = intPtr(humOptMax)

	if s.CreatedAt, err = database.ParseTimestamp(createdAt); err != nil {
		return nil, err
	}
	if s.UpdatedAt, err = database.ParseTimestamp(updatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func strPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

func intPtr(ni sql.NullInt64) *int {
	if !ni.Valid {
		return nil
	}
	v := int(ni.Int64)
	return &v
}

// escapeLike escapes LIKE wildcards so user input matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
