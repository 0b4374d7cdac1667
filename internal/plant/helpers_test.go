package plant

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/nerrad567/forestos-core/internal/infrastructure/database"
	_ "github.com/nerrad567/forestos-core/migrations"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(t.Context(), database.Config{
		Path:        filepath.Join(t.TempDir(), "plant.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	if err := db.Migrate(t.Context()); err != nil {
		t.Fatalf("applying migrations: %v", err)
	}
	return db.DB
}

// seedUser inserts a bare user row and returns its id.
func seedUser(t *testing.T, db *sql.DB, email string) int64 {
	t.Helper()

	res, err := db.ExecContext(t.Context(),
		"INSERT INTO users (email, password_hash) VALUES (?, 'x')", email)
	if err != nil {
		t.Fatalf("inserting user: %v", err)
	}
	id, _ := res.LastInsertId() //nolint:errcheck // always succeeds on SQLite
	return id
}

func ptr[T any](v T) *T { return &v }

// seedSpecies inserts a species with the given light level and max watering interval.
func seedSpecies(t *testing.T, repo *SQLiteCatalogRepository, id, scientific string, light LightLevel, waterMax int, names ...string) *Species {
	t.Helper()

	s := NewSpecies()
	s.SpeciesID = id
	s.ScientificName = scientific
	s.LightLevel = &light
	s.WaterFrequencyDaysMax = &waterMax
	if len(names) > 0 {
		s.CommonNames = names
	}
	if err := repo.Create(t.Context(), &s); err != nil {
		t.Fatalf("creating species %s: %v", id, err)
	}
	return &s
}
