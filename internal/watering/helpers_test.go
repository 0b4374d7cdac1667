package watering

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/nerrad567/forestos-core/internal/infrastructure/database"
	_ "github.com/nerrad567/forestos-core/migrations"
)

func testDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.Open(t.Context(), database.Config{
		Path:        filepath.Join(t.TempDir(), "watering.db"),
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
	return db
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ptr[T any](v T) *T { return &v }

// seedPlant inserts a user and one plant and returns their ids.
func seedPlant(t *testing.T, db *database.DB, email string) (userID, plantID int64) {
	t.Helper()
	ctx := t.Context()

	if _, err := db.ExecContext(ctx,
		"INSERT OR IGNORE INTO plant_species (species_id, scientific_name) VALUES ('pothos', 'Epipremnum aureum')"); err != nil {
		t.Fatalf("seeding species: %v", err)
	}
	res, err := db.ExecContext(ctx, "INSERT INTO users (email, password_hash) VALUES (?, 'x')", email)
	if err != nil {
		t.Fatalf("seeding user: %v", err)
	}
	userID, _ = res.LastInsertId() //nolint:errcheck // always succeeds on SQLite
	res, err = db.ExecContext(ctx,
		"INSERT INTO user_plants (owner_id, species_id, nickname) VALUES (?, 'pothos', 'Pothos')", userID)
	if err != nil {
		t.Fatalf("seeding plant: %v", err)
	}
	plantID, _ = res.LastInsertId() //nolint:errcheck // always succeeds on SQLite
	return userID, plantID
}
