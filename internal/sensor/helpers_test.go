package sensor

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
		Path:        filepath.Join(t.TempDir(), "sensor.db"),
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

// fixture is a database with two users, each owning one plant.
type fixture struct {
	db                   *database.DB
	repo                 *SQLiteRepository
	alice, bob           int64
	alicePlant, bobPlant int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testDB(t)
	f := &fixture{db: db, repo: NewRepository(db)}
	ctx := t.Context()

	exec := func(query string, args ...any) int64 {
		t.Helper()
		res, err := db.ExecContext(ctx, query, args...)
		if err != nil {
			t.Fatalf("fixture %q: %v", query, err)
		}
		id, _ := res.LastInsertId() //nolint:errcheck // always succeeds on SQLite
		return id
	}
	exec("INSERT INTO plant_species (species_id, scientific_name) VALUES ('pothos', 'Epipremnum aureum')")
	f.alice = exec("INSERT INTO users (email, password_hash) VALUES ('alice@example.com', 'x')")
	f.bob = exec("INSERT INTO users (email, password_hash) VALUES ('bob@example.com', 'x')")
	f.alicePlant = exec("INSERT INTO user_plants (owner_id, species_id, nickname) VALUES (?, 'pothos', 'A')", f.alice)
	f.bobPlant = exec("INSERT INTO user_plants (owner_id, species_id, nickname) VALUES (?, 'pothos', 'B')", f.bob)
	return f
}

func (f *fixture) register(t *testing.T, deviceID string, plantID *int64) *Sensor {
	t.Helper()

	token, err := GenerateAuthToken()
	if err != nil {
		t.Fatalf("GenerateAuthToken() error = %v", err)
	}
	s := &Sensor{DeviceID: deviceID, AuthToken: token, UserPlantID: plantID, IsOnline: true, BatteryLevel: ptr(100.0)}
	if err := f.repo.Create(t.Context(), s); err != nil {
		t.Fatalf("Create(%s) error = %v", deviceID, err)
	}
	return s
}
