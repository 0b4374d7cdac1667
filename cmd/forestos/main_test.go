package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/forestos-core/internal/auth"
	"github.com/nerrad567/forestos-core/internal/infrastructure/config"
	"github.com/nerrad567/forestos-core/internal/infrastructure/database"
	"github.com/nerrad567/forestos-core/internal/infrastructure/logging"
	"github.com/nerrad567/forestos-core/internal/plant"
)

const testJWTSecret = "test-secret-that-is-at-least-32-characters"

// writeConfig writes a config file with MQTT and InfluxDB disabled and
// points FORESTOS_CONFIG at it.
func writeConfig(t *testing.T, dbPath string, port int, extra string) {
	t.Helper()

	content := fmt.Sprintf(`
database:
  path: %q
  wal_mode: true
  busy_timeout: 5

mqtt:
  enabled: false

influxdb:
  enabled: false

logging:
  level: error
  format: text
  output: stdout

api:
  host: "127.0.0.1"
  port: %d
  timeouts:
    read: 30
    write: 60
    idle: 120

security:
  jwt:
    secret: %q
    algorithm: HS256
    access_token_ttl: 60
%s`, dbPath, port, testJWTSecret, extra)

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	t.Setenv("FORESTOS_CONFIG", configPath)
}

func freePort(t *testing.T) int {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("finding free port: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close() //nolint:errcheck // Released for the server under test
	return port
}

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("FORESTOS_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_MissingDatabasePath verifies run fails when database path is empty.
func TestRun_MissingDatabasePath(t *testing.T) {
	writeConfig(t, "", 8000, "")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with empty database path")
	}
}

// TestRun_MissingCatalogFile verifies a configured but absent seed file is fatal.
func TestRun_MissingCatalogFile(t *testing.T) {
	writeConfig(t, filepath.Join(t.TempDir(), "forestos.db"), freePort(t), `
catalog:
  seed_file: "/nonexistent/catalog.yaml"
`)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with a missing catalog file")
	}
}

// TestRun_StartupAndShutdown runs the service without MQTT or InfluxDB and
// expects a clean exit when the context ends.
func TestRun_StartupAndShutdown(t *testing.T) {
	port := freePort(t)
	writeConfig(t, filepath.Join(t.TempDir(), "forestos.db"), port, "")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := run(ctx); err != nil {
		t.Fatalf("run() error = %v", err)
	}
}

// TestGetConfigPath_Default verifies default config path.
func TestGetConfigPath_Default(t *testing.T) {
	t.Setenv("FORESTOS_CONFIG", "")

	if path := getConfigPath(); path != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", path, defaultConfigPath)
	}
}

// TestGetConfigPath_EnvOverride verifies environment variable override.
func TestGetConfigPath_EnvOverride(t *testing.T) {
	expected := "/custom/path/config.yaml"
	t.Setenv("FORESTOS_CONFIG", expected)

	if path := getConfigPath(); path != expected {
		t.Errorf("getConfigPath() = %q, want %q", path, expected)
	}
}

// TestSeedData_Idempotent seeds the shipped catalog and bootstrap superuser twice.
func TestSeedData_Idempotent(t *testing.T) {
	ctx := t.Context()
	db, err := database.Open(ctx, database.Config{
		Path:        filepath.Join(t.TempDir(), "seed.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close() //nolint:errcheck // Test cleanup
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	cfg := &config.Config{
		Catalog:  config.CatalogConfig{SeedFile: filepath.Join("..", "..", "configs", "catalog.yaml")},
		Security: config.SecurityConfig{Bootstrap: config.BootstrapConfig{Email: "admin@example.com"}},
	}
	users := auth.NewUserRepository(db.DB)
	catalog := plant.NewCatalogRepository(db.DB)
	log := logging.Discard()

	for i := range 2 {
		if err := seedData(ctx, cfg, users, catalog, log); err != nil {
			t.Fatalf("seedData() run %d error = %v", i+1, err)
		}
	}

	count, err := users.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 1 {
		t.Errorf("users = %d, want 1", count)
	}
	admin, err := users.GetByEmail(ctx, "admin@example.com")
	if err != nil {
		t.Fatalf("GetByEmail() error = %v", err)
	}
	if !admin.IsSuperuser {
		t.Error("bootstrap user is not a superuser")
	}

	total, err := catalog.Count(ctx, plant.SpeciesFilter{})
	if err != nil {
		t.Fatalf("catalog Count() error = %v", err)
	}
	if total == 0 {
		t.Error("catalog is empty after seeding")
	}
}
