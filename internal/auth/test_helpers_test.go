package auth

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/forestos-core/internal/infrastructure/database"
	_ "github.com/nerrad567/forestos-core/migrations"
)

const testSecret = "test-secret-that-is-at-least-32-characters"

// testDB opens a temporary SQLite database with every migration applied.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(t.Context(), database.Config{
		Path:        filepath.Join(t.TempDir(), "auth.db"),
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

// seedTestUser inserts an active user with password "test-password".
func seedTestUser(t *testing.T, repo UserRepository, email string) *User {
	t.Helper()

	hash, err := HashPassword("test-password")
	if err != nil {
		t.Fatalf("hashing password: %v", err)
	}
	user := &User{Email: email, PasswordHash: hash, IsActive: true}
	if err := repo.Create(t.Context(), user); err != nil {
		t.Fatalf("creating test user %s: %v", email, err)
	}
	return user
}

func testCodec(t *testing.T, ttl time.Duration) *TokenCodec {
	t.Helper()

	codec, err := NewTokenCodec(TokenConfig{Secret: testSecret, Algorithm: "HS256", TTL: ttl})
	if err != nil {
		t.Fatalf("NewTokenCodec() error = %v", err)
	}
	return codec
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memUsers is an in-memory UserStore.
type memUsers struct {
	users map[int64]*User
	err   error
}

func (m *memUsers) GetByID(_ context.Context, id int64) (*User, error) {
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return u, nil
}

// memDevices is an in-memory DeviceStore.
type memDevices struct {
	devices map[string]*Device
	err     error
	calls   int
}

func (m *memDevices) GetCredentials(_ context.Context, deviceID string) (*Device, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	d, ok := m.devices[deviceID]
	if !ok {
		return nil, fmt.Errorf("sensor %q: %w", deviceID, database.ErrNotFound)
	}
	return d, nil
}
