package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
)

// seedPasswordBytes is the number of random bytes for the bootstrap password.
const seedPasswordBytes = 16

// SeedSuperuser creates the first superuser when the users table is empty
// and email is set. The generated password is logged once and must be
// changed. It returns the password, or "" when seeding was skipped.
func SeedSuperuser(ctx context.Context, users UserRepository, email string, logger *slog.Logger) (string, error) {
	if email == "" {
		return "", nil
	}

	count, err := users.Count(ctx)
	if err != nil {
		return "", fmt.Errorf("checking user count: %w", err)
	}
	if count > 0 {
		logger.Info("users exist, skipping superuser seed")
		return "", nil
	}

	passwordBytes := make([]byte, seedPasswordBytes)
	if _, err := rand.Read(passwordBytes); err != nil { //nolint:govet // shadow: err re-declared in nested scope
		return "", fmt.Errorf("generating seed password: %w", err)
	}
	password := hex.EncodeToString(passwordBytes)

	hash, err := HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("hashing seed password: %w", err)
	}

	name := "Administrator"
	admin := &User{
		Email:        email,
		FullName:     &name,
		PasswordHash: hash,
		IsActive:     true,
		IsSuperuser:  true,
	}
	if err := users.Create(ctx, admin); err != nil {
		return "", fmt.Errorf("creating seed superuser: %w", err)
	}

	logger.Warn("bootstrap superuser created",
		"email", admin.Email,
		"password", password,
		"action_required", "change this password immediately",
	)
	return password, nil
}
