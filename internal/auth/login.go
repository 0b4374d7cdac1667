package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nerrad567/forestos-core/internal/infrastructure/database"
)

// dummyDigest is verified against when the email is unknown so that both
// paths cost one Argon2id evaluation.
var dummyDigest = func() string {
	d, err := HashPassword("forestos-dummy-password")
	if err != nil {
		panic(err)
	}
	return d
}()

// Authenticator checks email/password logins.
type Authenticator struct {
	users  UserRepository
	logger *slog.Logger
}

// NewAuthenticator creates an Authenticator.
func NewAuthenticator(users UserRepository, logger *slog.Logger) *Authenticator {
	return &Authenticator{users: users, logger: logger}
}

// Login returns the user whose email and password match.
// Wrong email and wrong password both yield ErrInvalidCredentials;
// a disabled account yields ErrInactiveAccount only after the password
// has been verified. Legacy digests are upgraded in place.
func (a *Authenticator) Login(ctx context.Context, email, password string) (*User, error) {
	user, err := a.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			VerifyPassword(password, dummyDigest)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !VerifyPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	if _, err := RequireActive(user); err != nil {
		return nil, err
	}

	if NeedsRehash(user.PasswordHash) {
		a.rehash(ctx, user, password)
	}
	return user, nil
}

func (a *Authenticator) rehash(ctx context.Context, user *User, password string) {
	digest, err := HashPassword(password)
	if err != nil {
		a.logger.Error("rehashing password", "user_id", user.ID, "error", err)
		return
	}
	if err := a.users.UpdatePassword(ctx, user.ID, digest); err != nil {
		a.logger.Error("storing rehashed password", "user_id", user.ID, "error", err)
		return
	}
	user.PasswordHash = digest
	a.logger.Info("password digest upgraded", "user_id", user.ID)
}
