package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/nerrad567/forestos-core/internal/infrastructure/database"
)

// BearerPrefix is the Authorization scheme both protocols use.
const BearerPrefix = "Bearer "

// UserStore is the lookup the Gate needs for user tokens.
type UserStore interface {
	GetByID(ctx context.Context, id int64) (*User, error)
}

// DeviceStore looks up a sensor's credentials by its hardware device id.
// A missing device must be reported with an error wrapping database.ErrNotFound.
type DeviceStore interface {
	GetCredentials(ctx context.Context, deviceID string) (*Device, error)
}

// Gate turns presented credentials into a principal. It never writes.
type Gate struct {
	tokens  *TokenCodec
	users   UserStore
	devices DeviceStore
}

// NewGate creates a Gate.
func NewGate(tokens *TokenCodec, users UserStore, devices DeviceStore) *Gate {
	return &Gate{tokens: tokens, users: users, devices: devices}
}

// ResolveUser returns the user a bearer token identifies.
// Store failures are returned unchanged.
func (g *Gate) ResolveUser(ctx context.Context, rawToken string) (*User, error) {
	if rawToken == "" {
		return nil, ErrUnauthenticated
	}

	claims, err := g.tokens.Decode(rawToken)
	if err != nil {
		return nil, newError(ErrInvalidCredentials, err)
	}

	id, ok := claims.UserID()
	if !ok {
		return nil, ErrInvalidCredentials
	}

	user, err := g.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, newError(ErrInvalidCredentials, err)
		}
		return nil, err
	}
	return user, nil
}

// ResolveOptionalUser is ResolveUser for endpoints that work anonymously.
// Any authentication failure yields (nil, nil); only store failures are
// returned.
func (g *Gate) ResolveOptionalUser(ctx context.Context, rawToken string) (*User, error) {
	user, err := g.ResolveUser(ctx, rawToken)
	if err != nil {
		if KindOf(err) != 0 {
			return nil, nil //nolint:nilnil // anonymous caller
		}
		return nil, err
	}
	return user, nil
}

// ResolveDevice authenticates a sensor from its device id and the raw
// Authorization header value.
func (g *Gate) ResolveDevice(ctx context.Context, deviceID, authorization string) (*Device, error) {
	token, ok := strings.CutPrefix(authorization, BearerPrefix)
	if !ok {
		return nil, ErrMalformedHeader
	}
	return g.AuthenticateDevice(ctx, deviceID, token)
}

// AuthenticateDevice checks token against the stored device token.
// Unknown devices and mismatched tokens are indistinguishable to the caller.
func (g *Gate) AuthenticateDevice(ctx context.Context, deviceID, token string) (*Device, error) {
	if deviceID == "" || token == "" {
		return nil, ErrInvalidDeviceCredentials
	}

	device, err := g.devices.GetCredentials(ctx, deviceID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrInvalidDeviceCredentials
		}
		return nil, err
	}

	if subtle.ConstantTimeCompare([]byte(device.AuthToken), []byte(token)) != 1 {
		return nil, ErrInvalidDeviceCredentials
	}
	return device, nil
}

// BearerToken extracts the token from an Authorization header value.
// It returns "" when the header is absent or uses another scheme.
func BearerToken(authorization string) string {
	scheme, token, ok := strings.Cut(authorization, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
