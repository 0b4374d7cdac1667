package auth

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SupportedAlgorithms lists the HMAC signing methods TokenCodec accepts.
var SupportedAlgorithms = []string{"HS256", "HS384", "HS512"}

// TokenConfig is derived once from the loaded configuration.
type TokenConfig struct {
	Secret    string
	Algorithm string
	TTL       time.Duration
}

// Claims are the registered JWT claims ForestOS issues.
type Claims struct {
	jwt.RegisteredClaims
}

// UserID parses the subject as a user id.
func (c *Claims) UserID() (int64, bool) {
	if c.Subject == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// TokenCodec signs and verifies access tokens with a single shared secret.
// It holds no mutable state and is safe for concurrent use.
type TokenCodec struct {
	secret []byte
	method jwt.SigningMethod
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenCodec validates cfg and builds a codec.
func NewTokenCodec(cfg TokenConfig) (*TokenCodec, error) {
	if cfg.Secret == "" {
		return nil, errors.New("token secret is required")
	}
	if !slices.Contains(SupportedAlgorithms, cfg.Algorithm) {
		return nil, fmt.Errorf("unsupported token algorithm %q", cfg.Algorithm)
	}
	return &TokenCodec{
		secret: []byte(cfg.Secret),
		method: jwt.GetSigningMethod(cfg.Algorithm),
		ttl:    cfg.TTL,
		now:    time.Now,
	}, nil
}

// TTL is the configured access token lifetime.
func (c *TokenCodec) TTL() time.Duration { return c.ttl }

// Issue signs a token for subject that expires ttl from now.
// A ttl of zero or less produces a token that is already expired.
func (c *TokenCodec) Issue(subject string, ttl time.Duration) (string, error) {
	now := c.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(c.method, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// IssueAccessToken issues a token for a user with the configured TTL.
func (c *TokenCodec) IssueAccessToken(userID int64) (string, error) {
	return c.Issue(strconv.FormatInt(userID, 10), c.ttl)
}

// Decode verifies the signature and expiry of token.
// It returns ErrTokenExpired for a correctly signed token past its exp,
// and ErrTokenMalformed for every other failure.
func (c *TokenCodec) Decode(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(_ *jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrTokenMalformed, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenMalformed
	}
	return claims, nil
}
