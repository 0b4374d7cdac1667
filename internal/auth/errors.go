package auth

import (
	"errors"
	"fmt"

	"github.com/nerrad567/forestos-core/internal/infrastructure/database"
)

// Kind classifies an authentication or authorisation failure.
type Kind int

const (
	// KindUnauthenticated means no credentials were presented.
	KindUnauthenticated Kind = iota + 1
	// KindInvalidCredentials covers bad, expired or unknown-subject tokens and wrong passwords.
	KindInvalidCredentials
	// KindMalformedHeader means a device Authorization header lacked the Bearer scheme.
	KindMalformedHeader
	// KindInvalidDeviceCredentials means the device id or device token did not match.
	KindInvalidDeviceCredentials
	// KindInactiveAccount means the user exists but is disabled.
	KindInactiveAccount
	// KindInsufficientPrivilege means a superuser was required.
	KindInsufficientPrivilege
	// KindNotFound means the resource the request targets does not exist.
	KindNotFound
	// KindForbidden means the resource exists but belongs to someone else.
	KindForbidden
)

var kindNames = map[Kind]string{
	KindUnauthenticated:          "unauthenticated",
	KindInvalidCredentials:       "invalid_credentials",
	KindMalformedHeader:          "malformed_header",
	KindInvalidDeviceCredentials: "invalid_device_credentials",
	KindInactiveAccount:          "inactive_account",
	KindInsufficientPrivilege:    "insufficient_privilege",
	KindNotFound:                 "not_found",
	KindForbidden:                "forbidden",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is the tagged result of a failed authentication or policy check.
// Two *Error values match under errors.Is when their kinds are equal.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind so callers can compare against the package sentinels.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is. Their messages are the defaults sent to clients.
var (
	ErrUnauthenticated          = &Error{Kind: KindUnauthenticated, Message: "Not authenticated"}
	ErrInvalidCredentials       = &Error{Kind: KindInvalidCredentials, Message: "Could not validate credentials"}
	ErrMalformedHeader          = &Error{Kind: KindMalformedHeader, Message: "Invalid authorization format. Expected: Bearer <token>"}
	ErrInvalidDeviceCredentials = &Error{Kind: KindInvalidDeviceCredentials, Message: "Invalid device credentials"}
	ErrInactiveAccount          = &Error{Kind: KindInactiveAccount, Message: "Inactive user account"}
	ErrInsufficientPrivilege    = &Error{Kind: KindInsufficientPrivilege, Message: "The user doesn't have enough privileges"}
	ErrNotFound                 = &Error{Kind: KindNotFound, Message: "Resource not found"}
	ErrForbidden                = &Error{Kind: KindForbidden, Message: "Not enough permissions"}
)

// newError returns a fresh *Error of the sentinel's kind wrapping cause.
func newError(sentinel *Error, cause error) *Error {
	return &Error{Kind: sentinel.Kind, Message: sentinel.Message, Err: cause}
}

// KindOf returns the Kind carried by err, or 0 when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// Token codec errors.
var (
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenMalformed = errors.New("token malformed")
)

// Credential store errors.
var (
	ErrUserNotFound = fmt.Errorf("user: %w", database.ErrNotFound)
	ErrEmailExists  = errors.New("email already registered")
)
