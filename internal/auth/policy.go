package auth

import (
	"errors"

	"github.com/nerrad567/forestos-core/internal/infrastructure/database"
)

// RequireActive rejects disabled accounts.
func RequireActive(user *User) (*User, error) {
	if user == nil {
		return nil, ErrUnauthenticated
	}
	if !user.IsActive {
		return nil, ErrInactiveAccount
	}
	return user, nil
}

// RequireSuperuser rejects users without the superuser flag.
func RequireSuperuser(user *User) (*User, error) {
	if user == nil {
		return nil, ErrUnauthenticated
	}
	if !user.IsSuperuser {
		return nil, ErrInsufficientPrivilege
	}
	return user, nil
}

// RequireOwnership checks the result of a resource lookup against user.
//
// Precedence: a lookup error wrapping database.ErrNotFound becomes NotFound;
// any other lookup error is returned unchanged; a resource owned by someone
// else (or by nobody) becomes Forbidden. Superusers get no bypass here.
func RequireOwnership[T Owned](user *User, resource T, lookupErr error) (T, error) {
	var zero T
	if user == nil {
		return zero, ErrUnauthenticated
	}
	if lookupErr != nil {
		if errors.Is(lookupErr, database.ErrNotFound) {
			return zero, newError(ErrNotFound, lookupErr)
		}
		return zero, lookupErr
	}
	if resource.OwnerID() == 0 || resource.OwnerID() != user.ID {
		return zero, ErrForbidden
	}
	return resource, nil
}
