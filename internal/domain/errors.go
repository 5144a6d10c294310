package domain

import "errors"

// Domain errors represent business-level errors that can occur in the
// system. These errors are used across layers to communicate specific
// failure conditions.
var (
	// ErrAuthRequired means a scope asked for access to a resource
	// that cannot be evaluated without an authenticated caller. It
	// aborts the whole token request.
	ErrAuthRequired = errors.New("authentication required")

	// ErrInvalidCredentials means Basic credentials were supplied but
	// did not match any account.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUserExists is returned when creating an account whose
	// username is already taken.
	ErrUserExists = errors.New("user already exists")

	// ErrUserNotFound is returned when an operation names an account
	// that does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrRepositoryExists is returned when creating a repository that
	// would violate the (owner, name) uniqueness rule.
	ErrRepositoryExists = errors.New("repository already exists")

	// ErrRepositoryNotFound is returned by mutations that name a
	// repository row which no longer exists. Lookups signal absence
	// with a nil result instead: a repository that does not exist yet
	// is a normal outcome, not an error.
	ErrRepositoryNotFound = errors.New("repository not found")
)
