package domain

import "errors"

// Sentinel errors for the domain layer. These provide consistent, checkable
// errors for common business logic failures. Handlers translate them into
// user-facing flash messages; they are never fatal to the application.
var (
	// ErrUserAlreadyExists indicates a sign-up attempt failed because the
	// email address is already bound to an account.
	ErrUserAlreadyExists = errors.New("user with this email already exists")

	// ErrInvalidCredentials indicates a sign-in attempt failed due to an
	// incorrect email or password combination, or an invalid session token.
	ErrInvalidCredentials = errors.New("invalid credentials provided")

	// ErrUnauthenticated indicates an operation that requires a current
	// identity was attempted without one.
	ErrUnauthenticated = errors.New("no authenticated identity")

	// ErrPersistenceFailed indicates the storage provider rejected or failed
	// a write. The local optimistic state may diverge until the next reload.
	ErrPersistenceFailed = errors.New("persistence operation failed")

	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("requested resource not found")
)
