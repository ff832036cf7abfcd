package domain

import "errors"

// Sentinel errors forming the operation error taxonomy. Callers classify
// failures with errors.Is; the transport layer maps each class to an HTTP
// status. Anything not wrapping one of these is treated as internal.
var (
	// ErrInvalidArgument marks user-correctable input problems: malformed
	// ids, empty content, unsupported reaction kinds.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUnauthenticated marks a missing or unresolvable credential.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrForbidden marks an authenticated actor acting on a resource they
	// do not own.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound marks a reference to an absent post, comment, or user.
	ErrNotFound = errors.New("not found")
)

// DuplicateError reports a collision on a unique user field during signup.
// It classifies as ErrInvalidArgument and carries the offending field name
// so clients can highlight the right input.
type DuplicateError struct {
	Field string
}

func (e *DuplicateError) Error() string {
	return e.Field + " already taken"
}

func (e *DuplicateError) Unwrap() error {
	return ErrInvalidArgument
}
