// internal/errs/errs.go

// Package errs contains sentinel errors shared by the repository, service and
// transport layers. Callers wrap them with fmt.Errorf("%w: ...") and the HTTP
// layer maps them to status codes with errors.Is.
package errs

import "errors"

var (
	// ErrValidation indicates missing or malformed input.
	ErrValidation = errors.New("validation failed")

	// ErrConflict indicates a uniqueness violation or an illegal state transition.
	ErrConflict = errors.New("conflict")

	// ErrUnauthenticated indicates an unknown user, a bad credential or a dead session.
	ErrUnauthenticated = errors.New("invalid credentials")

	// ErrForbidden indicates the caller may not act on the resource.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound indicates the referenced entity does not exist.
	ErrNotFound = errors.New("not found")
)
