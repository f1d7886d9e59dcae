package collab

import "errors"

// errors.go provides the error taxonomy for the collab package
//
// error kind checking:
//   an error can be checked against a kind using errors.Is(err, ErrKind)
// every pipeline failure wraps exactly one of these sentinels

var (
	// ErrInvalidInput is returned for malformed or missing fields.
	// The client fixes the request and retries.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound is returned when a referenced user/app/comment/session is absent.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when authorization denies the action.
	ErrForbidden = errors.New("forbidden")
	// ErrConflict is returned for duplicate usernames and duplicate collaborators.
	ErrConflict = errors.New("conflict")
	// ErrUnauthorized hides whether the username or the password failed.
	// A credential mismatch on login is not a NotFound.
	ErrUnauthorized = errors.New("unauthorized")
)
