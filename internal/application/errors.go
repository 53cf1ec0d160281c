package application

import "errors"

var (
	// ErrUnauthorized is returned when the acting principal lacks
	// permission for an operation. No partial data accompanies it.
	ErrUnauthorized = errors.New("application: access denied")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrNoFieldsToUpdate is returned when an update patch names no
	// recognized fields.
	ErrNoFieldsToUpdate = errors.New("application: no fields to update")
	// ErrInvalidCredentials is returned for failed login attempts.
	ErrInvalidCredentials = errors.New("application: invalid credentials")
	// ErrSessionExpired is returned when a login token has lapsed.
	ErrSessionExpired = errors.New("application: session expired")
	// ErrSessionRevoked is returned when a login token was revoked.
	ErrSessionRevoked = errors.New("application: session revoked")
)

// ValidationError captures field level validation issues that callers can
// surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}
