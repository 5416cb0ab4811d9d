package wsprofile

import (
	"errors"
	"fmt"
)

var (
	ErrRequired        = errors.New("wsprofile: required")
	ErrOutOfRange      = errors.New("wsprofile: out of range")
	ErrUnknownUnit     = errors.New("wsprofile: unknown unit")
	ErrUnknownFamily   = errors.New("wsprofile: unknown unit family")
	ErrLossyConversion = errors.New("wsprofile: lossy unit conversion")
	ErrFieldLocked     = errors.New("wsprofile: field is locked")
	ErrInvalidURL      = errors.New("wsprofile: invalid url")
	ErrInvalidValue    = errors.New("wsprofile: invalid value")
	ErrUnknownEvent    = errors.New("wsprofile: unknown event")
	ErrWizardClosed    = errors.New("wsprofile: wizard closed")
)

// StructuralValidationError names the step and field that failed so the
// caller can move focus back to it.
type StructuralValidationError struct {
	Step  Step
	Field string
	Err   error
}

func (e *StructuralValidationError) Error() string {
	return fmt.Sprintf("wsprofile: invalid %s.%s: %v", e.Step, e.Field, e.Err)
}

func (e *StructuralValidationError) Unwrap() error { return e.Err }

func invalid(step Step, field string, err error) *StructuralValidationError {
	return &StructuralValidationError{Step: step, Field: field, Err: err}
}

// CredentialIssuanceError is returned when the credential store fails to
// issue credentials for an AUTO profile. No profile is produced.
type CredentialIssuanceError struct {
	Err error
}

func (e *CredentialIssuanceError) Error() string {
	return fmt.Sprintf("wsprofile: issue credentials: %v", e.Err)
}

func (e *CredentialIssuanceError) Unwrap() error { return e.Err }

// PersistenceError wraps a profile store failure. It is never retried here.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("wsprofile: save profile: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
