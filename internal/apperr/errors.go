// Package apperr holds the error taxonomy shared by the matching and
// request packages.  Handlers translate these into HTTP statuses:
// ValidationError -> 400, ErrForbidden -> 403, ErrNotFound -> 404,
// ErrStateConflict -> 409, StoreUnavailable -> 503.
// PartialSideEffect never fails a request; it travels next to a valid
// result and is reported as a warning.
package apperr

import (
    "errors"
    "fmt"
)

// ValidationError reports malformed input detected before any store call.
type ValidationError struct {
    Field  string
    Reason string
}

func (e *ValidationError) Error() string {
    if e.Field == "" {
        return "validation failed: " + e.Reason
    }
    return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

// Invalid is shorthand for building a *ValidationError.
func Invalid(field, reason string) error {
    return &ValidationError{Field: field, Reason: reason}
}

// ErrNotFound is returned when the referenced record does not exist.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller is not the party allowed to act
// on the record, or acts in the wrong role.
var ErrForbidden = errors.New("forbidden")

// ErrStateConflict is returned when a trip request transition is not legal
// from its current state, or when a concurrent writer won the race.
var ErrStateConflict = errors.New("state conflict")

// StateConflict wraps ErrStateConflict with a human readable detail.
func StateConflict(format string, args ...any) error {
    return fmt.Errorf("%w: %s", ErrStateConflict, fmt.Sprintf(format, args...))
}

// StoreUnavailable wraps any failure coming from the backing store.  The
// core never retries; callers decide whether to offer a retry.
type StoreUnavailable struct {
    Op  string
    Err error
}

func (e *StoreUnavailable) Error() string {
    return fmt.Sprintf("store unavailable (%s): %v", e.Op, e.Err)
}

func (e *StoreUnavailable) Unwrap() error { return e.Err }

// Store wraps err as StoreUnavailable unless it is nil or already one.
func Store(op string, err error) error {
    if err == nil {
        return nil
    }
    var su *StoreUnavailable
    if errors.As(err, &su) {
        return err
    }
    return &StoreUnavailable{Op: op, Err: err}
}

// PartialSideEffect reports that the primary mutation was committed but a
// dependent side effect (notification persistence or push) failed.
type PartialSideEffect struct {
    Effect string
    Err    error
}

func (e *PartialSideEffect) Error() string {
    return fmt.Sprintf("%s failed after commit: %v", e.Effect, e.Err)
}

func (e *PartialSideEffect) Unwrap() error { return e.Err }

// IsValidation reports whether err is (or wraps) a *ValidationError.
func IsValidation(err error) bool {
    var ve *ValidationError
    return errors.As(err, &ve)
}

// IsStoreUnavailable reports whether err is (or wraps) a *StoreUnavailable.
func IsStoreUnavailable(err error) bool {
    var su *StoreUnavailable
    return errors.As(err, &su)
}

// IsPartial reports whether err is (or wraps) a *PartialSideEffect.
func IsPartial(err error) bool {
    var ps *PartialSideEffect
    return errors.As(err, &ps)
}
