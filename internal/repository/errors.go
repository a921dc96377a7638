// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios. For
// example, ErrForbidden indicates that the current user is not
// authorized to perform an operation on a record owned by someone
// else, while ErrPlateExists signals that a write clashes with an
// existing row.
package repository

import (
	"errors"

	"github.com/uniride/uniride-api/internal/apperr"
)

// ErrNotFound is returned when the addressed row does not exist (or is
// soft-deleted).  Handlers translate it into HTTP 404.  It is the same
// value the lifecycle layer checks for.
var ErrNotFound = apperr.ErrNotFound

// ErrForbidden is returned when the caller attempts an operation
// on a record they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = apperr.ErrForbidden

// ErrEmailExists is returned by UserRepo.Create for a taken address.
var ErrEmailExists = errors.New("email already exists")

// ErrPlateExists is returned by VehicleRepo.Create for a taken plate.
var ErrPlateExists = errors.New("plate already registered")
