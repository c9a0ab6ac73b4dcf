package grid

import "errors"

// ErrInvalidCoordinate marks a textual coordinate outside the canonical
// grammar. Callers must treat it as a validation failure, never retried.
var ErrInvalidCoordinate = errors.New("invalid grid coordinate")

// ErrInvalidGeometry marks screen dimensions the grid cannot address.
var ErrInvalidGeometry = errors.New("invalid screen geometry")
