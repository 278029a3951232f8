// Package cmderr defines the rejection categories shared by the command
// parser and the command handlers. Callers wrap them with detail and test
// with errors.Is.
package cmderr

import "errors"

var (
	// ErrNotFound is returned for unknown vehicles, anchors or animation names.
	ErrNotFound = errors.New("not found")
	// ErrUnreachable is returned when no path connects the requested anchors.
	ErrUnreachable = errors.New("unreachable")
	// ErrCapacityExceeded is returned when the aircraft limit is reached.
	ErrCapacityExceeded = errors.New("capacity exceeded")
	// ErrSlotUnavailable is returned when every gate is occupied.
	ErrSlotUnavailable = errors.New("slot unavailable")
	// ErrConflict is returned when a vehicle id is already in use.
	ErrConflict = errors.New("conflict")
	// ErrInvalidArity is returned for a wrong number of arguments.
	ErrInvalidArity = errors.New("invalid arity")
	// ErrInvalidFormat is returned for malformed commands, ids or numbers.
	ErrInvalidFormat = errors.New("invalid format")
	// ErrInvalidAnchor is returned when a way is given where a point is required.
	ErrInvalidAnchor = errors.New("invalid anchor")
)

// Category returns a short label for the rejection class of err, or
// "internal" if err is not one of the known categories.
func Category(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrUnreachable):
		return "unreachable"
	case errors.Is(err, ErrCapacityExceeded):
		return "capacity_exceeded"
	case errors.Is(err, ErrSlotUnavailable):
		return "slot_unavailable"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrInvalidArity):
		return "invalid_arity"
	case errors.Is(err, ErrInvalidAnchor):
		return "invalid_anchor"
	case errors.Is(err, ErrInvalidFormat):
		return "invalid_format"
	default:
		return "internal"
	}
}
