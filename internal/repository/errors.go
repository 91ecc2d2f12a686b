// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers and the booking core to distinguish between different
// failure scenarios. For example, ErrForbidden indicates that the
// current user is not authorized to perform an operation on a
// resource owned by someone else, while ErrCapacityExceeded signals
// that a ledger increment would push booked_tables past total_tables.
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a delete or update cannot be
// performed because of conflicting state, such as attempting to
// lower a slot's capacity below its confirmed booking count.
// Handlers should translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrSlotNotFound is returned when a referenced slot row does not
// exist. It is preferred over sql.ErrNoRows for slot lookups so
// callers do not need to know which query produced the miss.
var ErrSlotNotFound = errors.New("slot not found")

// ErrCapacityExceeded is returned by the ledger increment when the
// requested amount does not fit into the slot's remaining capacity.
// This is an expected outcome under contention, not a defect.
var ErrCapacityExceeded = errors.New("capacity exceeded")

// ErrInvalidState is returned when a ledger decrement would drive
// booked_tables negative. It always indicates a bookkeeping bug in
// the caller and must be logged, never swallowed.
var ErrInvalidState = errors.New("invalid ledger state")
