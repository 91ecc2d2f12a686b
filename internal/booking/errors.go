// Package booking implements the admission core: deciding who gets a
// confirmed table, who pools for a lottery draw, who queues on the
// waitlist, and how cancellations hand freed tables to the queue.
// Every mutating operation runs as one short database transaction;
// capacity is only ever changed through the slot repository's atomic
// ledger operations.
package booking

import "errors"

// ErrSlotFull is returned by FCFS admission when the ledger rejects
// the increment. Expected under contention; callers should offer the
// waitlist when the slot has one.
var ErrSlotFull = errors.New("slot is full")

// ErrDuplicateBooking is returned when the user already holds a
// non-cancelled booking for the slot.
var ErrDuplicateBooking = errors.New("duplicate booking")

// ErrNoSpotsAvailable is returned by a lottery draw or confirm when
// no capacity remains or the pending pool is empty.
var ErrNoSpotsAvailable = errors.New("no spots available")

// ErrInvalidState is returned when an operation targets a booking in
// a state it cannot leave, such as cancelling an already-cancelled
// booking. Upstream it signals a bookkeeping bug and is logged.
var ErrInvalidState = errors.New("invalid state")

// ErrNotFound is returned when the referenced slot, booking or
// waitlist entry does not exist.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the actor is neither the resource
// holder nor the slot owner for owner-only operations.
var ErrForbidden = errors.New("forbidden")

// ErrWaitlistDisabled is returned when joining the waitlist of a
// slot whose owner has not enabled one.
var ErrWaitlistDisabled = errors.New("waitlist disabled")

// ErrAlreadyQueued is returned when the user already has a waitlist
// entry for the slot.
var ErrAlreadyQueued = errors.New("already on waitlist")
