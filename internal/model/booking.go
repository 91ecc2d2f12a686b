package model

import "time"

// BookingStatus enumerates the lifecycle states of a booking.
type BookingStatus string

const (
    StatusPendingLottery BookingStatus = "PENDING_LOTTERY" // waiting for a draw, not counted in the ledger
    StatusConfirmed      BookingStatus = "CONFIRMED"       // holds one table in the ledger
    StatusCancelled      BookingStatus = "CANCELLED"       // released or rejected
    StatusCompleted      BookingStatus = "COMPLETED"       // slot took place, booking honoured
)

// Counted reports whether a booking in this status occupies a table
// in the capacity ledger.  Only confirmed (and later completed)
// bookings are counted; pending lottery entries never are.
func (s BookingStatus) Counted() bool {
    return s == StatusConfirmed || s == StatusCompleted
}

// Booking records a customer's request for a table in a slot.  FCFS
// bookings are created CONFIRMED with the ledger incremented in the
// same transaction; lottery bookings are created PENDING_LOTTERY and
// only consume capacity when the owner confirms them.  At most one
// non-cancelled booking may exist per (slot, user) pair.
//
// Fields:
//  ID         – primary key identifier.
//  SlotID     – slot being booked.
//  UserID     – user who made the booking.
//  GuestName  – display name captured at booking time.
//  GuestEmail – contact email captured at booking time.
//  PartySize  – number of guests; counts as one table regardless.
//  Status     – current lifecycle state.
//  CreatedAt  – creation timestamp.
//  UpdatedAt  – last update timestamp.
type Booking struct {
    ID         uint64        // bookings.id
    SlotID     uint64        // bookings.slot_id
    UserID     uint64        // bookings.user_id
    GuestName  string        // bookings.guest_name
    GuestEmail string        // bookings.guest_email
    PartySize  uint32        // bookings.party_size
    Status     BookingStatus // bookings.status
    CreatedAt  time.Time     // bookings.created_at
    UpdatedAt  time.Time     // bookings.updated_at
}
