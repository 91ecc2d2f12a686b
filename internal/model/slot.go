package model

import "time"

// BookingMode determines how seats in a slot are handed out.  FCFS
// slots confirm bookings instantly while capacity remains; LOTTERY
// slots pool requests as pending entries until the owner draws
// winners.
type BookingMode string

const (
    ModeFCFS    BookingMode = "FCFS"    // first-come-first-served
    ModeLottery BookingMode = "LOTTERY" // pooled entries, owner-driven draw
)

// Valid reports whether the mode is one of the known booking modes.
func (m BookingMode) Valid() bool {
    return m == ModeFCFS || m == ModeLottery
}

// Slot represents a bookable time window offered by an owner.  It
// carries the authoritative capacity counters: TotalTables is the
// number of tables available and BookedTables the number currently
// confirmed.  BookedTables must only ever change through the atomic
// ledger operations in the slot repository; it is never written from
// a value read earlier by the application.
//
// Fields:
//  ID              – primary key identifier.
//  OwnerID         – user who created and manages the slot.
//  Name            – display name shown to customers.
//  Description     – optional free-form description.
//  Date            – calendar date of the slot.
//  StartsAt        – when the slot begins.
//  EndsAt          – when the slot ends (nullable, open-ended slots).
//  TotalTables     – capacity, always >= 1.
//  BookedTables    – confirmed count, 0 <= BookedTables <= TotalTables.
//  BookingMode     – FCFS or LOTTERY admission.
//  WaitlistEnabled – whether customers may queue when the slot is full.
//  CreatedAt       – creation timestamp.
//  UpdatedAt       – last update timestamp.
type Slot struct {
    ID              uint64      // slots.id
    OwnerID         uint64      // slots.owner_id
    Name            string      // slots.name
    Description     string      // slots.description
    Date            time.Time   // slots.date
    StartsAt        time.Time   // slots.starts_at
    EndsAt          *time.Time  // slots.ends_at (nullable)
    TotalTables     uint32      // slots.total_tables
    BookedTables    uint32      // slots.booked_tables
    BookingMode     BookingMode // slots.booking_mode
    WaitlistEnabled bool        // slots.waitlist_enabled
    CreatedAt       time.Time   // slots.created_at
    UpdatedAt       time.Time   // slots.updated_at
}

// Remaining returns the number of unconfirmed tables.  The value is a
// point-in-time read and is only suitable for display or optimistic
// pre-checks; the ledger enforces the real bound at write time.
func (s *Slot) Remaining() uint32 {
    if s.BookedTables >= s.TotalTables {
        return 0
    }
    return s.TotalTables - s.BookedTables
}
