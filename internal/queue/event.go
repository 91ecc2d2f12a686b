// Package queue defines message payloads exchanged over the message broker
// and the publisher/consumer pair that moves them.
package queue

// Booking event types. They tell downstream notifiers which template
// to render: a direct confirmation, a waitlist join receipt, or a
// promotion notice after a cancellation freed a table.
const (
    TypeBooking   = "booking"
    TypeWaitlist  = "waitlist"
    TypePromotion = "promotion"
)

// BookingEvent is published after a booking transaction commits. It
// contains enough information for downstream consumers to notify the
// customer or feed analytics without querying the primary database.
type BookingEvent struct {
    EventID       string `json:"event_id"`
    SlotID        uint64 `json:"slot_id"`
    SlotName      string `json:"slot_name"`
    CustomerName  string `json:"customer_name"`
    CustomerEmail string `json:"customer_email"`
    PartySize     uint32 `json:"party_size"`
    BookingType   string `json:"booking_type"` // booking | waitlist | promotion
    OccurredAt    string `json:"occurred_at"`
}
