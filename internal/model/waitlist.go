package model

import "time"

// WaitlistEntry is a queued request for a full slot.  Entries are
// ordered by Position, a per-slot counter that only ever grows:
// the next entry gets MAX(position)+1 and positions are never
// renumbered when an entry leaves.  Position is an ordering key,
// not a dense rank; compute display ranks by sorting.
//
// Fields:
//  ID           – primary key identifier.
//  SlotID       – slot being queued for.
//  UserID       – user who joined the waitlist.
//  ContactName  – name used when notifying about a promotion.
//  ContactEmail – email used when notifying about a promotion.
//  PartySize    – number of guests; counts as one table regardless.
//  Position     – strictly increasing FIFO key within the slot.
//  NotifiedAt   – when a promotion notice was sent (nullable).
//  CreatedAt    – creation timestamp.
type WaitlistEntry struct {
    ID           uint64     // waitlist_entries.id
    SlotID       uint64     // waitlist_entries.slot_id
    UserID       uint64     // waitlist_entries.user_id
    ContactName  string     // waitlist_entries.contact_name
    ContactEmail string     // waitlist_entries.contact_email
    PartySize    uint32     // waitlist_entries.party_size
    Position     uint32     // waitlist_entries.position
    NotifiedAt   *time.Time // waitlist_entries.notified_at (nullable)
    CreatedAt    time.Time  // waitlist_entries.created_at
}
