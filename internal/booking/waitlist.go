package booking

import (
    "context"
    "database/sql"
    "errors"
    "time"

    "github.com/google/uuid"

    "github.com/iliyamo/table-slot-booking/internal/model"
    "github.com/iliyamo/table-slot-booking/internal/queue"
    "github.com/iliyamo/table-slot-booking/internal/repository"
)

// JoinWaitlist queues the user on the slot's waitlist. Joining is an
// explicit action taken after admission reported the slot full;
// there is no capacity check here because the waitlist itself is
// unbounded. The entry's position is assigned by the database as
// MAX(position)+1 so concurrent joins always get distinct,
// increasing positions.
func (s *Service) JoinWaitlist(ctx context.Context, slotID, userID uint64, contactName, contactEmail string, partySize uint32) (*model.WaitlistEntry, error) {
    if partySize == 0 {
        partySize = 1
    }
    var created *model.WaitlistEntry
    var slotName string
    err := s.tx.RunTx(ctx, func(tx *sql.Tx) error {
        slot, err := s.slots.GetTx(ctx, tx, slotID)
        if err != nil {
            if errors.Is(err, repository.ErrSlotNotFound) {
                return ErrNotFound
            }
            return err
        }
        if !slot.WaitlistEnabled {
            return ErrWaitlistDisabled
        }
        slotName = slot.Name

        // A user holding a non-cancelled booking never queues: the
        // entry would sit in line until a promotion minted them a
        // second live booking for the same slot.
        active, err := s.bookings.HasActiveTx(ctx, tx, slotID, userID)
        if err != nil {
            return err
        }
        if active {
            return ErrDuplicateBooking
        }

        queued, err := s.waitlist.HasEntryTx(ctx, tx, slotID, userID)
        if err != nil {
            return err
        }
        if queued {
            return ErrAlreadyQueued
        }

        e := &model.WaitlistEntry{
            SlotID:       slotID,
            UserID:       userID,
            ContactName:  contactName,
            ContactEmail: contactEmail,
            PartySize:    partySize,
        }
        if err := s.waitlist.CreateTx(ctx, tx, e); err != nil {
            return err
        }
        created = e
        return nil
    })
    if err != nil {
        return nil, err
    }
    s.publish(ctx, queue.BookingEvent{
        EventID:       uuid.NewString(),
        SlotID:        slotID,
        SlotName:      slotName,
        CustomerName:  contactName,
        CustomerEmail: contactEmail,
        PartySize:     partySize,
        BookingType:   queue.TypeWaitlist,
        OccurredAt:    time.Now().UTC().Format(time.RFC3339),
    })
    return created, nil
}

// LeaveWaitlist removes an entry voluntarily. Allowed for the entry
// holder and for the slot owner. Positions of later entries are not
// renumbered; position is an ordering key, not a dense rank.
func (s *Service) LeaveWaitlist(ctx context.Context, entryID, actorID uint64) error {
    return s.tx.RunTx(ctx, func(tx *sql.Tx) error {
        e, err := s.waitlist.GetByID(ctx, entryID)
        if err != nil {
            if errors.Is(err, sql.ErrNoRows) {
                return ErrNotFound
            }
            return err
        }
        if e.UserID != actorID {
            slot, err := s.slots.GetTx(ctx, tx, e.SlotID)
            if err != nil {
                if errors.Is(err, repository.ErrSlotNotFound) {
                    return ErrNotFound
                }
                return err
            }
            if slot.OwnerID != actorID {
                return ErrForbidden
            }
        }
        if err := s.waitlist.DeleteTx(ctx, tx, entryID); err != nil {
            if errors.Is(err, sql.ErrNoRows) {
                return ErrNotFound
            }
            return err
        }
        return nil
    })
}

// promoteNextTx moves the earliest waitlist entry into a confirmed
// booking: delete the entry, insert the booking, increment the
// ledger, all inside the caller's transaction. The vacated table is
// handed straight to the queue instead of being released for general
// competition, which is what keeps the waitlist FIFO-fair. Entries
// whose user already holds a non-cancelled booking are stale; they
// are dropped and the next entry is considered, so a promotion can
// never mint a second live booking for the same (slot, user).
// Returns nil when the waitlist runs out; that is a normal outcome,
// not an error.
//
// The caller must hold the slot row lock and must have freed one
// table in this same transaction, so the increment here cannot fail
// on capacity. If it does anyway, the error propagates and rolls the
// whole cancellation back.
func (s *Service) promoteNextTx(ctx context.Context, tx *sql.Tx, slotID uint64) (*model.Booking, error) {
    for {
        next, err := s.waitlist.FirstBySlotForUpdateTx(ctx, tx, slotID)
        if err != nil {
            if errors.Is(err, sql.ErrNoRows) {
                return nil, nil // empty waitlist, no promotion
            }
            return nil, err
        }
        if err := s.waitlist.DeleteTx(ctx, tx, next.ID); err != nil {
            return nil, err
        }
        active, err := s.bookings.HasActiveTx(ctx, tx, slotID, next.UserID)
        if err != nil {
            return nil, err
        }
        if active {
            // stale entry, the user booked directly after queueing
            continue
        }
        b := &model.Booking{
            SlotID:     slotID,
            UserID:     next.UserID,
            GuestName:  next.ContactName,
            GuestEmail: next.ContactEmail,
            PartySize:  next.PartySize,
            Status:     model.StatusConfirmed,
        }
        if err := s.bookings.CreateTx(ctx, tx, b); err != nil {
            return nil, err
        }
        if err := s.slots.IncrementBookedTx(ctx, tx, slotID, 1); err != nil {
            return nil, err
        }
        return b, nil
    }
}
