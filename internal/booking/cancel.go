package booking

import (
    "context"
    "database/sql"
    "errors"
    "log"
    "time"

    "github.com/google/uuid"

    "github.com/iliyamo/table-slot-booking/internal/model"
    "github.com/iliyamo/table-slot-booking/internal/queue"
    "github.com/iliyamo/table-slot-booking/internal/repository"
)

// CancelBooking cancels a booking and, when the booking held a
// table, releases it and promotes the earliest waitlist entry in the
// same transaction. This is the most failure-sensitive path in the
// core: it is a state change and a resource release in one step, and
// it chains into a promotion that mutates further state. Either the
// whole unit commits or none of it does; an observer can never see a
// cancelled booking still counted in the ledger, or a freed table
// with no corresponding status change.
//
// Allowed for the booking holder and for the slot owner. Cancelling
// a booking that is already cancelled (or completed) fails with
// ErrInvalidState and never decrements twice.
func (s *Service) CancelBooking(ctx context.Context, bookingID, actorID uint64) (*model.Booking, error) {
    var cancelled *model.Booking
    var promoted *model.Booking
    var slotName string
    err := s.tx.RunTx(ctx, func(tx *sql.Tx) error {
        // Unlocked read to learn the slot, then slot row before
        // booking row, the order every writer takes these locks in.
        b, err := s.bookings.GetTx(ctx, tx, bookingID)
        if err != nil {
            if errors.Is(err, sql.ErrNoRows) {
                return ErrNotFound
            }
            return err
        }
        slot, err := s.slots.GetForUpdateTx(ctx, tx, b.SlotID)
        if err != nil {
            if errors.Is(err, repository.ErrSlotNotFound) {
                return ErrNotFound
            }
            return err
        }
        if actorID != b.UserID && actorID != slot.OwnerID {
            return ErrForbidden
        }
        b, err = s.bookings.GetForUpdateTx(ctx, tx, bookingID)
        if err != nil {
            if errors.Is(err, sql.ErrNoRows) {
                return ErrNotFound
            }
            return err
        }
        switch b.Status {
        case model.StatusConfirmed, model.StatusPendingLottery:
            // cancellable
        default:
            return ErrInvalidState
        }
        slotName = slot.Name

        wasConfirmed := b.Status == model.StatusConfirmed
        if err := s.bookings.UpdateStatusTx(ctx, tx, b.ID, model.StatusCancelled); err != nil {
            return err
        }
        b.Status = model.StatusCancelled
        cancelled = b

        if !wasConfirmed {
            // A pending lottery entry was never counted; no ledger
            // change and nothing to promote into.
            return nil
        }
        if err := s.slots.DecrementBookedTx(ctx, tx, b.SlotID, 1); err != nil {
            if errors.Is(err, repository.ErrInvalidState) {
                // A confirmed booking without a counted table is a
                // bookkeeping bug; surface it loudly.
                log.Printf("booking: ledger underflow cancelling booking %d on slot %d", b.ID, b.SlotID)
                return ErrInvalidState
            }
            return err
        }
        promoted, err = s.promoteNextTx(ctx, tx, b.SlotID)
        return err
    })
    if err != nil {
        return nil, err
    }
    if promoted != nil {
        s.publish(ctx, queue.BookingEvent{
            EventID:       uuid.NewString(),
            SlotID:        promoted.SlotID,
            SlotName:      slotName,
            CustomerName:  promoted.GuestName,
            CustomerEmail: promoted.GuestEmail,
            PartySize:     promoted.PartySize,
            BookingType:   queue.TypePromotion,
            OccurredAt:    time.Now().UTC().Format(time.RFC3339),
        })
    }
    return cancelled, nil
}

// DeleteSlot removes a slot and everything hanging off it: all
// bookings are marked cancelled and then deleted together with the
// waitlist entries and the slot row, as one transaction. Owner only.
func (s *Service) DeleteSlot(ctx context.Context, slotID, ownerID uint64) error {
    return s.tx.RunTx(ctx, func(tx *sql.Tx) error {
        slot, err := s.slots.GetForUpdateTx(ctx, tx, slotID)
        if err != nil {
            if errors.Is(err, repository.ErrSlotNotFound) {
                return ErrNotFound
            }
            return err
        }
        if slot.OwnerID != ownerID {
            return ErrForbidden
        }
        if _, err := s.bookings.CancelAllBySlotTx(ctx, tx, slotID); err != nil {
            return err
        }
        if err := s.bookings.DeleteBySlotTx(ctx, tx, slotID); err != nil {
            return err
        }
        if err := s.waitlist.DeleteBySlotTx(ctx, tx, slotID); err != nil {
            return err
        }
        return s.slots.DeleteTx(ctx, tx, slotID)
    })
}
