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

// RequestSeat is the single admission entry point. The slot's
// booking mode picks the path:
//
//   - LOTTERY: the booking is created PENDING_LOTTERY and the ledger
//     is untouched. The pool is unbounded; capacity is enforced at
//     draw time instead.
//   - FCFS: the ledger increment and the CONFIRMED insert happen in
//     one transaction. When the increment is rejected the caller
//     gets ErrSlotFull and decides whether to offer the waitlist;
//     admission never silently redirects.
//
// Regardless of mode the user may hold at most one non-cancelled
// booking per slot (ErrDuplicateBooking). Party size is recorded but
// every booking consumes exactly one table.
func (s *Service) RequestSeat(ctx context.Context, slotID, userID uint64, guestName, guestEmail string, partySize uint32) (*model.Booking, error) {
    if partySize == 0 {
        partySize = 1
    }
    var created *model.Booking
    var slotName string
    err := s.tx.RunTx(ctx, func(tx *sql.Tx) error {
        slot, err := s.slots.GetTx(ctx, tx, slotID)
        if err != nil {
            if errors.Is(err, repository.ErrSlotNotFound) {
                return ErrNotFound
            }
            return err
        }
        slotName = slot.Name

        exists, err := s.bookings.HasActiveTx(ctx, tx, slotID, userID)
        if err != nil {
            return err
        }
        if exists {
            return ErrDuplicateBooking
        }

        b := &model.Booking{
            SlotID:     slotID,
            UserID:     userID,
            GuestName:  guestName,
            GuestEmail: guestEmail,
            PartySize:  partySize,
        }
        switch slot.BookingMode {
        case model.ModeLottery:
            b.Status = model.StatusPendingLottery
        default: // FCFS
            // The conditional update is the authoritative capacity
            // check; two concurrent requests cannot both pass it.
            if err := s.slots.IncrementBookedTx(ctx, tx, slotID, 1); err != nil {
                if errors.Is(err, repository.ErrCapacityExceeded) {
                    return ErrSlotFull
                }
                return err
            }
            b.Status = model.StatusConfirmed
        }
        if err := s.bookings.CreateTx(ctx, tx, b); err != nil {
            return err
        }
        created = b
        return nil
    })
    if err != nil {
        return nil, err
    }
    if created.Status == model.StatusConfirmed {
        s.publish(ctx, queue.BookingEvent{
            EventID:       uuid.NewString(),
            SlotID:        slotID,
            SlotName:      slotName,
            CustomerName:  guestName,
            CustomerEmail: guestEmail,
            PartySize:     partySize,
            BookingType:   queue.TypeBooking,
            OccurredAt:    time.Now().UTC().Format(time.RFC3339),
        })
    }
    return created, nil
}
