package booking

import (
    "context"
    "database/sql"
    "errors"
    "math/rand"
    "time"

    "github.com/google/uuid"

    "github.com/iliyamo/table-slot-booking/internal/model"
    "github.com/iliyamo/table-slot-booking/internal/queue"
    "github.com/iliyamo/table-slot-booking/internal/repository"
)

// DrawResult reports the outcome of a lottery draw.
type DrawResult struct {
    Winners  []model.Booking `json:"winners"`
    Rejected []model.Booking `json:"rejected"`
}

// DrawWinners selects winners among the slot's pending lottery
// entries. The effective winner count is the smallest of the
// requested count, the pool size and the remaining capacity; when
// that is zero the draw fails with ErrNoSpotsAvailable and nothing
// changes. Selection is a uniform random permutation, so every
// pending entry has the same chance regardless of submission order.
//
// Winners transition to CONFIRMED and the ledger is incremented by
// the same amount inside one transaction; the slot row is locked for
// the duration so concurrent draws on the same slot serialize and
// can never jointly over-allocate. When rejectOthers is set, the
// non-selected entries are cancelled, otherwise they stay pending
// for a future draw.
func (s *Service) DrawWinners(ctx context.Context, slotID, ownerID uint64, winnersCount uint32, rejectOthers bool) (*DrawResult, error) {
    var result DrawResult
    var slotName string
    err := s.tx.RunTx(ctx, func(tx *sql.Tx) error {
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
        slotName = slot.Name

        pending, err := s.bookings.PendingBySlotForUpdateTx(ctx, tx, slotID)
        if err != nil {
            return err
        }

        actual := int(winnersCount)
        if len(pending) < actual {
            actual = len(pending)
        }
        if available := int(slot.Remaining()); available < actual {
            actual = available
        }
        if actual <= 0 {
            return ErrNoSpotsAvailable
        }

        // Uniform shuffle of the pool; the first `actual` entries win.
        order := rand.Perm(len(pending))
        winners := make([]model.Booking, 0, actual)
        rejected := make([]model.Booking, 0)
        for i, idx := range order {
            if i < actual {
                winners = append(winners, pending[idx])
            } else {
                rejected = append(rejected, pending[idx])
            }
        }

        for _, w := range winners {
            if err := s.bookings.UpdateStatusTx(ctx, tx, w.ID, model.StatusConfirmed); err != nil {
                return err
            }
        }
        if rejectOthers {
            for _, r := range rejected {
                if err := s.bookings.UpdateStatusTx(ctx, tx, r.ID, model.StatusCancelled); err != nil {
                    return err
                }
            }
        } else {
            rejected = rejected[:0]
        }

        // Same transaction as the status flips: a draw is never
        // observable with winners confirmed but capacity untouched.
        if err := s.slots.IncrementBookedTx(ctx, tx, slotID, uint32(actual)); err != nil {
            if errors.Is(err, repository.ErrCapacityExceeded) {
                // The slot row is locked, so this means availability
                // shrank between our read and write: a bug, not a race.
                return ErrInvalidState
            }
            return err
        }

        result = DrawResult{Winners: winners, Rejected: rejected}
        return nil
    })
    if err != nil {
        return nil, err
    }
    now := time.Now().UTC().Format(time.RFC3339)
    for _, w := range result.Winners {
        s.publish(ctx, queue.BookingEvent{
            EventID:       uuid.NewString(),
            SlotID:        slotID,
            SlotName:      slotName,
            CustomerName:  w.GuestName,
            CustomerEmail: w.GuestEmail,
            PartySize:     w.PartySize,
            BookingType:   queue.TypeBooking,
            OccurredAt:    now,
        })
    }
    return &result, nil
}

// ConfirmLotteryWinner confirms a single pending entry: the
// one-entry equivalent of a draw with winnersCount=1 targeting a
// specific booking. ErrNoSpotsAvailable is returned when no capacity
// remains.
func (s *Service) ConfirmLotteryWinner(ctx context.Context, bookingID, ownerID uint64) (*model.Booking, error) {
    var confirmed *model.Booking
    var slotName string
    err := s.tx.RunTx(ctx, func(tx *sql.Tx) error {
        // Unlocked read first to learn the slot, then slot row before
        // booking row. DrawWinners locks in the same order; mixing
        // orders would let concurrent confirms and draws deadlock.
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
        if slot.OwnerID != ownerID {
            return ErrForbidden
        }
        b, err = s.bookings.GetForUpdateTx(ctx, tx, bookingID)
        if err != nil {
            if errors.Is(err, sql.ErrNoRows) {
                return ErrNotFound
            }
            return err
        }
        if b.Status != model.StatusPendingLottery {
            return ErrInvalidState
        }
        slotName = slot.Name

        if err := s.slots.IncrementBookedTx(ctx, tx, b.SlotID, 1); err != nil {
            if errors.Is(err, repository.ErrCapacityExceeded) {
                return ErrNoSpotsAvailable
            }
            return err
        }
        if err := s.bookings.UpdateStatusTx(ctx, tx, b.ID, model.StatusConfirmed); err != nil {
            return err
        }
        b.Status = model.StatusConfirmed
        confirmed = b
        return nil
    })
    if err != nil {
        return nil, err
    }
    s.publish(ctx, queue.BookingEvent{
        EventID:       uuid.NewString(),
        SlotID:        confirmed.SlotID,
        SlotName:      slotName,
        CustomerName:  confirmed.GuestName,
        CustomerEmail: confirmed.GuestEmail,
        PartySize:     confirmed.PartySize,
        BookingType:   queue.TypeBooking,
        OccurredAt:    time.Now().UTC().Format(time.RFC3339),
    })
    return confirmed, nil
}

// RejectLotteryEntry cancels a single pending entry without touching
// the ledger; a pending entry was never counted.
func (s *Service) RejectLotteryEntry(ctx context.Context, bookingID, ownerID uint64) (*model.Booking, error) {
    var rejected *model.Booking
    err := s.tx.RunTx(ctx, func(tx *sql.Tx) error {
        b, err := s.bookings.GetTx(ctx, tx, bookingID)
        if err != nil {
            if errors.Is(err, sql.ErrNoRows) {
                return ErrNotFound
            }
            return err
        }
        slot, err := s.slots.GetTx(ctx, tx, b.SlotID)
        if err != nil {
            if errors.Is(err, repository.ErrSlotNotFound) {
                return ErrNotFound
            }
            return err
        }
        if slot.OwnerID != ownerID {
            return ErrForbidden
        }
        b, err = s.bookings.GetForUpdateTx(ctx, tx, bookingID)
        if err != nil {
            if errors.Is(err, sql.ErrNoRows) {
                return ErrNotFound
            }
            return err
        }
        if b.Status != model.StatusPendingLottery {
            return ErrInvalidState
        }
        if err := s.bookings.UpdateStatusTx(ctx, tx, b.ID, model.StatusCancelled); err != nil {
            return err
        }
        b.Status = model.StatusCancelled
        rejected = b
        return nil
    })
    if err != nil {
        return nil, err
    }
    return rejected, nil
}
