package booking

import (
    "context"
    "database/sql"
    "log"

    "github.com/iliyamo/table-slot-booking/internal/model"
    "github.com/iliyamo/table-slot-booking/internal/queue"
)

// SlotStore is the slice of the slot repository the core depends on.
// IncrementBookedTx and DecrementBookedTx are the capacity ledger:
// single conditional updates that can never be split into a read and
// a write by the caller.
type SlotStore interface {
    GetTx(ctx context.Context, tx *sql.Tx, slotID uint64) (*model.Slot, error)
    GetForUpdateTx(ctx context.Context, tx *sql.Tx, slotID uint64) (*model.Slot, error)
    IncrementBookedTx(ctx context.Context, tx *sql.Tx, slotID uint64, amount uint32) error
    DecrementBookedTx(ctx context.Context, tx *sql.Tx, slotID uint64, amount uint32) error
    DeleteTx(ctx context.Context, tx *sql.Tx, slotID uint64) error
}

// BookingStore is the slice of the booking repository the core uses.
type BookingStore interface {
    CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error
    GetTx(ctx context.Context, tx *sql.Tx, bookingID uint64) (*model.Booking, error)
    GetForUpdateTx(ctx context.Context, tx *sql.Tx, bookingID uint64) (*model.Booking, error)
    HasActiveTx(ctx context.Context, tx *sql.Tx, slotID, userID uint64) (bool, error)
    UpdateStatusTx(ctx context.Context, tx *sql.Tx, bookingID uint64, status model.BookingStatus) error
    PendingBySlotForUpdateTx(ctx context.Context, tx *sql.Tx, slotID uint64) ([]model.Booking, error)
    CancelAllBySlotTx(ctx context.Context, tx *sql.Tx, slotID uint64) (int64, error)
    DeleteBySlotTx(ctx context.Context, tx *sql.Tx, slotID uint64) error
}

// WaitlistStore is the slice of the waitlist repository the core uses.
type WaitlistStore interface {
    CreateTx(ctx context.Context, tx *sql.Tx, e *model.WaitlistEntry) error
    GetByID(ctx context.Context, entryID uint64) (*model.WaitlistEntry, error)
    HasEntryTx(ctx context.Context, tx *sql.Tx, slotID, userID uint64) (bool, error)
    FirstBySlotForUpdateTx(ctx context.Context, tx *sql.Tx, slotID uint64) (*model.WaitlistEntry, error)
    DeleteTx(ctx context.Context, tx *sql.Tx, entryID uint64) error
    DeleteBySlotTx(ctx context.Context, tx *sql.Tx, slotID uint64) error
}

// EventPublisher delivers notification events to the broker. Calls
// happen only after the surrounding transaction has committed and
// failures are logged and discarded; a slow or dead broker never
// fails an admission.
type EventPublisher interface {
    PublishBookingEvent(ctx context.Context, ev queue.BookingEvent) error
}

// TxRunner opens a transaction, runs fn, and commits when fn returns
// nil or rolls back otherwise.
type TxRunner interface {
    RunTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

// dbRunner is the production TxRunner over a *sql.DB.
type dbRunner struct{ db *sql.DB }

// NewTxRunner wraps a database handle as a TxRunner.
func NewTxRunner(db *sql.DB) TxRunner { return dbRunner{db: db} }

func (r dbRunner) RunTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()
    if err := fn(tx); err != nil {
        return err
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}

// Service bundles the stores behind the admission, lottery, waitlist
// and cancellation operations. All methods are safe for concurrent
// use; correctness under contention comes from the database
// transaction each method runs, not from locks in this package.
type Service struct {
    tx       TxRunner
    slots    SlotStore
    bookings BookingStore
    waitlist WaitlistStore
    events   EventPublisher // may be nil to disable notifications
}

// NewService constructs the booking core. The publisher may be nil,
// which disables notification events; all other dependencies must be
// non-nil.
func NewService(tx TxRunner, slots SlotStore, bookings BookingStore, waitlist WaitlistStore, events EventPublisher) *Service {
    if tx == nil || slots == nil || bookings == nil || waitlist == nil {
        panic("nil dependency passed to booking.NewService")
    }
    return &Service{tx: tx, slots: slots, bookings: bookings, waitlist: waitlist, events: events}
}

// publish sends a notification event after a commit. Fire-and-forget:
// errors are logged and dropped so downstream outages never surface
// as operation failures.
func (s *Service) publish(ctx context.Context, ev queue.BookingEvent) {
    if s.events == nil {
        return
    }
    if err := s.events.PublishBookingEvent(ctx, ev); err != nil {
        log.Printf("booking: publish %s event for slot %d failed: %v", ev.BookingType, ev.SlotID, err)
    }
}
