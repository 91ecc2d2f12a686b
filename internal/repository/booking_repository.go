package repository

import (
    "context"
    "database/sql"

    "github.com/iliyamo/table-slot-booking/internal/model"
)

// BookingRepo provides CRUD operations for bookings. Status
// transitions that must be consistent with ledger updates run inside
// a caller-supplied transaction via the ...Tx variants; the caller
// commits or rolls back.
type BookingRepo struct {
    db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `id, slot_id, user_id, guest_name, guest_email, party_size, status, created_at, updated_at`

func scanBooking(scan func(dest ...any) error) (*model.Booking, error) {
    var b model.Booking
    if err := scan(
        &b.ID, &b.SlotID, &b.UserID, &b.GuestName, &b.GuestEmail,
        &b.PartySize, &b.Status, &b.CreatedAt, &b.UpdatedAt,
    ); err != nil {
        return nil, err
    }
    return &b, nil
}

// CreateTx inserts a new booking within the scope of an existing
// transaction and populates the generated ID and timestamps on the
// provided model. Status must be set by the caller: CONFIRMED for
// the FCFS path (after the ledger increment succeeded in the same
// transaction) or PENDING_LOTTERY for lottery slots.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
    const q = `INSERT INTO bookings (slot_id, user_id, guest_name, guest_email, party_size, status)
               VALUES (?, ?, ?, ?, ?, ?)`
    res, err := tx.ExecContext(ctx, q, b.SlotID, b.UserID, b.GuestName, b.GuestEmail, b.PartySize, string(b.Status))
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    b.ID = uint64(id)
    const sel = `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
    got, err := scanBooking(tx.QueryRowContext(ctx, sel, b.ID).Scan)
    if err != nil {
        return err
    }
    *b = *got
    return nil
}

// GetByID returns a booking by primary key. sql.ErrNoRows is
// propagated when the booking does not exist.
func (r *BookingRepo) GetByID(ctx context.Context, bookingID uint64) (*model.Booking, error) {
    const q = `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
    return scanBooking(r.db.QueryRowContext(ctx, q, bookingID).Scan)
}

// GetTx returns a booking within the transaction without locking its
// row. Writers use it to learn the booking's slot before taking the
// slot lock; every writer locks slot rows before booking rows.
func (r *BookingRepo) GetTx(ctx context.Context, tx *sql.Tx, bookingID uint64) (*model.Booking, error) {
    const q = `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
    return scanBooking(tx.QueryRowContext(ctx, q, bookingID).Scan)
}

// GetForUpdateTx loads a booking and locks its row for the remainder
// of the transaction, so concurrent cancellations of the same
// booking serialize instead of both observing CONFIRMED.
func (r *BookingRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, bookingID uint64) (*model.Booking, error) {
    const q = `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ? FOR UPDATE`
    return scanBooking(tx.QueryRowContext(ctx, q, bookingID).Scan)
}

// HasActiveTx reports whether the user already holds a non-cancelled
// booking for the slot. Used for duplicate-booking prevention inside
// the admission transaction.
func (r *BookingRepo) HasActiveTx(ctx context.Context, tx *sql.Tx, slotID, userID uint64) (bool, error) {
    const q = `SELECT 1 FROM bookings
               WHERE slot_id = ? AND user_id = ? AND status <> 'CANCELLED' LIMIT 1`
    var one int
    err := tx.QueryRowContext(ctx, q, slotID, userID).Scan(&one)
    if err == sql.ErrNoRows {
        return false, nil
    }
    if err != nil {
        return false, err
    }
    return true, nil
}

// UpdateStatusTx moves a booking into the given status within the
// transaction. sql.ErrNoRows is returned when the booking vanished.
func (r *BookingRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, bookingID uint64, status model.BookingStatus) error {
    res, err := tx.ExecContext(ctx, `UPDATE bookings SET status = ? WHERE id = ?`, string(status), bookingID)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        // RowsAffected is also zero when the status already matches;
        // verify existence before reporting a miss.
        var id uint64
        if err := tx.QueryRowContext(ctx, `SELECT id FROM bookings WHERE id = ?`, bookingID).Scan(&id); err != nil {
            return err
        }
    }
    return nil
}

// PendingBySlotForUpdateTx returns all PENDING_LOTTERY bookings for
// the slot with their rows locked, oldest first. Locking the pool
// keeps a concurrent confirm/reject from racing the draw.
func (r *BookingRepo) PendingBySlotForUpdateTx(ctx context.Context, tx *sql.Tx, slotID uint64) ([]model.Booking, error) {
    const q = `SELECT ` + bookingColumns + ` FROM bookings
               WHERE slot_id = ? AND status = 'PENDING_LOTTERY'
               ORDER BY id FOR UPDATE`
    rows, err := tx.QueryContext(ctx, q, slotID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var entries []model.Booking
    for rows.Next() {
        b, err := scanBooking(rows.Scan)
        if err != nil {
            return nil, err
        }
        entries = append(entries, *b)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return entries, nil
}

// CancelAllBySlotTx marks every non-cancelled booking on the slot as
// cancelled and returns how many were affected. Part of the slot
// delete cascade.
func (r *BookingRepo) CancelAllBySlotTx(ctx context.Context, tx *sql.Tx, slotID uint64) (int64, error) {
    const q = `UPDATE bookings SET status = 'CANCELLED'
               WHERE slot_id = ? AND status <> 'CANCELLED'`
    res, err := tx.ExecContext(ctx, q, slotID)
    if err != nil {
        return 0, err
    }
    return res.RowsAffected()
}

// DeleteBySlotTx removes all booking rows for the slot. Runs after
// CancelAllBySlotTx inside the delete cascade so the final state is
// observable as "logically cancelled" before the rows disappear with
// the slot.
func (r *BookingRepo) DeleteBySlotTx(ctx context.Context, tx *sql.Tx, slotID uint64) error {
    _, err := tx.ExecContext(ctx, `DELETE FROM bookings WHERE slot_id = ?`, slotID)
    return err
}

// ListBySlot returns all bookings for a slot, optionally filtered by
// status, ordered by creation time. Used by owner views.
func (r *BookingRepo) ListBySlot(ctx context.Context, slotID uint64, status *model.BookingStatus) ([]model.Booking, error) {
    q := `SELECT ` + bookingColumns + ` FROM bookings WHERE slot_id = ?`
    args := []any{slotID}
    if status != nil {
        q += ` AND status = ?`
        args = append(args, string(*status))
    }
    q += ` ORDER BY created_at`
    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    bookings := make([]model.Booking, 0)
    for rows.Next() {
        b, err := scanBooking(rows.Scan)
        if err != nil {
            return nil, err
        }
        bookings = append(bookings, *b)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return bookings, nil
}

// ListByUser returns the user's bookings, newest first.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
    const q = `SELECT ` + bookingColumns + ` FROM bookings
               WHERE user_id = ? ORDER BY created_at DESC`
    rows, err := r.db.QueryContext(ctx, q, userID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    bookings := make([]model.Booking, 0)
    for rows.Next() {
        b, err := scanBooking(rows.Scan)
        if err != nil {
            return nil, err
        }
        bookings = append(bookings, *b)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return bookings, nil
}

// ConfirmedWithProfileBySlot returns confirmed bookings for the slot
// joined with each booker's profile fields. Feeds the owner export;
// contact details are only meaningful when consent_share is set and
// the webhook layer blanks them otherwise.
func (r *BookingRepo) ConfirmedWithProfileBySlot(ctx context.Context, slotID uint64) ([]ConfirmedParticipant, error) {
    const q = `SELECT b.id, b.guest_name, b.guest_email, b.party_size,
                      u.display_name, u.payment_handle, u.consent_share
               FROM bookings b
               JOIN users u ON u.id = b.user_id
               WHERE b.slot_id = ? AND b.status = 'CONFIRMED'
               ORDER BY b.created_at`
    rows, err := r.db.QueryContext(ctx, q, slotID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]ConfirmedParticipant, 0)
    for rows.Next() {
        var p ConfirmedParticipant
        if err := rows.Scan(&p.BookingID, &p.GuestName, &p.GuestEmail, &p.PartySize,
            &p.DisplayName, &p.PaymentHandle, &p.ConsentShare); err != nil {
            return nil, err
        }
        out = append(out, p)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return out, nil
}

// ConfirmedParticipant is one row of the owner export join: a
// confirmed booking together with the booker's profile fields.
type ConfirmedParticipant struct {
    BookingID     uint64
    GuestName     string
    GuestEmail    string
    PartySize     uint32
    DisplayName   string
    PaymentHandle string
    ConsentShare  bool
}
