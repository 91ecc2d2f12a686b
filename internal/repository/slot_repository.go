package repository

import (
    "context"
    "database/sql"
    "time"

    "github.com/iliyamo/table-slot-booking/internal/model"
)

// SlotRepo provides persistence for slots and owns the capacity
// ledger: the (total_tables, booked_tables) pair on every slot row.
// The ledger methods below are the only code paths allowed to touch
// booked_tables. Both are single conditional UPDATE statements so
// the capacity check and the write happen as one atomic operation
// inside the database; a read-check-write sequence in application
// code would let two concurrent requests pass the check before
// either writes.
type SlotRepo struct {
    db *sql.DB
}

// NewSlotRepo returns a new SlotRepo bound to the given database.
func NewSlotRepo(db *sql.DB) *SlotRepo { return &SlotRepo{db: db} }

const slotColumns = `id, owner_id, name, description, date, starts_at, ends_at,
       total_tables, booked_tables, booking_mode, waitlist_enabled, created_at, updated_at`

// scanSlot reads a slot row from any row scanner (sql.Row or sql.Rows).
func scanSlot(scan func(dest ...any) error) (*model.Slot, error) {
    var s model.Slot
    var endsAt sql.NullTime
    if err := scan(
        &s.ID, &s.OwnerID, &s.Name, &s.Description, &s.Date, &s.StartsAt, &endsAt,
        &s.TotalTables, &s.BookedTables, &s.BookingMode, &s.WaitlistEnabled,
        &s.CreatedAt, &s.UpdatedAt,
    ); err != nil {
        return nil, err
    }
    if endsAt.Valid {
        t := endsAt.Time
        s.EndsAt = &t
    }
    return &s, nil
}

// Create inserts a new slot owned by ownerID and populates the
// generated ID and timestamps on the passed model. booked_tables
// always starts at zero.
func (r *SlotRepo) Create(ctx context.Context, s *model.Slot) error {
    const q = `INSERT INTO slots
        (owner_id, name, description, date, starts_at, ends_at, total_tables, booking_mode, waitlist_enabled)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
    var endsAt any
    if s.EndsAt != nil {
        endsAt = s.EndsAt.UTC()
    }
    res, err := r.db.ExecContext(ctx, q,
        s.OwnerID, s.Name, s.Description, s.Date, s.StartsAt.UTC(), endsAt,
        s.TotalTables, string(s.BookingMode), s.WaitlistEnabled)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    s.ID = uint64(id)
    // Query back the row to populate defaults and timestamps.
    got, err := r.GetByID(ctx, s.ID)
    if err != nil {
        return err
    }
    *s = *got
    return nil
}

// GetByID returns a slot by primary key. ErrSlotNotFound is returned
// when no such row exists.
func (r *SlotRepo) GetByID(ctx context.Context, slotID uint64) (*model.Slot, error) {
    const q = `SELECT ` + slotColumns + ` FROM slots WHERE id = ?`
    s, err := scanSlot(r.db.QueryRowContext(ctx, q, slotID).Scan)
    if err == sql.ErrNoRows {
        return nil, ErrSlotNotFound
    }
    return s, err
}

// GetTx is GetByID within an existing transaction, without locking.
func (r *SlotRepo) GetTx(ctx context.Context, tx *sql.Tx, slotID uint64) (*model.Slot, error) {
    const q = `SELECT ` + slotColumns + ` FROM slots WHERE id = ?`
    s, err := scanSlot(tx.QueryRowContext(ctx, q, slotID).Scan)
    if err == sql.ErrNoRows {
        return nil, ErrSlotNotFound
    }
    return s, err
}

// GetForUpdateTx loads a slot row and acquires a row-level lock on it
// for the remainder of the transaction. Use this to serialize draws
// and cancellations that read availability before writing.
func (r *SlotRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, slotID uint64) (*model.Slot, error) {
    const q = `SELECT ` + slotColumns + ` FROM slots WHERE id = ? FOR UPDATE`
    s, err := scanSlot(tx.QueryRowContext(ctx, q, slotID).Scan)
    if err == sql.ErrNoRows {
        return nil, ErrSlotNotFound
    }
    return s, err
}

// IncrementBookedTx atomically adds amount to booked_tables, failing
// with ErrCapacityExceeded when the result would exceed total_tables.
// The capacity condition is evaluated by the database inside the
// UPDATE itself, so concurrent increments can never jointly
// overshoot even without an explicit row lock.
func (r *SlotRepo) IncrementBookedTx(ctx context.Context, tx *sql.Tx, slotID uint64, amount uint32) error {
    const q = `UPDATE slots SET booked_tables = booked_tables + ?
               WHERE id = ? AND booked_tables + ? <= total_tables`
    res, err := tx.ExecContext(ctx, q, amount, slotID, amount)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        // Distinguish a missing slot from a full one.
        var id uint64
        err := tx.QueryRowContext(ctx, `SELECT id FROM slots WHERE id = ?`, slotID).Scan(&id)
        if err == sql.ErrNoRows {
            return ErrSlotNotFound
        }
        if err != nil {
            return err
        }
        return ErrCapacityExceeded
    }
    return nil
}

// DecrementBookedTx atomically subtracts amount from booked_tables.
// ErrInvalidState is returned when the subtraction would go negative;
// that means the caller released a table it never held.
func (r *SlotRepo) DecrementBookedTx(ctx context.Context, tx *sql.Tx, slotID uint64, amount uint32) error {
    const q = `UPDATE slots SET booked_tables = booked_tables - ?
               WHERE id = ? AND booked_tables >= ?`
    res, err := tx.ExecContext(ctx, q, amount, slotID, amount)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        var id uint64
        err := tx.QueryRowContext(ctx, `SELECT id FROM slots WHERE id = ?`, slotID).Scan(&id)
        if err == sql.ErrNoRows {
            return ErrSlotNotFound
        }
        if err != nil {
            return err
        }
        return ErrInvalidState
    }
    return nil
}

// CapacityRemaining returns total_tables - booked_tables for display
// purposes. The value may be stale by the time the caller acts on
// it; admission never trusts it beyond an optimistic pre-check.
func (r *SlotRepo) CapacityRemaining(ctx context.Context, slotID uint64) (uint32, error) {
    const q = `SELECT total_tables - booked_tables FROM slots WHERE id = ?`
    var remaining uint32
    err := r.db.QueryRowContext(ctx, q, slotID).Scan(&remaining)
    if err == sql.ErrNoRows {
        return 0, ErrSlotNotFound
    }
    return remaining, err
}

// UpdateByOwner applies owner edits to a slot. Capacity may be
// raised freely but never lowered below the current booked count;
// the guard is part of the UPDATE condition so a concurrent booking
// cannot slip under a shrinking capacity. Returns ErrSlotNotFound
// when the slot does not exist, ErrForbidden when it belongs to a
// different owner and ErrConflict when the capacity guard rejects
// the new value.
func (r *SlotRepo) UpdateByOwner(ctx context.Context, slotID, ownerID uint64, name, description string, totalTables uint32, waitlistEnabled bool) error {
    const q = `UPDATE slots
               SET name = ?, description = ?, total_tables = ?, waitlist_enabled = ?
               WHERE id = ? AND owner_id = ? AND booked_tables <= ?`
    res, err := r.db.ExecContext(ctx, q, name, description, totalTables, waitlistEnabled, slotID, ownerID, totalTables)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n > 0 {
        return nil
    }
    // Zero rows: figure out which precondition failed.
    var actualOwner uint64
    var booked uint32
    err = r.db.QueryRowContext(ctx, `SELECT owner_id, booked_tables FROM slots WHERE id = ?`, slotID).
        Scan(&actualOwner, &booked)
    if err == sql.ErrNoRows {
        return ErrSlotNotFound
    }
    if err != nil {
        return err
    }
    if actualOwner != ownerID {
        return ErrForbidden
    }
    if booked > totalTables {
        return ErrConflict
    }
    // The row matched all conditions but nothing changed (same values).
    return nil
}

// DeleteTx removes the slot row within a transaction. Dependent
// bookings and waitlist entries must be removed first by the caller;
// the repository does not assume cascading foreign keys.
func (r *SlotRepo) DeleteTx(ctx context.Context, tx *sql.Tx, slotID uint64) error {
    res, err := tx.ExecContext(ctx, `DELETE FROM slots WHERE id = ?`, slotID)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return ErrSlotNotFound
    }
    return nil
}

// ListUpcoming returns slots whose date is today or later, ordered
// by date and start time. Used by the public browse endpoints.
func (r *SlotRepo) ListUpcoming(ctx context.Context, now time.Time) ([]model.Slot, error) {
    const q = `SELECT ` + slotColumns + ` FROM slots
               WHERE date >= ? ORDER BY date, starts_at`
    rows, err := r.db.QueryContext(ctx, q, now.UTC().Format("2006-01-02"))
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    slots := make([]model.Slot, 0)
    for rows.Next() {
        s, err := scanSlot(rows.Scan)
        if err != nil {
            return nil, err
        }
        slots = append(slots, *s)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return slots, nil
}

// ListByOwner returns all slots created by the given owner, newest
// date first.
func (r *SlotRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]model.Slot, error) {
    const q = `SELECT ` + slotColumns + ` FROM slots
               WHERE owner_id = ? ORDER BY date DESC, starts_at DESC`
    rows, err := r.db.QueryContext(ctx, q, ownerID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    slots := make([]model.Slot, 0)
    for rows.Next() {
        s, err := scanSlot(rows.Scan)
        if err != nil {
            return nil, err
        }
        slots = append(slots, *s)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return slots, nil
}
