package repository

import (
    "context"
    "database/sql"

    "github.com/iliyamo/table-slot-booking/internal/model"
)

// WaitlistRepo provides data access to the waitlist_entries table.
// Positions within a slot are unique and strictly increasing: the
// next position is computed by the database inside the INSERT so
// concurrent joins cannot be assigned the same value. Entries are
// removed either voluntarily or by promotion; remaining positions
// keep their gaps.
type WaitlistRepo struct {
    db *sql.DB
}

// NewWaitlistRepo returns a new WaitlistRepo bound to the given database.
func NewWaitlistRepo(db *sql.DB) *WaitlistRepo { return &WaitlistRepo{db: db} }

const waitlistColumns = `id, slot_id, user_id, contact_name, contact_email, party_size, position, notified_at, created_at`

func scanWaitlistEntry(scan func(dest ...any) error) (*model.WaitlistEntry, error) {
    var e model.WaitlistEntry
    var notified sql.NullTime
    if err := scan(
        &e.ID, &e.SlotID, &e.UserID, &e.ContactName, &e.ContactEmail,
        &e.PartySize, &e.Position, &notified, &e.CreatedAt,
    ); err != nil {
        return nil, err
    }
    if notified.Valid {
        t := notified.Time
        e.NotifiedAt = &t
    }
    return &e, nil
}

// CreateTx inserts a waitlist entry, assigning the next position for
// the slot atomically: INSERT ... SELECT COALESCE(MAX(position),0)+1
// reads and writes the counter in one statement under the insert's
// lock, so two concurrent joins get distinct positions. The
// generated ID and position are populated on the passed model.
func (r *WaitlistRepo) CreateTx(ctx context.Context, tx *sql.Tx, e *model.WaitlistEntry) error {
    const q = `INSERT INTO waitlist_entries
               (slot_id, user_id, contact_name, contact_email, party_size, position)
               SELECT ?, ?, ?, ?, ?, COALESCE(MAX(position), 0) + 1
               FROM waitlist_entries WHERE slot_id = ?`
    res, err := tx.ExecContext(ctx, q, e.SlotID, e.UserID, e.ContactName, e.ContactEmail, e.PartySize, e.SlotID)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    e.ID = uint64(id)
    const sel = `SELECT ` + waitlistColumns + ` FROM waitlist_entries WHERE id = ?`
    got, err := scanWaitlistEntry(tx.QueryRowContext(ctx, sel, e.ID).Scan)
    if err != nil {
        return err
    }
    *e = *got
    return nil
}

// GetByID returns a waitlist entry by primary key. sql.ErrNoRows is
// propagated when it does not exist.
func (r *WaitlistRepo) GetByID(ctx context.Context, entryID uint64) (*model.WaitlistEntry, error) {
    const q = `SELECT ` + waitlistColumns + ` FROM waitlist_entries WHERE id = ?`
    return scanWaitlistEntry(r.db.QueryRowContext(ctx, q, entryID).Scan)
}

// HasEntryTx reports whether the user already queues on the slot.
func (r *WaitlistRepo) HasEntryTx(ctx context.Context, tx *sql.Tx, slotID, userID uint64) (bool, error) {
    const q = `SELECT 1 FROM waitlist_entries WHERE slot_id = ? AND user_id = ? LIMIT 1`
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

// FirstBySlotForUpdateTx returns the entry with the smallest
// position for the slot, locking its row so concurrent promotions
// cannot both pick it. sql.ErrNoRows means the waitlist is empty,
// which callers treat as "no promotion", not as a failure.
func (r *WaitlistRepo) FirstBySlotForUpdateTx(ctx context.Context, tx *sql.Tx, slotID uint64) (*model.WaitlistEntry, error) {
    const q = `SELECT ` + waitlistColumns + ` FROM waitlist_entries
               WHERE slot_id = ? ORDER BY position LIMIT 1 FOR UPDATE`
    return scanWaitlistEntry(tx.QueryRowContext(ctx, q, slotID).Scan)
}

// DeleteTx removes a single entry inside the transaction. Positions
// of later entries are left untouched.
func (r *WaitlistRepo) DeleteTx(ctx context.Context, tx *sql.Tx, entryID uint64) error {
    res, err := tx.ExecContext(ctx, `DELETE FROM waitlist_entries WHERE id = ?`, entryID)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return sql.ErrNoRows
    }
    return nil
}

// DeleteBySlotTx removes every entry for the slot. Part of the slot
// delete cascade.
func (r *WaitlistRepo) DeleteBySlotTx(ctx context.Context, tx *sql.Tx, slotID uint64) error {
    _, err := tx.ExecContext(ctx, `DELETE FROM waitlist_entries WHERE slot_id = ?`, slotID)
    return err
}

// ListBySlot returns the slot's waitlist in FIFO order. Used by
// owner views.
func (r *WaitlistRepo) ListBySlot(ctx context.Context, slotID uint64) ([]model.WaitlistEntry, error) {
    const q = `SELECT ` + waitlistColumns + ` FROM waitlist_entries
               WHERE slot_id = ? ORDER BY position`
    rows, err := r.db.QueryContext(ctx, q, slotID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    entries := make([]model.WaitlistEntry, 0)
    for rows.Next() {
        e, err := scanWaitlistEntry(rows.Scan)
        if err != nil {
            return nil, err
        }
        entries = append(entries, *e)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return entries, nil
}

// ListByUser returns the user's waitlist entries across slots,
// newest first.
func (r *WaitlistRepo) ListByUser(ctx context.Context, userID uint64) ([]model.WaitlistEntry, error) {
    const q = `SELECT ` + waitlistColumns + ` FROM waitlist_entries
               WHERE user_id = ? ORDER BY created_at DESC`
    rows, err := r.db.QueryContext(ctx, q, userID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    entries := make([]model.WaitlistEntry, 0)
    for rows.Next() {
        e, err := scanWaitlistEntry(rows.Scan)
        if err != nil {
            return nil, err
        }
        entries = append(entries, *e)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return entries, nil
}
