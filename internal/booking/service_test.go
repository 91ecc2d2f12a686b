package booking

import (
    "context"
    "database/sql"
    "sort"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/table-slot-booking/internal/model"
    "github.com/iliyamo/table-slot-booking/internal/queue"
    "github.com/iliyamo/table-slot-booking/internal/repository"
)

// memStore is an in-memory stand-in for the three repositories.  It
// reproduces the observable contract of the SQL layer: conditional
// ledger updates, sentinel errors and position assignment.  Row
// locking is irrelevant here because tests are single-goroutine.
type memStore struct {
    slots    map[uint64]*model.Slot
    bookings map[uint64]*model.Booking
    waitlist map[uint64]*model.WaitlistEntry

    nextBookingID uint64
    nextEntryID   uint64

    // lockLog records row locks in acquisition order ("slot" or
    // "booking") so tests can pin the lock ordering of writers.
    lockLog []string
}

func newMemStore() *memStore {
    return &memStore{
        slots:    make(map[uint64]*model.Slot),
        bookings: make(map[uint64]*model.Booking),
        waitlist: make(map[uint64]*model.WaitlistEntry),
    }
}

func (m *memStore) addSlot(s model.Slot) *model.Slot {
    cp := s
    m.slots[cp.ID] = &cp
    return &cp
}

// SlotStore

func (m *memStore) GetTx(_ context.Context, _ *sql.Tx, slotID uint64) (*model.Slot, error) {
    s, ok := m.slots[slotID]
    if !ok {
        return nil, repository.ErrSlotNotFound
    }
    cp := *s
    return &cp, nil
}

func (m *memStore) GetForUpdateTx(ctx context.Context, tx *sql.Tx, slotID uint64) (*model.Slot, error) {
    m.lockLog = append(m.lockLog, "slot")
    return m.GetTx(ctx, tx, slotID)
}

func (m *memStore) IncrementBookedTx(_ context.Context, _ *sql.Tx, slotID uint64, amount uint32) error {
    s, ok := m.slots[slotID]
    if !ok {
        return repository.ErrSlotNotFound
    }
    if s.BookedTables+amount > s.TotalTables {
        return repository.ErrCapacityExceeded
    }
    s.BookedTables += amount
    return nil
}

func (m *memStore) DecrementBookedTx(_ context.Context, _ *sql.Tx, slotID uint64, amount uint32) error {
    s, ok := m.slots[slotID]
    if !ok {
        return repository.ErrSlotNotFound
    }
    if s.BookedTables < amount {
        return repository.ErrInvalidState
    }
    s.BookedTables -= amount
    return nil
}

func (m *memStore) DeleteTx(_ context.Context, _ *sql.Tx, slotID uint64) error {
    if _, ok := m.slots[slotID]; !ok {
        return repository.ErrSlotNotFound
    }
    delete(m.slots, slotID)
    return nil
}

// BookingStore

func (m *memStore) CreateTx(_ context.Context, _ *sql.Tx, b *model.Booking) error {
    m.nextBookingID++
    b.ID = m.nextBookingID
    cp := *b
    m.bookings[b.ID] = &cp
    return nil
}

func (m *memStore) bookingByID(bookingID uint64) (*model.Booking, error) {
    b, ok := m.bookings[bookingID]
    if !ok {
        return nil, sql.ErrNoRows
    }
    cp := *b
    return &cp, nil
}

func (m *memStore) HasActiveTx(_ context.Context, _ *sql.Tx, slotID, userID uint64) (bool, error) {
    for _, b := range m.bookings {
        if b.SlotID == slotID && b.UserID == userID && b.Status != model.StatusCancelled {
            return true, nil
        }
    }
    return false, nil
}

func (m *memStore) UpdateStatusTx(_ context.Context, _ *sql.Tx, bookingID uint64, status model.BookingStatus) error {
    b, ok := m.bookings[bookingID]
    if !ok {
        return sql.ErrNoRows
    }
    b.Status = status
    return nil
}

func (m *memStore) PendingBySlotForUpdateTx(_ context.Context, _ *sql.Tx, slotID uint64) ([]model.Booking, error) {
    m.lockLog = append(m.lockLog, "booking")
    out := []model.Booking{}
    ids := make([]uint64, 0, len(m.bookings))
    for id := range m.bookings {
        ids = append(ids, id)
    }
    sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
    for _, id := range ids {
        b := m.bookings[id]
        if b.SlotID == slotID && b.Status == model.StatusPendingLottery {
            out = append(out, *b)
        }
    }
    return out, nil
}

func (m *memStore) CancelAllBySlotTx(_ context.Context, _ *sql.Tx, slotID uint64) (int64, error) {
    var n int64
    for _, b := range m.bookings {
        if b.SlotID == slotID && b.Status != model.StatusCancelled {
            b.Status = model.StatusCancelled
            n++
        }
    }
    return n, nil
}

func (m *memStore) DeleteBySlotTx(_ context.Context, _ *sql.Tx, slotID uint64) error {
    for id, b := range m.bookings {
        if b.SlotID == slotID {
            delete(m.bookings, id)
        }
    }
    return nil
}

// bookingStoreAdapter separates the booking-flavored Get methods
// that would otherwise collide with the slot ones on memStore.
type bookingStoreAdapter struct{ *memStore }

func (a bookingStoreAdapter) GetTx(_ context.Context, _ *sql.Tx, bookingID uint64) (*model.Booking, error) {
    return a.bookingByID(bookingID)
}

func (a bookingStoreAdapter) GetForUpdateTx(_ context.Context, _ *sql.Tx, bookingID uint64) (*model.Booking, error) {
    a.lockLog = append(a.lockLog, "booking")
    return a.bookingByID(bookingID)
}

// WaitlistStore

type waitlistStoreAdapter struct{ *memStore }

func (a waitlistStoreAdapter) CreateTx(_ context.Context, _ *sql.Tx, e *model.WaitlistEntry) error {
    m := a.memStore
    var max uint32
    for _, we := range m.waitlist {
        if we.SlotID == e.SlotID && we.Position > max {
            max = we.Position
        }
    }
    m.nextEntryID++
    e.ID = m.nextEntryID
    e.Position = max + 1
    cp := *e
    m.waitlist[e.ID] = &cp
    return nil
}

func (a waitlistStoreAdapter) GetByID(_ context.Context, entryID uint64) (*model.WaitlistEntry, error) {
    e, ok := a.waitlist[entryID]
    if !ok {
        return nil, sql.ErrNoRows
    }
    cp := *e
    return &cp, nil
}

func (a waitlistStoreAdapter) HasEntryTx(_ context.Context, _ *sql.Tx, slotID, userID uint64) (bool, error) {
    for _, e := range a.waitlist {
        if e.SlotID == slotID && e.UserID == userID {
            return true, nil
        }
    }
    return false, nil
}

func (a waitlistStoreAdapter) FirstBySlotForUpdateTx(_ context.Context, _ *sql.Tx, slotID uint64) (*model.WaitlistEntry, error) {
    var first *model.WaitlistEntry
    for _, e := range a.waitlist {
        if e.SlotID != slotID {
            continue
        }
        if first == nil || e.Position < first.Position {
            first = e
        }
    }
    if first == nil {
        return nil, sql.ErrNoRows
    }
    cp := *first
    return &cp, nil
}

func (a waitlistStoreAdapter) DeleteTx(_ context.Context, _ *sql.Tx, entryID uint64) error {
    if _, ok := a.waitlist[entryID]; !ok {
        return sql.ErrNoRows
    }
    delete(a.waitlist, entryID)
    return nil
}

func (a waitlistStoreAdapter) DeleteBySlotTx(_ context.Context, _ *sql.Tx, slotID uint64) error {
    for id, e := range a.waitlist {
        if e.SlotID == slotID {
            delete(a.waitlist, id)
        }
    }
    return nil
}

// passTx runs the function without a real transaction; the fakes
// mutate shared state directly.
type passTx struct{}

func (passTx) RunTx(_ context.Context, fn func(tx *sql.Tx) error) error { return fn(nil) }

// recordPublisher captures events for assertions.
type recordPublisher struct{ events []queue.BookingEvent }

func (p *recordPublisher) PublishBookingEvent(_ context.Context, ev queue.BookingEvent) error {
    p.events = append(p.events, ev)
    return nil
}

func newTestService(m *memStore) (*Service, *recordPublisher) {
    pub := &recordPublisher{}
    svc := NewService(passTx{}, m, bookingStoreAdapter{m}, waitlistStoreAdapter{m}, pub)
    return svc, pub
}

const (
    ownerID    = uint64(1)
    customerID = uint64(2)
    otherID    = uint64(3)
)

func fcfsSlot(id uint64, total, booked uint32) model.Slot {
    return model.Slot{ID: id, OwnerID: ownerID, Name: "friday dinner", TotalTables: total, BookedTables: booked, BookingMode: model.ModeFCFS}
}

func lotterySlot(id uint64, total, booked uint32) model.Slot {
    return model.Slot{ID: id, OwnerID: ownerID, Name: "tasting menu", TotalTables: total, BookedTables: booked, BookingMode: model.ModeLottery}
}

func TestRequestSeatFCFSConfirms(t *testing.T) {
    m := newMemStore()
    m.addSlot(fcfsSlot(10, 3, 0))
    svc, pub := newTestService(m)

    b, err := svc.RequestSeat(context.Background(), 10, customerID, "Ada", "ada@example.com", 2)
    require.NoError(t, err)
    assert.Equal(t, model.StatusConfirmed, b.Status)
    assert.Equal(t, uint32(2), b.PartySize)
    assert.Equal(t, uint32(1), m.slots[10].BookedTables)
    require.Len(t, pub.events, 1)
    assert.Equal(t, queue.TypeBooking, pub.events[0].BookingType)
    assert.Equal(t, "friday dinner", pub.events[0].SlotName)
}

func TestRequestSeatDefaultsPartySize(t *testing.T) {
    m := newMemStore()
    m.addSlot(fcfsSlot(10, 3, 0))
    svc, _ := newTestService(m)

    b, err := svc.RequestSeat(context.Background(), 10, customerID, "Ada", "", 0)
    require.NoError(t, err)
    assert.Equal(t, uint32(1), b.PartySize)
}

func TestRequestSeatFCFSFull(t *testing.T) {
    m := newMemStore()
    m.addSlot(fcfsSlot(10, 2, 2))
    svc, pub := newTestService(m)

    _, err := svc.RequestSeat(context.Background(), 10, customerID, "Ada", "", 1)
    assert.ErrorIs(t, err, ErrSlotFull)
    assert.Equal(t, uint32(2), m.slots[10].BookedTables)
    assert.Empty(t, m.bookings)
    assert.Empty(t, pub.events)
}

func TestRequestSeatLotteryPends(t *testing.T) {
    m := newMemStore()
    m.addSlot(lotterySlot(10, 2, 0))
    svc, pub := newTestService(m)

    b, err := svc.RequestSeat(context.Background(), 10, customerID, "Ada", "", 1)
    require.NoError(t, err)
    assert.Equal(t, model.StatusPendingLottery, b.Status)
    // pending entries are never counted
    assert.Equal(t, uint32(0), m.slots[10].BookedTables)
    assert.Empty(t, pub.events)
}

func TestRequestSeatLotteryPoolUnbounded(t *testing.T) {
    m := newMemStore()
    m.addSlot(lotterySlot(10, 1, 0))
    svc, _ := newTestService(m)

    // Far more entries than capacity; all accepted into the pool.
    for uid := uint64(100); uid < 110; uid++ {
        _, err := svc.RequestSeat(context.Background(), 10, uid, "G", "", 1)
        require.NoError(t, err)
    }
    pending, _ := m.PendingBySlotForUpdateTx(context.Background(), nil, 10)
    assert.Len(t, pending, 10)
    assert.Equal(t, uint32(0), m.slots[10].BookedTables)
}

func TestRequestSeatDuplicate(t *testing.T) {
    m := newMemStore()
    m.addSlot(fcfsSlot(10, 3, 0))
    svc, _ := newTestService(m)

    _, err := svc.RequestSeat(context.Background(), 10, customerID, "Ada", "", 1)
    require.NoError(t, err)
    _, err = svc.RequestSeat(context.Background(), 10, customerID, "Ada", "", 1)
    assert.ErrorIs(t, err, ErrDuplicateBooking)
}

func TestRequestSeatAfterCancelAllowed(t *testing.T) {
    m := newMemStore()
    m.addSlot(fcfsSlot(10, 3, 0))
    svc, _ := newTestService(m)

    b, err := svc.RequestSeat(context.Background(), 10, customerID, "Ada", "", 1)
    require.NoError(t, err)
    _, err = svc.CancelBooking(context.Background(), b.ID, customerID)
    require.NoError(t, err)

    // a cancelled booking no longer blocks a new one
    _, err = svc.RequestSeat(context.Background(), 10, customerID, "Ada", "", 1)
    assert.NoError(t, err)
}

func TestRequestSeatUnknownSlot(t *testing.T) {
    m := newMemStore()
    svc, _ := newTestService(m)

    _, err := svc.RequestSeat(context.Background(), 99, customerID, "Ada", "", 1)
    assert.ErrorIs(t, err, ErrNotFound)
}

func TestDrawWinnersCappedByCapacity(t *testing.T) {
    m := newMemStore()
    m.addSlot(lotterySlot(10, 5, 3)) // two tables left
    svc, pub := newTestService(m)
    for uid := uint64(100); uid < 105; uid++ {
        _, err := svc.RequestSeat(context.Background(), 10, uid, "G", "", 1)
        require.NoError(t, err)
    }

    res, err := svc.DrawWinners(context.Background(), 10, ownerID, 10, false)
    require.NoError(t, err)
    assert.Len(t, res.Winners, 2)
    assert.Empty(t, res.Rejected)
    assert.Equal(t, uint32(5), m.slots[10].BookedTables)

    // losers stay pending for a later draw
    pending, _ := m.PendingBySlotForUpdateTx(context.Background(), nil, 10)
    assert.Len(t, pending, 3)
    for _, w := range res.Winners {
        assert.Equal(t, model.StatusConfirmed, m.bookings[w.ID].Status)
    }
    assert.Len(t, pub.events, 2)
}

func TestDrawWinnersCappedByPool(t *testing.T) {
    m := newMemStore()
    m.addSlot(lotterySlot(10, 10, 0))
    svc, _ := newTestService(m)
    for uid := uint64(100); uid < 103; uid++ {
        _, err := svc.RequestSeat(context.Background(), 10, uid, "G", "", 1)
        require.NoError(t, err)
    }

    res, err := svc.DrawWinners(context.Background(), 10, ownerID, 7, false)
    require.NoError(t, err)
    assert.Len(t, res.Winners, 3)
    assert.Equal(t, uint32(3), m.slots[10].BookedTables)
}

func TestDrawWinnersRejectOthers(t *testing.T) {
    m := newMemStore()
    m.addSlot(lotterySlot(10, 1, 0))
    svc, _ := newTestService(m)
    for uid := uint64(100); uid < 104; uid++ {
        _, err := svc.RequestSeat(context.Background(), 10, uid, "G", "", 1)
        require.NoError(t, err)
    }

    res, err := svc.DrawWinners(context.Background(), 10, ownerID, 1, true)
    require.NoError(t, err)
    assert.Len(t, res.Winners, 1)
    assert.Len(t, res.Rejected, 3)
    for _, r := range res.Rejected {
        assert.Equal(t, model.StatusCancelled, m.bookings[r.ID].Status)
    }
    pending, _ := m.PendingBySlotForUpdateTx(context.Background(), nil, 10)
    assert.Empty(t, pending)
    // rejected entries never touch the ledger
    assert.Equal(t, uint32(1), m.slots[10].BookedTables)
}

func TestDrawWinnersRejectOthersBlocksRedraw(t *testing.T) {
    m := newMemStore()
    m.addSlot(lotterySlot(10, 5, 0))
    svc, _ := newTestService(m)
    for uid := uint64(100); uid < 104; uid++ {
        _, err := svc.RequestSeat(context.Background(), 10, uid, "G", "", 1)
        require.NoError(t, err)
    }

    first, err := svc.DrawWinners(context.Background(), 10, ownerID, 1, true)
    require.NoError(t, err)
    require.Len(t, first.Winners, 1)
    require.Len(t, first.Rejected, 3)

    // the rejected entries are cancelled, not pending, so a second
    // draw finds an empty pool and changes nothing
    _, err = svc.DrawWinners(context.Background(), 10, ownerID, 1, true)
    assert.ErrorIs(t, err, ErrNoSpotsAvailable)
    assert.Equal(t, uint32(1), m.slots[10].BookedTables)
}

func TestRedrawPicksOnlyPendingEntries(t *testing.T) {
    m := newMemStore()
    m.addSlot(lotterySlot(10, 10, 0))
    svc, _ := newTestService(m)
    for uid := uint64(100); uid < 104; uid++ {
        _, err := svc.RequestSeat(context.Background(), 10, uid, "G", "", 1)
        require.NoError(t, err)
    }

    first, err := svc.DrawWinners(context.Background(), 10, ownerID, 2, false)
    require.NoError(t, err)
    require.Len(t, first.Winners, 2)

    second, err := svc.DrawWinners(context.Background(), 10, ownerID, 10, false)
    require.NoError(t, err)
    assert.Len(t, second.Winners, 2)
    taken := map[uint64]bool{}
    for _, w := range first.Winners {
        taken[w.ID] = true
    }
    for _, w := range second.Winners {
        assert.False(t, taken[w.ID], "redraw re-selected booking %d", w.ID)
    }
    assert.Equal(t, uint32(4), m.slots[10].BookedTables)
}

func TestDrawWinnersEmptyPool(t *testing.T) {
    m := newMemStore()
    m.addSlot(lotterySlot(10, 5, 0))
    svc, _ := newTestService(m)

    _, err := svc.DrawWinners(context.Background(), 10, ownerID, 3, false)
    assert.ErrorIs(t, err, ErrNoSpotsAvailable)
}

func TestDrawWinnersFullSlot(t *testing.T) {
    m := newMemStore()
    m.addSlot(lotterySlot(10, 2, 2))
    svc, _ := newTestService(m)
    _, err := svc.RequestSeat(context.Background(), 10, customerID, "G", "", 1)
    require.NoError(t, err)

    _, err = svc.DrawWinners(context.Background(), 10, ownerID, 1, false)
    assert.ErrorIs(t, err, ErrNoSpotsAvailable)
    // the pending entry is untouched
    pending, _ := m.PendingBySlotForUpdateTx(context.Background(), nil, 10)
    assert.Len(t, pending, 1)
}

func TestDrawWinnersZeroCount(t *testing.T) {
    m := newMemStore()
    m.addSlot(lotterySlot(10, 5, 0))
    svc, _ := newTestService(m)
    _, err := svc.RequestSeat(context.Background(), 10, customerID, "G", "", 1)
    require.NoError(t, err)

    _, err = svc.DrawWinners(context.Background(), 10, ownerID, 0, false)
    assert.ErrorIs(t, err, ErrNoSpotsAvailable)
}

func TestDrawWinnersNotOwner(t *testing.T) {
    m := newMemStore()
    m.addSlot(lotterySlot(10, 5, 0))
    svc, _ := newTestService(m)

    _, err := svc.DrawWinners(context.Background(), 10, otherID, 1, false)
    assert.ErrorIs(t, err, ErrForbidden)
}

func TestConfirmLotteryWinner(t *testing.T) {
    m := newMemStore()
    m.addSlot(lotterySlot(10, 1, 0))
    svc, pub := newTestService(m)
    b, err := svc.RequestSeat(context.Background(), 10, customerID, "Ada", "ada@example.com", 1)
    require.NoError(t, err)

    got, err := svc.ConfirmLotteryWinner(context.Background(), b.ID, ownerID)
    require.NoError(t, err)
    assert.Equal(t, model.StatusConfirmed, got.Status)
    assert.Equal(t, uint32(1), m.slots[10].BookedTables)
    require.Len(t, pub.events, 1)
    assert.Equal(t, queue.TypeBooking, pub.events[0].BookingType)
}

func TestConfirmLotteryWinnerNoCapacity(t *testing.T) {
    m := newMemStore()
    m.addSlot(lotterySlot(10, 1, 1))
    svc, _ := newTestService(m)
    b, err := svc.RequestSeat(context.Background(), 10, customerID, "Ada", "", 1)
    require.NoError(t, err)

    _, err = svc.ConfirmLotteryWinner(context.Background(), b.ID, ownerID)
    assert.ErrorIs(t, err, ErrNoSpotsAvailable)
    assert.Equal(t, model.StatusPendingLottery, m.bookings[b.ID].Status)
}

func TestConfirmLotteryWinnerWrongState(t *testing.T) {
    m := newMemStore()
    m.addSlot(fcfsSlot(10, 2, 0))
    svc, _ := newTestService(m)
    b, err := svc.RequestSeat(context.Background(), 10, customerID, "Ada", "", 1)
    require.NoError(t, err)

    // already confirmed by FCFS admission
    _, err = svc.ConfirmLotteryWinner(context.Background(), b.ID, ownerID)
    assert.ErrorIs(t, err, ErrInvalidState)
}

func TestConfirmLotteryWinnerNotOwner(t *testing.T) {
    m := newMemStore()
    m.addSlot(lotterySlot(10, 1, 0))
    svc, _ := newTestService(m)
    b, err := svc.RequestSeat(context.Background(), 10, customerID, "Ada", "", 1)
    require.NoError(t, err)

    _, err = svc.ConfirmLotteryWinner(context.Background(), b.ID, otherID)
    assert.ErrorIs(t, err, ErrForbidden)
}

func TestRejectLotteryEntry(t *testing.T) {
    m := newMemStore()
    m.addSlot(lotterySlot(10, 1, 0))
    svc, _ := newTestService(m)
    b, err := svc.RequestSeat(context.Background(), 10, customerID, "Ada", "", 1)
    require.NoError(t, err)

    got, err := svc.RejectLotteryEntry(context.Background(), b.ID, ownerID)
    require.NoError(t, err)
    assert.Equal(t, model.StatusCancelled, got.Status)
    assert.Equal(t, uint32(0), m.slots[10].BookedTables)
}

func TestRejectLotteryEntryNotOwner(t *testing.T) {
    m := newMemStore()
    m.addSlot(lotterySlot(10, 1, 0))
    svc, _ := newTestService(m)
    b, err := svc.RequestSeat(context.Background(), 10, customerID, "Ada", "", 1)
    require.NoError(t, err)

    _, err = svc.RejectLotteryEntry(context.Background(), b.ID, otherID)
    assert.ErrorIs(t, err, ErrForbidden)
}

func TestCancelConfirmedReleasesTable(t *testing.T) {
    m := newMemStore()
    m.addSlot(fcfsSlot(10, 2, 0))
    svc, _ := newTestService(m)
    b, err := svc.RequestSeat(context.Background(), 10, customerID, "Ada", "", 1)
    require.NoError(t, err)
    require.Equal(t, uint32(1), m.slots[10].BookedTables)

    got, err := svc.CancelBooking(context.Background(), b.ID, customerID)
    require.NoError(t, err)
    assert.Equal(t, model.StatusCancelled, got.Status)
    assert.Equal(t, uint32(0), m.slots[10].BookedTables)
}

func TestCancelPromotesWaitlistHead(t *testing.T) {
    m := newMemStore()
    m.addSlot(model.Slot{ID: 10, OwnerID: ownerID, Name: "brunch", TotalTables: 1, BookingMode: model.ModeFCFS, WaitlistEnabled: true})
    svc, pub := newTestService(m)

    b, err := svc.RequestSeat(context.Background(), 10, customerID, "Ada", "", 1)
    require.NoError(t, err)
    first, err := svc.JoinWaitlist(context.Background(), 10, 100, "Bea", "bea@example.com", 2)
    require.NoError(t, err)
    _, err = svc.JoinWaitlist(context.Background(), 10, 101, "Cal", "", 1)
    require.NoError(t, err)

    pub.events = nil
    _, err = svc.CancelBooking(context.Background(), b.ID, customerID)
    require.NoError(t, err)

    // the freed table went straight to the queue head
    assert.Equal(t, uint32(1), m.slots[10].BookedTables)
    _, stillQueued := m.waitlist[first.ID]
    assert.False(t, stillQueued)
    var promoted *model.Booking
    for _, bb := range m.bookings {
        if bb.UserID == 100 {
            promoted = bb
        }
    }
    require.NotNil(t, promoted)
    assert.Equal(t, model.StatusConfirmed, promoted.Status)
    assert.Equal(t, "Bea", promoted.GuestName)
    assert.Equal(t, uint32(2), promoted.PartySize)
    require.Len(t, pub.events, 1)
    assert.Equal(t, queue.TypePromotion, pub.events[0].BookingType)

    // second entry stays queued at its original position
    require.Len(t, m.waitlist, 1)
    for _, e := range m.waitlist {
        assert.Equal(t, uint32(2), e.Position)
    }
}

func TestCancelPendingLotteryLeavesLedger(t *testing.T) {
    m := newMemStore()
    m.addSlot(model.Slot{ID: 10, OwnerID: ownerID, TotalTables: 1, BookedTables: 1, BookingMode: model.ModeLottery, WaitlistEnabled: true})
    svc, pub := newTestService(m)
    b, err := svc.RequestSeat(context.Background(), 10, customerID, "Ada", "", 1)
    require.NoError(t, err)
    _, err = svc.JoinWaitlist(context.Background(), 10, 100, "Bea", "", 1)
    require.NoError(t, err)
    pub.events = nil

    _, err = svc.CancelBooking(context.Background(), b.ID, customerID)
    require.NoError(t, err)
    // no table was held, so none is freed and nobody is promoted
    assert.Equal(t, uint32(1), m.slots[10].BookedTables)
    assert.Len(t, m.waitlist, 1)
    assert.Empty(t, pub.events)
}

func TestCancelTwice(t *testing.T) {
    m := newMemStore()
    m.addSlot(fcfsSlot(10, 2, 0))
    svc, _ := newTestService(m)
    b, err := svc.RequestSeat(context.Background(), 10, customerID, "Ada", "", 1)
    require.NoError(t, err)

    _, err = svc.CancelBooking(context.Background(), b.ID, customerID)
    require.NoError(t, err)
    _, err = svc.CancelBooking(context.Background(), b.ID, customerID)
    assert.ErrorIs(t, err, ErrInvalidState)
    // the second attempt must not decrement again
    assert.Equal(t, uint32(0), m.slots[10].BookedTables)
}

func TestCancelByOwnerAllowed(t *testing.T) {
    m := newMemStore()
    m.addSlot(fcfsSlot(10, 2, 0))
    svc, _ := newTestService(m)
    b, err := svc.RequestSeat(context.Background(), 10, customerID, "Ada", "", 1)
    require.NoError(t, err)

    _, err = svc.CancelBooking(context.Background(), b.ID, ownerID)
    assert.NoError(t, err)
}

func TestCancelByStrangerForbidden(t *testing.T) {
    m := newMemStore()
    m.addSlot(fcfsSlot(10, 2, 0))
    svc, _ := newTestService(m)
    b, err := svc.RequestSeat(context.Background(), 10, customerID, "Ada", "", 1)
    require.NoError(t, err)

    _, err = svc.CancelBooking(context.Background(), b.ID, otherID)
    assert.ErrorIs(t, err, ErrForbidden)
    assert.Equal(t, model.StatusConfirmed, m.bookings[b.ID].Status)
}

func TestWritersLockSlotBeforeBooking(t *testing.T) {
    m := newMemStore()
    m.addSlot(lotterySlot(10, 2, 0))
    svc, _ := newTestService(m)
    b, err := svc.RequestSeat(context.Background(), 10, customerID, "Ada", "", 1)
    require.NoError(t, err)
    _, err = svc.RequestSeat(context.Background(), 10, 100, "Bea", "", 1)
    require.NoError(t, err)

    // Every writer that touches both rows takes the slot lock first;
    // a single shared order means two of them can never deadlock.
    m.lockLog = nil
    _, err = svc.ConfirmLotteryWinner(context.Background(), b.ID, ownerID)
    require.NoError(t, err)
    assert.Equal(t, []string{"slot", "booking"}, m.lockLog)

    m.lockLog = nil
    _, err = svc.DrawWinners(context.Background(), 10, ownerID, 1, false)
    require.NoError(t, err)
    assert.Equal(t, []string{"slot", "booking"}, m.lockLog)

    m.lockLog = nil
    _, err = svc.CancelBooking(context.Background(), b.ID, customerID)
    require.NoError(t, err)
    assert.Equal(t, []string{"slot", "booking"}, m.lockLog)
}

func TestCancelUnknownBooking(t *testing.T) {
    m := newMemStore()
    svc, _ := newTestService(m)

    _, err := svc.CancelBooking(context.Background(), 99, customerID)
    assert.ErrorIs(t, err, ErrNotFound)
}

func TestJoinWaitlistAssignsIncreasingPositions(t *testing.T) {
    m := newMemStore()
    m.addSlot(model.Slot{ID: 10, OwnerID: ownerID, TotalTables: 1, BookedTables: 1, BookingMode: model.ModeFCFS, WaitlistEnabled: true})
    svc, pub := newTestService(m)

    e1, err := svc.JoinWaitlist(context.Background(), 10, 100, "Bea", "", 1)
    require.NoError(t, err)
    e2, err := svc.JoinWaitlist(context.Background(), 10, 101, "Cal", "", 1)
    require.NoError(t, err)
    assert.Equal(t, uint32(1), e1.Position)
    assert.Equal(t, uint32(2), e2.Position)
    require.Len(t, pub.events, 2)
    assert.Equal(t, queue.TypeWaitlist, pub.events[0].BookingType)
}

func TestJoinWaitlistDisabled(t *testing.T) {
    m := newMemStore()
    m.addSlot(fcfsSlot(10, 1, 1))
    svc, _ := newTestService(m)

    _, err := svc.JoinWaitlist(context.Background(), 10, 100, "Bea", "", 1)
    assert.ErrorIs(t, err, ErrWaitlistDisabled)
}

func TestJoinWaitlistTwice(t *testing.T) {
    m := newMemStore()
    m.addSlot(model.Slot{ID: 10, OwnerID: ownerID, TotalTables: 1, BookedTables: 1, BookingMode: model.ModeFCFS, WaitlistEnabled: true})
    svc, _ := newTestService(m)

    _, err := svc.JoinWaitlist(context.Background(), 10, 100, "Bea", "", 1)
    require.NoError(t, err)
    _, err = svc.JoinWaitlist(context.Background(), 10, 100, "Bea", "", 1)
    assert.ErrorIs(t, err, ErrAlreadyQueued)
}

func TestJoinWaitlistWhileHoldingBooking(t *testing.T) {
    m := newMemStore()
    m.addSlot(model.Slot{ID: 10, OwnerID: ownerID, TotalTables: 5, BookingMode: model.ModeLottery, WaitlistEnabled: true})
    svc, _ := newTestService(m)
    b, err := svc.RequestSeat(context.Background(), 10, customerID, "Ada", "", 1)
    require.NoError(t, err)
    require.Equal(t, model.StatusPendingLottery, b.Status)

    // a pending lottery entry already counts as a live booking
    _, err = svc.JoinWaitlist(context.Background(), 10, customerID, "Ada", "", 1)
    assert.ErrorIs(t, err, ErrDuplicateBooking)
    assert.Empty(t, m.waitlist)

    // same once the entry is confirmed
    _, err = svc.ConfirmLotteryWinner(context.Background(), b.ID, ownerID)
    require.NoError(t, err)
    _, err = svc.JoinWaitlist(context.Background(), 10, customerID, "Ada", "", 1)
    assert.ErrorIs(t, err, ErrDuplicateBooking)

    // a cancelled booking no longer blocks queueing
    _, err = svc.CancelBooking(context.Background(), b.ID, customerID)
    require.NoError(t, err)
    _, err = svc.JoinWaitlist(context.Background(), 10, customerID, "Ada", "", 1)
    assert.NoError(t, err)
}

func TestCancelPromotionSkipsStaleEntry(t *testing.T) {
    m := newMemStore()
    m.addSlot(model.Slot{ID: 10, OwnerID: ownerID, TotalTables: 2, BookingMode: model.ModeFCFS, WaitlistEnabled: true})
    svc, pub := newTestService(m)

    // Bea queues while the slot still has room, then books a table
    // directly; her queue entry is now stale.
    staleEntry, err := svc.JoinWaitlist(context.Background(), 10, 100, "Bea", "", 1)
    require.NoError(t, err)
    _, err = svc.RequestSeat(context.Background(), 10, 100, "Bea", "", 1)
    require.NoError(t, err)
    _, err = svc.JoinWaitlist(context.Background(), 10, 101, "Cal", "", 1)
    require.NoError(t, err)
    b, err := svc.RequestSeat(context.Background(), 10, customerID, "Ada", "", 1)
    require.NoError(t, err)
    require.Equal(t, uint32(2), m.slots[10].BookedTables)

    pub.events = nil
    _, err = svc.CancelBooking(context.Background(), b.ID, customerID)
    require.NoError(t, err)

    // Bea's stale entry is dropped without a second booking; the
    // freed table goes to Cal, the next entry in line.
    _, stillQueued := m.waitlist[staleEntry.ID]
    assert.False(t, stillQueued)
    assert.Empty(t, m.waitlist)
    active := map[uint64]int{}
    for _, bb := range m.bookings {
        if bb.Status != model.StatusCancelled {
            active[bb.UserID]++
        }
    }
    assert.Equal(t, 1, active[100])
    assert.Equal(t, 1, active[101])
    assert.Equal(t, uint32(2), m.slots[10].BookedTables)
    require.Len(t, pub.events, 1)
    assert.Equal(t, queue.TypePromotion, pub.events[0].BookingType)
    assert.Equal(t, "Cal", pub.events[0].CustomerName)
}

func TestLeaveWaitlistKeepsPositions(t *testing.T) {
    m := newMemStore()
    m.addSlot(model.Slot{ID: 10, OwnerID: ownerID, TotalTables: 1, BookedTables: 1, BookingMode: model.ModeFCFS, WaitlistEnabled: true})
    svc, _ := newTestService(m)
    e1, err := svc.JoinWaitlist(context.Background(), 10, 100, "Bea", "", 1)
    require.NoError(t, err)
    _, err = svc.JoinWaitlist(context.Background(), 10, 101, "Cal", "", 1)
    require.NoError(t, err)
    e3, err := svc.JoinWaitlist(context.Background(), 10, 102, "Dee", "", 1)
    require.NoError(t, err)

    require.NoError(t, svc.LeaveWaitlist(context.Background(), e1.ID, 100))
    // remaining positions are untouched, and the next join continues
    // past the highest position ever assigned
    assert.Equal(t, uint32(3), m.waitlist[e3.ID].Position)
    e4, err := svc.JoinWaitlist(context.Background(), 10, 103, "Eve", "", 1)
    require.NoError(t, err)
    assert.Equal(t, uint32(4), e4.Position)
}

func TestLeaveWaitlistAuthorization(t *testing.T) {
    m := newMemStore()
    m.addSlot(model.Slot{ID: 10, OwnerID: ownerID, TotalTables: 1, BookedTables: 1, BookingMode: model.ModeFCFS, WaitlistEnabled: true})
    svc, _ := newTestService(m)
    e, err := svc.JoinWaitlist(context.Background(), 10, 100, "Bea", "", 1)
    require.NoError(t, err)

    assert.ErrorIs(t, svc.LeaveWaitlist(context.Background(), e.ID, otherID), ErrForbidden)
    // the slot owner may remove entries
    assert.NoError(t, svc.LeaveWaitlist(context.Background(), e.ID, ownerID))
    assert.ErrorIs(t, svc.LeaveWaitlist(context.Background(), e.ID, ownerID), ErrNotFound)
}

func TestDeleteSlotCascades(t *testing.T) {
    m := newMemStore()
    m.addSlot(model.Slot{ID: 10, OwnerID: ownerID, TotalTables: 2, BookingMode: model.ModeFCFS, WaitlistEnabled: true})
    svc, _ := newTestService(m)
    _, err := svc.RequestSeat(context.Background(), 10, customerID, "Ada", "", 1)
    require.NoError(t, err)
    _, err = svc.RequestSeat(context.Background(), 10, 100, "Bea", "", 1)
    require.NoError(t, err)
    _, err = svc.JoinWaitlist(context.Background(), 10, 101, "Cal", "", 1)
    require.NoError(t, err)

    require.NoError(t, svc.DeleteSlot(context.Background(), 10, ownerID))
    assert.Empty(t, m.slots)
    assert.Empty(t, m.bookings)
    assert.Empty(t, m.waitlist)
}

func TestDeleteSlotNotOwner(t *testing.T) {
    m := newMemStore()
    m.addSlot(fcfsSlot(10, 2, 0))
    svc, _ := newTestService(m)

    assert.ErrorIs(t, svc.DeleteSlot(context.Background(), 10, otherID), ErrForbidden)
    assert.Len(t, m.slots, 1)
}

func TestDeleteSlotUnknown(t *testing.T) {
    m := newMemStore()
    svc, _ := newTestService(m)
    assert.ErrorIs(t, svc.DeleteSlot(context.Background(), 99, ownerID), ErrNotFound)
}
