package model

import (
    "testing"

    "github.com/stretchr/testify/assert"
)

func TestBookingModeValid(t *testing.T) {
    assert.True(t, ModeFCFS.Valid())
    assert.True(t, ModeLottery.Valid())
    assert.False(t, BookingMode("RAFFLE").Valid())
    assert.False(t, BookingMode("").Valid())
}

func TestSlotRemaining(t *testing.T) {
    s := Slot{TotalTables: 5, BookedTables: 2}
    assert.Equal(t, uint32(3), s.Remaining())

    s.BookedTables = 5
    assert.Equal(t, uint32(0), s.Remaining())

    // never underflows even if counters are inconsistent
    s.BookedTables = 7
    assert.Equal(t, uint32(0), s.Remaining())
}

func TestStatusCounted(t *testing.T) {
    assert.True(t, StatusConfirmed.Counted())
    assert.True(t, StatusCompleted.Counted())
    assert.False(t, StatusPendingLottery.Counted())
    assert.False(t, StatusCancelled.Counted())
}
