package handler

import (
    "context"
    "net/http"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/table-slot-booking/internal/booking"
    "github.com/iliyamo/table-slot-booking/internal/model"
    "github.com/iliyamo/table-slot-booking/internal/repository"
    "github.com/iliyamo/table-slot-booking/internal/webhook"
)

type fakeExporter struct {
    sent []webhook.ExportPayload
    err  error
}

func (f *fakeExporter) Send(_ context.Context, _ string, payload webhook.ExportPayload) error {
    if f.err != nil {
        return f.err
    }
    f.sent = append(f.sent, payload)
    return nil
}

func newOwnerHandler(core Core) *OwnerHandler {
    return NewOwnerHandler(core,
        repository.NewSlotRepo(nil),
        repository.NewBookingRepo(nil),
        repository.NewWaitlistRepo(nil),
        repository.NewUserRepo(nil),
        &fakeExporter{})
}

func TestDrawWinnersHandler(t *testing.T) {
    core := &fakeCore{
        draw: func(_ context.Context, slotID, ownerID uint64, count uint32, rejectOthers bool) (*booking.DrawResult, error) {
            assert.Equal(t, uint64(7), slotID)
            assert.Equal(t, uint64(1), ownerID)
            assert.Equal(t, uint32(2), count)
            assert.True(t, rejectOthers)
            return &booking.DrawResult{
                Winners:  []model.Booking{{ID: 11, SlotID: slotID, Status: model.StatusConfirmed}},
                Rejected: []model.Booking{{ID: 12, SlotID: slotID, Status: model.StatusCancelled}},
            }, nil
        },
    }
    h := newOwnerHandler(core)
    c, rec := newRequest(http.MethodPost, "/v1/owner/slots/7/draw", `{"winners_count":2,"reject_others":true}`, 1, "id", "7")

    require.NoError(t, h.DrawWinners(c))
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Contains(t, rec.Body.String(), `"winners"`)
    assert.Contains(t, rec.Body.String(), `"rejected"`)
}

func TestDrawWinnersHandlerNoPool(t *testing.T) {
    core := &fakeCore{
        draw: func(_ context.Context, _, _ uint64, _ uint32, _ bool) (*booking.DrawResult, error) {
            return nil, booking.ErrNoSpotsAvailable
        },
    }
    h := newOwnerHandler(core)
    c, rec := newRequest(http.MethodPost, "/v1/owner/slots/7/draw", `{"winners_count":1}`, 1, "id", "7")

    require.NoError(t, h.DrawWinners(c))
    assert.Equal(t, http.StatusConflict, rec.Code)
    assert.Contains(t, rec.Body.String(), "no spots available")
}

func TestDrawWinnersHandlerForbidden(t *testing.T) {
    core := &fakeCore{
        draw: func(_ context.Context, _, _ uint64, _ uint32, _ bool) (*booking.DrawResult, error) {
            return nil, booking.ErrForbidden
        },
    }
    h := newOwnerHandler(core)
    c, rec := newRequest(http.MethodPost, "/v1/owner/slots/7/draw", `{"winners_count":1}`, 3, "id", "7")

    require.NoError(t, h.DrawWinners(c))
    assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestConfirmEntryHandler(t *testing.T) {
    core := &fakeCore{
        confirmEntry: func(_ context.Context, bookingID, ownerID uint64) (*model.Booking, error) {
            assert.Equal(t, uint64(11), bookingID)
            return &model.Booking{ID: bookingID, Status: model.StatusConfirmed}, nil
        },
    }
    h := newOwnerHandler(core)
    c, rec := newRequest(http.MethodPost, "/v1/owner/bookings/11/confirm", "", 1, "id", "11")

    require.NoError(t, h.ConfirmEntry(c))
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Contains(t, rec.Body.String(), `"status":"CONFIRMED"`)
}

func TestConfirmEntryHandlerNoCapacity(t *testing.T) {
    core := &fakeCore{
        confirmEntry: func(_ context.Context, _, _ uint64) (*model.Booking, error) {
            return nil, booking.ErrNoSpotsAvailable
        },
    }
    h := newOwnerHandler(core)
    c, rec := newRequest(http.MethodPost, "/v1/owner/bookings/11/confirm", "", 1, "id", "11")

    require.NoError(t, h.ConfirmEntry(c))
    assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRejectEntryHandler(t *testing.T) {
    core := &fakeCore{
        rejectEntry: func(_ context.Context, bookingID, ownerID uint64) (*model.Booking, error) {
            return &model.Booking{ID: bookingID, Status: model.StatusCancelled}, nil
        },
    }
    h := newOwnerHandler(core)
    c, rec := newRequest(http.MethodPost, "/v1/owner/bookings/11/reject", "", 1, "id", "11")

    require.NoError(t, h.RejectEntry(c))
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Contains(t, rec.Body.String(), `"status":"CANCELLED"`)
}

func TestRejectEntryHandlerWrongState(t *testing.T) {
    core := &fakeCore{
        rejectEntry: func(_ context.Context, _, _ uint64) (*model.Booking, error) {
            return nil, booking.ErrInvalidState
        },
    }
    h := newOwnerHandler(core)
    c, rec := newRequest(http.MethodPost, "/v1/owner/bookings/11/reject", "", 1, "id", "11")

    require.NoError(t, h.RejectEntry(c))
    assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestDeleteSlotHandler(t *testing.T) {
    core := &fakeCore{
        deleteSlot: func(_ context.Context, slotID, ownerID uint64) error {
            assert.Equal(t, uint64(7), slotID)
            assert.Equal(t, uint64(1), ownerID)
            return nil
        },
    }
    h := newOwnerHandler(core)
    c, rec := newRequest(http.MethodDelete, "/v1/owner/slots/7", "", 1, "id", "7")

    require.NoError(t, h.DeleteSlot(c))
    assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestDeleteSlotHandlerNotFound(t *testing.T) {
    core := &fakeCore{
        deleteSlot: func(_ context.Context, _, _ uint64) error { return booking.ErrNotFound },
    }
    h := newOwnerHandler(core)
    c, rec := newRequest(http.MethodDelete, "/v1/owner/slots/7", "", 1, "id", "7")

    require.NoError(t, h.DeleteSlot(c))
    assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOwnerCancelBookingHandler(t *testing.T) {
    core := &fakeCore{
        cancel: func(_ context.Context, bookingID, actorID uint64) (*model.Booking, error) {
            assert.Equal(t, uint64(1), actorID)
            return &model.Booking{ID: bookingID, Status: model.StatusCancelled}, nil
        },
    }
    h := newOwnerHandler(core)
    c, rec := newRequest(http.MethodDelete, "/v1/owner/bookings/11", "", 1, "id", "11")

    require.NoError(t, h.CancelBooking(c))
    assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateSlotHandlerValidation(t *testing.T) {
    h := newOwnerHandler(&fakeCore{})

    cases := []struct {
        name string
        body string
        want string
    }{
        {"missing name", `{"date":"2026-09-01","starts_at":"2026-09-01T18:00:00Z","total_tables":4}`, "name is required"},
        {"zero tables", `{"name":"dinner","date":"2026-09-01","starts_at":"2026-09-01T18:00:00Z","total_tables":0}`, "total_tables"},
        {"bad mode", `{"name":"dinner","date":"2026-09-01","starts_at":"2026-09-01T18:00:00Z","total_tables":4,"booking_mode":"RAFFLE"}`, "booking_mode"},
        {"bad date", `{"name":"dinner","date":"soon","starts_at":"2026-09-01T18:00:00Z","total_tables":4}`, "invalid date"},
        {"bad starts_at", `{"name":"dinner","date":"2026-09-01","starts_at":"evening","total_tables":4}`, "starts_at"},
        {"ends before starts", `{"name":"dinner","date":"2026-09-01","starts_at":"2026-09-01T18:00:00Z","ends_at":"2026-09-01T17:00:00Z","total_tables":4}`, "ends_at"},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            c, rec := newRequest(http.MethodPost, "/v1/owner/slots", tc.body, 1)
            require.NoError(t, h.CreateSlot(c))
            assert.Equal(t, http.StatusBadRequest, rec.Code)
            assert.Contains(t, rec.Body.String(), tc.want)
        })
    }
}

func TestExportParticipantsHandlerRequiresURL(t *testing.T) {
    h := newOwnerHandler(&fakeCore{})
    c, rec := newRequest(http.MethodPost, "/v1/owner/slots/7/export", `{}`, 1, "id", "7")

    require.NoError(t, h.ExportParticipants(c))
    assert.Equal(t, http.StatusBadRequest, rec.Code)
    assert.Contains(t, rec.Body.String(), "webhook_url is required")
}
