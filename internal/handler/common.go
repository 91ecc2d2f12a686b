package handler

import (
    "context"
    "errors"
    "net/http"
    "strconv"
    "time"

    "github.com/iliyamo/table-slot-booking/internal/booking"
    "github.com/iliyamo/table-slot-booking/internal/model"
    "github.com/labstack/echo/v4"
)

// Core is the slice of the booking service consumed by the HTTP
// handlers.  Declaring it here keeps handlers testable with a fake
// implementation instead of a live database.
type Core interface {
    RequestSeat(ctx context.Context, slotID, userID uint64, guestName, guestEmail string, partySize uint32) (*model.Booking, error)
    CancelBooking(ctx context.Context, bookingID, actorID uint64) (*model.Booking, error)
    JoinWaitlist(ctx context.Context, slotID, userID uint64, contactName, contactEmail string, partySize uint32) (*model.WaitlistEntry, error)
    LeaveWaitlist(ctx context.Context, entryID, actorID uint64) error
    DrawWinners(ctx context.Context, slotID, ownerID uint64, winnersCount uint32, rejectOthers bool) (*booking.DrawResult, error)
    ConfirmLotteryWinner(ctx context.Context, bookingID, ownerID uint64) (*model.Booking, error)
    RejectLotteryEntry(ctx context.Context, bookingID, ownerID uint64) (*model.Booking, error)
    DeleteSlot(ctx context.Context, slotID, ownerID uint64) error
}

// getUserID extracts the user_id set by the JWT middleware from the
// echo context and converts it to uint64.
func getUserID(c echo.Context) (uint64, error) {
    v := c.Get("user_id")
    switch t := v.(type) {
    case uint64:
        return t, nil
    case int:
        return uint64(t), nil
    case int64:
        return uint64(t), nil
    case float64:
        return uint64(t), nil
    case string:
        if n, err := strconv.ParseUint(t, 10, 64); err == nil {
            return n, nil
        }
    }
    return 0, errors.New("invalid user_id in context")
}

// pathID parses the named path parameter as a positive uint64.
func pathID(c echo.Context, name string) (uint64, bool) {
    id, err := strconv.ParseUint(c.Param(name), 10, 64)
    if err != nil || id == 0 {
        return 0, false
    }
    return id, true
}

// coreError translates booking service errors into JSON error
// responses.  Every handler that calls into the core funnels its
// error through here so the status mapping stays in one place.
func coreError(c echo.Context, err error) error {
    switch {
    case errors.Is(err, booking.ErrNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
    case errors.Is(err, booking.ErrForbidden):
        return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
    case errors.Is(err, booking.ErrSlotFull):
        return c.JSON(http.StatusConflict, echo.Map{"error": "slot is full"})
    case errors.Is(err, booking.ErrDuplicateBooking):
        return c.JSON(http.StatusConflict, echo.Map{"error": "active booking already exists for this slot"})
    case errors.Is(err, booking.ErrNoSpotsAvailable):
        return c.JSON(http.StatusConflict, echo.Map{"error": "no spots available"})
    case errors.Is(err, booking.ErrWaitlistDisabled):
        return c.JSON(http.StatusConflict, echo.Map{"error": "waitlist is not enabled for this slot"})
    case errors.Is(err, booking.ErrAlreadyQueued):
        return c.JSON(http.StatusConflict, echo.Map{"error": "already on the waitlist for this slot"})
    case errors.Is(err, booking.ErrInvalidState):
        return c.JSON(http.StatusConflict, echo.Map{"error": "booking is not in a state that allows this operation"})
    }
    return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

// slotView is the JSON shape of a slot in API responses.  Remaining
// is derived so clients never have to subtract counters themselves.
type slotView struct {
    ID              uint64  `json:"id"`
    Name            string  `json:"name"`
    Description     string  `json:"description,omitempty"`
    Date            string  `json:"date"`
    StartsAt        string  `json:"starts_at"`
    EndsAt          *string `json:"ends_at,omitempty"`
    TotalTables     uint32  `json:"total_tables"`
    BookedTables    uint32  `json:"booked_tables"`
    Remaining       uint32  `json:"remaining"`
    BookingMode     string  `json:"booking_mode"`
    WaitlistEnabled bool    `json:"waitlist_enabled"`
}

func newSlotView(s *model.Slot) slotView {
    v := slotView{
        ID:              s.ID,
        Name:            s.Name,
        Description:     s.Description,
        Date:            s.Date.Format("2006-01-02"),
        StartsAt:        s.StartsAt.UTC().Format(time.RFC3339),
        TotalTables:     s.TotalTables,
        BookedTables:    s.BookedTables,
        Remaining:       s.Remaining(),
        BookingMode:     string(s.BookingMode),
        WaitlistEnabled: s.WaitlistEnabled,
    }
    if s.EndsAt != nil {
        e := s.EndsAt.UTC().Format(time.RFC3339)
        v.EndsAt = &e
    }
    return v
}

// bookingView is the JSON shape of a booking in API responses.
type bookingView struct {
    ID         uint64 `json:"id"`
    SlotID     uint64 `json:"slot_id"`
    GuestName  string `json:"guest_name"`
    GuestEmail string `json:"guest_email"`
    PartySize  uint32 `json:"party_size"`
    Status     string `json:"status"`
    CreatedAt  string `json:"created_at"`
}

func newBookingView(b *model.Booking) bookingView {
    return bookingView{
        ID:         b.ID,
        SlotID:     b.SlotID,
        GuestName:  b.GuestName,
        GuestEmail: b.GuestEmail,
        PartySize:  b.PartySize,
        Status:     string(b.Status),
        CreatedAt:  b.CreatedAt.UTC().Format(time.RFC3339),
    }
}

func bookingViews(bs []model.Booking) []bookingView {
    out := make([]bookingView, 0, len(bs))
    for i := range bs {
        out = append(out, newBookingView(&bs[i]))
    }
    return out
}

// waitlistView is the JSON shape of a waitlist entry in API responses.
type waitlistView struct {
    ID           uint64 `json:"id"`
    SlotID       uint64 `json:"slot_id"`
    ContactName  string `json:"contact_name"`
    ContactEmail string `json:"contact_email"`
    PartySize    uint32 `json:"party_size"`
    Position     uint32 `json:"position"`
    CreatedAt    string `json:"created_at"`
}

func newWaitlistView(e *model.WaitlistEntry) waitlistView {
    return waitlistView{
        ID:           e.ID,
        SlotID:       e.SlotID,
        ContactName:  e.ContactName,
        ContactEmail: e.ContactEmail,
        PartySize:    e.PartySize,
        Position:     e.Position,
        CreatedAt:    e.CreatedAt.UTC().Format(time.RFC3339),
    }
}

func waitlistViews(es []model.WaitlistEntry) []waitlistView {
    out := make([]waitlistView, 0, len(es))
    for i := range es {
        out = append(out, newWaitlistView(&es[i]))
    }
    return out
}
