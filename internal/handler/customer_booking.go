package handler

import (
    "net/http"

    "github.com/iliyamo/table-slot-booking/internal/repository"
    "github.com/labstack/echo/v4"
)

// CustomerHandler serves booking and waitlist endpoints for
// authenticated customers.  Writes go through the booking core so
// capacity accounting stays atomic; listings read straight from the
// repositories.  Methods assume JWT authentication has already run
// and return 401 when no user ID is present in the context.
type CustomerHandler struct {
    Core         Core                      // admission, cancellation and waitlist operations
    BookingRepo  *repository.BookingRepo   // read access to bookings
    WaitlistRepo *repository.WaitlistRepo  // read access to waitlist entries
}

// NewCustomerHandler constructs a CustomerHandler.  All dependencies
// must be non-nil.
func NewCustomerHandler(core Core, bookingRepo *repository.BookingRepo, waitlistRepo *repository.WaitlistRepo) *CustomerHandler {
    if core == nil || bookingRepo == nil || waitlistRepo == nil {
        panic("nil dependency passed to NewCustomerHandler")
    }
    return &CustomerHandler{Core: core, BookingRepo: bookingRepo, WaitlistRepo: waitlistRepo}
}

// RequestSeat handles POST /v1/slots/:id/bookings.  The body carries
// the guest contact details and party size.  FCFS slots respond 201
// with a CONFIRMED booking; lottery slots respond 202 with a
// PENDING_LOTTERY entry.  A full FCFS slot responds 409.
func (h *CustomerHandler) RequestSeat(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    slotID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid slot id"})
    }
    var body struct {
        GuestName  string `json:"guest_name"`
        GuestEmail string `json:"guest_email"`
        PartySize  uint32 `json:"party_size"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if body.GuestName == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "guest_name is required"})
    }
    b, err := h.Core.RequestSeat(c.Request().Context(), slotID, userID, body.GuestName, body.GuestEmail, body.PartySize)
    if err != nil {
        return coreError(c, err)
    }
    status := http.StatusCreated
    if !b.Status.Counted() {
        // lottery entry, admission decided at draw time
        status = http.StatusAccepted
    }
    return c.JSON(status, echo.Map{"booking": newBookingView(b)})
}

// CancelBooking handles DELETE /v1/bookings/:id.  Customers may
// cancel their own bookings; a confirmed cancellation frees the table
// and promotes the head of the waitlist in the same transaction.
func (h *CustomerHandler) CancelBooking(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    bookingID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
    }
    b, err := h.Core.CancelBooking(c.Request().Context(), bookingID, userID)
    if err != nil {
        return coreError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"booking": newBookingView(b)})
}

// ListMyBookings handles GET /v1/my-bookings.  Returns every booking
// the current user has made, newest first, including cancelled ones.
func (h *CustomerHandler) ListMyBookings(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    items, err := h.BookingRepo.ListByUser(c.Request().Context(), userID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load bookings"})
    }
    return c.JSON(http.StatusOK, echo.Map{"items": bookingViews(items)})
}

// JoinWaitlist handles POST /v1/slots/:id/waitlist.  Appends the
// current user to the slot's queue and returns the assigned position.
// Responds 409 when the waitlist is disabled or the user is already
// queued.
func (h *CustomerHandler) JoinWaitlist(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    slotID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid slot id"})
    }
    var body struct {
        ContactName  string `json:"contact_name"`
        ContactEmail string `json:"contact_email"`
        PartySize    uint32 `json:"party_size"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if body.ContactName == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "contact_name is required"})
    }
    e, err := h.Core.JoinWaitlist(c.Request().Context(), slotID, userID, body.ContactName, body.ContactEmail, body.PartySize)
    if err != nil {
        return coreError(c, err)
    }
    return c.JSON(http.StatusCreated, echo.Map{"entry": newWaitlistView(e)})
}

// LeaveWaitlist handles DELETE /v1/waitlist/:id.  Removes the entry
// when it belongs to the current user.  Positions of entries behind
// it do not change.
func (h *CustomerHandler) LeaveWaitlist(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    entryID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid waitlist entry id"})
    }
    if err := h.Core.LeaveWaitlist(c.Request().Context(), entryID, userID); err != nil {
        return coreError(c, err)
    }
    return c.NoContent(http.StatusNoContent)
}

// ListMyWaitlist handles GET /v1/my-waitlist.  Returns the user's
// current waitlist entries across all slots.
func (h *CustomerHandler) ListMyWaitlist(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    items, err := h.WaitlistRepo.ListByUser(c.Request().Context(), userID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load waitlist entries"})
    }
    return c.JSON(http.StatusOK, echo.Map{"items": waitlistViews(items)})
}
