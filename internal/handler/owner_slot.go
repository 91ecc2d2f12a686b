package handler

import (
    "context"
    "net/http"
    "time"

    "github.com/iliyamo/table-slot-booking/internal/model"
    "github.com/iliyamo/table-slot-booking/internal/repository"
    "github.com/iliyamo/table-slot-booking/internal/webhook"
    "github.com/labstack/echo/v4"
)

// ExportSender delivers a participant export to an owner-supplied
// URL.  Satisfied by webhook.Sender; declared here so handler tests
// can swap in a fake.
type ExportSender interface {
    Send(ctx context.Context, target string, payload webhook.ExportPayload) error
}

// OwnerHandler serves slot management endpoints for owners.  Slot
// creation and edits talk to the repositories directly; everything
// that moves capacity (deletes, draws, confirmations) goes through
// the booking core.
type OwnerHandler struct {
    Core         Core                      // draw, confirm, reject and delete operations
    SlotRepo     *repository.SlotRepo      // slot persistence
    BookingRepo  *repository.BookingRepo   // booking listings and export rows
    WaitlistRepo *repository.WaitlistRepo  // waitlist listings
    UserRepo     *repository.UserRepo      // host profile for exports
    Exporter     ExportSender              // webhook delivery
}

// NewOwnerHandler constructs an OwnerHandler.  All dependencies must
// be non-nil.
func NewOwnerHandler(core Core, slotRepo *repository.SlotRepo, bookingRepo *repository.BookingRepo, waitlistRepo *repository.WaitlistRepo, userRepo *repository.UserRepo, exporter ExportSender) *OwnerHandler {
    if core == nil || slotRepo == nil || bookingRepo == nil || waitlistRepo == nil || userRepo == nil || exporter == nil {
        panic("nil dependency passed to NewOwnerHandler")
    }
    return &OwnerHandler{
        Core:         core,
        SlotRepo:     slotRepo,
        BookingRepo:  bookingRepo,
        WaitlistRepo: waitlistRepo,
        UserRepo:     userRepo,
        Exporter:     exporter,
    }
}

// ownedSlot loads a slot and verifies the current user owns it.  On
// failure it writes the error response and returns ok=false, and the
// caller returns nil immediately.
func (h *OwnerHandler) ownedSlot(c echo.Context, slotID, ownerID uint64) (*model.Slot, bool) {
    slot, err := h.SlotRepo.GetByID(c.Request().Context(), slotID)
    if err != nil {
        if err == repository.ErrSlotNotFound {
            _ = c.JSON(http.StatusNotFound, echo.Map{"error": "slot not found"})
        } else {
            _ = c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
        }
        return nil, false
    }
    if slot.OwnerID != ownerID {
        _ = c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
        return nil, false
    }
    return slot, true
}

// CreateSlot handles POST /v1/owner/slots.  The body must contain a
// name, a date (YYYY-MM-DD), a starts_at timestamp (RFC3339), a
// total_tables count of at least one and a booking_mode of FCFS or
// LOTTERY.  ends_at and waitlist_enabled are optional.
func (h *OwnerHandler) CreateSlot(c echo.Context) error {
    ownerID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var body struct {
        Name            string `json:"name"`
        Description     string `json:"description"`
        Date            string `json:"date"`
        StartsAt        string `json:"starts_at"`
        EndsAt          string `json:"ends_at"`
        TotalTables     uint32 `json:"total_tables"`
        BookingMode     string `json:"booking_mode"`
        WaitlistEnabled bool   `json:"waitlist_enabled"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if body.Name == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
    }
    if body.TotalTables == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "total_tables must be at least 1"})
    }
    mode := model.BookingMode(body.BookingMode)
    if mode == "" {
        mode = model.ModeFCFS
    }
    if !mode.Valid() {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "booking_mode must be FCFS or LOTTERY"})
    }
    date, err := time.Parse("2006-01-02", body.Date)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date format, expected YYYY-MM-DD"})
    }
    startsAt, err := time.Parse(time.RFC3339, body.StartsAt)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid starts_at format, expected RFC3339"})
    }
    var endsAt *time.Time
    if body.EndsAt != "" {
        e, err := time.Parse(time.RFC3339, body.EndsAt)
        if err != nil {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ends_at format, expected RFC3339"})
        }
        if !e.After(startsAt) {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "ends_at must be after starts_at"})
        }
        endsAt = &e
    }
    slot := &model.Slot{
        OwnerID:         ownerID,
        Name:            body.Name,
        Description:     body.Description,
        Date:            date,
        StartsAt:        startsAt,
        EndsAt:          endsAt,
        TotalTables:     body.TotalTables,
        BookingMode:     mode,
        WaitlistEnabled: body.WaitlistEnabled,
    }
    if err := h.SlotRepo.Create(c.Request().Context(), slot); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create slot"})
    }
    return c.JSON(http.StatusCreated, echo.Map{"slot": newSlotView(slot)})
}

// ListMySlots handles GET /v1/owner/slots.  Returns every slot the
// current user owns, newest first.
func (h *OwnerHandler) ListMySlots(c echo.Context) error {
    ownerID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    slots, err := h.SlotRepo.ListByOwner(c.Request().Context(), ownerID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load slots"})
    }
    out := make([]slotView, 0, len(slots))
    for i := range slots {
        out = append(out, newSlotView(&slots[i]))
    }
    return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// UpdateSlot handles PUT /v1/owner/slots/:id.  Owners may rename the
// slot, change its description, toggle the waitlist and resize
// capacity.  Capacity can never drop below the number of tables
// already booked; such a request responds 409.
func (h *OwnerHandler) UpdateSlot(c echo.Context) error {
    ownerID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    slotID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid slot id"})
    }
    var body struct {
        Name            string `json:"name"`
        Description     string `json:"description"`
        TotalTables     uint32 `json:"total_tables"`
        WaitlistEnabled bool   `json:"waitlist_enabled"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if body.Name == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
    }
    if body.TotalTables == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "total_tables must be at least 1"})
    }
    ctx := c.Request().Context()
    err = h.SlotRepo.UpdateByOwner(ctx, slotID, ownerID, body.Name, body.Description, body.TotalTables, body.WaitlistEnabled)
    switch err {
    case nil:
    case repository.ErrSlotNotFound:
        return c.JSON(http.StatusNotFound, echo.Map{"error": "slot not found"})
    case repository.ErrForbidden:
        return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
    case repository.ErrConflict:
        return c.JSON(http.StatusConflict, echo.Map{"error": "total_tables cannot be lower than booked tables"})
    default:
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update slot"})
    }
    slot, err := h.SlotRepo.GetByID(ctx, slotID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return c.JSON(http.StatusOK, echo.Map{"slot": newSlotView(slot)})
}

// DeleteSlot handles DELETE /v1/owner/slots/:id.  Cancels every
// booking, clears the waitlist and removes the slot in one
// transaction.  Responds 204 on success.
func (h *OwnerHandler) DeleteSlot(c echo.Context) error {
    ownerID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    slotID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid slot id"})
    }
    if err := h.Core.DeleteSlot(c.Request().Context(), slotID, ownerID); err != nil {
        return coreError(c, err)
    }
    return c.NoContent(http.StatusNoContent)
}

// ListSlotBookings handles GET /v1/owner/slots/:id/bookings.  Lists
// all bookings for an owned slot; an optional ?status= query filters
// by lifecycle state.
func (h *OwnerHandler) ListSlotBookings(c echo.Context) error {
    ownerID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    slotID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid slot id"})
    }
    if _, ok := h.ownedSlot(c, slotID, ownerID); !ok {
        return nil
    }
    var filter *model.BookingStatus
    if raw := c.QueryParam("status"); raw != "" {
        st := model.BookingStatus(raw)
        switch st {
        case model.StatusPendingLottery, model.StatusConfirmed, model.StatusCancelled, model.StatusCompleted:
            filter = &st
        default:
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status filter"})
        }
    }
    items, err := h.BookingRepo.ListBySlot(c.Request().Context(), slotID, filter)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load bookings"})
    }
    return c.JSON(http.StatusOK, echo.Map{"items": bookingViews(items)})
}

// ListSlotWaitlist handles GET /v1/owner/slots/:id/waitlist.  Lists
// the queue for an owned slot in promotion order.
func (h *OwnerHandler) ListSlotWaitlist(c echo.Context) error {
    ownerID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    slotID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid slot id"})
    }
    if _, ok := h.ownedSlot(c, slotID, ownerID); !ok {
        return nil
    }
    items, err := h.WaitlistRepo.ListBySlot(c.Request().Context(), slotID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load waitlist"})
    }
    return c.JSON(http.StatusOK, echo.Map{"items": waitlistViews(items)})
}

// DrawWinners handles POST /v1/owner/slots/:id/draw.  Runs a lottery
// draw over the slot's pending entries.  The body may cap the number
// of winners and request that non-winning entries be rejected in the
// same draw; by default losers stay pending for later draws.
func (h *OwnerHandler) DrawWinners(c echo.Context) error {
    ownerID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    slotID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid slot id"})
    }
    var body struct {
        WinnersCount uint32 `json:"winners_count"`
        RejectOthers bool   `json:"reject_others"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    res, err := h.Core.DrawWinners(c.Request().Context(), slotID, ownerID, body.WinnersCount, body.RejectOthers)
    if err != nil {
        return coreError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{
        "winners":  bookingViews(res.Winners),
        "rejected": bookingViews(res.Rejected),
    })
}

// ConfirmEntry handles POST /v1/owner/bookings/:id/confirm.  Promotes
// a single pending lottery entry to CONFIRMED, consuming one table.
// Responds 409 when no capacity remains or the entry is not pending.
func (h *OwnerHandler) ConfirmEntry(c echo.Context) error {
    ownerID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    bookingID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
    }
    b, err := h.Core.ConfirmLotteryWinner(c.Request().Context(), bookingID, ownerID)
    if err != nil {
        return coreError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"booking": newBookingView(b)})
}

// CancelBooking handles DELETE /v1/owner/bookings/:id.  Owner
// override: cancels any booking in an owned slot.  A confirmed
// cancellation frees the table and promotes the next waitlist entry,
// same as a customer-initiated cancel.
func (h *OwnerHandler) CancelBooking(c echo.Context) error {
    ownerID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    bookingID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
    }
    b, err := h.Core.CancelBooking(c.Request().Context(), bookingID, ownerID)
    if err != nil {
        return coreError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"booking": newBookingView(b)})
}

// RejectEntry handles POST /v1/owner/bookings/:id/reject.  Cancels a
// pending lottery entry without touching the capacity ledger.
func (h *OwnerHandler) RejectEntry(c echo.Context) error {
    ownerID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    bookingID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
    }
    b, err := h.Core.RejectLotteryEntry(c.Request().Context(), bookingID, ownerID)
    if err != nil {
        return coreError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"booking": newBookingView(b)})
}

// ExportParticipants handles POST /v1/owner/slots/:id/export.  Builds
// the confirmed-participant roster for an owned slot and POSTs it to
// the webhook URL given in the body.  Contact details of participants
// who have not consented to sharing are withheld from the payload.
// Delivery failure responds 502; the export never changes core state.
func (h *OwnerHandler) ExportParticipants(c echo.Context) error {
    ownerID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    slotID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid slot id"})
    }
    var body struct {
        WebhookURL string `json:"webhook_url"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if body.WebhookURL == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "webhook_url is required"})
    }
    slot, ok := h.ownedSlot(c, slotID, ownerID)
    if !ok {
        return nil
    }
    ctx := c.Request().Context()
    host, err := h.UserRepo.GetByID(ctx, ownerID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load host profile"})
    }
    confirmed, err := h.BookingRepo.ConfirmedWithProfileBySlot(ctx, slotID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load participants"})
    }
    payload := webhook.BuildExport(slot, host, confirmed)
    if err := h.Exporter.Send(ctx, body.WebhookURL, payload); err != nil {
        return c.JSON(http.StatusBadGateway, echo.Map{"error": "webhook delivery failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{
        "export_id":    payload.ExportID,
        "participants": len(payload.Participants),
    })
}
