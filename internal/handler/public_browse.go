// Package handler exposes HTTP handlers for both authenticated and
// public endpoints.  This file defines the public browsing API:
// unauthenticated users can list upcoming slots, inspect a single
// slot and check how many tables remain.
package handler

import (
    "net/http"
    "time"

    "github.com/iliyamo/table-slot-booking/internal/repository"
    "github.com/labstack/echo/v4"
)

// PublicHandler serves unauthenticated slot browsing.
type PublicHandler struct {
    SlotRepo *repository.SlotRepo // read access to slots
}

// NewPublicHandler constructs a PublicHandler.
func NewPublicHandler(slotRepo *repository.SlotRepo) *PublicHandler {
    if slotRepo == nil {
        panic("nil repository passed to NewPublicHandler")
    }
    return &PublicHandler{SlotRepo: slotRepo}
}

// ListSlots handles GET /v1/slots.  Returns slots whose start time
// has not yet passed, soonest first.
func (h *PublicHandler) ListSlots(c echo.Context) error {
    slots, err := h.SlotRepo.ListUpcoming(c.Request().Context(), time.Now().UTC())
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    out := make([]slotView, 0, len(slots))
    for i := range slots {
        out = append(out, newSlotView(&slots[i]))
    }
    return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// GetSlot handles GET /v1/slots/:id.  Returns a single slot with its
// current availability.
func (h *PublicHandler) GetSlot(c echo.Context) error {
    slotID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid slot id"})
    }
    slot, err := h.SlotRepo.GetByID(c.Request().Context(), slotID)
    if err != nil {
        if err == repository.ErrSlotNotFound {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "slot not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return c.JSON(http.StatusOK, echo.Map{"slot": newSlotView(slot)})
}

// GetAvailability handles GET /v1/slots/:id/availability.  Returns a
// point-in-time count of remaining tables.  The value can be stale by
// the time the client books; admission is decided by the ledger, not
// by this read.
func (h *PublicHandler) GetAvailability(c echo.Context) error {
    slotID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid slot id"})
    }
    remaining, err := h.SlotRepo.CapacityRemaining(c.Request().Context(), slotID)
    if err != nil {
        if err == repository.ErrSlotNotFound {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "slot not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return c.JSON(http.StatusOK, echo.Map{
        "slot_id":   slotID,
        "remaining": remaining,
    })
}
