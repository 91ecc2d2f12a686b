package router // router defines how HTTP routes are registered for the API

import (
    "github.com/iliyamo/table-slot-booking/internal/handler"    // owner handlers
    "github.com/iliyamo/table-slot-booking/internal/middleware" // JWT + role middlewares
    "github.com/labstack/echo/v4"
)

// RegisterOwner registers OWNER-scoped endpoints under /v1/owner.
// All routes require a valid JWT and OWNER role.
func RegisterOwner(e *echo.Echo, o *handler.OwnerHandler, jwtSecret string) {
    // Attach middlewares at group construction time for clarity.
    g := e.Group(
        "/v1/owner",
        middleware.JWTAuth(jwtSecret),
        middleware.RequireRole("OWNER"),
    )

    // ---- Slots ----
    g.POST("/slots", o.CreateSlot)
    g.GET("/slots", o.ListMySlots)
    g.PUT("/slots/:id", o.UpdateSlot)
    g.PATCH("/slots/:id", o.UpdateSlot) // allow partial/semantic updates via PATCH as well
    g.DELETE("/slots/:id", o.DeleteSlot)

    // ---- Per-slot listings ----
    g.GET("/slots/:id/bookings", o.ListSlotBookings)
    g.GET("/slots/:id/waitlist", o.ListSlotWaitlist)

    // ---- Lottery administration ----
    g.POST("/slots/:id/draw", o.DrawWinners)
    g.POST("/bookings/:id/confirm", o.ConfirmEntry)
    g.POST("/bookings/:id/reject", o.RejectEntry)
    // Owner override: cancel any booking in an owned slot
    g.DELETE("/bookings/:id", o.CancelBooking)

    // ---- Participant export ----
    g.POST("/slots/:id/export", o.ExportParticipants)
}
