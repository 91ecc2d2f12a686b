package router

import (
    "github.com/iliyamo/table-slot-booking/internal/handler"
    "github.com/iliyamo/table-slot-booking/internal/middleware"
    "github.com/labstack/echo/v4"
)

// RegisterCustomer registers customer-scoped endpoints under /v1.  All
// routes require a valid JWT and the CUSTOMER role.  Customers can
// request seats, cancel their bookings, join and leave waitlists and
// list what they hold.
func RegisterCustomer(e *echo.Echo, h *handler.CustomerHandler, jwtSecret string) {
    g := e.Group(
        "/v1",
        middleware.JWTAuth(jwtSecret),
        middleware.RequireRole("CUSTOMER"),
    )
    // Note: GET /v1/slots, GET /v1/slots/:id and the availability read are
    // registered on the public router so that guests can browse without a
    // token.  Customer-specific endpoints begin here.
    g.POST("/slots/:id/bookings", h.RequestSeat)
    g.DELETE("/bookings/:id", h.CancelBooking)
    g.GET("/my-bookings", h.ListMyBookings)

    // Waitlist endpoints.  Joining is allowed whenever the slot has its
    // waitlist enabled; leaving only removes the caller's own entry.
    g.POST("/slots/:id/waitlist", h.JoinWaitlist)
    g.DELETE("/waitlist/:id", h.LeaveWaitlist)
    g.GET("/my-waitlist", h.ListMyWaitlist)
}
