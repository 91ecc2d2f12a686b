package router // package router defines how HTTP routes are registered for the API

import (
    "github.com/labstack/echo/v4" // import the Echo web framework to handle routing

    "github.com/iliyamo/table-slot-booking/internal/handler"    // import the handlers that implement business logic
    "github.com/iliyamo/table-slot-booking/internal/middleware" // import middleware for JWT authentication and role enforcement
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
    // Map the GET request at path "/healthz" to the Health handler.  This
    // endpoint can be used by load balancers or monitoring systems to verify
    // that the service is up and running.
    e.GET("/healthz", handler.Health)
}

// RegisterAuth registers all authentication-related routes and applies the
// necessary middleware.  Unauthenticated operations live under /v1/auth,
// while protected endpoints live under /v1.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
    // Group for operations that do not require an existing session.  Each
    // of these handlers generates or exchanges tokens itself.
    g := e.Group("/v1/auth")
    g.POST("/register", a.Register)
    g.POST("/login", a.Login)
    // Refresh rotates the refresh token; refresh-access issues a new access
    // token without rotation.
    g.POST("/refresh", a.Refresh)
    g.POST("/refresh-access", a.RefreshAccess)
    // Logout accepts a JSON body containing a `refresh_token` and
    // invalidates it; no JWT is required.
    g.POST("/logout", a.Logout)

    // Protected group: every handler registered here runs the JWTAuth
    // middleware first.  Both roles may read their own identity.
    auth := e.Group("/v1")
    auth.Use(middleware.JWTAuth(jwtSecret))
    auth.Use(middleware.RequireRole("OWNER", "CUSTOMER"))
    auth.GET("/me", a.Me)

    // Alias outside the protected group so clients can log out with only a
    // refresh token in the body.
    e.POST("/v1/logout", a.Logout)
}

// RegisterPublic registers unauthenticated browse endpoints.  Guests can
// list upcoming slots, view a single slot and poll availability without a
// token; no JWT or role middleware is applied.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler) {
    // Upcoming slots, soonest first
    e.GET("/v1/slots", p.ListSlots)
    // Slot details by id
    e.GET("/v1/slots/:id", p.GetSlot)
    // Point-in-time remaining table count for a slot.  The value is
    // advisory; admission is decided at booking time.
    e.GET("/v1/slots/:id/availability", p.GetAvailability)
}

// RegisterProfile registers the collaborator profile endpoints.  Both
// roles carry a profile, so the group accepts OWNER and CUSTOMER.
func RegisterProfile(e *echo.Echo, p *handler.ProfileHandler, jwtSecret string) {
    g := e.Group(
        "/v1",
        middleware.JWTAuth(jwtSecret),
        middleware.RequireRole("OWNER", "CUSTOMER"),
    )
    g.GET("/me/profile", p.GetProfile)
    g.PUT("/me/profile", p.UpdateProfile)
}
