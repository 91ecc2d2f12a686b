package handler

import (
    "database/sql"
    "errors"
    "net/http"

    "github.com/iliyamo/table-slot-booking/internal/repository"
    "github.com/labstack/echo/v4"
)

// ProfileHandler serves the collaborator profile endpoints.  The
// profile carries the display name, payment handle and sharing
// consent used to pre-fill booking forms and to build owner exports.
type ProfileHandler struct {
    UserRepo *repository.UserRepo // user persistence
}

// NewProfileHandler constructs a ProfileHandler.
func NewProfileHandler(userRepo *repository.UserRepo) *ProfileHandler {
    if userRepo == nil {
        panic("nil repository passed to NewProfileHandler")
    }
    return &ProfileHandler{UserRepo: userRepo}
}

// profileView is the JSON shape of a profile in API responses.
type profileView struct {
    Email         string `json:"email"`
    DisplayName   string `json:"display_name"`
    PaymentHandle string `json:"payment_handle"`
    ConsentShare  bool   `json:"consent_share"`
}

// GetProfile handles GET /v1/me/profile.
func (h *ProfileHandler) GetProfile(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    u, err := h.UserRepo.GetByID(c.Request().Context(), userID)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return c.JSON(http.StatusOK, echo.Map{"profile": profileView{
        Email:         u.Email,
        DisplayName:   u.DisplayName,
        PaymentHandle: u.PaymentHandle,
        ConsentShare:  u.ConsentShare,
    }})
}

// UpdateProfile handles PUT /v1/me/profile.  Replaces the profile
// fields with the values from the request body.  Consent defaults to
// false; participants opt in to sharing, never out.
func (h *ProfileHandler) UpdateProfile(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var body struct {
        DisplayName   string `json:"display_name"`
        PaymentHandle string `json:"payment_handle"`
        ConsentShare  bool   `json:"consent_share"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    ctx := c.Request().Context()
    if err := h.UserRepo.UpdateProfile(ctx, userID, body.DisplayName, body.PaymentHandle, body.ConsentShare); err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update profile"})
    }
    return c.JSON(http.StatusOK, echo.Map{"profile": profileView{
        DisplayName:   body.DisplayName,
        PaymentHandle: body.PaymentHandle,
        ConsentShare:  body.ConsentShare,
    }})
}
