package v1

import (
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/lumenchat/lumenchat/internal/domain"
)

type otpRequestBody struct {
	Email string `json:"email" validate:"required,email"`
}

type otpVerifyBody struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

// RequestOTP sends a sign-in code to an email address.
// POST /v1/auth/otp/request
func (h *Handler) RequestOTP(c echo.Context) error {
	var body otpRequestBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if err := c.Validate(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	if err := h.service.RequestOTP(c.Request().Context(), body.Email); err != nil {
		if errors.Is(err, domain.ErrRateLimited) {
			return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "too many requests"})
		}
		log.Printf("ERROR: failed to request otp: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to send code"})
	}

	// Same response whether or not the address has an account.
	return c.JSON(http.StatusOK, map[string]string{"status": "sent"})
}

// VerifyOTP exchanges a sign-in code for an access token.
// POST /v1/auth/otp/verify
func (h *Handler) VerifyOTP(c echo.Context) error {
	var body otpVerifyBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if err := c.Validate(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	token, user, err := h.service.VerifyOTP(c.Request().Context(), body.Email, body.Code)
	if err != nil {
		if errors.Is(err, domain.ErrOTPInvalid) || errors.Is(err, domain.ErrOTPTooManyAttempts) {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": err.Error()})
		}
		log.Printf("ERROR: failed to verify otp: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to verify code"})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"access_token": token,
		"user":         user,
	})
}
