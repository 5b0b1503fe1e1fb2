package v1

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/lumenchat/lumenchat/internal/auth"
	"github.com/lumenchat/lumenchat/internal/domain"
)

type createOrderBody struct {
	PlanID string `json:"plan_id" validate:"required"`
}

// ListPlans returns the purchasable plan catalog.
// GET /v1/billing/plans
func (h *Handler) ListPlans(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{"plans": h.service.Plans()})
}

// CreateOrder opens a pending order and returns the checkout URL.
// POST /v1/billing/orders
func (h *Handler) CreateOrder(c echo.Context) error {
	var body createOrderBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if err := c.Validate(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	order, checkoutURL, err := h.service.CreateOrder(c.Request().Context(), auth.UserID(c), body.PlanID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrPlanNotFound):
			return c.JSON(http.StatusNotFound, map[string]string{"error": "plan not found"})
		case errors.Is(err, domain.ErrUserNotFound):
			return c.JSON(http.StatusNotFound, map[string]string{"error": "user not found"})
		default:
			log.Printf("ERROR: failed to create order: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to create order"})
		}
	}

	return c.JSON(http.StatusOK, map[string]any{
		"order":        order,
		"checkout_url": checkoutURL,
	})
}

// BillingWebhook settles orders from gateway callbacks. The raw body is
// needed for signature verification, so no Bind here.
// POST /v1/billing/webhook
func (h *Handler) BillingWebhook(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "failed to read body"})
	}

	signature := c.Request().Header.Get("X-Webhook-Signature")
	if err := h.service.HandleWebhook(c.Request().Context(), body, signature); err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidSignature):
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid signature"})
		case errors.Is(err, domain.ErrOrderNotFound):
			return c.JSON(http.StatusNotFound, map[string]string{"error": "order not found"})
		default:
			log.Printf("ERROR: failed to handle webhook: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to handle webhook"})
		}
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
