// Package v1 provides the HTTP handlers for the public API.
package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/lumenchat/lumenchat/internal/auth"
	"github.com/lumenchat/lumenchat/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
	tokens  *auth.TokenManager
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service, tokens *auth.TokenManager) *Handler {
	return &Handler{
		service: service,
		tokens:  tokens,
	}
}

// RegisterRoutes registers all routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	// Public routes
	e.GET("/health", h.Health)
	e.POST("/v1/auth/otp/request", h.RequestOTP)
	e.POST("/v1/auth/otp/verify", h.VerifyOTP)
	e.POST("/v1/billing/webhook", h.BillingWebhook)
	e.GET("/v1/billing/plans", h.ListPlans)

	// Authenticated product routes
	g := e.Group("/v1", h.tokens.Middleware())
	g.POST("/chat", h.Chat)
	g.GET("/conversations", h.ListConversations)
	g.GET("/conversations/:conversation_id", h.GetConversation)
	g.GET("/credits", h.GetCredits)
	g.GET("/models", h.ListModels)
	g.POST("/billing/orders", h.CreateOrder)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}
