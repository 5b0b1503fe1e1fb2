// Package http provides the HTTP server for the chat backend.
package http

import (
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/lumenchat/lumenchat/internal/auth"
	"github.com/lumenchat/lumenchat/internal/metrics"
	"github.com/lumenchat/lumenchat/internal/service"
	v1 "github.com/lumenchat/lumenchat/internal/transport/http/v1"
)

// requestValidator adapts go-playground/validator to echo's Validator.
type requestValidator struct {
	validate *validator.Validate
}

func (v *requestValidator) Validate(i any) error {
	return v.validate.Struct(i)
}

// NewServer creates and configures the HTTP server.
func NewServer(svc *service.Service, tokens *auth.TokenManager, m *metrics.Metrics) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = &requestValidator{validate: validator.New()}

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Handlers
	handler := v1.NewHandler(svc, tokens)
	handler.RegisterRoutes(e)

	e.GET("/metrics", echo.WrapHandler(m.Handler()))

	return e
}
