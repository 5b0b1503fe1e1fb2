// Package service implements the chat backend's business logic.
package service

import (
	"github.com/lumenchat/lumenchat/config"
	"github.com/lumenchat/lumenchat/internal/adapter/llm"
	"github.com/lumenchat/lumenchat/internal/adapter/payment"
	"github.com/lumenchat/lumenchat/internal/auth"
	"github.com/lumenchat/lumenchat/internal/mail"
	"github.com/lumenchat/lumenchat/internal/metrics"
	"github.com/lumenchat/lumenchat/internal/policy"
	store "github.com/lumenchat/lumenchat/internal/repository"
	"github.com/lumenchat/lumenchat/internal/session"
)

// Deps bundles the collaborators the service is constructed with. All of
// them are built once at startup and injected.
type Deps struct {
	Store     store.Store
	LLM       llm.CompletionClient
	Payment   *payment.Client
	Cache     *session.Cache
	OTP       *auth.OTPStore
	Tokens    *auth.TokenManager
	Mailer    mail.Mailer
	Policy    *policy.Engine
	Metrics   *metrics.Metrics
	Config    *config.Config
}

// Service is the application service.
type Service struct {
	store   store.Store
	llm     llm.CompletionClient
	payment *payment.Client
	cache   *session.Cache
	otp     *auth.OTPStore
	tokens  *auth.TokenManager
	mailer  mail.Mailer
	policy  *policy.Engine
	metrics *metrics.Metrics
	config  *config.Config
}

// New creates the service.
func New(deps Deps) *Service {
	return &Service{
		store:   deps.Store,
		llm:     deps.LLM,
		payment: deps.Payment,
		cache:   deps.Cache,
		otp:     deps.OTP,
		tokens:  deps.Tokens,
		mailer:  deps.Mailer,
		policy:  deps.Policy,
		metrics: deps.Metrics,
		config:  deps.Config,
	}
}
