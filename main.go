package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lumenchat/lumenchat/config"
	"github.com/lumenchat/lumenchat/internal/adapter/llm"
	"github.com/lumenchat/lumenchat/internal/adapter/payment"
	"github.com/lumenchat/lumenchat/internal/auth"
	"github.com/lumenchat/lumenchat/internal/mail"
	"github.com/lumenchat/lumenchat/internal/metrics"
	"github.com/lumenchat/lumenchat/internal/policy"
	store "github.com/lumenchat/lumenchat/internal/repository"
	"github.com/lumenchat/lumenchat/internal/service"
	"github.com/lumenchat/lumenchat/internal/session"
	transport "github.com/lumenchat/lumenchat/internal/transport/http"
)

func main() {
	cfg := config.Load()

	log.Printf("Starting lumenchat backend...")
	log.Printf("HTTP Port: %d", cfg.HTTPPort)
	log.Printf("Database: %s", cfg.DatabaseURL)
	log.Printf("Upstream: %s", cfg.UpstreamURL)

	db, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer db.Close()

	m := metrics.New()

	llmClient := llm.NewCompletionClient(cfg.UpstreamURL, cfg.UpstreamAPIKey, cfg.UpstreamTimeout, cfg.MaxStreamReads, m.StreamCapHits)
	paymentClient := payment.NewClient(cfg.PaymentURL, cfg.PaymentAPIKey, cfg.PaymentTimeout)

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL)
	otp := auth.NewOTPStore(cfg.OTPTTL, cfg.OTPMaxAttempts, cfg.OTPRequestRPS, cfg.OTPRequestBurst)

	var mailer mail.Mailer
	if cfg.SMTPHost != "" {
		mailer, err = mail.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.MailFrom)
		if err != nil {
			log.Fatalf("Failed to initialize mailer: %v", err)
		}
	} else {
		log.Printf("WARN: no SMTP host configured, sign-in codes will be logged")
		mailer = &mail.LogMailer{}
	}

	ctx := context.Background()
	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		log.Fatalf("Failed to initialize policy engine: %v", err)
	}

	svc := service.New(service.Deps{
		Store:   db,
		LLM:     llmClient,
		Payment: paymentClient,
		Cache:   session.NewCache(),
		OTP:     otp,
		Tokens:  tokens,
		Mailer:  mailer,
		Policy:  policyEngine,
		Metrics: m,
		Config:  cfg,
	})

	server := transport.NewServer(svc, tokens, m)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	log.Printf("API started on port %d", cfg.HTTPPort)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Failed to shutdown server gracefully: %v", err)
	}

	log.Println("Backend stopped")
}
