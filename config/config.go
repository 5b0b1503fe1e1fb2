// Package config provides configuration for the chat backend.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the backend configuration.
type Config struct {
	// Server settings
	HTTPPort int

	// Database
	DatabaseURL string

	// Upstream completions provider
	UpstreamURL     string
	UpstreamAPIKey  string
	UpstreamTimeout time.Duration
	// MaxStreamReads caps read iterations against a misbehaving upstream
	// that never closes its stream. Truncation is quiet but counted.
	MaxStreamReads int

	// Auth
	JWTSecret string
	JWTTTL    time.Duration

	// OTP login
	OTPTTL          time.Duration
	OTPMaxAttempts  int
	OTPRequestRPS   float64
	OTPRequestBurst int

	// Mail (OTP delivery); codes are logged instead when SMTPHost is empty
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	MailFrom     string

	// Billing
	PaymentURL           string
	PaymentAPIKey        string
	PaymentWebhookSecret string
	PaymentTimeout       time.Duration

	// New accounts
	SignupCredits int

	// Logging
	LogLevel string
}

// Load loads configuration from the environment, reading a .env file first
// when one is present.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		HTTPPort:             getEnvInt("HTTP_PORT", 8080),
		DatabaseURL:          getEnv("DATABASE_URL", "file:lumenchat.db?cache=shared&mode=rwc"),
		UpstreamURL:          getEnv("UPSTREAM_URL", "https://api.openai.com"),
		UpstreamAPIKey:       getEnv("UPSTREAM_API_KEY", ""),
		UpstreamTimeout:      time.Duration(getEnvInt("UPSTREAM_TIMEOUT_MS", 120000)) * time.Millisecond,
		MaxStreamReads:       getEnvInt("MAX_STREAM_READS", 4096),
		JWTSecret:            getEnv("JWT_SECRET", "dev-secret-change-me"),
		JWTTTL:               time.Duration(getEnvInt("JWT_TTL_MIN", 1440)) * time.Minute,
		OTPTTL:               time.Duration(getEnvInt("OTP_TTL_MIN", 10)) * time.Minute,
		OTPMaxAttempts:       getEnvInt("OTP_MAX_ATTEMPTS", 5),
		OTPRequestRPS:        getEnvFloat("OTP_REQUEST_RPS", 0.2),
		OTPRequestBurst:      getEnvInt("OTP_REQUEST_BURST", 3),
		SMTPHost:             getEnv("SMTP_HOST", ""),
		SMTPPort:             getEnvInt("SMTP_PORT", 587),
		SMTPUsername:         getEnv("SMTP_USERNAME", ""),
		SMTPPassword:         getEnv("SMTP_PASSWORD", ""),
		MailFrom:             getEnv("MAIL_FROM", "no-reply@lumenchat.app"),
		PaymentURL:           getEnv("PAYMENT_URL", ""),
		PaymentAPIKey:        getEnv("PAYMENT_API_KEY", ""),
		PaymentWebhookSecret: getEnv("PAYMENT_WEBHOOK_SECRET", ""),
		PaymentTimeout:       time.Duration(getEnvInt("PAYMENT_TIMEOUT_MS", 10000)) * time.Millisecond,
		SignupCredits:        getEnvInt("SIGNUP_CREDITS", 10),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
	}
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
