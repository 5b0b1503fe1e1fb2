package domain

import "errors"

// Sentinel errors shared by the service layer and the HTTP handlers, which
// map them to status codes.
var (
	ErrUserNotFound         = errors.New("user not found")
	ErrInsufficientCredits  = errors.New("insufficient credits")
	ErrModelNotAllowed      = errors.New("model not allowed on current plan")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrPlanNotFound         = errors.New("plan not found")
	ErrOrderNotFound        = errors.New("order not found")
	ErrInvalidSignature     = errors.New("invalid webhook signature")
	ErrOTPInvalid           = errors.New("invalid or expired code")
	ErrOTPTooManyAttempts   = errors.New("too many verification attempts")
	ErrRateLimited          = errors.New("rate limited")
)
