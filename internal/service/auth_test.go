package service

import (
	"context"
	"errors"
	"testing"

	"github.com/lumenchat/lumenchat/internal/domain"
)

func TestOTPLoginCreatesAccount(t *testing.T) {
	svc, _, mailer := newTestService(t, &scriptedLLM{})
	ctx := context.Background()

	if err := svc.RequestOTP(ctx, "new@example.com"); err != nil {
		t.Fatalf("RequestOTP failed: %v", err)
	}
	if mailer.lastCode == "" {
		t.Fatalf("expected a code to be mailed")
	}

	token, user, err := svc.VerifyOTP(ctx, "new@example.com", mailer.lastCode)
	if err != nil {
		t.Fatalf("VerifyOTP failed: %v", err)
	}
	if user.Email != "new@example.com" {
		t.Fatalf("unexpected user: %+v", user)
	}
	if user.Credits != 10 {
		t.Fatalf("expected signup credits, got %d", user.Credits)
	}

	userID, err := svc.tokens.Verify(token)
	if err != nil {
		t.Fatalf("token verification failed: %v", err)
	}
	if userID != user.ID {
		t.Fatalf("token subject %q does not match user %q", userID, user.ID)
	}
}

func TestOTPLoginExistingAccount(t *testing.T) {
	svc, _, mailer := newTestService(t, &scriptedLLM{})
	ctx := context.Background()

	if err := svc.RequestOTP(ctx, "a@example.com"); err != nil {
		t.Fatalf("RequestOTP failed: %v", err)
	}
	_, first, err := svc.VerifyOTP(ctx, "a@example.com", mailer.lastCode)
	if err != nil {
		t.Fatalf("first VerifyOTP failed: %v", err)
	}

	if err := svc.RequestOTP(ctx, "a@example.com"); err != nil {
		t.Fatalf("second RequestOTP failed: %v", err)
	}
	_, second, err := svc.VerifyOTP(ctx, "a@example.com", mailer.lastCode)
	if err != nil {
		t.Fatalf("second VerifyOTP failed: %v", err)
	}

	if second.ID != first.ID {
		t.Fatalf("expected same account, got %s and %s", first.ID, second.ID)
	}
}

func TestOTPLoginWrongCode(t *testing.T) {
	svc, _, mailer := newTestService(t, &scriptedLLM{})
	ctx := context.Background()

	if err := svc.RequestOTP(ctx, "a@example.com"); err != nil {
		t.Fatalf("RequestOTP failed: %v", err)
	}

	wrong := "000000"
	if mailer.lastCode == wrong {
		wrong = "000001"
	}
	_, _, err := svc.VerifyOTP(ctx, "a@example.com", wrong)
	if !errors.Is(err, domain.ErrOTPInvalid) {
		t.Fatalf("expected ErrOTPInvalid, got %v", err)
	}
}
