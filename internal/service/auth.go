package service

import (
	"context"
	"fmt"
	"log"

	"github.com/lumenchat/lumenchat/internal/domain"
)

// RequestOTP issues a sign-in code and emails it. It deliberately does not
// reveal whether the address has an account.
func (s *Service) RequestOTP(ctx context.Context, email string) error {
	code, err := s.otp.Issue(email)
	if err != nil {
		return err
	}

	if err := s.mailer.SendOTP(ctx, email, code); err != nil {
		return fmt.Errorf("failed to deliver code: %w", err)
	}
	return nil
}

// VerifyOTP checks a sign-in code, creating the account on first login, and
// returns a signed access token.
func (s *Service) VerifyOTP(ctx context.Context, email, code string) (string, *domain.User, error) {
	if err := s.otp.Verify(email, code); err != nil {
		return "", nil, err
	}

	user, err := s.store.UpsertUserByEmail(ctx, email, s.config.SignupCredits)
	if err != nil {
		return "", nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return "", nil, fmt.Errorf("failed to issue token: %w", err)
	}

	log.Printf("user %s signed in", user.ID)
	return token, user, nil
}
