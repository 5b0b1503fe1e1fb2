package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/lumenchat/lumenchat/internal/domain"
)

type otpEntry struct {
	code      string
	expiresAt time.Time
	attempts  int
}

// OTPStore holds pending sign-in codes in process memory. Codes are single
// use, expire, and allow a bounded number of verification attempts.
// Constructed once at startup and injected.
type OTPStore struct {
	mu          sync.Mutex
	codes       map[string]*otpEntry
	limiters    map[string]*rate.Limiter
	ttl         time.Duration
	maxAttempts int
	rps         float64
	burst       int
	now         func() time.Time
}

// NewOTPStore creates an OTP store. rps and burst bound code requests per
// email address.
func NewOTPStore(ttl time.Duration, maxAttempts int, rps float64, burst int) *OTPStore {
	return &OTPStore{
		codes:       make(map[string]*otpEntry),
		limiters:    make(map[string]*rate.Limiter),
		ttl:         ttl,
		maxAttempts: maxAttempts,
		rps:         rps,
		burst:       burst,
		now:         time.Now,
	}
}

// maxIdleLimiters caps the per-email limiter pool. A sweep on insert
// drops limiters whose bucket has refilled; those are indistinguishable
// from fresh ones, so no rate-limit state is lost.
const maxIdleLimiters = 1024

func (s *OTPStore) limiter(email string) *rate.Limiter {
	if l, ok := s.limiters[email]; ok {
		return l
	}
	if len(s.limiters) >= maxIdleLimiters {
		for k, l := range s.limiters {
			if l.Tokens() >= float64(s.burst) {
				delete(s.limiters, k)
			}
		}
	}
	l := rate.NewLimiter(rate.Limit(s.rps), s.burst)
	s.limiters[email] = l
	return l
}

// Issue generates a fresh 6-digit code for the address, replacing any
// pending one. Returns ErrRateLimited when the address asks too often.
func (s *OTPStore) Issue(email string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.limiter(email).Allow() {
		return "", domain.ErrRateLimited
	}

	code, err := generateCode()
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}

	s.codes[email] = &otpEntry{
		code:      code,
		expiresAt: s.now().Add(s.ttl),
	}
	return code, nil
}

// Verify checks a code. A correct code is consumed; too many wrong guesses
// consume it as well.
func (s *OTPStore) Verify(email, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.codes[email]
	if !ok || s.now().After(entry.expiresAt) {
		delete(s.codes, email)
		return domain.ErrOTPInvalid
	}

	entry.attempts++
	if entry.attempts > s.maxAttempts {
		delete(s.codes, email)
		return domain.ErrOTPTooManyAttempts
	}

	if subtle.ConstantTimeCompare([]byte(entry.code), []byte(code)) != 1 {
		return domain.ErrOTPInvalid
	}

	delete(s.codes, email)
	return nil
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
