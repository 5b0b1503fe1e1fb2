package helpers

import (
	"context"
	"testing"

	"github.com/lumenchat/lumenchat/internal/domain"
	store "github.com/lumenchat/lumenchat/internal/repository"
)

// NewTestSQLiteStore returns an in-memory store torn down with the test.
func NewTestSQLiteStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create sqlite store: %v", err)
	}

	t.Cleanup(func() {
		_ = s.Close()
	})

	return s
}

// SeedUser creates a user with the given starting balance.
func SeedUser(t *testing.T, s *store.SQLiteStore, email string, credits int) *domain.User {
	t.Helper()

	user, err := s.UpsertUserByEmail(context.Background(), email, credits)
	if err != nil {
		t.Fatalf("failed to seed user %s: %v", email, err)
	}
	return user
}
