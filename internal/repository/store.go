package store

import (
	"context"

	"github.com/lumenchat/lumenchat/internal/domain"
)

// Store defines durable storage for users, conversations, messages, orders
// and usage events.
type Store interface {
	// Users
	GetUser(ctx context.Context, userID string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	UpsertUserByEmail(ctx context.Context, email string, signupCredits int) (*domain.User, error)

	// Conversations and messages
	GetConversation(ctx context.Context, conversationID string) (*domain.Conversation, error)
	ListConversations(ctx context.Context, userID string) ([]domain.Conversation, error)
	GetMessages(ctx context.Context, conversationID string) ([]domain.Message, error)

	// CommitTurn persists a completed chat turn atomically: the new
	// conversation row when present, both messages, and a guarded
	// one-credit debit when ChargeUserID is set. A debit that would go
	// below zero rolls everything back with ErrInsufficientCredits.
	CommitTurn(ctx context.Context, turn *domain.TurnCommit) error

	// Billing
	CreateOrder(ctx context.Context, order *domain.Order) error
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)
	// MarkOrderPaid settles a pending order and applies its grant in one
	// transaction. It reports false when the order was already settled,
	// making webhook replays idempotent.
	MarkOrderPaid(ctx context.Context, orderID string, credits int, premium bool) (bool, error)

	// Usage events
	CreateEvent(ctx context.Context, event *domain.Event) error
	ListEvents(ctx context.Context, conversationID string) ([]domain.Event, error)

	Close() error
}
