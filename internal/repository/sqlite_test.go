package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lumenchat/lumenchat/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create sqlite store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

func seedUser(t *testing.T, s *SQLiteStore, credits int) *domain.User {
	t.Helper()

	user, err := s.UpsertUserByEmail(context.Background(), uuid.New().String()+"@example.com", credits)
	if err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	return user
}

func turnFor(user *domain.User, charge bool) *domain.TurnCommit {
	convID := uuid.New().String()
	now := time.Now()
	turn := &domain.TurnCommit{
		NewConversation: &domain.Conversation{
			ID:        convID,
			UserID:    user.ID,
			Title:     "hello",
			CreatedAt: now,
		},
		UserMessage: domain.Message{
			MessageID:      uuid.New().String(),
			ConversationID: convID,
			Role:           domain.RoleUser,
			Content:        "hello",
			CreatedAt:      now,
		},
		AssistantMessage: domain.Message{
			MessageID:      uuid.New().String(),
			ConversationID: convID,
			Role:           domain.RoleAssistant,
			Content:        "hi there",
			CreatedAt:      now,
		},
	}
	if charge {
		turn.ChargeUserID = user.ID
	}
	return turn
}

func TestUpsertUserByEmail(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.UpsertUserByEmail(ctx, "a@example.com", 10)
	if err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	if first.Credits != 10 {
		t.Fatalf("expected signup credits, got %d", first.Credits)
	}

	again, err := s.UpsertUserByEmail(ctx, "a@example.com", 10)
	if err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}
	if again.ID != first.ID {
		t.Fatalf("expected same user, got %s and %s", first.ID, again.ID)
	}
}

func TestCommitTurnNewConversation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user := seedUser(t, s, 5)

	turn := turnFor(user, true)
	if err := s.CommitTurn(ctx, turn); err != nil {
		t.Fatalf("CommitTurn failed: %v", err)
	}

	conv, err := s.GetConversation(ctx, turn.NewConversation.ID)
	if err != nil || conv == nil {
		t.Fatalf("expected conversation, got %v / %v", conv, err)
	}

	messages, err := s.GetMessages(ctx, turn.NewConversation.ID)
	if err != nil {
		t.Fatalf("GetMessages failed: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if messages[0].Role != domain.RoleUser || messages[1].Role != domain.RoleAssistant {
		t.Fatalf("unexpected message order: %+v", messages)
	}

	got, err := s.GetUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if got.Credits != 4 {
		t.Fatalf("expected 4 credits after debit, got %d", got.Credits)
	}
}

func TestCommitTurnNoCharge(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user := seedUser(t, s, 5)

	if err := s.CommitTurn(ctx, turnFor(user, false)); err != nil {
		t.Fatalf("CommitTurn failed: %v", err)
	}

	got, err := s.GetUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if got.Credits != 5 {
		t.Fatalf("expected credits unchanged, got %d", got.Credits)
	}
}

// The debit is guarded: a turn committed when the balance already hit zero
// must fail atomically, leaving no messages behind.
func TestCommitTurnInsufficientCredits(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user := seedUser(t, s, 0)

	turn := turnFor(user, true)
	err := s.CommitTurn(ctx, turn)
	if !errors.Is(err, domain.ErrInsufficientCredits) {
		t.Fatalf("expected ErrInsufficientCredits, got %v", err)
	}

	messages, err := s.GetMessages(ctx, turn.NewConversation.ID)
	if err != nil {
		t.Fatalf("GetMessages failed: %v", err)
	}
	if len(messages) != 0 {
		t.Fatalf("expected rollback to leave no messages, got %d", len(messages))
	}
	conv, err := s.GetConversation(ctx, turn.NewConversation.ID)
	if err != nil {
		t.Fatalf("GetConversation failed: %v", err)
	}
	if conv != nil {
		t.Fatalf("expected rollback to leave no conversation")
	}
}

// Two concurrent turns against a balance of one credit: exactly one commit
// wins, the balance never goes negative.
func TestCommitTurnConcurrentLastCredit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user := seedUser(t, s, 1)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.CommitTurn(ctx, turnFor(user, true))
		}(i)
	}
	wg.Wait()

	failures := 0
	for _, err := range errs {
		if err != nil {
			if !errors.Is(err, domain.ErrInsufficientCredits) {
				t.Fatalf("unexpected error: %v", err)
			}
			failures++
		}
	}
	if failures != 1 {
		t.Fatalf("expected exactly one losing turn, got %d", failures)
	}

	got, err := s.GetUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if got.Credits != 0 {
		t.Fatalf("expected balance 0, got %d", got.Credits)
	}
}

func TestListConversationsNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user := seedUser(t, s, 10)

	older := turnFor(user, false)
	older.NewConversation.CreatedAt = time.Now().Add(-time.Hour)
	if err := s.CommitTurn(ctx, older); err != nil {
		t.Fatalf("CommitTurn failed: %v", err)
	}
	newer := turnFor(user, false)
	if err := s.CommitTurn(ctx, newer); err != nil {
		t.Fatalf("CommitTurn failed: %v", err)
	}

	conversations, err := s.ListConversations(ctx, user.ID)
	if err != nil {
		t.Fatalf("ListConversations failed: %v", err)
	}
	if len(conversations) != 2 {
		t.Fatalf("expected 2 conversations, got %d", len(conversations))
	}
	if conversations[0].ID != newer.NewConversation.ID {
		t.Fatalf("expected newest first, got %s", conversations[0].ID)
	}
}

func TestMarkOrderPaidIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user := seedUser(t, s, 0)

	order := &domain.Order{
		OrderID:     uuid.New().String(),
		UserID:      user.ID,
		PlanID:      "pack-100",
		AmountCents: 500,
		Status:      domain.OrderStatusPending,
		CreatedAt:   time.Now(),
	}
	if err := s.CreateOrder(ctx, order); err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}

	applied, err := s.MarkOrderPaid(ctx, order.OrderID, 100, false)
	if err != nil {
		t.Fatalf("MarkOrderPaid failed: %v", err)
	}
	if !applied {
		t.Fatalf("expected first settlement to apply")
	}

	// Replay must not double-grant.
	applied, err = s.MarkOrderPaid(ctx, order.OrderID, 100, false)
	if err != nil {
		t.Fatalf("MarkOrderPaid replay failed: %v", err)
	}
	if applied {
		t.Fatalf("expected replay not to apply")
	}

	got, err := s.GetUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if got.Credits != 100 {
		t.Fatalf("expected 100 credits, got %d", got.Credits)
	}

	settled, err := s.GetOrder(ctx, order.OrderID)
	if err != nil {
		t.Fatalf("GetOrder failed: %v", err)
	}
	if settled.Status != domain.OrderStatusPaid || settled.PaidAt == nil {
		t.Fatalf("unexpected order state: %+v", settled)
	}
}

func TestMarkOrderPaidPremium(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user := seedUser(t, s, 0)

	order := &domain.Order{
		OrderID:     uuid.New().String(),
		UserID:      user.ID,
		PlanID:      "premium-monthly",
		AmountCents: 2000,
		Status:      domain.OrderStatusPending,
		CreatedAt:   time.Now(),
	}
	if err := s.CreateOrder(ctx, order); err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}

	if _, err := s.MarkOrderPaid(ctx, order.OrderID, 0, true); err != nil {
		t.Fatalf("MarkOrderPaid failed: %v", err)
	}

	got, err := s.GetUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if !got.IsPremium {
		t.Fatalf("expected premium flag set")
	}
}

func TestEvents(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	convID := uuid.New().String()
	for i, typ := range []domain.EventType{domain.EventTypeChatTurnStarted, domain.EventTypeChatTurnDone} {
		event := &domain.Event{
			EventID:        uuid.New().String(),
			ConversationID: convID,
			Ts:             int64(i + 1),
			Type:           typ,
			Payload:        []byte(`{"model":"gpt"}`),
		}
		if err := s.CreateEvent(ctx, event); err != nil {
			t.Fatalf("CreateEvent failed: %v", err)
		}
	}

	events, err := s.ListEvents(ctx, convID)
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Type != domain.EventTypeChatTurnStarted || events[1].Type != domain.EventTypeChatTurnDone {
		t.Fatalf("unexpected event order: %+v", events)
	}
}
