package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lumenchat/lumenchat/internal/adapter/llm"
	"github.com/lumenchat/lumenchat/internal/domain"
	"github.com/lumenchat/lumenchat/internal/policy"
)

// titleLen is how much of the first user message becomes the conversation
// title.
const titleLen = 20

// ChatRequest is the body of a chat turn request.
type ChatRequest struct {
	Message        string   `json:"message" validate:"required"`
	Model          string   `json:"model" validate:"required"`
	ConversationID string   `json:"conversation_id,omitempty" validate:"omitempty,uuid4"`
	Images         []string `json:"images,omitempty" validate:"omitempty,dive,url"`
}

// ChatTurn is one in-flight chat turn: prepared by BeginChatTurn, streamed
// with Stream, settled with Finish, and released with Close.
type ChatTurn struct {
	svc *Service

	user            *domain.User
	conversationID  string
	newConversation bool
	history         []domain.Message
	req             *ChatRequest

	acc       strings.Builder
	deltas    int
	startedAt time.Time
	unlock    func()
}

// BeginChatTurn validates, authorizes, meters and hydrates a chat turn.
// Everything that can fail with a plain HTTP error happens here, before the
// response commits to SSE.
func (s *Service) BeginChatTurn(ctx context.Context, userID string, req *ChatRequest) (*ChatTurn, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	if !user.IsPremium && user.Credits <= 0 {
		return nil, domain.ErrInsufficientCredits
	}

	decision, err := s.policy.Evaluate(ctx, policy.Input{
		Model:     req.Model,
		IsPremium: user.IsPremium,
		Credits:   user.Credits,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate model policy: %w", err)
	}
	if decision != "allow" {
		return nil, domain.ErrModelNotAllowed
	}

	conversationID := req.ConversationID
	newConversation := false
	if conversationID == "" {
		conversationID = uuid.New().String()
		newConversation = true
	} else {
		conv, err := s.store.GetConversation(ctx, conversationID)
		if err != nil {
			return nil, fmt.Errorf("failed to load conversation: %w", err)
		}
		if conv == nil {
			// Client-supplied id for a conversation it starts itself.
			newConversation = true
		} else if conv.UserID != userID {
			return nil, domain.ErrConversationNotFound
		}
	}

	turn := &ChatTurn{
		svc:             s,
		user:            user,
		conversationID:  conversationID,
		newConversation: newConversation,
		req:             req,
		startedAt:       time.Now(),
		unlock:          s.cache.Lock(conversationID),
	}

	history, loaded := s.cache.Get(conversationID)
	if !loaded {
		history, err = s.store.GetMessages(ctx, conversationID)
		if err != nil {
			turn.Close()
			return nil, fmt.Errorf("failed to hydrate history: %w", err)
		}
		s.cache.Put(conversationID, history)
	}
	turn.history = history

	return turn, nil
}

// ConversationID returns the id of the conversation this turn belongs to,
// freshly generated for new conversations.
func (t *ChatTurn) ConversationID() string {
	return t.conversationID
}

// Close releases the per-conversation lock.
func (t *ChatTurn) Close() {
	if t.unlock != nil {
		t.unlock()
		t.unlock = nil
	}
}

// Stream relays the upstream completion, invoking onDelta per text delta
// and accumulating the full reply. Cancelling ctx (client disconnect)
// aborts the upstream read.
func (t *ChatTurn) Stream(ctx context.Context, onDelta func(delta string) error) error {
	s := t.svc

	s.recordEvent(ctx, t.conversationID, domain.EventTypeChatTurnStarted, domain.ChatTurnStartedPayload{
		UserID: t.user.ID,
		Model:  t.req.Model,
	})

	messages := make([]llm.ChatMessage, 0, len(t.history)+1)
	for _, msg := range t.history {
		messages = append(messages, llm.TextMessage(string(msg.Role), msg.Content))
	}
	// Out-of-band image attachments bind to the new (last) user message.
	messages = append(messages, llm.MultimodalMessage(string(domain.RoleUser), t.req.Message, t.req.Images))

	err := s.llm.StreamChatCompletion(ctx, &llm.ChatCompletionRequest{
		Model:    t.req.Model,
		Messages: messages,
	}, func(delta string) error {
		t.acc.WriteString(delta)
		t.deltas++
		return onDelta(delta)
	})

	payload := domain.ChatTurnDonePayload{
		UserID:     t.user.ID,
		Model:      t.req.Model,
		LatencyMs:  time.Since(t.startedAt).Milliseconds(),
		DeltaCount: t.deltas,
		Chars:      t.acc.Len(),
	}
	outcome := "ok"
	if err != nil {
		payload.Error = err.Error()
		outcome = "error"
	}
	// The stream may have ended because the client disconnected and
	// cancelled ctx; the event must still land.
	s.recordEvent(context.WithoutCancel(ctx), t.conversationID, domain.EventTypeChatTurnDone, payload)
	s.metrics.ChatTurns.WithLabelValues(outcome).Inc()

	return err
}

// Finish commits the turn: both messages, the conversation row when new,
// and the credit debit, in one transaction. A turn that errored before
// producing any output is not committed and not charged; one that errored
// mid-stream keeps its partial text and is still charged, since the
// compute was spent. Commit failures after delivery are swallowed here but
// logged, counted and recorded for reconciliation.
func (t *ChatTurn) Finish(ctx context.Context, streamErr error) error {
	s := t.svc

	if streamErr != nil && t.deltas == 0 {
		return nil
	}

	// A client disconnect cancels the request context mid-stream; the
	// commit, debit and reconciliation event must not be cancelled with it.
	ctx = context.WithoutCancel(ctx)

	now := time.Now()
	userMsg := domain.Message{
		MessageID:      uuid.New().String(),
		ConversationID: t.conversationID,
		Role:           domain.RoleUser,
		Content:        t.req.Message,
		CreatedAt:      now,
	}
	assistantMsg := domain.Message{
		MessageID:      uuid.New().String(),
		ConversationID: t.conversationID,
		Role:           domain.RoleAssistant,
		Content:        t.acc.String(),
		CreatedAt:      now,
	}

	commit := &domain.TurnCommit{
		UserMessage:      userMsg,
		AssistantMessage: assistantMsg,
	}
	if t.newConversation {
		commit.NewConversation = &domain.Conversation{
			ID:        t.conversationID,
			UserID:    t.user.ID,
			Title:     deriveTitle(t.req.Message),
			CreatedAt: now,
		}
	}
	if !t.user.IsPremium {
		commit.ChargeUserID = t.user.ID
	}

	if err := s.store.CommitTurn(ctx, commit); err != nil {
		s.metrics.CommitFailures.Inc()
		s.recordEvent(ctx, t.conversationID, domain.EventTypeCommitFailed, domain.CommitFailedPayload{
			UserID:  t.user.ID,
			Model:   t.req.Model,
			Message: t.req.Message,
			Chars:   t.acc.Len(),
			Error:   err.Error(),
		})
		log.Printf("ERROR: turn commit failed user=%s conversation=%s chars=%d: %v",
			t.user.ID, t.conversationID, t.acc.Len(), err)
		// The cache would now disagree with durable storage.
		s.cache.Invalidate(t.conversationID)
		return fmt.Errorf("failed to commit turn: %w", err)
	}

	if commit.ChargeUserID != "" {
		s.metrics.CreditsCharged.Inc()
	}
	s.cache.Append(t.conversationID, userMsg, assistantMsg)
	return nil
}

// ListModels proxies the upstream model list.
func (s *Service) ListModels(ctx context.Context) ([]llm.Model, error) {
	return s.llm.ListModels(ctx)
}

// recordEvent appends a usage event, best-effort.
func (s *Service) recordEvent(ctx context.Context, conversationID string, eventType domain.EventType, payload any) {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		log.Printf("WARN: failed to marshal event payload: %v", err)
		return
	}

	event := &domain.Event{
		EventID:        "evt_" + uuid.New().String()[:8],
		ConversationID: conversationID,
		Ts:             time.Now().UnixMilli(),
		Type:           eventType,
		Payload:        payloadJSON,
	}
	if err := s.store.CreateEvent(ctx, event); err != nil {
		log.Printf("WARN: failed to record %s event: %v", eventType, err)
	}
}

// deriveTitle takes the first turn's opening characters, rune-safe.
func deriveTitle(message string) string {
	runes := []rune(message)
	if len(runes) <= titleLen {
		return message
	}
	return string(runes[:titleLen])
}
