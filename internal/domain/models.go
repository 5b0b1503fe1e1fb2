// Package domain defines the core domain models for the chat backend.
package domain

import (
	"encoding/json"
	"time"
)

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// User represents an account with a metered credit balance.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Credits   int       `json:"credits"`
	IsPremium bool      `json:"is_premium"`
	CreatedAt time.Time `json:"created_at"`
}

// Conversation groups an ordered message history under a title.
type Conversation struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// Message is a single turn within a conversation. Immutable once persisted.
type Message struct {
	MessageID      string    `json:"message_id"`
	ConversationID string    `json:"conversation_id"`
	Role           Role      `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// TurnCommit is the unit of durable work at the end of a chat turn: the two
// new messages, the conversation row when this is the first turn, and the
// credit debit, all applied in one transaction.
type TurnCommit struct {
	// NewConversation is non-nil only on the first turn of a conversation.
	NewConversation  *Conversation
	UserMessage      Message
	AssistantMessage Message
	// ChargeUserID is the user to debit one credit from. Empty for
	// unlimited-plan users.
	ChargeUserID string
}

// OrderStatus represents the lifecycle state of a billing order.
type OrderStatus string

const (
	OrderStatusPending OrderStatus = "pending"
	OrderStatusPaid    OrderStatus = "paid"
)

// Order is a purchase of a plan, settled by the payment gateway webhook.
type Order struct {
	OrderID     string      `json:"order_id"`
	UserID      string      `json:"user_id"`
	PlanID      string      `json:"plan_id"`
	AmountCents int         `json:"amount_cents"`
	Status      OrderStatus `json:"status"`
	CreatedAt   time.Time   `json:"created_at"`
	PaidAt      *time.Time  `json:"paid_at,omitempty"`
}

// Plan is a purchasable credit pack or the premium subscription.
type Plan struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Credits     int    `json:"credits"`
	Premium     bool   `json:"premium"`
	AmountCents int    `json:"amount_cents"`
}

// Plans returns the purchasable plan catalog.
func Plans() []Plan {
	return []Plan{
		{ID: "pack-100", Name: "100 credits", Credits: 100, AmountCents: 499},
		{ID: "pack-500", Name: "500 credits", Credits: 500, AmountCents: 1999},
		{ID: "premium-monthly", Name: "Premium (monthly)", Premium: true, AmountCents: 999},
	}
}

// PlanByID looks up a plan in the catalog.
func PlanByID(id string) (Plan, bool) {
	for _, p := range Plans() {
		if p.ID == id {
			return p, true
		}
	}
	return Plan{}, false
}

// EventType represents the type of a usage event.
type EventType string

const (
	EventTypeChatTurnStarted EventType = "chat_turn_started"
	EventTypeChatTurnDone    EventType = "chat_turn_done"
	EventTypeCommitFailed    EventType = "commit_failed"
)

// Event is an append-only usage record, also used to reconcile turns whose
// final commit failed after the stream was already delivered.
type Event struct {
	EventID        string          `json:"event_id"`
	ConversationID string          `json:"conversation_id"`
	Ts             int64           `json:"ts"` // Unix milliseconds
	Type           EventType       `json:"type"`
	Payload        json.RawMessage `json:"payload,omitempty"`
}

// ChatTurnStartedPayload is the payload for chat_turn_started events.
type ChatTurnStartedPayload struct {
	UserID string `json:"user_id"`
	Model  string `json:"model"`
}

// ChatTurnDonePayload is the payload for chat_turn_done events.
type ChatTurnDonePayload struct {
	UserID     string `json:"user_id"`
	Model      string `json:"model"`
	LatencyMs  int64  `json:"latency_ms"`
	DeltaCount int    `json:"delta_count"`
	Chars      int    `json:"chars"`
	Error      string `json:"error,omitempty"`
}

// CommitFailedPayload carries enough context to reconcile a delivered but
// unpersisted turn by hand.
type CommitFailedPayload struct {
	UserID  string `json:"user_id"`
	Model   string `json:"model"`
	Message string `json:"message"`
	Chars   int    `json:"chars"`
	Error   string `json:"error"`
}
