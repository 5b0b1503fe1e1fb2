// Package store implements durable storage over SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lumenchat/lumenchat/internal/domain"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			credits INTEGER NOT NULL DEFAULT 0,
			is_premium INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			title TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_user ON conversations(user_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS messages (
			message_id TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (conversation_id) REFERENCES conversations(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS orders (
			order_id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			plan_id TEXT NOT NULL,
			amount_cents INTEGER NOT NULL,
			status TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			paid_at DATETIME,
			FOREIGN KEY (user_id) REFERENCES users(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_user ON orders(user_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS events (
			event_id TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			ts INTEGER NOT NULL,
			type TEXT NOT NULL,
			payload TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_conversation ON events(conversation_id, ts)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetUser retrieves a user by ID.
func (s *SQLiteStore) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	var user domain.User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, credits, is_premium, created_at FROM users WHERE id = ?`,
		userID).Scan(&user.ID, &user.Email, &user.Credits, &user.IsPremium, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByEmail retrieves a user by email.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, credits, is_premium, created_at FROM users WHERE email = ?`,
		email).Scan(&user.ID, &user.Email, &user.Credits, &user.IsPremium, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpsertUserByEmail gets the user with this email or creates one seeded
// with the signup credit grant.
func (s *SQLiteStore) UpsertUserByEmail(ctx context.Context, email string, signupCredits int) (*domain.User, error) {
	user, err := s.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user != nil {
		return user, nil
	}

	user = &domain.User{
		ID:        uuid.New().String(),
		Email:     email,
		Credits:   signupCredits,
		CreatedAt: time.Now(),
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, credits, is_premium, created_at) VALUES (?, ?, ?, ?, ?)`,
		user.ID, user.Email, user.Credits, user.IsPremium, user.CreatedAt)
	if err != nil {
		// Lost a race with a concurrent signup for the same email.
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return s.GetUserByEmail(ctx, email)
		}
		return nil, err
	}
	return user, nil
}

// GetConversation retrieves a conversation by ID.
func (s *SQLiteStore) GetConversation(ctx context.Context, conversationID string) (*domain.Conversation, error) {
	var conv domain.Conversation
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, title, created_at FROM conversations WHERE id = ?`,
		conversationID).Scan(&conv.ID, &conv.UserID, &conv.Title, &conv.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// ListConversations lists a user's conversations, newest first.
func (s *SQLiteStore) ListConversations(ctx context.Context, userID string) ([]domain.Conversation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, title, created_at FROM conversations WHERE user_id = ? ORDER BY created_at DESC`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conversations []domain.Conversation
	for rows.Next() {
		var conv domain.Conversation
		if err := rows.Scan(&conv.ID, &conv.UserID, &conv.Title, &conv.CreatedAt); err != nil {
			return nil, err
		}
		conversations = append(conversations, conv)
	}
	return conversations, rows.Err()
}

// GetMessages retrieves a conversation's messages in creation order.
func (s *SQLiteStore) GetMessages(ctx context.Context, conversationID string) ([]domain.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT message_id, conversation_id, role, content, created_at FROM messages
		 WHERE conversation_id = ? ORDER BY created_at ASC, rowid ASC`,
		conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var msg domain.Message
		if err := rows.Scan(&msg.MessageID, &msg.ConversationID, &msg.Role, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// CommitTurn persists a completed chat turn in one transaction.
func (s *SQLiteStore) CommitTurn(ctx context.Context, turn *domain.TurnCommit) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if turn.NewConversation != nil {
		conv := turn.NewConversation
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO conversations (id, user_id, title, created_at) VALUES (?, ?, ?, ?)`,
			conv.ID, conv.UserID, conv.Title, conv.CreatedAt); err != nil {
			return fmt.Errorf("failed to insert conversation: %w", err)
		}
	}

	for _, msg := range []domain.Message{turn.UserMessage, turn.AssistantMessage} {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO messages (message_id, conversation_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)`,
			msg.MessageID, msg.ConversationID, msg.Role, msg.Content, msg.CreatedAt); err != nil {
			return fmt.Errorf("failed to insert message: %w", err)
		}
	}

	if turn.ChargeUserID != "" {
		// Guarded decrement: the balance check at request start and this
		// debit can race between concurrent turns of one user.
		res, err := tx.ExecContext(ctx,
			`UPDATE users SET credits = credits - 1 WHERE id = ? AND credits > 0`,
			turn.ChargeUserID)
		if err != nil {
			return fmt.Errorf("failed to debit credit: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return domain.ErrInsufficientCredits
		}
	}

	return tx.Commit()
}

// CreateOrder creates a new pending order.
func (s *SQLiteStore) CreateOrder(ctx context.Context, order *domain.Order) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO orders (order_id, user_id, plan_id, amount_cents, status, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		order.OrderID, order.UserID, order.PlanID, order.AmountCents, order.Status, order.CreatedAt)
	return err
}

// GetOrder retrieves an order by ID.
func (s *SQLiteStore) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	var order domain.Order
	var paidAt sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT order_id, user_id, plan_id, amount_cents, status, created_at, paid_at FROM orders WHERE order_id = ?`,
		orderID).Scan(&order.OrderID, &order.UserID, &order.PlanID, &order.AmountCents, &order.Status, &order.CreatedAt, &paidAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if paidAt.Valid {
		order.PaidAt = &paidAt.Time
	}
	return &order, nil
}

// MarkOrderPaid settles a pending order and applies its grant atomically.
func (s *SQLiteStore) MarkOrderPaid(ctx context.Context, orderID string, credits int, premium bool) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	res, err := tx.ExecContext(ctx,
		`UPDATE orders SET status = ?, paid_at = ? WHERE order_id = ? AND status = ?`,
		domain.OrderStatusPaid, now, orderID, domain.OrderStatusPending)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected == 0 {
		// Already settled; webhook replay.
		return false, nil
	}

	var userID string
	if err := tx.QueryRowContext(ctx,
		`SELECT user_id FROM orders WHERE order_id = ?`, orderID).Scan(&userID); err != nil {
		return false, err
	}

	if credits > 0 {
		if _, err := tx.ExecContext(ctx,
			`UPDATE users SET credits = credits + ? WHERE id = ?`, credits, userID); err != nil {
			return false, err
		}
	}
	if premium {
		if _, err := tx.ExecContext(ctx,
			`UPDATE users SET is_premium = 1 WHERE id = ?`, userID); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

// CreateEvent creates a new usage event.
func (s *SQLiteStore) CreateEvent(ctx context.Context, event *domain.Event) error {
	payload := ""
	if event.Payload != nil {
		payload = string(event.Payload)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (event_id, conversation_id, ts, type, payload) VALUES (?, ?, ?, ?, ?)`,
		event.EventID, event.ConversationID, event.Ts, event.Type, payload)
	return err
}

// ListEvents retrieves events for a conversation in time order.
func (s *SQLiteStore) ListEvents(ctx context.Context, conversationID string) ([]domain.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT event_id, conversation_id, ts, type, payload FROM events WHERE conversation_id = ? ORDER BY ts ASC`,
		conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var event domain.Event
		var payload sql.NullString
		if err := rows.Scan(&event.EventID, &event.ConversationID, &event.Ts, &event.Type, &payload); err != nil {
			return nil, err
		}
		if payload.Valid {
			event.Payload = []byte(payload.String)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
