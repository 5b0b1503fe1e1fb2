package service

import (
	"context"
	"fmt"

	"github.com/lumenchat/lumenchat/internal/domain"
)

// ListConversations returns the caller's conversations, newest first.
func (s *Service) ListConversations(ctx context.Context, userID string) ([]domain.Conversation, error) {
	conversations, err := s.store.ListConversations(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	return conversations, nil
}

// GetConversation returns one of the caller's conversations with its
// ordered messages.
func (s *Service) GetConversation(ctx context.Context, userID, conversationID string) (*domain.Conversation, []domain.Message, error) {
	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	if conv == nil || conv.UserID != userID {
		return nil, nil, domain.ErrConversationNotFound
	}

	messages, err := s.store.GetMessages(ctx, conversationID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get messages: %w", err)
	}
	return conv, messages, nil
}

// Credits returns the caller's balance and plan flag.
func (s *Service) Credits(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}
