package v1

import (
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/lumenchat/lumenchat/internal/auth"
	"github.com/lumenchat/lumenchat/internal/domain"
)

// ListConversations returns the caller's conversations.
// GET /v1/conversations
func (h *Handler) ListConversations(c echo.Context) error {
	conversations, err := h.service.ListConversations(c.Request().Context(), auth.UserID(c))
	if err != nil {
		log.Printf("ERROR: failed to list conversations: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to list conversations"})
	}
	if conversations == nil {
		conversations = []domain.Conversation{}
	}
	return c.JSON(http.StatusOK, map[string]any{"conversations": conversations})
}

// GetConversation returns one conversation with its messages.
// GET /v1/conversations/:conversation_id
func (h *Handler) GetConversation(c echo.Context) error {
	conv, messages, err := h.service.GetConversation(c.Request().Context(), auth.UserID(c), c.Param("conversation_id"))
	if err != nil {
		if errors.Is(err, domain.ErrConversationNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "conversation not found"})
		}
		log.Printf("ERROR: failed to get conversation: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to get conversation"})
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	return c.JSON(http.StatusOK, map[string]any{
		"conversation": conv,
		"messages":     messages,
	})
}

// GetCredits returns the caller's balance and plan.
// GET /v1/credits
func (h *Handler) GetCredits(c echo.Context) error {
	user, err := h.service.Credits(c.Request().Context(), auth.UserID(c))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "user not found"})
		}
		log.Printf("ERROR: failed to get credits: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to get credits"})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"credits":    user.Credits,
		"is_premium": user.IsPremium,
	})
}
