package v1

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/lumenchat/lumenchat/internal/auth"
	"github.com/lumenchat/lumenchat/internal/domain"
	"github.com/lumenchat/lumenchat/internal/service"
)

// Chat handles one streamed chat turn.
// POST /v1/chat
func (h *Handler) Chat(c echo.Context) error {
	ctx := c.Request().Context()

	var req service.ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	turn, err := h.service.BeginChatTurn(ctx, auth.UserID(c), &req)
	if err != nil {
		return h.chatError(c, err)
	}
	defer turn.Close()

	// Checked before committing the SSE headers so the error response
	// can still set its own status.
	flusher, ok := c.Response().Writer.(http.Flusher)
	if !ok {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "streaming not supported"})
	}

	header := c.Response().Header()
	header.Set(echo.HeaderContentType, "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	// Lets the client learn the id of a conversation it just started.
	header.Set("X-Conversation-Id", turn.ConversationID())
	c.Response().WriteHeader(http.StatusOK)

	writeFrame := func(v any) {
		data, err := json.Marshal(v)
		if err != nil {
			log.Printf("ERROR: failed to marshal SSE frame: %v", err)
			return
		}
		fmt.Fprintf(c.Response().Writer, "data: %s\n\n", data)
		flusher.Flush()
	}

	streamErr := turn.Stream(ctx, func(delta string) error {
		data, err := json.Marshal(domain.ContentFrame{Content: delta})
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(c.Response().Writer, "data: %s\n\n", data); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	})

	// Commit before the terminal frame; failures stay invisible to the
	// client (the text was already delivered) but are instrumented.
	if err := turn.Finish(ctx, streamErr); err != nil {
		log.Printf("ERROR: chat turn finish failed: %v", err)
	}

	if streamErr != nil {
		log.Printf("ERROR: chat stream failed: %v", streamErr)
		writeFrame(domain.ErrorFrame{Error: "upstream error"})
	} else {
		writeFrame(domain.DoneFrame{Done: true})
	}
	return nil
}

// chatError maps pre-stream errors to HTTP statuses.
func (h *Handler) chatError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrInsufficientCredits), errors.Is(err, domain.ErrModelNotAllowed):
		return c.JSON(http.StatusForbidden, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrConversationNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	default:
		log.Printf("ERROR: failed to begin chat turn: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

// ListModels proxies the upstream model list.
// GET /v1/models
func (h *Handler) ListModels(c echo.Context) error {
	models, err := h.service.ListModels(c.Request().Context())
	if err != nil {
		log.Printf("ERROR: failed to list models: %v", err)
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "upstream error"})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"object": "list",
		"data":   models,
	})
}
