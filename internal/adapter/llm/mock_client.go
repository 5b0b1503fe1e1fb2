package llm

import (
	"context"
	"fmt"
	"time"
)

// MockClient is a canned implementation of CompletionClient for local
// development without an upstream key.
type MockClient struct{}

// NewMockClient creates a new mock completion client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

var _ CompletionClient = (*MockClient)(nil)

// StreamChatCompletion streams a canned reply word by word.
func (m *MockClient) StreamChatCompletion(ctx context.Context, req *ChatCompletionRequest, onDelta DeltaCallback) error {
	reply := fmt.Sprintf("This is a mock reply from %s. ", req.Model)
	words := []string{reply, "Set UPSTREAM_API_KEY ", "to talk to a real model."}

	for _, w := range words {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(20 * time.Millisecond):
		}
		if err := onDelta(w); err != nil {
			return err
		}
	}
	return nil
}

// ListModels returns a single mock model.
func (m *MockClient) ListModels(ctx context.Context) ([]Model, error) {
	return []Model{{ID: "mock-model", Object: "model", Created: time.Now().Unix(), OwnedBy: "lumenchat"}}, nil
}
