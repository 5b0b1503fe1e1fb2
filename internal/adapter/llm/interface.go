package llm

import "context"

// CompletionClient defines the interface for the upstream completions
// provider.
type CompletionClient interface {
	// StreamChatCompletion sends a streaming chat completion request.
	// The callback is called for each content delta received.
	StreamChatCompletion(ctx context.Context, req *ChatCompletionRequest, onDelta DeltaCallback) error

	// ListModels retrieves the list of available models.
	ListModels(ctx context.Context) ([]Model, error)
}

// Ensure Client implements CompletionClient.
var _ CompletionClient = (*Client)(nil)
