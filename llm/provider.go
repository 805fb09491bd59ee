// Package llm provides the inference-capability abstraction.
//
// The pipeline consumes two capabilities - cheap decision classification
// and heavier suggestion generation - through the same Provider interface,
// usually pointed at different models of the same backend. Each provider
// implementation hides:
// - API client initialization and authentication
// - Request/response format conversion
// - Provider-specific error handling

package llm

import (
	"context"
)

// Provider is the abstract interface over one inference backend + model.
type Provider interface {
	// Name returns the provider name (for logging/debugging).
	Name() string

	// Model returns the current model being used.
	Model() string

	// Chat sends a chat completion request.
	Chat(ctx context.Context, messages []ChatMessage) (Response, error)

	// ChatWithFormat sends a chat completion request with a response format
	// hint. Providers without native format support ignore the hint; callers
	// must still parse defensively.
	ChatWithFormat(ctx context.Context, messages []ChatMessage, format *ResponseFormat) (Response, error)
}
