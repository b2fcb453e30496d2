// Package llm provides LLM backend abstractions.
//
// Provider is the transport capability: each implementation hides
// - API client initialization and authentication
// - Request/response format conversion to and from the neutral form
// - Backend-specific error handling
package llm

import (
	"context"
)

// Provider defines the abstract interface for LLM backends.
// Implementations hide backend-specific details while exposing
// a consistent interface for chat completions.
type Provider interface {
	// Name returns the backend name (for logging/debugging).
	Name() string

	// Model returns the current model being used.
	Model() string

	// Chat sends a chat completion request.
	Chat(ctx context.Context, messages []ChatMessage) (Response, error)

	// ChatWithFormat sends a chat completion request with response format.
	ChatWithFormat(ctx context.Context, messages []ChatMessage, format *ResponseFormat) (Response, error)
}
