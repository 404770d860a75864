// Package llm provides abstractions for interacting with text completion APIs.
package llm

import (
	"context"
	"errors"
)

// Common errors returned by completion clients.
var (
	// ErrMissingAPIKey is returned when no credential is configured.
	// Adapters must return it before any network attempt is made.
	ErrMissingAPIKey = errors.New("missing or invalid API key")

	// ErrAPIError is returned for any transport, HTTP, or parse failure
	// from the remote provider.
	ErrAPIError = errors.New("API error")

	// ErrRateLimited is returned when the API rate limit has been exceeded.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrModelNotFound is returned when the requested model is not available.
	ErrModelNotFound = errors.New("model not found")
)

// Role constants for chat messages.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Client defines the interface for text completion providers.
// Implementations should be safe for concurrent use.
type Client interface {
	// Complete sends a chat request and returns the full response in one shot.
	Complete(ctx context.Context, req ChatRequest) (*Completion, error)

	// Stream sends a chat request and returns a channel of incremental
	// chunks. The channel is closed after a terminal chunk: either Done is
	// true or Error is set. The stream is finite and not restartable.
	Stream(ctx context.Context, req ChatRequest) (<-chan StreamChunk, error)

	// Capabilities returns the capabilities of this client.
	Capabilities() Capabilities

	// Close releases any resources held by the client.
	Close() error
}

// ChatRequest represents a request to the completion API.
type ChatRequest struct {
	// Messages is the ordered prompt: system instruction first, then the
	// history window, then the current user message.
	Messages []ChatMessage

	// Model overrides the adapter's default model when non-empty.
	Model string

	// MaxTokens caps the generated output. 0 means provider default.
	MaxTokens int

	// Temperature controls randomness in the response (0.0-2.0).
	Temperature float64
}

// ChatMessage represents a single message in a conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Completion is the full response to a one-shot request.
type Completion struct {
	// Content is the generated text.
	Content string

	// Usage contains token usage statistics when reported by the provider.
	Usage TokenUsage

	// Model is the actual model used.
	Model string
}

// StreamChunk represents a single chunk in a streaming response.
type StreamChunk struct {
	// Delta is the incremental text content.
	Delta string

	// Done indicates this is the final chunk of a successful stream.
	Done bool

	// Usage is optionally included in the final chunk.
	Usage *TokenUsage

	// Error is set on the terminal chunk of a failed stream. Any deltas
	// received before it are partial output; the caller decides whether
	// to keep them.
	Error error
}

// TokenUsage contains token usage statistics for a request.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Capabilities describes what a client supports.
type Capabilities struct {
	// MaxContextTokens is the maximum context window size.
	MaxContextTokens int

	// MaxOutputTokens is the maximum number of tokens the model can generate.
	MaxOutputTokens int

	// TokenizerType identifies the tokenizer used for token counting,
	// e.g. "cl100k_base".
	TokenizerType string

	// Models lists the available model names.
	Models []string
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(content string) ChatMessage {
	return ChatMessage{Role: RoleSystem, Content: content}
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) ChatMessage {
	return ChatMessage{Role: RoleUser, Content: content}
}

// NewAssistantMessage creates a new assistant message.
func NewAssistantMessage(content string) ChatMessage {
	return ChatMessage{Role: RoleAssistant, Content: content}
}

// IsTerminal returns true if this chunk ends the stream.
func (c StreamChunk) IsTerminal() bool {
	return c.Done || c.Error != nil
}
