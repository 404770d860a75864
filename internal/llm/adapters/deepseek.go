// Package adapters provides completion client implementations.
package adapters

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sadnessbroccoli/luminary/internal/llm"
	openai "github.com/sashabaranov/go-openai"
)

// DefaultDeepSeekBaseURL is the DeepSeek OpenAI-compatible endpoint.
const DefaultDeepSeekBaseURL = "https://api.deepseek.com"

// deepseekModelCapabilities maps model names to their capabilities.
var deepseekModelCapabilities = map[string]llm.Capabilities{
	"deepseek-chat": {
		MaxContextTokens: 65536,
		MaxOutputTokens:  8192,
		TokenizerType:    "cl100k_base",
	},
	"deepseek-reasoner": {
		MaxContextTokens: 65536,
		MaxOutputTokens:  65536,
		TokenizerType:    "cl100k_base",
	},
}

// defaultDeepSeekCapabilities is used for unknown models.
var defaultDeepSeekCapabilities = llm.Capabilities{
	MaxContextTokens: 65536,
	MaxOutputTokens:  4096,
	TokenizerType:    "cl100k_base",
}

// DeepSeekAdapter implements the Client interface against any
// OpenAI-compatible chat completion API; DeepSeek is the default target.
type DeepSeekAdapter struct {
	client *openai.Client
	apiKey string
	model  string
}

// DeepSeekConfig holds configuration for the DeepSeek adapter.
type DeepSeekConfig struct {
	// BaseURL overrides the default API URL (for compatible APIs).
	BaseURL string

	// Timeout is the request timeout duration.
	Timeout time.Duration
}

// DeepSeekOption configures a DeepSeekAdapter.
type DeepSeekOption func(*DeepSeekConfig)

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL string) DeepSeekOption {
	return func(c *DeepSeekConfig) {
		c.BaseURL = baseURL
	}
}

// WithTimeout sets the request timeout.
func WithTimeout(timeout time.Duration) DeepSeekOption {
	return func(c *DeepSeekConfig) {
		c.Timeout = timeout
	}
}

// NewDeepSeekAdapter creates a new DeepSeek adapter. The API key may be
// empty; in that case every request fails with ErrMissingAPIKey before any
// network call, so a missing credential degrades rather than crashes.
func NewDeepSeekAdapter(apiKey, model string, opts ...DeepSeekOption) *DeepSeekAdapter {
	if model == "" {
		model = "deepseek-chat"
	}

	config := DeepSeekConfig{
		BaseURL: DefaultDeepSeekBaseURL,
		Timeout: 120 * time.Second,
	}
	for _, opt := range opts {
		opt(&config)
	}

	clientConfig := openai.DefaultConfig(apiKey)
	clientConfig.BaseURL = config.BaseURL

	return &DeepSeekAdapter{
		client: openai.NewClientWithConfig(clientConfig),
		apiKey: apiKey,
		model:  model,
	}
}

// Complete sends a chat completion request and returns the full response.
func (a *DeepSeekAdapter) Complete(ctx context.Context, req llm.ChatRequest) (*llm.Completion, error) {
	if a.apiKey == "" {
		return nil, fmt.Errorf("%w: configure DEEPSEEK_API_KEY", llm.ErrMissingAPIKey)
	}

	resp, err := a.client.CreateChatCompletion(ctx, a.buildRequest(req))
	if err != nil {
		return nil, a.handleError(err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices in response", llm.ErrAPIError)
	}

	return &llm.Completion{
		Content: resp.Choices[0].Message.Content,
		Usage: llm.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
		Model: resp.Model,
	}, nil
}

// Stream sends a chat completion request and streams the response.
func (a *DeepSeekAdapter) Stream(ctx context.Context, req llm.ChatRequest) (<-chan llm.StreamChunk, error) {
	if a.apiKey == "" {
		return nil, fmt.Errorf("%w: configure DEEPSEEK_API_KEY", llm.ErrMissingAPIKey)
	}

	openAIReq := a.buildRequest(req)
	openAIReq.Stream = true

	stream, err := a.client.CreateChatCompletionStream(ctx, openAIReq)
	if err != nil {
		return nil, a.handleError(err)
	}

	chunks := make(chan llm.StreamChunk, 100)
	go a.processStream(ctx, stream, chunks)
	return chunks, nil
}

// processStream reads from the provider stream and sends chunks to the channel.
func (a *DeepSeekAdapter) processStream(ctx context.Context, stream *openai.ChatCompletionStream, chunks chan<- llm.StreamChunk) {
	defer close(chunks)
	defer stream.Close()

	for {
		select {
		case <-ctx.Done():
			chunks <- llm.StreamChunk{Error: ctx.Err()}
			return
		default:
		}

		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			chunks <- llm.StreamChunk{Done: true}
			return
		}
		if err != nil {
			chunks <- llm.StreamChunk{Error: a.handleError(err)}
			return
		}

		if len(resp.Choices) == 0 {
			continue
		}

		choice := resp.Choices[0]
		chunk := llm.StreamChunk{
			Delta: choice.Delta.Content,
			Done:  choice.FinishReason != "",
		}
		if resp.Usage != nil {
			chunk.Usage = &llm.TokenUsage{
				PromptTokens:     resp.Usage.PromptTokens,
				CompletionTokens: resp.Usage.CompletionTokens,
				TotalTokens:      resp.Usage.TotalTokens,
			}
		}
		chunks <- chunk

		if chunk.Done {
			return
		}
	}
}

// Capabilities returns the client's capabilities.
func (a *DeepSeekAdapter) Capabilities() llm.Capabilities {
	caps, ok := deepseekModelCapabilities[a.model]
	if !ok {
		caps = defaultDeepSeekCapabilities
	}
	caps.Models = []string{"deepseek-chat", "deepseek-reasoner"}
	return caps
}

// Close releases resources held by the adapter.
func (a *DeepSeekAdapter) Close() error {
	return nil
}

// Model returns the current model name.
func (a *DeepSeekAdapter) Model() string {
	return a.model
}

// buildRequest converts our ChatRequest to the OpenAI wire format.
func (a *DeepSeekAdapter) buildRequest(req llm.ChatRequest) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, msg := range req.Messages {
		messages[i] = openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	model := req.Model
	if model == "" {
		model = a.model
	}

	openAIReq := openai.ChatCompletionRequest{
		Model:    model,
		Messages: messages,
	}
	if req.MaxTokens > 0 {
		openAIReq.MaxTokens = req.MaxTokens
	}
	if req.Temperature > 0 {
		openAIReq.Temperature = float32(req.Temperature)
	}
	return openAIReq
}

// handleError converts provider errors to our error types.
func (a *DeepSeekAdapter) handleError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("request canceled: %w", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request timed out: %w", err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case 401:
			return fmt.Errorf("%w: %s", llm.ErrMissingAPIKey, apiErr.Message)
		case 404:
			return fmt.Errorf("%w: %s", llm.ErrModelNotFound, apiErr.Message)
		case 429:
			return fmt.Errorf("%w: %s", llm.ErrRateLimited, apiErr.Message)
		case 500, 502, 503, 504:
			return fmt.Errorf("%w: server error - %s", llm.ErrAPIError, apiErr.Message)
		default:
			return fmt.Errorf("%w: HTTP %d - %s", llm.ErrAPIError, apiErr.HTTPStatusCode, apiErr.Message)
		}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("%w: %s", llm.ErrAPIError, reqErr.Error())
	}

	return fmt.Errorf("%w: %s", llm.ErrAPIError, err.Error())
}

// Verify DeepSeekAdapter implements the Client interface.
var _ llm.Client = (*DeepSeekAdapter)(nil)
