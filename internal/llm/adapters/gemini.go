package adapters

import (
	"context"
	"fmt"
	"strings"

	"github.com/sadnessbroccoli/luminary/internal/llm"
	"google.golang.org/genai"
)

// geminiModelCapabilities maps model names to their capabilities.
var geminiModelCapabilities = map[string]llm.Capabilities{
	"gemini-2.0-flash": {
		MaxContextTokens: 1048576,
		MaxOutputTokens:  8192,
		TokenizerType:    "gemini",
	},
	"gemini-2.5-flash": {
		MaxContextTokens: 1048576,
		MaxOutputTokens:  65536,
		TokenizerType:    "gemini",
	},
	"gemini-2.5-pro": {
		MaxContextTokens: 1048576,
		MaxOutputTokens:  65536,
		TokenizerType:    "gemini",
	},
}

// defaultGeminiCapabilities are used when the model is not in the known list.
var defaultGeminiCapabilities = llm.Capabilities{
	MaxContextTokens: 128000,
	MaxOutputTokens:  8192,
	TokenizerType:    "gemini",
}

// GeminiAdapter implements the Client interface for Google's Gemini API.
type GeminiAdapter struct {
	client *genai.Client
	model  string
}

// NewGeminiAdapter creates a new GeminiAdapter.
func NewGeminiAdapter(ctx context.Context, apiKey, model string) (*GeminiAdapter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: configure GEMINI_API_KEY", llm.ErrMissingAPIKey)
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiAdapter{client: client, model: model}, nil
}

// Complete sends a chat completion request and returns the full response.
func (a *GeminiAdapter) Complete(ctx context.Context, req llm.ChatRequest) (*llm.Completion, error) {
	contents, systemInstruction := a.convertMessages(req.Messages)
	config := a.buildConfig(req, systemInstruction)

	result, err := a.client.Models.GenerateContent(ctx, a.modelFor(req), contents, config)
	if err != nil {
		return nil, a.wrapError(err)
	}

	if len(result.Candidates) == 0 {
		return nil, fmt.Errorf("%w: no candidates in response", llm.ErrAPIError)
	}

	completion := &llm.Completion{
		Content: collectText(result),
		Model:   a.model,
	}
	if result.UsageMetadata != nil {
		completion.Usage = llm.TokenUsage{
			PromptTokens:     int(result.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(result.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(result.UsageMetadata.TotalTokenCount),
		}
	}
	return completion, nil
}

// Stream sends a chat completion request and returns a channel of chunks.
func (a *GeminiAdapter) Stream(ctx context.Context, req llm.ChatRequest) (<-chan llm.StreamChunk, error) {
	contents, systemInstruction := a.convertMessages(req.Messages)
	config := a.buildConfig(req, systemInstruction)

	chunks := make(chan llm.StreamChunk, 100)
	go a.processStream(ctx, a.modelFor(req), contents, config, chunks)
	return chunks, nil
}

// processStream handles the streaming response from Gemini.
func (a *GeminiAdapter) processStream(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig, chunks chan<- llm.StreamChunk) {
	defer close(chunks)

	iter := a.client.Models.GenerateContentStream(ctx, model, contents, config)

	for result, err := range iter {
		select {
		case <-ctx.Done():
			chunks <- llm.StreamChunk{Error: ctx.Err()}
			return
		default:
		}

		if err != nil {
			chunks <- llm.StreamChunk{Error: a.wrapError(err)}
			return
		}

		chunk := llm.StreamChunk{Delta: collectText(result)}
		if len(result.Candidates) > 0 && result.Candidates[0].FinishReason != "" {
			chunk.Done = true
		}
		if result.UsageMetadata != nil {
			chunk.Usage = &llm.TokenUsage{
				PromptTokens:     int(result.UsageMetadata.PromptTokenCount),
				CompletionTokens: int(result.UsageMetadata.CandidatesTokenCount),
				TotalTokens:      int(result.UsageMetadata.TotalTokenCount),
			}
		}
		chunks <- chunk

		if chunk.Done {
			return
		}
	}

	chunks <- llm.StreamChunk{Done: true}
}

// Capabilities returns the client's capabilities.
func (a *GeminiAdapter) Capabilities() llm.Capabilities {
	if caps, ok := geminiModelCapabilities[a.model]; ok {
		caps.Models = []string{a.model}
		return caps
	}
	for prefix, caps := range geminiModelCapabilities {
		if strings.HasPrefix(a.model, prefix) {
			caps.Models = []string{a.model}
			return caps
		}
	}
	caps := defaultGeminiCapabilities
	caps.Models = []string{a.model}
	return caps
}

// Close releases resources held by the adapter.
func (a *GeminiAdapter) Close() error {
	return nil
}

func (a *GeminiAdapter) modelFor(req llm.ChatRequest) string {
	if req.Model != "" {
		return req.Model
	}
	return a.model
}

// convertMessages converts our ChatMessage slice to Gemini's Content format.
// Gemini takes the system prompt as a separate system instruction.
func (a *GeminiAdapter) convertMessages(messages []llm.ChatMessage) ([]*genai.Content, *genai.Content) {
	var systemInstruction *genai.Content
	var contents []*genai.Content

	for _, msg := range messages {
		switch msg.Role {
		case llm.RoleSystem:
			systemInstruction = &genai.Content{
				Parts: []*genai.Part{{Text: msg.Content}},
			}
		case llm.RoleUser:
			contents = append(contents, &genai.Content{
				Role:  "user",
				Parts: []*genai.Part{{Text: msg.Content}},
			})
		case llm.RoleAssistant:
			contents = append(contents, &genai.Content{
				Role:  "model",
				Parts: []*genai.Part{{Text: msg.Content}},
			})
		}
	}

	return contents, systemInstruction
}

// buildConfig creates the GenerateContentConfig from our ChatRequest.
func (a *GeminiAdapter) buildConfig(req llm.ChatRequest, systemInstruction *genai.Content) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{}

	if systemInstruction != nil {
		config.SystemInstruction = systemInstruction
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.Temperature > 0 {
		config.Temperature = genai.Ptr(float32(req.Temperature))
	}

	return config
}

// collectText joins the text parts of the first candidate.
func collectText(result *genai.GenerateContentResponse) string {
	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}

// wrapError wraps Gemini errors in our error types.
func (a *GeminiAdapter) wrapError(err error) error {
	if err == nil {
		return nil
	}

	errStr := err.Error()
	switch {
	case strings.Contains(errStr, "API key"):
		return fmt.Errorf("%w: %s", llm.ErrMissingAPIKey, errStr)
	case strings.Contains(errStr, "not found") || strings.Contains(errStr, "404"):
		return fmt.Errorf("%w: %s", llm.ErrModelNotFound, errStr)
	case strings.Contains(errStr, "rate limit") || strings.Contains(errStr, "429"):
		return fmt.Errorf("%w: %s", llm.ErrRateLimited, errStr)
	default:
		return fmt.Errorf("%w: %s", llm.ErrAPIError, errStr)
	}
}

// Verify GeminiAdapter implements the Client interface.
var _ llm.Client = (*GeminiAdapter)(nil)
