// Package story generates standalone creative pieces about a celebrity.
package story

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sadnessbroccoli/luminary/internal/llm"
	"github.com/sadnessbroccoli/luminary/internal/prompt"
	"github.com/sadnessbroccoli/luminary/pkg/types"
)

// Temperature for creative generation. Stories run hotter than chat turns.
const Temperature = 0.8

// Story is a finished piece together with the request that produced it.
type Story struct {
	Request   types.CreativeRequest
	Content   string
	Model     string
	Usage     llm.TokenUsage
	CreatedAt time.Time
}

// Generator turns creative requests into finished stories. Unlike the chat
// engine it has no fallback path: a failed generation surfaces its error.
type Generator struct {
	client llm.Client
	model  string
}

// NewGenerator creates a generator bound to one client and model.
func NewGenerator(client llm.Client, model string) *Generator {
	return &Generator{client: client, model: model}
}

// Generate produces a story for the request. The token ceiling is twice the
// requested character length, enough headroom for CJK text where one
// character can cost more than one token.
func (g *Generator) Generate(ctx context.Context, req types.CreativeRequest) (*Story, error) {
	req.Normalize()

	chatReq := llm.ChatRequest{
		Messages: []llm.ChatMessage{
			llm.NewUserMessage(prompt.Creative(req)),
		},
		Model:       g.model,
		MaxTokens:   req.TargetLength * 2,
		Temperature: Temperature,
	}

	completion, err := g.client.Complete(ctx, chatReq)
	if err != nil {
		return nil, fmt.Errorf("generate story: %w", err)
	}

	return &Story{
		Request:   req,
		Content:   completion.Content,
		Model:     completion.Model,
		Usage:     completion.Usage,
		CreatedAt: time.Now(),
	}, nil
}

// Filename suggests a file name for the story, safe for common filesystems.
func (s *Story) Filename() string {
	name := sanitizeFilename(s.Request.Celebrity.Name)
	return fmt.Sprintf("%s_%s_%s.txt", name, s.Request.StoryType, s.CreatedAt.Format("20060102_150405"))
}

func sanitizeFilename(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
}
