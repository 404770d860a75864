package conversation

import (
	"context"
	"errors"
	"strings"

	"github.com/sadnessbroccoli/luminary/internal/llm"
	"github.com/sadnessbroccoli/luminary/internal/prompt"
)

// Phase describes where a turn currently is. Phases advance monotonically
// within a single Send call; Fallback is a side exit from Requesting or
// Streaming.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseBuilding
	PhaseRequesting
	PhaseStreaming
	PhaseFallback
	PhaseCommitted
)

// String returns the phase name for logs and the TUI status line.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseBuilding:
		return "building"
	case PhaseRequesting:
		return "requesting"
	case PhaseStreaming:
		return "streaming"
	case PhaseFallback:
		return "fallback"
	case PhaseCommitted:
		return "committed"
	default:
		return "unknown"
	}
}

// Turn is the outcome of one Send call.
type Turn struct {
	// Reply is the committed assistant text, model-produced or fallback.
	Reply string
	// Fallback reports whether Reply came from the stock replies rather
	// than the model.
	Fallback bool
	// Usage carries token accounting when the provider reported any.
	Usage llm.TokenUsage
}

// Engine drives one conversation turn at a time: build the request window,
// stream the completion, and commit exactly one user message and one
// assistant message per turn. A failed turn commits a fallback reply instead
// of the partial model output.
//
// Engine is not safe for concurrent Send calls on the same session.
type Engine struct {
	client  llm.Client
	sampler Sampler

	model       string
	maxTokens   int
	temperature float64

	// onPhase, when set, observes phase transitions. Used by the TUI to
	// drive the spinner and status line.
	onPhase func(Phase)
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithPhaseHook registers a phase transition observer.
func WithPhaseHook(fn func(Phase)) EngineOption {
	return func(e *Engine) { e.onPhase = fn }
}

// WithSampler overrides the fallback reply sampler.
func WithSampler(s Sampler) EngineOption {
	return func(e *Engine) { e.sampler = s }
}

// NewEngine creates an engine bound to one client and one model
// configuration.
func NewEngine(client llm.Client, model string, maxTokens int, temperature float64, opts ...EngineOption) *Engine {
	e := &Engine{
		client:      client,
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.sampler == nil {
		e.sampler = NewRandSampler(0x1ca8e)
	}
	return e
}

func (e *Engine) setPhase(p Phase) {
	if e.onPhase != nil {
		e.onPhase(p)
	}
}

// Send runs one full turn. onDelta, when non-nil, receives each streamed
// text fragment as it arrives; fragments already delivered must be treated
// as provisional until Send returns, since a mid-stream failure discards the
// partial text in favor of a fallback reply.
//
// On llm.ErrMissingAPIKey the session is left untouched and the error is
// returned: there is no point inventing an in-character reply for a client
// that can never succeed, and the operator needs the real error.
//
// A cancelled or expired ctx likewise aborts the turn with the session
// untouched: the user withdrew the question, so neither it nor a fallback
// reply belongs in the transcript.
func (e *Engine) Send(ctx context.Context, session *Session, text string, onDelta func(string)) (*Turn, error) {
	e.setPhase(PhaseBuilding)
	messages := prompt.Conversation(session.Celebrity, session.History(), text)

	req := llm.ChatRequest{
		Messages:    messages,
		Model:       e.model,
		MaxTokens:   e.maxTokens,
		Temperature: e.temperature,
	}

	e.setPhase(PhaseRequesting)
	stream, err := e.client.Stream(ctx, req)
	if err != nil {
		if errors.Is(err, llm.ErrMissingAPIKey) || ctx.Err() != nil {
			e.setPhase(PhaseIdle)
			return nil, err
		}
		return e.commitFallback(session, text), nil
	}

	e.setPhase(PhaseStreaming)
	var sb strings.Builder
	var usage llm.TokenUsage
	for chunk := range stream {
		if chunk.Error != nil {
			if ctx.Err() != nil {
				e.setPhase(PhaseIdle)
				return nil, ctx.Err()
			}
			// Partial text is discarded; the committed reply is
			// always a complete message.
			return e.commitFallback(session, text), nil
		}
		if chunk.Delta != "" {
			sb.WriteString(chunk.Delta)
			if onDelta != nil {
				onDelta(chunk.Delta)
			}
		}
		if chunk.Done {
			if chunk.Usage != nil {
				usage = *chunk.Usage
			}
			break
		}
	}

	if ctx.Err() != nil {
		e.setPhase(PhaseIdle)
		return nil, ctx.Err()
	}

	// A stream that exhausts cleanly is committed as-is, even when the
	// model produced no text.
	reply := sb.String()
	session.AppendUser(text)
	session.AppendAssistant(reply)
	e.setPhase(PhaseCommitted)

	return &Turn{Reply: reply, Usage: usage}, nil
}

// commitFallback commits the user message together with a stock reply so the
// transcript stays well-formed.
func (e *Engine) commitFallback(session *Session, text string) *Turn {
	e.setPhase(PhaseFallback)
	reply := FallbackReply(e.sampler, session.Celebrity.Name)
	session.AppendUser(text)
	session.AppendAssistant(reply)
	e.setPhase(PhaseCommitted)
	return &Turn{Reply: reply, Fallback: true}
}
