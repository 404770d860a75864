// Package tui provides the terminal user interface using Bubble Tea.
package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sadnessbroccoli/luminary/internal/conversation"
)

// StreamConfig configures streaming behavior.
type StreamConfig struct {
	// Timeout for the entire streaming operation
	Timeout time.Duration
}

// DefaultStreamConfig returns sensible defaults.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		Timeout: 120 * time.Second,
	}
}

// StreamController manages one turn with cancellation support.
type StreamController struct {
	ctx    context.Context
	cancel context.CancelFunc
	config StreamConfig
}

// NewStreamController creates a new stream controller.
func NewStreamController(config StreamConfig) *StreamController {
	ctx, cancel := context.WithTimeout(context.Background(), config.Timeout)
	return &StreamController{
		ctx:    ctx,
		cancel: cancel,
		config: config,
	}
}

// Context returns the stream context.
func (sc *StreamController) Context() context.Context {
	return sc.ctx
}

// Cancel cancels the streaming operation.
func (sc *StreamController) Cancel() {
	sc.cancel()
}

// Done returns the context's done channel.
func (sc *StreamController) Done() <-chan struct{} {
	return sc.ctx.Done()
}

// Err returns any context error.
func (sc *StreamController) Err() error {
	return sc.ctx.Err()
}

// StreamHandler bridges an engine turn running in its own goroutine to
// Bubble Tea messages. Deltas arrive through SendChunk; the final committed
// turn (or error) arrives through Complete.
type StreamHandler struct {
	controller *StreamController
	chunks     chan string
	done       chan turnResult
}

type turnResult struct {
	turn *conversation.Turn
	err  error
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(config StreamConfig) *StreamHandler {
	return &StreamHandler{
		controller: NewStreamController(config),
		chunks:     make(chan string, 100),
		done:       make(chan turnResult, 1),
	}
}

// SendChunk sends a provisional text fragment to the handler.
func (sh *StreamHandler) SendChunk(content string) {
	select {
	case sh.chunks <- content:
	case <-sh.controller.Done():
	}
}

// Complete delivers the turn outcome and closes the chunk stream.
func (sh *StreamHandler) Complete(turn *conversation.Turn, err error) {
	select {
	case sh.done <- turnResult{turn: turn, err: err}:
	default:
	}
	close(sh.chunks)
}

// Cancel cancels the stream.
func (sh *StreamHandler) Cancel() {
	sh.controller.Cancel()
}

// StreamToTea converts stream handler events to Bubble Tea messages. Each
// invocation yields the next message; the TUI re-arms it after every chunk.
func (sh *StreamHandler) StreamToTea() tea.Cmd {
	return func() tea.Msg {
		select {
		case chunk, ok := <-sh.chunks:
			if !ok {
				return sh.finalMsg()
			}
			return StreamChunkMsg{Content: chunk}

		case <-sh.controller.Done():
			return sh.awaitFinal()
		}
	}
}

// awaitFinal blocks until the engine goroutine has delivered its outcome.
// After a cancel or timeout the session must not be read until the turn has
// fully unwound, so the non-blocking read is not enough here.
func (sh *StreamHandler) awaitFinal() tea.Msg {
	return toMsg(<-sh.done)
}

func (sh *StreamHandler) finalMsg() tea.Msg {
	select {
	case result := <-sh.done:
		return toMsg(result)
	default:
		return StreamDoneMsg{}
	}
}

func toMsg(result turnResult) tea.Msg {
	if result.err != nil {
		return StreamErrorMsg{Err: result.err}
	}
	return StreamDoneMsg{Turn: result.turn}
}
