package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sadnessbroccoli/luminary/internal/llm"
)

// fakeClient scripts the stream behavior for engine tests.
type fakeClient struct {
	chunks      []llm.StreamChunk
	streamErr   error
	streamCalls int
}

func (f *fakeClient) Complete(ctx context.Context, req llm.ChatRequest) (*llm.Completion, error) {
	return nil, errors.New("not used")
}

func (f *fakeClient) Stream(ctx context.Context, req llm.ChatRequest) (<-chan llm.StreamChunk, error) {
	f.streamCalls++
	if f.streamErr != nil {
		return nil, f.streamErr
	}
	ch := make(chan llm.StreamChunk, len(f.chunks))
	for _, chunk := range f.chunks {
		ch <- chunk
	}
	close(ch)
	return ch, nil
}

func (f *fakeClient) Capabilities() llm.Capabilities { return llm.Capabilities{} }

func (f *fakeClient) Close() error { return nil }

// fixedSampler always returns the same index.
type fixedSampler struct{ n int }

func (f fixedSampler) Intn(int) int { return f.n }

func newTestEngine(client llm.Client) *Engine {
	return NewEngine(client, "deepseek-chat", 500, 0.7, WithSampler(fixedSampler{n: 0}))
}

// ============================================================================
// Successful Turn Tests
// ============================================================================

// TestSendCommitsStreamedReply tests that a successful turn appends exactly
// one user and one assistant message.
func TestSendCommitsStreamedReply(t *testing.T) {
	client := &fakeClient{
		chunks: []llm.StreamChunk{
			{Delta: "床前"},
			{Delta: "明月光"},
			{Done: true, Usage: &llm.TokenUsage{PromptTokens: 12, CompletionTokens: 4, TotalTokens: 16}},
		},
	}
	engine := newTestEngine(client)
	session := NewSession(testCelebrity())
	before := session.Len()

	var deltas []string
	turn, err := engine.Send(context.Background(), session, "背一句诗", func(d string) {
		deltas = append(deltas, d)
	})

	require.NoError(t, err)
	assert.Equal(t, "床前明月光", turn.Reply)
	assert.False(t, turn.Fallback)
	assert.Equal(t, 16, turn.Usage.TotalTokens)
	assert.Equal(t, []string{"床前", "明月光"}, deltas)

	require.Equal(t, before+2, session.Len())
	history := session.History()
	assert.Equal(t, llm.RoleUser, history[before].Role)
	assert.Equal(t, "背一句诗", history[before].Content)
	assert.Equal(t, llm.RoleAssistant, history[before+1].Role)
	assert.Equal(t, "床前明月光", history[before+1].Content)
}

// TestSendPhaseProgression tests the observed phase order on success.
func TestSendPhaseProgression(t *testing.T) {
	client := &fakeClient{
		chunks: []llm.StreamChunk{{Delta: "好"}, {Done: true}},
	}

	var phases []Phase
	engine := NewEngine(client, "deepseek-chat", 500, 0.7,
		WithSampler(fixedSampler{n: 0}),
		WithPhaseHook(func(p Phase) { phases = append(phases, p) }))

	_, err := engine.Send(context.Background(), NewSession(testCelebrity()), "你好", nil)
	require.NoError(t, err)
	assert.Equal(t, []Phase{PhaseBuilding, PhaseRequesting, PhaseStreaming, PhaseCommitted}, phases)
}

// ============================================================================
// Fallback Tests
// ============================================================================

// TestSendFallbackOnImmediateError tests that a failed request commits a
// stock reply instead of surfacing the error.
func TestSendFallbackOnImmediateError(t *testing.T) {
	client := &fakeClient{streamErr: fmt.Errorf("%w: upstream 500", llm.ErrAPIError)}
	engine := newTestEngine(client)
	session := NewSession(testCelebrity())
	before := session.Len()

	turn, err := engine.Send(context.Background(), session, "你好", nil)

	require.NoError(t, err)
	assert.True(t, turn.Fallback)
	assert.Contains(t, turn.Reply, "李白")

	require.Equal(t, before+2, session.Len())
	assert.Equal(t, turn.Reply, session.History()[session.Len()-1].Content)
}

// TestSendFallbackDiscardsPartialText tests that text streamed before a
// mid-stream failure never reaches the session.
func TestSendFallbackDiscardsPartialText(t *testing.T) {
	client := &fakeClient{
		chunks: []llm.StreamChunk{
			{Delta: "我正要说"},
			{Error: fmt.Errorf("%w: connection reset", llm.ErrAPIError)},
		},
	}
	engine := newTestEngine(client)
	session := NewSession(testCelebrity())

	var streamed strings.Builder
	turn, err := engine.Send(context.Background(), session, "继续", func(d string) {
		streamed.WriteString(d)
	})

	require.NoError(t, err)
	assert.True(t, turn.Fallback)
	// The delta was delivered provisionally but must not be committed.
	assert.Equal(t, "我正要说", streamed.String())
	for _, msg := range session.History() {
		assert.NotContains(t, msg.Content, "我正要说")
	}
}

// TestSendCommitsEmptyExhaustedStream tests that a stream which ends cleanly
// without producing text commits the empty reply as-is, not a fallback.
func TestSendCommitsEmptyExhaustedStream(t *testing.T) {
	client := &fakeClient{chunks: []llm.StreamChunk{{Done: true}}}
	engine := newTestEngine(client)
	session := NewSession(testCelebrity())
	before := session.Len()

	turn, err := engine.Send(context.Background(), session, "你好", nil)

	require.NoError(t, err)
	assert.False(t, turn.Fallback)
	assert.Empty(t, turn.Reply)

	require.Equal(t, before+2, session.Len())
	assert.Equal(t, llm.RoleAssistant, session.History()[session.Len()-1].Role)
	assert.Equal(t, "", session.History()[session.Len()-1].Content)
}

// TestFallbackSamplerSelection tests that the injected sampler picks the
// template.
func TestFallbackSamplerSelection(t *testing.T) {
	for i := 0; i < FallbackCount(); i++ {
		reply := FallbackReply(fixedSampler{n: i}, "武则天")
		assert.Contains(t, reply, "武则天")
	}

	// Distinct indices produce distinct templates.
	assert.NotEqual(t,
		FallbackReply(fixedSampler{n: 0}, "李白"),
		FallbackReply(fixedSampler{n: 1}, "李白"))
}

// ============================================================================
// Cancellation Tests
// ============================================================================

// TestSendCanceledMidStreamLeavesSessionUntouched tests that a turn whose
// context is cancelled while streaming commits nothing: no user message, no
// fallback reply.
func TestSendCanceledMidStreamLeavesSessionUntouched(t *testing.T) {
	client := &fakeClient{
		chunks: []llm.StreamChunk{
			{Delta: "我正要"},
			{Error: context.Canceled},
		},
	}
	engine := newTestEngine(client)
	session := NewSession(testCelebrity())
	before := session.Len()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var streamed strings.Builder
	turn, err := engine.Send(ctx, session, "继续", func(d string) {
		streamed.WriteString(d)
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, turn)

	// The provisional delta was delivered, but the session stays as it was.
	assert.Equal(t, "我正要", streamed.String())
	assert.Equal(t, before, session.Len())
}

// TestSendCanceledCleanExhaustionAborts tests that cancellation observed
// after the stream drains still aborts instead of committing.
func TestSendCanceledCleanExhaustionAborts(t *testing.T) {
	client := &fakeClient{
		chunks: []llm.StreamChunk{{Delta: "好"}, {Done: true}},
	}
	engine := newTestEngine(client)
	session := NewSession(testCelebrity())
	before := session.Len()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	turn, err := engine.Send(ctx, session, "你好", nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, turn)
	assert.Equal(t, before, session.Len())
}

// ============================================================================
// Missing Key Tests
// ============================================================================

// TestSendMissingKeyLeavesSessionUntouched tests that an unconfigured client
// aborts the turn before anything is committed.
func TestSendMissingKeyLeavesSessionUntouched(t *testing.T) {
	client := &fakeClient{streamErr: fmt.Errorf("%w: configure DEEPSEEK_API_KEY", llm.ErrMissingAPIKey)}
	engine := newTestEngine(client)
	session := NewSession(testCelebrity())
	before := session.Len()

	turn, err := engine.Send(context.Background(), session, "你好", nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, llm.ErrMissingAPIKey)
	assert.Nil(t, turn)
	assert.Equal(t, before, session.Len())
	// The request never got past the adapter's pre-network check.
	assert.Equal(t, 1, client.streamCalls)
}
