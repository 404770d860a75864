package conversation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sadnessbroccoli/luminary/internal/llm"
	"github.com/sadnessbroccoli/luminary/pkg/types"
)

func testCelebrity() *types.Celebrity {
	return &types.Celebrity{
		ID:       "libai",
		Name:     "李白",
		Category: "文学家",
	}
}

// ============================================================================
// Session Tests
// ============================================================================

// TestNewSessionSeedsGreeting tests that a fresh session opens with the
// canned greeting.
func TestNewSessionSeedsGreeting(t *testing.T) {
	s := NewSession(testCelebrity())

	require.Equal(t, 1, s.Len())
	first := s.History()[0]
	assert.Equal(t, llm.RoleAssistant, first.Role)
	assert.Equal(t, "你好！我是李白。你可以问我任何问题！", first.Content)
	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", s.ID.String())
}

// TestSessionAppend tests ordered append of both roles.
func TestSessionAppend(t *testing.T) {
	s := NewSession(testCelebrity())

	s.AppendUser("你好")
	s.AppendAssistant("幸会")
	s.AppendUser("")

	history := s.History()
	require.Len(t, history, 4)
	assert.Equal(t, llm.RoleUser, history[1].Role)
	assert.Equal(t, "你好", history[1].Content)
	assert.Equal(t, llm.RoleAssistant, history[2].Role)
	// Empty content is accepted as-is.
	assert.Equal(t, "", history[3].Content)
}

// TestSessionWindow tests the suffix windowing behavior.
func TestSessionWindow(t *testing.T) {
	tests := []struct {
		name      string
		turns     int
		limit     int
		wantLen   int
		wantFirst string
	}{
		{
			name:      "limit larger than history returns all",
			turns:     2,
			limit:     10,
			wantLen:   5,
			wantFirst: "你好！我是李白。你可以问我任何问题！",
		},
		{
			name:      "limit smaller than history keeps the tail",
			turns:     6,
			limit:     4,
			wantLen:   4,
			wantFirst: "q-4",
		},
		{
			name:    "zero limit returns all",
			turns:   3,
			limit:   0,
			wantLen: 7,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSession(testCelebrity())
			for i := 0; i < tt.turns; i++ {
				s.AppendUser("q-" + string(rune('0'+i)))
				s.AppendAssistant("a-" + string(rune('0'+i)))
			}

			window := s.Window(tt.limit)
			require.Len(t, window, tt.wantLen)
			if tt.wantFirst != "" {
				assert.Equal(t, tt.wantFirst, window[0].Content)
			}
			// Last element always matches the full history tail.
			assert.Equal(t, s.History()[s.Len()-1], window[len(window)-1])
		})
	}
}

// TestSessionReset tests that Reset drops history and re-seeds the greeting.
func TestSessionReset(t *testing.T) {
	s := NewSession(testCelebrity())
	s.AppendUser("第一个问题")
	s.AppendAssistant("回答")

	s.Reset()

	require.Equal(t, 1, s.Len())
	assert.Equal(t, llm.RoleAssistant, s.History()[0].Role)
	assert.Contains(t, s.History()[0].Content, "李白")
}

// TestResetPreservesHandedOutHistory tests that Reset does not write through
// slices previously returned by History.
func TestResetPreservesHandedOutHistory(t *testing.T) {
	s := NewSession(testCelebrity())
	s.AppendUser("第一个问题")
	s.AppendAssistant("回答")

	snapshot := s.History()
	require.Len(t, snapshot, 3)

	s.Reset()
	s.AppendUser("新问题")
	s.AppendAssistant("新回答")

	assert.Equal(t, "第一个问题", snapshot[1].Content)
	assert.Equal(t, "回答", snapshot[2].Content)
}

// ============================================================================
// Transcript Tests
// ============================================================================

// TestExportTranscript tests the rendered transcript format.
func TestExportTranscript(t *testing.T) {
	s := NewSession(testCelebrity())
	s.AppendUser("床前明月光的下一句是什么？")
	s.AppendAssistant("疑是地上霜。")

	transcript := s.ExportTranscript()

	assert.True(t, strings.HasPrefix(transcript, "与 李白 的对话记录\n"))
	assert.Contains(t, transcript, strings.Repeat("=", 50))
	assert.Contains(t, transcript, "李白：你好！我是李白。你可以问我任何问题！")
	assert.Contains(t, transcript, "用户：床前明月光的下一句是什么？")
	assert.Contains(t, transcript, "李白：疑是地上霜。")

	// Entries appear in chronological order.
	idxGreeting := strings.Index(transcript, "你可以问我任何问题")
	idxQuestion := strings.Index(transcript, "用户：床前明月光")
	idxAnswer := strings.Index(transcript, "疑是地上霜")
	assert.Less(t, idxGreeting, idxQuestion)
	assert.Less(t, idxQuestion, idxAnswer)
}

// TestExportTranscriptIdempotent tests that exporting does not change state.
func TestExportTranscriptIdempotent(t *testing.T) {
	s := NewSession(testCelebrity())
	s.AppendUser("问题")
	s.AppendAssistant("回答")

	first := s.ExportTranscript()
	second := s.ExportTranscript()

	assert.Equal(t, first, second)
	assert.Equal(t, 3, s.Len())
}

// TestTranscriptFilename tests that the suggested download name carries the
// session id, so exports from two sessions with the same celebrity do not
// collide.
func TestTranscriptFilename(t *testing.T) {
	s := NewSession(testCelebrity())

	assert.Len(t, s.ShortID(), 8)
	assert.Equal(t, s.ID.String()[:8], s.ShortID())
	assert.Equal(t, "李白_对话记录_"+s.ShortID()+".txt", s.TranscriptFilename())

	other := NewSession(testCelebrity())
	assert.NotEqual(t, s.TranscriptFilename(), other.TranscriptFilename())
}
