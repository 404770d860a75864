// Package conversation owns the chat session state and the turn engine.
package conversation

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sadnessbroccoli/luminary/internal/llm"
	"github.com/sadnessbroccoli/luminary/pkg/types"
)

// Session holds the ordered message history for one celebrity conversation.
// It lives only for the duration of an interactive session and is owned by
// exactly one interactive context at a time; no locking.
//
// Invariant: history never contains a system message. The persona prompt is
// synthesized fresh on every request by the prompt builder.
type Session struct {
	ID        uuid.UUID
	Celebrity *types.Celebrity

	history []llm.ChatMessage
}

// NewSession creates a session for the given celebrity, seeded with the
// canned greeting.
func NewSession(celeb *types.Celebrity) *Session {
	s := &Session{
		ID:        uuid.New(),
		Celebrity: celeb,
	}
	s.seedGreeting()
	return s
}

// Greeting is the canned opening line for a celebrity.
func Greeting(celeb *types.Celebrity) string {
	return fmt.Sprintf("你好！我是%s。你可以问我任何问题！", celeb.Name)
}

func (s *Session) seedGreeting() {
	s.history = append(s.history, llm.NewAssistantMessage(Greeting(s.Celebrity)))
}

// AppendUser appends a user message. Content is not validated; empty strings
// are permitted.
func (s *Session) AppendUser(content string) {
	s.history = append(s.history, llm.NewUserMessage(content))
}

// AppendAssistant appends an assistant message.
func (s *Session) AppendAssistant(content string) {
	s.history = append(s.history, llm.NewAssistantMessage(content))
}

// History returns the full history in chronological order. The returned
// slice must not be mutated by callers.
func (s *Session) History() []llm.ChatMessage {
	return s.history
}

// Len returns the number of messages in the history.
func (s *Session) Len() int {
	return len(s.history)
}

// Window returns the last limit messages in chronological order, or the full
// history when it is shorter.
func (s *Session) Window(limit int) []llm.ChatMessage {
	if limit <= 0 || len(s.history) <= limit {
		return s.history
	}
	return s.history[len(s.history)-limit:]
}

// Reset clears the history and re-seeds the greeting. A fresh slice is
// allocated so histories previously returned by History are not clobbered.
func (s *Session) Reset() {
	s.history = nil
	s.seedGreeting()
}

// ExportTranscript renders the conversation as plain text: a header line, a
// separator of 50 "=" characters, then role-labelled entries in
// chronological order. The celebrity's own name labels assistant lines.
func (s *Session) ExportTranscript() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "与 %s 的对话记录\n", s.Celebrity.Name)
	sb.WriteString(strings.Repeat("=", 50))
	sb.WriteString("\n\n")

	for _, msg := range s.history {
		role := s.Celebrity.Name
		if msg.Role == llm.RoleUser {
			role = "用户"
		}
		fmt.Fprintf(&sb, "%s：%s\n\n", role, msg.Content)
	}

	return sb.String()
}

// ShortID is the first segment of the session ID, used to key exports so two
// sessions with the same celebrity do not overwrite each other's transcripts.
func (s *Session) ShortID() string {
	return s.ID.String()[:8]
}

// TranscriptFilename is the suggested download name for a transcript.
func (s *Session) TranscriptFilename() string {
	return fmt.Sprintf("%s_对话记录_%s.txt", s.Celebrity.Name, s.ShortID())
}
