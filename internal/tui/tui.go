// Package tui provides the terminal user interface using Bubble Tea.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadnessbroccoli/luminary/internal/conversation"
	"github.com/sadnessbroccoli/luminary/internal/llm"
	"github.com/sadnessbroccoli/luminary/internal/prompt"
	"github.com/sadnessbroccoli/luminary/internal/storage"
	"github.com/sadnessbroccoli/luminary/internal/token"
	"github.com/sadnessbroccoli/luminary/internal/tui/styles"
)

// ViewState represents the current view mode.
type ViewState int

const (
	ViewChat ViewState = iota
	ViewHelp
	ViewFacts
)

// Message represents a rendered chat message.
type Message struct {
	Role     string
	Content  string
	Fallback bool
}

// Model is the main TUI model for a celebrity conversation.
type Model struct {
	session *conversation.Session
	engine  *conversation.Engine
	counter *token.Counter

	// View state
	view       ViewState
	width      int
	height     int
	ready      bool
	err        error
	statusText string

	// Chat components
	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model
	messages []Message

	// State flags
	streaming bool
	inputMode bool

	handler *StreamHandler
}

// New creates a new TUI model. counter may be nil; the /tokens command then
// falls back to a rough estimate.
func New(session *conversation.Session, engine *conversation.Engine, counter *token.Counter) *Model {
	ta := textarea.New()
	ta.Placeholder = "输入你的问题... (/help 查看命令)"
	ta.Focus()
	ta.CharLimit = 4000
	ta.SetWidth(80)
	ta.SetHeight(3)
	ta.ShowLineNumbers = false
	ta.KeyMap.InsertNewline.SetEnabled(false)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Spinner

	m := &Model{
		session:   session,
		engine:    engine,
		counter:   counter,
		textarea:  ta,
		spinner:   sp,
		inputMode: true,
		view:      ViewChat,
	}
	m.syncFromSession()
	return m
}

// syncFromSession rebuilds the rendered message list from the session
// history. Used at startup and after /reset.
func (m *Model) syncFromSession() {
	m.messages = m.messages[:0]
	for _, msg := range m.session.History() {
		m.messages = append(m.messages, Message{Role: msg.Role, Content: msg.Content})
	}
}

// Init initializes the model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.spinner.Tick,
	)
}

// Update handles messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-8)
			m.viewport.YPosition = 2
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 8
		}

		m.textarea.SetWidth(msg.Width - 4)
		m.updateViewport()

	case spinner.TickMsg:
		if m.streaming {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case StreamChunkMsg:
		return m.handleStreamChunk(msg)

	case StreamDoneMsg:
		return m.handleStreamDone(msg)

	case StreamErrorMsg:
		return m.handleStreamError(msg)

	case errMsg:
		m.err = msg.err
	}

	// Update textarea if in input mode
	if m.inputMode && !m.streaming {
		var cmd tea.Cmd
		m.textarea, cmd = m.textarea.Update(msg)
		cmds = append(cmds, cmd)
	}

	// Update viewport
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// handleKeyMsg handles keyboard input.
func (m *Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		if m.streaming {
			m.cancelStreaming()
			return m, nil
		}
		return m, tea.Quit

	case tea.KeyEsc:
		if m.view != ViewChat {
			m.view = ViewChat
			m.updateViewport()
			return m, nil
		}
		if m.streaming {
			m.cancelStreaming()
			return m, nil
		}

	case tea.KeyEnter:
		if !m.streaming && m.inputMode {
			return m.handleSubmit()
		}
	}

	return m, nil
}

// cancelStreaming asks the in-flight turn to stop. Input stays disabled until
// the engine goroutine unwinds and its StreamErrorMsg arrives; touching the
// session before then would race the turn.
func (m *Model) cancelStreaming() {
	if m.handler != nil {
		m.handler.Cancel()
		m.statusText = "正在取消..."
	}
}

// handleStreamChunk appends incoming text to the provisional assistant
// message and re-arms the stream reader.
func (m *Model) handleStreamChunk(msg StreamChunkMsg) (tea.Model, tea.Cmd) {
	if len(m.messages) > 0 && m.messages[len(m.messages)-1].Role == llm.RoleAssistant {
		m.messages[len(m.messages)-1].Content += msg.Content
	} else {
		m.messages = append(m.messages, Message{
			Role:    llm.RoleAssistant,
			Content: msg.Content,
		})
	}

	m.updateViewport()
	return m, tea.Batch(m.handler.StreamToTea(), m.spinner.Tick)
}

// handleStreamDone replaces the provisional assistant text with the
// committed reply. On a fallback turn the streamed partial is dropped in
// favor of the stock reply, mirroring what the session recorded.
func (m *Model) handleStreamDone(msg StreamDoneMsg) (tea.Model, tea.Cmd) {
	m.streaming = false
	m.inputMode = true
	m.handler = nil
	m.textarea.Focus()

	if msg.Turn != nil {
		if len(m.messages) > 0 && m.messages[len(m.messages)-1].Role == llm.RoleAssistant {
			m.messages[len(m.messages)-1].Content = msg.Turn.Reply
			m.messages[len(m.messages)-1].Fallback = msg.Turn.Fallback
		} else {
			m.messages = append(m.messages, Message{
				Role:     llm.RoleAssistant,
				Content:  msg.Turn.Reply,
				Fallback: msg.Turn.Fallback,
			})
		}
		if msg.Turn.Usage.TotalTokens > 0 {
			m.statusText = fmt.Sprintf("tokens: %d prompt / %d completion",
				msg.Turn.Usage.PromptTokens, msg.Turn.Usage.CompletionTokens)
		}
	}

	m.updateViewport()
	return m, nil
}

// handleStreamError reports a turn that committed nothing. The provisional
// user bubble and any partial reply are removed so the display matches the
// untouched session.
func (m *Model) handleStreamError(msg StreamErrorMsg) (tea.Model, tea.Cmd) {
	m.streaming = false
	m.inputMode = true
	m.handler = nil
	m.textarea.Focus()

	switch {
	case errors.Is(msg.Err, context.Canceled):
		m.statusText = "已取消回复"
	case errors.Is(msg.Err, context.DeadlineExceeded):
		m.statusText = "请求超时，已取消"
	default:
		m.err = msg.Err
	}

	m.syncFromSession()
	m.updateViewport()
	return m, nil
}

// handleSubmit processes user input.
func (m *Model) handleSubmit() (tea.Model, tea.Cmd) {
	input := strings.TrimSpace(m.textarea.Value())
	if input == "" {
		return m, nil
	}

	// Check for slash commands
	if strings.HasPrefix(input, "/") {
		return m.handleCommand(input)
	}

	m.messages = append(m.messages, Message{
		Role:    llm.RoleUser,
		Content: input,
	})

	m.textarea.Reset()
	m.updateViewport()

	m.streaming = true
	m.inputMode = false

	return m, tea.Batch(m.startTurn(input), m.spinner.Tick)
}

// startTurn launches the engine turn in its own goroutine and returns the
// command that reads its first event.
func (m *Model) startTurn(input string) tea.Cmd {
	handler := NewStreamHandler(DefaultStreamConfig())
	m.handler = handler

	go func() {
		turn, err := m.engine.Send(handler.controller.Context(), m.session, input, handler.SendChunk)
		handler.Complete(turn, err)
	}()

	return handler.StreamToTea()
}

// handleCommand processes slash commands.
func (m *Model) handleCommand(input string) (tea.Model, tea.Cmd) {
	parts := strings.Fields(input)
	cmd := strings.ToLower(parts[0])

	switch cmd {
	case "/help":
		m.view = ViewHelp
		m.updateViewport()

	case "/quit", "/exit", "/q":
		return m, tea.Quit

	case "/reset", "/clear":
		m.session.Reset()
		m.syncFromSession()
		m.statusText = "对话已重置"
		m.updateViewport()

	case "/export":
		path := m.session.TranscriptFilename()
		if len(parts) > 1 {
			path = parts[1]
		}
		data := []byte(m.session.ExportTranscript())
		if err := storage.AtomicWriteFile(path, data, 0o644); err != nil {
			m.err = fmt.Errorf("export failed: %w", err)
		} else {
			m.statusText = fmt.Sprintf("已导出：%s", path)
		}

	case "/facts":
		m.view = ViewFacts
		m.updateViewport()

	case "/tokens":
		m.statusText = m.tokenStatus()

	case "/back":
		m.view = ViewChat
		m.updateViewport()

	default:
		m.err = fmt.Errorf("unknown command: %s", cmd)
	}

	m.textarea.Reset()
	return m, nil
}

// tokenStatus estimates the prompt size of the next turn.
func (m *Model) tokenStatus() string {
	messages := prompt.Conversation(m.session.Celebrity, m.session.History(), "")

	if m.counter == nil {
		total := 0
		for _, msg := range messages {
			total += token.EstimateTokens(msg.Content)
		}
		return fmt.Sprintf("约 %d tokens（估算）", total)
	}

	counted := make([]token.ChatMessage, 0, len(messages))
	for _, msg := range messages {
		counted = append(counted, token.ChatMessage{Role: msg.Role, Content: msg.Content})
	}
	return fmt.Sprintf("%d tokens（%s）", m.counter.CountMessages(counted), m.counter.Encoding())
}

// updateViewport updates the viewport content.
func (m *Model) updateViewport() {
	var content string

	switch m.view {
	case ViewChat:
		content = m.renderChat()
	case ViewHelp:
		content = m.renderHelp()
	case ViewFacts:
		content = m.renderFacts()
	}

	m.viewport.SetContent(content)
	m.viewport.GotoBottom()
}

// renderChat renders the chat view.
func (m *Model) renderChat() string {
	var sb strings.Builder

	name := m.session.Celebrity.Name
	for _, msg := range m.messages {
		switch msg.Role {
		case llm.RoleUser:
			sb.WriteString(styles.UserMessage.Render("你: " + msg.Content))
		case llm.RoleAssistant:
			line := name + ": " + msg.Content
			sb.WriteString(styles.AssistantMessage.Render(line))
			if msg.Fallback {
				sb.WriteString(" " + styles.FallbackTag.Render("(离线回复)"))
			}
		default:
			sb.WriteString(styles.SystemMessage.Render(msg.Content))
		}
		sb.WriteString("\n\n")
	}

	if m.streaming {
		sb.WriteString(m.spinner.View() + " 思考中...")
	}

	return sb.String()
}

// renderHelp renders the help view.
func (m *Model) renderHelp() string {
	help := `
LUMINARY - 帮助

命令:
  /help      - 显示帮助
  /quit      - 退出
  /reset     - 重置对话（保留开场白）
  /export    - 导出对话记录（可选指定文件名）
  /facts     - 查看人物资料
  /tokens    - 估算下一轮请求的 token 数
  /back      - 返回对话

快捷键:
  Ctrl+C     - 取消当前请求 / 退出
  Esc        - 取消 / 返回对话
  Enter      - 发送

输入 /back 或按 Esc 返回对话。
`
	return styles.InfoText.Render(help)
}

// renderFacts renders the celebrity profile view.
func (m *Model) renderFacts() string {
	celeb := m.session.Celebrity

	var sb strings.Builder
	sb.WriteString(styles.Title.Render(celeb.Name))
	sb.WriteString("\n\n")

	sb.WriteString(styles.ListItem.Render(fmt.Sprintf("类别：%s\n", celeb.Category)))
	sb.WriteString(styles.ListItem.Render(fmt.Sprintf("时代：%s\n", celeb.Era)))
	sb.WriteString(styles.ListItem.Render(fmt.Sprintf("国籍：%s\n", celeb.Nationality)))
	sb.WriteString("\n")

	if len(celeb.KeyAchievements) > 0 {
		sb.WriteString(styles.Title.Render("主要成就"))
		sb.WriteString("\n")
		for _, a := range celeb.KeyAchievements {
			sb.WriteString(styles.ListItem.Render("  - " + a + "\n"))
		}
		sb.WriteString("\n")
	}

	if len(celeb.InterestingFacts) > 0 {
		sb.WriteString(styles.Title.Render("趣闻"))
		sb.WriteString("\n")
		for _, f := range celeb.InterestingFacts {
			sb.WriteString(styles.ListItem.Render("  - " + f + "\n"))
		}
		sb.WriteString("\n")
	}

	if len(celeb.Tags) > 0 {
		sb.WriteString(styles.MutedText.Render("标签：" + strings.Join(celeb.Tags, "、")))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(styles.MutedText.Render("输入 /back 或按 Esc 返回对话。"))

	return sb.String()
}

// View renders the TUI.
func (m *Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var sb strings.Builder

	header := styles.Header.Render(fmt.Sprintf("LUMINARY - %s", m.session.Celebrity.Name))
	sb.WriteString(header)
	sb.WriteString("\n")

	sb.WriteString(m.viewport.View())
	sb.WriteString("\n")

	if m.err != nil {
		sb.WriteString(styles.ErrorText.Render("Error: "+m.err.Error()) + "\n")
		m.err = nil
	}

	if m.statusText != "" {
		sb.WriteString(styles.StatusBar.Render(m.statusText) + "\n")
		m.statusText = ""
	}

	if m.view == ViewChat {
		sb.WriteString(styles.InputPrompt.Render("> "))
		sb.WriteString(m.textarea.View())
	}

	helpHint := styles.HelpKey.Render("/help") + styles.HelpDesc.Render(" 查看命令")
	sb.WriteString("\n")
	sb.WriteString(lipgloss.PlaceHorizontal(m.width, lipgloss.Right, helpHint))

	return sb.String()
}

// Message types for streaming
type StreamChunkMsg struct {
	Content string
}

type StreamDoneMsg struct {
	Turn *conversation.Turn
}

type StreamErrorMsg struct {
	Err error
}

type errMsg struct {
	err error
}
