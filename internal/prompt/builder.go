// Package prompt builds the requests sent to the completion API.
// All functions are pure: no I/O, no side effects.
package prompt

import (
	"fmt"
	"strings"

	"github.com/sadnessbroccoli/luminary/internal/llm"
	"github.com/sadnessbroccoli/luminary/pkg/types"
)

// HistoryWindow is the maximum number of history messages forwarded to the
// model per turn. The window is fixed and non-adaptive: it caps token cost
// without counting tokens.
const HistoryWindow = 10

// Conversation builds the message list for one chat turn: a persona system
// message, at most the last HistoryWindow history messages in original order,
// and the new user message appended last.
func Conversation(celeb *types.Celebrity, history []llm.ChatMessage, userMessage string) []llm.ChatMessage {
	windowed := history
	if len(windowed) > HistoryWindow {
		windowed = windowed[len(windowed)-HistoryWindow:]
	}

	messages := make([]llm.ChatMessage, 0, len(windowed)+2)
	messages = append(messages, llm.NewSystemMessage(PersonaPrompt(celeb)))
	messages = append(messages, windowed...)
	messages = append(messages, llm.NewUserMessage(userMessage))
	return messages
}

// PersonaPrompt renders the system instruction that conditions the model to
// role-play the celebrity in first person.
func PersonaPrompt(celeb *types.Celebrity) string {
	return fmt.Sprintf(`你正在扮演 %s，请以第一人称回答。

背景信息：
- 身份：%s
- 时代：%s
- 国籍：%s
- 主要成就：%s
- 生平：%s

要求：
1. 使用第一人称（我）
2. 保持角色性格和时代背景
3. 回答要生动有趣
4. 可以适当发挥但不要脱离事实
5. 语言风格要符合人物特点`,
		celeb.Name,
		celeb.Category,
		celeb.Era,
		celeb.Nationality,
		strings.Join(celeb.KeyAchievements, ", "),
		celeb.Story,
	)
}

// Creative renders the one-shot instruction for story generation. The custom
// instruction is appended only when non-empty.
func Creative(req types.CreativeRequest) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "请创作一个关于 %s 的%s。\n\n", req.Celebrity.Name, req.StoryType)
	fmt.Fprintf(&sb, "基本信息：\n")
	fmt.Fprintf(&sb, "- 身份：%s\n", req.Celebrity.Category)
	fmt.Fprintf(&sb, "- 时代：%s\n", req.Celebrity.Era)
	fmt.Fprintf(&sb, "- 成就：%s\n\n", strings.Join(req.Celebrity.KeyAchievements, ", "))
	fmt.Fprintf(&sb, "要求：\n")
	fmt.Fprintf(&sb, "1. 故事类型：%s\n", req.StoryType)
	fmt.Fprintf(&sb, "2. 目标受众：%s\n", strings.Join(req.Audience, ", "))
	fmt.Fprintf(&sb, "3. 长度：约%d字\n", req.TargetLength)
	fmt.Fprintf(&sb, "4. 语言生动有趣\n")
	fmt.Fprintf(&sb, "5. 基于事实但可以合理发挥\n")

	if req.CustomInstruction != "" {
		fmt.Fprintf(&sb, "\n额外要求：%s\n", req.CustomInstruction)
	}

	sb.WriteString("\n请开始创作：")
	return sb.String()
}
