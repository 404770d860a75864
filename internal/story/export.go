package story

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/sadnessbroccoli/luminary/internal/storage"
)

// htmlShell wraps rendered story HTML in a minimal standalone page.
const htmlShell = `<!DOCTYPE html>
<html lang="zh">
<head>
<meta charset="utf-8">
<title>%s</title>
<style>body{max-width:42em;margin:2em auto;padding:0 1em;font-family:serif;line-height:1.7}</style>
</head>
<body>
<h1>%s</h1>
<p><em>%s · 目标长度 %d 字</em></p>
%s
</body>
</html>
`

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
)

// WriteText writes the story as plain text with a small header block.
func (s *Story) WriteText(path string) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s · %s\n", s.Request.Celebrity.Name, s.Request.StoryType)
	sb.WriteString(strings.Repeat("=", 50))
	sb.WriteString("\n\n")
	sb.WriteString(s.Content)
	sb.WriteString("\n")

	if err := storage.AtomicWriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("write story: %w", err)
	}
	return nil
}

// WriteHTML renders the story body as markdown and writes a standalone HTML
// page. Model output is usually light markdown; rendering it beats escaping
// it.
func (s *Story) WriteHTML(path string) error {
	var body bytes.Buffer
	if err := markdown.Convert([]byte(s.Content), &body); err != nil {
		return fmt.Errorf("render story: %w", err)
	}

	title := fmt.Sprintf("%s · %s", s.Request.Celebrity.Name, s.Request.StoryType)
	page := fmt.Sprintf(htmlShell, title, title, s.Request.Celebrity.Name, s.Request.TargetLength, body.String())

	if err := storage.AtomicWriteFile(path, []byte(page), 0o644); err != nil {
		return fmt.Errorf("write story: %w", err)
	}
	return nil
}
