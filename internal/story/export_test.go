package story

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sadnessbroccoli/luminary/pkg/types"
)

func testStory() *Story {
	return &Story{
		Request: types.CreativeRequest{
			Celebrity:    testCelebrity(),
			StoryType:    "励志故事",
			TargetLength: 300,
		},
		Content:   "她在简陋的棚屋里日复一日地提炼沥青铀矿。\n\n**镭**终于显形了。",
		CreatedAt: time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC),
	}
}

// TestWriteText tests the plain text export format.
func TestWriteText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "story.txt")
	require.NoError(t, testStory().WriteText(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)

	assert.Contains(t, text, "玛丽·居里 · 励志故事")
	assert.Contains(t, text, "==========")
	assert.Contains(t, text, "提炼沥青铀矿")
}

// TestWriteHTML tests that the markdown body is rendered into a standalone
// page.
func TestWriteHTML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "story.html")
	require.NoError(t, testStory().WriteHTML(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	html := string(data)

	assert.Contains(t, html, "<!DOCTYPE html>")
	assert.Contains(t, html, "<title>玛丽·居里 · 励志故事</title>")
	// Markdown emphasis was rendered, not escaped.
	assert.Contains(t, html, "<strong>镭</strong>")
	assert.NotContains(t, html, "**镭**")
}
