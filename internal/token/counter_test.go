package token

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestEstimateTokens tests the rough rune-based estimate.
func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{
			name: "empty text",
			text: "",
			want: 0,
		},
		{
			name: "short text rounds up",
			text: "ab",
			want: 1,
		},
		{
			name: "exactly four chars",
			text: "abcd",
			want: 1,
		},
		{
			name: "multibyte runes count as runes not bytes",
			text: "你好世界",
			want: 1,
		},
		{
			name: "longer text",
			text: strings.Repeat("a", 100),
			want: 25,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EstimateTokens(tt.text))
		})
	}
}
