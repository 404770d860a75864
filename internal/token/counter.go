// Package token provides token counting utilities for context diagnostics.
package token

import (
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// Counter wraps a tiktoken encoder for token counting operations.
type Counter struct {
	encoder  *tiktoken.Tiktoken
	encoding string
}

// Default encoding for fallback.
const defaultEncoding = "cl100k_base"

// Message overhead constants for chat message token counting.
// These are based on OpenAI's chat format overhead.
const (
	// Tokens added per message for role and formatting.
	messageOverhead = 4
	// Tokens added for the assistant reply priming.
	replyPriming = 2
)

// NewCounter creates a new token counter with the specified encoding.
// Falls back to cl100k_base if the specified encoding is not found.
func NewCounter(encoding string) (*Counter, error) {
	if encoding == "" {
		encoding = defaultEncoding
	}

	encoder, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		encoder, err = tiktoken.GetEncoding(defaultEncoding)
		if err != nil {
			return nil, err
		}
		encoding = defaultEncoding
	}

	return &Counter{
		encoder:  encoder,
		encoding: encoding,
	}, nil
}

// Encoding returns the current encoding name.
func (c *Counter) Encoding() string {
	return c.encoding
}

// Count returns the number of tokens in the given text.
func (c *Counter) Count(text string) int {
	if text == "" {
		return 0
	}
	tokens := c.encoder.Encode(text, nil, nil)
	return len(tokens)
}

// CountMessages counts the total tokens in a slice of chat messages,
// including per-message overhead for role and formatting.
// This follows OpenAI's token counting convention for chat messages.
func (c *Counter) CountMessages(messages []ChatMessage) int {
	if len(messages) == 0 {
		return 0
	}

	total := 0
	for _, msg := range messages {
		total += messageOverhead
		total += c.Count(msg.Content)
	}

	// Add priming tokens for assistant reply
	total += replyPriming

	return total
}

// EstimateTokens provides a quick estimate of token count without encoding.
// Uses a heuristic of approximately 4 characters per token; CJK text runs
// denser, so treat the result as a lower bound there.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	runeCount := utf8.RuneCountInString(text)
	return (runeCount + 3) / 4
}

// ChatMessage mirrors the llm.ChatMessage for use in token counting.
// This avoids circular imports while maintaining the same structure.
type ChatMessage struct {
	Role    string
	Content string
}
