// Package tokens counts LLM tokens for context budgeting.
//
// The chunker's own tokenisation is offset-based and deterministic by
// design; this counter exists only to size retrieved context against
// a model's window before it is handed to the LLM collaborator.
package tokens

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding matches the OpenAI embedding and chat model family.
const DefaultEncoding = "cl100k_base"

// Counter counts tokens under a fixed tiktoken encoding.
type Counter struct {
	encoder *tiktoken.Tiktoken
}

// NewCounter creates a counter for the given encoding name
// (default cl100k_base).
func NewCounter(encoding string) (*Counter, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	encoder, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("tokens: load encoding %s: %w", encoding, err)
	}
	return &Counter{encoder: encoder}, nil
}

// Count returns the number of tokens in text.
func (c *Counter) Count(text string) int {
	return len(c.encoder.Encode(text, nil, nil))
}
