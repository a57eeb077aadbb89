package provider

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// Tokenizer caps a text at a token budget.
type Tokenizer interface {
	Truncate(text string, maxTokens int) string
}

type tiktokenTokenizer struct {
	enc *tiktoken.Tiktoken
}

// NewTokenizer selects the encoding for model, falling back to cl100k_base for unknown models.
func NewTokenizer(model string) (Tokenizer, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("get tokenizer: %w", err)
		}
	}
	return tiktokenTokenizer{enc: enc}, nil
}

func (t tiktokenTokenizer) Truncate(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return text
	}
	tokens := t.enc.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text
	}
	return strings.ToValidUTF8(t.enc.Decode(tokens[:maxTokens]), "")
}

// RuneTokenizer approximates tokens as a fixed number of runes. It needs no encoding files.
type RuneTokenizer struct {
	RunesPerToken int
}

func (t RuneTokenizer) Truncate(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return text
	}
	per := t.RunesPerToken
	if per <= 0 {
		per = 4
	}
	limit := maxTokens * per
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	n := 0
	for i := range text {
		if n == limit {
			return text[:i]
		}
		n++
	}
	return text
}
