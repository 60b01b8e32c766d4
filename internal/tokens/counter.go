package tokens

import (
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
	"github.com/s33g/promptfit/internal/prompt"
)

// TokenCounter handles token counting for different models
type TokenCounter struct {
	mu sync.Mutex
	// Cache encoders for reuse
	encoders map[string]*tiktoken.Tiktoken
}

// NewTokenCounter creates a new token counter
func NewTokenCounter() *TokenCounter {
	return &TokenCounter{
		encoders: make(map[string]*tiktoken.Tiktoken),
	}
}

// Count returns the number of tokens in a text for a given model
func (tc *TokenCounter) Count(text, model string) (int, error) {
	return tc.CountEncoding(text, EncodingForModel(model))
}

// CountEncoding counts tokens with a named tiktoken encoding
func (tc *TokenCounter) CountEncoding(text, encoding string) (int, error) {
	encoder, ok := tc.encoder(encoding)
	if !ok {
		// Fallback to simple estimation if tiktoken fails
		return Estimate(text), nil
	}
	return len(encoder.Encode(text, nil, nil)), nil
}

func (tc *TokenCounter) encoder(encoding string) (*tiktoken.Tiktoken, bool) {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	if encoder, ok := tc.encoders[encoding]; ok {
		return encoder, encoder != nil
	}
	encoder, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		// Remember the failure so every call doesn't retry the download
		tc.encoders[encoding] = nil
		return nil, false
	}
	tc.encoders[encoding] = encoder
	return encoder, true
}

// Tokenizer returns a prompt.Tokenizer bound to a model. It never fails:
// when the encoding is unavailable it falls back to Estimate.
func (tc *TokenCounter) Tokenizer(model string) prompt.Tokenizer {
	return tc.EncodingTokenizer(EncodingForModel(model))
}

// EncodingTokenizer returns a prompt.Tokenizer bound to an encoding name
func (tc *TokenCounter) EncodingTokenizer(encoding string) prompt.Tokenizer {
	return func(text string) int {
		n, _ := tc.CountEncoding(text, encoding)
		return n
	}
}

// EncodingForModel returns the tiktoken encoding name for a model
func EncodingForModel(model string) string {
	m := strings.ToLower(model)

	// GPT-4o and the o-series use o200k_base
	if strings.Contains(m, "gpt-4o") || strings.Contains(m, "gpt-4.1") ||
		strings.HasPrefix(m, "o1") || strings.HasPrefix(m, "o3") || strings.HasPrefix(m, "o4") {
		return "o200k_base"
	}

	// GPT-4, GPT-3.5-turbo and Claude (approximate) use cl100k_base, as do most others
	return "cl100k_base"
}

// Estimate provides a rough token estimate: 1 token ≈ 4 characters, rounded up
func Estimate(text string) int {
	return (utf8.RuneCountInString(text) + 3) / 4
}
