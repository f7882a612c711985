package llm

import (
	"strings"
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// Tokenizer 精确 token 计数器，tiktoken 不可用时回退到启发式
// Tokenizer counts and splits by tokens, falling back to a heuristic when tiktoken is unavailable
type Tokenizer struct {
	encoder  *tiktoken.Tiktoken
	fallback bool
	mu       sync.Mutex
}

var (
	defaultTokenizer     *Tokenizer
	defaultTokenizerOnce sync.Once
)

// DefaultTokenizer returns the shared cl100k_base tokenizer.
func DefaultTokenizer() *Tokenizer {
	defaultTokenizerOnce.Do(func() {
		defaultTokenizer = NewTokenizer("cl100k_base")
	})
	return defaultTokenizer
}

func NewTokenizer(encodingName string) *Tokenizer {
	enc, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		// 离线环境可能没有 BPE 缓存
		// Offline environments may lack the BPE cache
		return NewHeuristicTokenizer()
	}
	return &Tokenizer{encoder: enc}
}

// NewHeuristicTokenizer counts roughly four characters per token.
func NewHeuristicTokenizer() *Tokenizer {
	return &Tokenizer{fallback: true}
}

func (t *Tokenizer) IsPrecise() bool { return !t.fallback }

// CountText returns the token count of text.
func (t *Tokenizer) CountText(text string) int {
	if text == "" {
		return 0
	}
	if t.fallback {
		return heuristicTokenCount(text)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.encoder.Encode(text, nil, nil))
}

// Split cuts text into consecutive parts of at most maxTokens tokens. The
// parts concatenate back to text.
func (t *Tokenizer) Split(text string, maxTokens int) []string {
	if text == "" {
		return nil
	}
	if maxTokens <= 0 || t.CountText(text) <= maxTokens {
		return []string{text}
	}
	if t.fallback {
		return splitRunes(text, maxTokens*heuristicCharsPerToken)
	}

	t.mu.Lock()
	tokens := t.encoder.Encode(text, nil, nil)
	parts := make([]string, 0, len(tokens)/maxTokens+1)
	for start := 0; start < len(tokens); start += maxTokens {
		end := start + maxTokens
		if end > len(tokens) {
			end = len(tokens)
		}
		parts = append(parts, t.encoder.Decode(tokens[start:end]))
	}
	t.mu.Unlock()
	return parts
}

const heuristicCharsPerToken = 4

func heuristicTokenCount(text string) int {
	n := (len([]rune(text)) + heuristicCharsPerToken - 1) / heuristicCharsPerToken
	if n < 1 {
		n = 1
	}
	return n
}

func splitRunes(text string, size int) []string {
	runes := []rune(text)
	parts := make([]string, 0, len(runes)/size+1)
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		parts = append(parts, string(runes[start:end]))
	}
	return parts
}

// JoinContents concatenates post contents the way they are sent for
// clustering.
func JoinContents(contents []string) string {
	return strings.Join(contents, "\n\n")
}
