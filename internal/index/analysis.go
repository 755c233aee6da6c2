package index

import (
	"strings"

	"github.com/clipperhouse/uax29/v2/words"
	"golang.org/x/text/unicode/norm"
)

// Tokenizer turns raw document text into an ordered token stream. Separators (whitespace and
// punctuation) may be emitted as tokens of their own; the index drops them while cleaning.
type Tokenizer interface {
	Tokenize(text string) []string
}

// SegmentTokenizer splits text on UAX#29 word boundaries after NFKC normalisation.
type SegmentTokenizer struct{}

// NewSegmentTokenizer returns the default tokenizer used for corpus files.
func NewSegmentTokenizer() *SegmentTokenizer {
	return &SegmentTokenizer{}
}

// Tokenize emits every segment, keeping separators so the original layout can be rebuilt.
func (t *SegmentTokenizer) Tokenize(text string) []string {
	segments := words.FromString(norm.NFKC.String(text))
	var tokens []string
	for segments.Next() {
		tokens = append(tokens, segments.Value())
	}
	return tokens
}

// WhitespaceTokenizer splits on runs of whitespace only.
type WhitespaceTokenizer struct{}

// Tokenize splits text with strings.Fields.
func (WhitespaceTokenizer) Tokenize(text string) []string {
	return strings.Fields(text)
}

// TokenizerFor resolves a tokenizer by its configured name, defaulting to word segmentation.
func TokenizerFor(name string) Tokenizer {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "whitespace":
		return WhitespaceTokenizer{}
	default:
		return NewSegmentTokenizer()
	}
}

// CleanWord strips every byte that is not an ASCII letter. It reports false when nothing is left.
func CleanWord(token string) (string, bool) {
	clean := true
	for i := 0; i < len(token); i++ {
		if !isASCIILetter(token[i]) {
			clean = false
			break
		}
	}
	if clean {
		return token, token != ""
	}

	var b strings.Builder
	b.Grow(len(token))
	for i := 0; i < len(token); i++ {
		if isASCIILetter(token[i]) {
			b.WriteByte(token[i])
		}
	}
	if b.Len() == 0 {
		return "", false
	}
	return b.String(), true
}

func isASCIILetter(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}
