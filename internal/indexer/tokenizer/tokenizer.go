// Package tokenizer turns raw text into index terms. It lower-cases input,
// splits on non-alphanumeric boundaries and removes stop-words, then applies
// the per-variant normalization (none, Snowball stemming or dictionary
// lemmatization).
package tokenizer

import (
	"strings"
	"unicode"
)

var stopWords = map[string]struct{}{
	"a": {}, "about": {}, "after": {}, "again": {}, "all": {}, "am": {},
	"an": {}, "and": {}, "any": {}, "are": {}, "as": {}, "at": {},
	"be": {}, "been": {}, "before": {}, "being": {}, "between": {},
	"both": {}, "but": {}, "by": {}, "can": {}, "could": {}, "did": {},
	"do": {}, "does": {}, "doing": {}, "during": {}, "each": {},
	"few": {}, "for": {}, "from": {}, "had": {}, "has": {}, "have": {},
	"having": {}, "he": {}, "her": {}, "here": {}, "hers": {}, "him": {},
	"his": {}, "how": {}, "i": {}, "if": {}, "in": {}, "into": {},
	"is": {}, "it": {}, "its": {}, "itself": {}, "just": {}, "me": {},
	"more": {}, "most": {}, "my": {}, "no": {}, "nor": {}, "not": {},
	"of": {}, "off": {}, "on": {}, "once": {}, "only": {}, "or": {},
	"other": {}, "our": {}, "ours": {}, "out": {}, "over": {}, "own": {},
	"same": {}, "she": {}, "should": {}, "so": {}, "some": {}, "such": {},
	"than": {}, "that": {}, "the": {}, "their": {}, "theirs": {},
	"them": {}, "then": {}, "there": {}, "these": {}, "they": {},
	"this": {}, "those": {}, "through": {}, "to": {}, "too": {},
	"under": {}, "until": {}, "up": {}, "very": {}, "was": {}, "we": {},
	"were": {}, "what": {}, "when": {}, "where": {}, "which": {},
	"while": {}, "who": {}, "whom": {}, "why": {}, "will": {}, "with": {},
	"would": {}, "you": {}, "your": {}, "yours": {},
}

// IsStopWord reports whether the lower-cased word is on the stop list.
func IsStopWord(word string) bool {
	_, ok := stopWords[word]
	return ok
}

// Token represents a single lower-cased term and its position in the
// original text.
type Token struct {
	Term     string
	Position int
}

// Options controls which raw tokens survive tokenization.
type Options struct {
	StopWords      bool
	MinTokenLength int
}

// DefaultOptions removes stop-words and keeps tokens of any length.
func DefaultOptions() Options {
	return Options{StopWords: true, MinTokenLength: 1}
}

// Tokenize breaks text into lowercased Tokens using DefaultOptions.
func Tokenize(text string) []Token {
	return DefaultOptions().Tokenize(text)
}

// Tokenize breaks text into lowercased Tokens. Positions count surviving
// tokens only.
func (o Options) Tokenize(text string) []Token {
	text = strings.ToLower(text)
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	minLen := max(o.MinTokenLength, 1)
	tokens := make([]Token, 0, len(words))
	pos := 0
	for _, word := range words {
		if len([]rune(word)) < minLen {
			continue
		}
		if o.StopWords && IsStopWord(word) {
			continue
		}
		tokens = append(tokens, Token{
			Term:     word,
			Position: pos,
		})
		pos++
	}
	return tokens
}
