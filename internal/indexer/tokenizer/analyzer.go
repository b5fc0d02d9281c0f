package tokenizer

import (
	"fmt"
	"strings"

	"github.com/kljensen/snowball/english"

	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/pkg/config"
)

// Mode selects the normalization applied after tokenization. Each mode
// backs one index variant.
type Mode int

const (
	ModeRaw Mode = iota
	ModeStemmed
	ModeLemmatized
)

// Modes lists every normalization mode in variant order.
var Modes = []Mode{ModeRaw, ModeStemmed, ModeLemmatized}

func (m Mode) String() string {
	switch m {
	case ModeRaw:
		return "original"
	case ModeStemmed:
		return "stemmed"
	case ModeLemmatized:
		return "lemmatized"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode maps a variant name to its Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "raw", "original":
		return ModeRaw, nil
	case "stemmed", "stem":
		return ModeStemmed, nil
	case "lemmatized", "lemma":
		return ModeLemmatized, nil
	default:
		return 0, fmt.Errorf("unknown index variant %q", s)
	}
}

// Analyzer produces index terms for every normalization mode. It is
// immutable after construction and safe for concurrent use.
type Analyzer struct {
	opts       Options
	lemmatizer *Lemmatizer
}

// NewAnalyzer builds an analyzer from the index configuration, merging the
// optional extra lemma dictionary into the built-in one.
func NewAnalyzer(cfg config.IndexConfig) (*Analyzer, error) {
	lem, err := NewLemmatizer(cfg.LemmaDictionary)
	if err != nil {
		return nil, err
	}
	return &Analyzer{
		opts: Options{
			StopWords:      cfg.StopWords,
			MinTokenLength: cfg.MinTokenLength,
		},
		lemmatizer: lem,
	}, nil
}

// DefaultAnalyzer uses DefaultOptions and the built-in lemma dictionary.
func DefaultAnalyzer() *Analyzer {
	return &Analyzer{opts: DefaultOptions(), lemmatizer: builtinLemmatizer()}
}

// Terms returns the normalized terms of text in order of appearance.
func (a *Analyzer) Terms(text string, mode Mode) []string {
	tokens := a.opts.Tokenize(text)
	terms := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		var term string
		switch mode {
		case ModeStemmed:
			term = english.Stem(tok.Term, true)
		case ModeLemmatized:
			term = a.lemmatizer.Lemma(tok.Term)
		default:
			term = tok.Term
		}
		if term == "" {
			continue
		}
		terms = append(terms, term)
	}
	return terms
}

// RemovesStopWords reports whether stop-words are dropped from terms.
func (a *Analyzer) RemovesStopWords() bool {
	return a.opts.StopWords
}

// Normalize returns the normalized terms of text joined by single spaces.
func (a *Analyzer) Normalize(text string, mode Mode) string {
	return strings.Join(a.Terms(text, mode), " ")
}
