package tokenizer

import (
	"bufio"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

//go:embed lemmas.tsv
var builtinLemmas string

// detachment is one WordNet-style suffix rule: strip suffix, append
// replacement, keep the result only if it is a known lemma.
type detachment struct {
	suffix      string
	replacement string
}

var detachments = []detachment{
	{"ses", "s"},
	{"xes", "x"},
	{"zes", "z"},
	{"ches", "ch"},
	{"shes", "sh"},
	{"men", "man"},
	{"ies", "y"},
	{"s", ""},
	{"es", "e"},
	{"es", ""},
	{"ied", "y"},
	{"ed", "e"},
	{"ed", ""},
	{"ing", "e"},
	{"ing", ""},
}

// Lemmatizer maps inflected forms to dictionary lemmas. Words it cannot
// resolve are returned unchanged.
type Lemmatizer struct {
	exceptions map[string]string
	known      map[string]struct{}
}

var (
	builtinOnce sync.Once
	builtin     *Lemmatizer
)

func builtinLemmatizer() *Lemmatizer {
	builtinOnce.Do(func() {
		builtin = &Lemmatizer{
			exceptions: make(map[string]string),
			known:      make(map[string]struct{}),
		}
		if err := builtin.load(strings.NewReader(builtinLemmas)); err != nil {
			panic(fmt.Sprintf("tokenizer: embedded lemma table: %v", err))
		}
	})
	return builtin
}

// NewLemmatizer returns the built-in lemmatizer, extended with the entries of
// extraPath when it is non-empty.
func NewLemmatizer(extraPath string) (*Lemmatizer, error) {
	base := builtinLemmatizer()
	if extraPath == "" {
		return base, nil
	}

	l := &Lemmatizer{
		exceptions: make(map[string]string, len(base.exceptions)),
		known:      make(map[string]struct{}, len(base.known)),
	}
	for k, v := range base.exceptions {
		l.exceptions[k] = v
	}
	for k := range base.known {
		l.known[k] = struct{}{}
	}

	f, err := os.Open(extraPath)
	if err != nil {
		return nil, fmt.Errorf("opening lemma dictionary: %w", err)
	}
	defer f.Close()
	if err := l.load(f); err != nil {
		return nil, fmt.Errorf("loading lemma dictionary %s: %w", extraPath, err)
	}
	return l, nil
}

// load reads one entry per line: "form<TAB>lemma" records an irregular
// inflection, a single word records a known lemma. Lines starting with '#'
// are comments.
func (l *Lemmatizer) load(r io.Reader) error {
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(strings.ToLower(text))
		switch len(fields) {
		case 1:
			l.known[fields[0]] = struct{}{}
		case 2:
			l.exceptions[fields[0]] = fields[1]
			l.known[fields[1]] = struct{}{}
		default:
			return fmt.Errorf("line %d: expected 1 or 2 fields, got %d", line, len(fields))
		}
	}
	return sc.Err()
}

// Lemma returns the dictionary lemma of a lower-cased word.
func (l *Lemmatizer) Lemma(word string) string {
	if lemma, ok := l.exceptions[word]; ok {
		return lemma
	}
	if _, ok := l.known[word]; ok {
		return word
	}
	for _, d := range detachments {
		if !strings.HasSuffix(word, d.suffix) || len(word) <= len(d.suffix) {
			continue
		}
		candidate := word[:len(word)-len(d.suffix)] + d.replacement
		if _, ok := l.known[candidate]; ok {
			return candidate
		}
	}
	return word
}
