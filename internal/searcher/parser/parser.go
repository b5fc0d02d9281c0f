// Package parser turns a free-text query into weighted index terms.
package parser

import (
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/indexer/tokenizer"
)

// QueryTerm is one distinct normalized query term. KeyFrequency is its
// query frequency divided by the highest query frequency in the plan.
type QueryTerm struct {
	Term         string  `json:"term"`
	KeyFrequency float64 `json:"key_frequency"`
}

type QueryPlan struct {
	Terms        []QueryTerm `json:"terms"`
	ExcludeTerms []string    `json:"exclude_terms,omitempty"`
	RawQuery     string      `json:"raw_query"`
}

// Empty reports whether the plan has nothing to score.
func (p *QueryPlan) Empty() bool {
	return len(p.Terms) == 0
}

// Parse normalizes query the same way documents of the given variant were
// normalized. A leading '-' excludes a word. When the analyzer drops
// stop-words, AND and OR are also ignored and NOT excludes the next word;
// otherwise those words are ordinary terms, as they are in the index.
func Parse(query string, analyzer *tokenizer.Analyzer, mode tokenizer.Mode) *QueryPlan {
	plan := &QueryPlan{
		Terms:    make([]QueryTerm, 0),
		RawQuery: query,
	}
	if strings.TrimSpace(query) == "" {
		return plan
	}

	counts := make(map[string]int)
	var order []string
	excluded := make(map[string]struct{})
	excludeNext := false
	operators := analyzer.RemovesStopWords()
	for _, word := range strings.Fields(query) {
		if operators {
			switch word {
			case "AND", "OR":
				continue
			case "NOT":
				excludeNext = true
				continue
			}
		}
		exclude := excludeNext
		excludeNext = false
		if strings.HasPrefix(word, "-") && len(word) > 1 {
			exclude = true
			word = word[1:]
		}
		for _, term := range analyzer.Terms(word, mode) {
			if exclude {
				if _, dup := excluded[term]; !dup {
					excluded[term] = struct{}{}
					plan.ExcludeTerms = append(plan.ExcludeTerms, term)
				}
				continue
			}
			if counts[term] == 0 {
				order = append(order, term)
			}
			counts[term]++
		}
	}

	maxCount := 0
	for _, c := range counts {
		maxCount = max(maxCount, c)
	}
	for _, term := range order {
		plan.Terms = append(plan.Terms, QueryTerm{
			Term:         term,
			KeyFrequency: float64(counts[term]) / float64(maxCount),
		})
	}
	return plan
}
