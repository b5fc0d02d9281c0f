// Package benchmark measures indexing, scoring and evaluation throughput
// over a synthetic tweet-sized collection.
package benchmark

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/ingestion"
)

var vocabulary = strings.Fields(`gaza ceasefire hostages israel military occupation
	refugees humanitarian aid border protest election senate vaccine climate
	wildfire earthquake flooding inflation tariffs strike union football final
	protesters bombing negotiations talks sanctions embassy minister president`)

// corpus returns n short documents drawn deterministically from vocabulary.
func corpus(n int) []ingestion.Document {
	rng := rand.New(rand.NewPCG(42, 7))
	docs := make([]ingestion.Document, n)
	for i := range docs {
		words := make([]string, 6+rng.IntN(14))
		for j := range words {
			words[j] = vocabulary[rng.IntN(len(vocabulary))]
		}
		docs[i] = ingestion.Document{DocNo: fmt.Sprint(i + 1), Text: strings.Join(words, " ")}
	}
	return docs
}
