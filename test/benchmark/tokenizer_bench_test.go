package benchmark

import (
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/indexer/tokenizer"
)

var sampleTexts = map[string]string{
	"tweet": "RT @user: Ceasefire talks in #Gaza stall again as hostages' families protest outside the embassy https://t.co/x",
	"long": strings.Repeat("Humanitarian agencies warned that refugees crossing the border were "+
		"running out of food, while ministers negotiating the ceasefire argued over sanctions. ", 20),
}

func BenchmarkTokenize(b *testing.B) {
	for name, text := range sampleTexts {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				_ = tokenizer.Tokenize(text)
			}
		})
	}
}

// BenchmarkTerms compares the cost of each normalization mode.
func BenchmarkTerms(b *testing.B) {
	analyzer := tokenizer.DefaultAnalyzer()
	text := sampleTexts["long"]
	for _, mode := range tokenizer.Modes {
		b.Run(mode.String(), func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				_ = analyzer.Terms(text, mode)
			}
		})
	}
}

func BenchmarkTermsParallel(b *testing.B) {
	analyzer := tokenizer.DefaultAnalyzer()
	text := sampleTexts["tweet"]
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = analyzer.Terms(text, tokenizer.ModeLemmatized)
		}
	})
}
