package weighting

import "math"

// BM25 is Okapi BM25 with query-term saturation k3. The IDF uses
// ln(1 + (N-df+0.5)/(df+0.5)), which stays positive for terms occurring in
// more than half the collection.
type BM25 struct {
	K1 float64
	B  float64
	K3 float64
}

func (BM25) Name() string { return "BM25" }

func (m BM25) Score(tf, docLength float64, t TermStats, c CollectionStats, keyFrequency float64) float64 {
	k := m.K1 * (1 - m.B + m.B*lengthRatio(docLength, c))
	idf := math.Log(1 + (c.DocCount-t.DocFreq+0.5)/(t.DocFreq+0.5))
	tfPart := (m.K1 + 1) * tf / (k + tf)
	qtfPart := (m.K3 + 1) * keyFrequency / (m.K3 + keyFrequency)
	return idf * tfPart * qtfPart
}
