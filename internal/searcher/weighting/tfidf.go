package weighting

// TFIDF weights Robertson's saturated tf by log2(N/df + 1).
type TFIDF struct {
	K1 float64
	B  float64
}

func (TFIDF) Name() string { return "TF-IDF" }

func (m TFIDF) Score(tf, docLength float64, t TermStats, c CollectionStats, keyFrequency float64) float64 {
	robertsonTF := m.K1 * tf / (tf + m.K1*(1-m.B+m.B*lengthRatio(docLength, c)))
	idf := log2(c.DocCount/t.DocFreq + 1)
	return keyFrequency * robertsonTF * idf
}
