package weighting

// DirichletLM is query likelihood with Dirichlet prior smoothing, in its
// rank-equivalent per-term form.
type DirichletLM struct {
	Mu float64
}

func (DirichletLM) Name() string { return "DirichletLM" }

func (m DirichletLM) Score(tf, docLength float64, t TermStats, c CollectionStats, keyFrequency float64) float64 {
	if t.CollectionFreq <= 0 || c.TotalTokens <= 0 {
		return 0
	}
	collectionProb := t.CollectionFreq / c.TotalTokens
	return keyFrequency * (log2(1+tf/(m.Mu*collectionProb)) + log2(m.Mu/(docLength+m.Mu)))
}
