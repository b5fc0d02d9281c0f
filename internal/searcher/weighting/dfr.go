package weighting

import "math"

var log2e = 1 / math.Ln2

// PL2 is the DFR model with Poisson randomness, Laplace after-effect and
// normalization 2.
type PL2 struct {
	C float64
}

func (PL2) Name() string { return "PL2" }

func (m PL2) Score(tf, docLength float64, t TermStats, c CollectionStats, keyFrequency float64) float64 {
	ntf := tf * log2(1+m.C/lengthRatio(docLength, c))
	if ntf <= 0 || c.DocCount <= 0 {
		return 0
	}
	f := t.CollectionFreq / c.DocCount
	norm := 1 / (ntf + 1)
	return norm * keyFrequency * (ntf*log2(1/f) +
		f*log2e +
		0.5*log2(2*math.Pi*ntf) +
		ntf*(log2(ntf)-log2e))
}

// DLH is the parameter-free DFR hypergeometric model.
type DLH struct{}

func (DLH) Name() string { return "DLH" }

func (DLH) Score(tf, docLength float64, t TermStats, c CollectionStats, keyFrequency float64) float64 {
	if docLength <= 0 || t.CollectionFreq <= 0 {
		return 0
	}
	f := tf / docLength
	score := tf * log2((tf*c.AvgDocLength/docLength)*(c.DocCount/t.CollectionFreq))
	if 1-f > 0 {
		score += 0.5 * log2(2*math.Pi*tf*(1-f))
	}
	return keyFrequency * score / (tf + 0.5)
}

// DFRee is the parameter-free DFR model measuring the divergence between
// the term's document and collection distributions.
type DFRee struct{}

func (DFRee) Name() string { return "DFRee" }

func (DFRee) Score(tf, docLength float64, t TermStats, c CollectionStats, keyFrequency float64) float64 {
	if docLength <= 0 || t.CollectionFreq <= 0 {
		return 0
	}
	prior := tf / docLength
	posterior := (tf + 1) / (docLength + 1)
	invPriorCollection := c.TotalTokens / t.CollectionFreq
	norm := tf * log2(posterior/prior)
	return keyFrequency * norm * (tf*(-log2(prior*invPriorCollection)) +
		(tf+1)*log2(posterior*invPriorCollection) +
		0.5*log2(posterior/prior))
}

// DFIZ scores the standardized divergence of tf from its expected value
// under independence. Terms at or below expectation score zero.
type DFIZ struct{}

func (DFIZ) Name() string { return "DFIZ" }

func (DFIZ) Score(tf, docLength float64, t TermStats, c CollectionStats, keyFrequency float64) float64 {
	if c.TotalTokens <= 0 {
		return 0
	}
	expected := t.CollectionFreq * docLength / c.TotalTokens
	if expected <= 0 || tf <= expected {
		return 0
	}
	return keyFrequency * log2((tf-expected)/math.Sqrt(expected)+1)
}

// LGD is the log-logistic information-based model.
type LGD struct {
	C float64
}

func (LGD) Name() string { return "LGD" }

func (m LGD) Score(tf, docLength float64, t TermStats, c CollectionStats, keyFrequency float64) float64 {
	if c.DocCount <= 0 || t.DocFreq <= 0 {
		return 0
	}
	ntf := tf * log2(1+m.C/lengthRatio(docLength, c))
	freq := t.DocFreq / c.DocCount
	return keyFrequency * log2((freq+ntf)/freq)
}
