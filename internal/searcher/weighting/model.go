// Package weighting implements the term weighting models compared by the
// evaluation: TF-IDF, BM25, the DFR family (PL2, DLH, DFRee, DFIZ, LGD) and
// Dirichlet-smoothed language modelling. Logarithms are base 2 unless a
// model says otherwise.
package weighting

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/pkg/errors"
)

// Config selects a model by name with optional parameter overrides.
type Config = config.ModelConfig

// TermStats are the collection-wide counts of one query term.
type TermStats struct {
	DocFreq        float64
	CollectionFreq float64
}

// CollectionStats describe the index being searched.
type CollectionStats struct {
	DocCount     float64
	TotalTokens  float64
	AvgDocLength float64
}

// Model scores one (term, document) pair. Implementations are immutable and
// safe for concurrent use.
type Model interface {
	Name() string
	Score(tf, docLength float64, t TermStats, c CollectionStats, keyFrequency float64) float64
}

type param struct {
	def       float64
	min       float64
	max       float64
	minStrict bool
}

func (p param) check(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("parameter %s must be finite", name)
	}
	if v < p.min || (p.minStrict && v == p.min) {
		op := ">="
		if p.minStrict {
			op = ">"
		}
		return fmt.Errorf("parameter %s must be %s %g, got %g", name, op, p.min, v)
	}
	if v > p.max {
		return fmt.Errorf("parameter %s must be <= %g, got %g", name, p.max, v)
	}
	return nil
}

type registration struct {
	name   string
	params map[string]param
	build  func(p map[string]float64) Model
}

var positive = param{min: 0, max: math.MaxFloat64, minStrict: true}

var registry = map[string]registration{
	"tf-idf": {
		name: "TF-IDF",
		params: map[string]param{
			"k1": withDefault(positive, 1.2),
			"b":  {def: 0.75, min: 0, max: 1},
		},
		build: func(p map[string]float64) Model { return TFIDF{K1: p["k1"], B: p["b"]} },
	},
	"bm25": {
		name: "BM25",
		params: map[string]param{
			"k1": withDefault(positive, 1.2),
			"b":  {def: 0.75, min: 0, max: 1},
			"k3": {def: 8, min: 0, max: math.MaxFloat64},
		},
		build: func(p map[string]float64) Model { return BM25{K1: p["k1"], B: p["b"], K3: p["k3"]} },
	},
	"pl2": {
		name:   "PL2",
		params: map[string]param{"c": withDefault(positive, 1)},
		build:  func(p map[string]float64) Model { return PL2{C: p["c"]} },
	},
	"dlh": {
		name:  "DLH",
		build: func(map[string]float64) Model { return DLH{} },
	},
	"dfree": {
		name:  "DFRee",
		build: func(map[string]float64) Model { return DFRee{} },
	},
	"dirichletlm": {
		name:   "DirichletLM",
		params: map[string]param{"mu": withDefault(positive, 2500)},
		build:  func(p map[string]float64) Model { return DirichletLM{Mu: p["mu"]} },
	},
	"dfiz": {
		name:  "DFIZ",
		build: func(map[string]float64) Model { return DFIZ{} },
	},
	"lgd": {
		name:   "LGD",
		params: map[string]param{"c": withDefault(positive, 1)},
		build:  func(p map[string]float64) Model { return LGD{C: p["c"]} },
	},
}

func withDefault(p param, def float64) param {
	p.def = def
	return p
}

func canonical(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	switch n {
	case "tf_idf", "tfidf":
		return "tf-idf"
	case "dirichlet_lm", "dirichlet":
		return "dirichletlm"
	}
	return n
}

// New returns the model named by cfg with its parameters applied. Unknown
// names, unknown parameters and out-of-range values are ErrConfig errors.
func New(cfg Config) (Model, error) {
	reg, ok := registry[canonical(cfg.Name)]
	if !ok {
		return nil, apperrors.Configf("unknown weighting model %q (known: %s)", cfg.Name, strings.Join(Names(), ", "))
	}
	values := make(map[string]float64, len(reg.params))
	for name, p := range reg.params {
		values[name] = p.def
	}
	for name, v := range cfg.Params {
		p, ok := reg.params[strings.ToLower(name)]
		if !ok {
			return nil, apperrors.Configf("model %s: unknown parameter %q", reg.name, name)
		}
		if err := p.check(name, v); err != nil {
			return nil, apperrors.Configf("model %s: %v", reg.name, err)
		}
		values[strings.ToLower(name)] = v
	}
	return reg.build(values), nil
}

// Names lists the canonical model names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for _, reg := range registry {
		names = append(names, reg.name)
	}
	sort.Strings(names)
	return names
}

func log2(x float64) float64 {
	return math.Log2(x)
}

// lengthRatio is docLength/avgDocLength, or 1 when the collection is empty.
func lengthRatio(docLength float64, c CollectionStats) float64 {
	if c.AvgDocLength <= 0 {
		return 1
	}
	return docLength / c.AvgDocLength
}
