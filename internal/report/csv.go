// Package report writes experiment output: CSV tables, TREC run files and
// console tables.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/analytics"
)

// File names written by SaveAll.
const (
	TopResultsFile = "top_results.csv"
	EvaluationFile = "evaluation_results.csv"
	RunFile        = "results.run"
)

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

// WriteRunsCSV writes rows with a model,index,qid,docno,score,rank header.
func WriteRunsCSV(w io.Writer, rows []analytics.Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"model", "index", "qid", "docno", "score", "rank"}); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write([]string{
			r.Model, r.Variant, r.QID, r.DocNo, formatScore(r.Score), strconv.Itoa(r.Rank),
		}); err != nil {
			return fmt.Errorf("writing row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteEvaluationCSV writes one line per record. evaluated and qids are
// empty on per-query lines; on aggregate lines qids lists the queries the
// mean covers, space separated.
func WriteEvaluationCSV(w io.Writer, records []analytics.EvaluationRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"model", "index", "qid", "metric", "value", "evaluated", "qids"}); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, r := range records {
		var evaluated, qids string
		if r.QID == analytics.AllQueries {
			evaluated = strconv.Itoa(r.Evaluated)
			qids = strings.Join(r.QIDs, " ")
		}
		if err := cw.Write([]string{
			r.Model, r.Variant, r.QID, r.Metric, formatScore(r.Value), evaluated, qids,
		}); err != nil {
			return fmt.Errorf("writing record: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteTRECRun writes rows in the six-column run format
// "qid Q0 docno rank score tag". The tag is the run tag when given,
// otherwise "<variant>_<model>" with spaces removed.
func WriteTRECRun(w io.Writer, rows []analytics.Row, tag string) error {
	for _, r := range rows {
		t := tag
		if t == "" {
			t = runTag(r.Variant, r.Model)
		}
		if _, err := fmt.Fprintf(w, "%s Q0 %s %d %s %s\n", r.QID, r.DocNo, r.Rank, formatScore(r.Score), t); err != nil {
			return fmt.Errorf("writing run line: %w", err)
		}
	}
	return nil
}

func runTag(variant, model string) string {
	out := make([]rune, 0, len(variant)+len(model)+1)
	for _, r := range variant + "_" + model {
		switch r {
		case ' ', '\t':
			continue
		}
		out = append(out, r)
	}
	return string(out)
}

// SaveAll writes the top-k table, the evaluation records and the full TREC
// run into dir and returns the written paths.
func SaveAll(dir string, agg *analytics.Aggregator, topK int) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	files := []struct {
		name  string
		write func(io.Writer) error
	}{
		{TopResultsFile, func(w io.Writer) error { return WriteRunsCSV(w, agg.TopK(topK)) }},
		{EvaluationFile, func(w io.Writer) error { return WriteEvaluationCSV(w, agg.Records()) }},
		{RunFile, func(w io.Writer) error { return WriteTRECRun(w, agg.Export(), "") }},
	}

	paths := make([]string, 0, len(files))
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if err := writeFile(path, f.write); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("renaming %s: %w", path, err)
	}
	return nil
}
