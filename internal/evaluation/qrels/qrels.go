// Package qrels loads relevance judgments ("qid iter docno label" lines)
// and answers per-query label lookups. Only binary labels are kept; every
// other line is dropped, counted and logged.
package qrels

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/ingestion"
)

// Drop reasons reported in LoadReport.DroppedByReason.
const (
	ReasonFieldCount = "field_count"
	ReasonBadLabel   = "bad_label"
	ReasonLabelRange = "label_range"
)

const maxWarnings = 50

type Entry struct {
	QID       string `json:"qid"`
	Iteration string `json:"iter"`
	DocNo     string `json:"docno"`
	Label     int    `json:"label"`
}

// LoadReport summarizes one load. Labels is the label distribution of the
// accepted judgments.
type LoadReport struct {
	Lines           int            `json:"lines"`
	Accepted        int            `json:"accepted"`
	Dropped         int            `json:"dropped"`
	Duplicates      int            `json:"duplicates"`
	DroppedByReason map[string]int `json:"dropped_by_reason"`
	Labels          map[int]int    `json:"labels"`
	QIDs            int            `json:"qids"`
	Warnings        []string       `json:"warnings,omitempty"`
}

// Store is read-only once loaded and safe for concurrent use.
type Store struct {
	labels map[string]map[string]int
}

// Load reads judgments from r. The error is non-nil only when r itself
// fails; malformed lines are reported, not fatal.
func Load(r io.Reader) (*Store, LoadReport, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, LoadReport{}, fmt.Errorf("reading qrels: %w", err)
	}
	store, report := Parse(lines)
	return store, report, nil
}

// LoadFile opens path and calls Load.
func LoadFile(path string) (*Store, LoadReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, LoadReport{}, fmt.Errorf("opening qrels %s: %w", path, err)
	}
	defer f.Close()
	return Load(f)
}

// Parse builds a store from judgment lines. Fields are split on any run of
// whitespace and blank lines are skipped. A repeated (qid, docno) pair
// replaces the earlier label.
func Parse(lines []string) (*Store, LoadReport) {
	logger := slog.Default().With("component", "qrels")
	store := &Store{labels: make(map[string]map[string]int)}
	report := LoadReport{
		DroppedByReason: make(map[string]int),
		Labels:          make(map[int]int),
	}

	drop := func(lineNo int, reason, format string, args ...any) {
		report.Dropped++
		report.DroppedByReason[reason]++
		msg := fmt.Sprintf("line %d: ", lineNo) + fmt.Sprintf(format, args...)
		if len(report.Warnings) < maxWarnings {
			report.Warnings = append(report.Warnings, msg)
		}
		logger.Warn("dropping judgment line", "line", lineNo, "reason", reason, "detail", msg)
	}

	for i, line := range lines {
		lineNo := i + 1
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		report.Lines++
		if len(fields) != 4 {
			drop(lineNo, ReasonFieldCount, "expected 4 fields, got %d", len(fields))
			continue
		}
		label, ok := parseLabel(fields[3])
		if !ok {
			drop(lineNo, ReasonBadLabel, "label %q is not an integer", fields[3])
			continue
		}
		if label != 0 && label != 1 {
			drop(lineNo, ReasonLabelRange, "label %d outside {0,1}", label)
			continue
		}

		qid, docno := fields[0], fields[2]
		docs, ok := store.labels[qid]
		if !ok {
			docs = make(map[string]int)
			store.labels[qid] = docs
		}
		if prev, dup := docs[docno]; dup {
			report.Duplicates++
			report.Labels[prev]--
			report.Accepted--
		}
		docs[docno] = label
		report.Labels[label]++
		report.Accepted++
	}
	for label, n := range report.Labels {
		if n == 0 {
			delete(report.Labels, label)
		}
	}
	report.QIDs = len(store.labels)
	return store, report
}

// parseLabel accepts integers and integral decimals such as "1.0".
func parseLabel(s string) (int, bool) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

// LabelsFor returns a copy of the docno → label map of qid, or nil when the
// query has no judgments.
func (s *Store) LabelsFor(qid string) map[string]int {
	docs, ok := s.labels[qid]
	if !ok {
		return nil
	}
	out := make(map[string]int, len(docs))
	for d, l := range docs {
		out[d] = l
	}
	return out
}

// Label returns the label of one (qid, docno) pair.
func (s *Store) Label(qid, docno string) (int, bool) {
	l, ok := s.labels[qid][docno]
	return l, ok
}

// Relevant reports whether docno is judged relevant for qid.
func (s *Store) Relevant(qid, docno string) bool {
	return s.labels[qid][docno] == 1
}

// Judged reports whether qid has at least one judgment.
func (s *Store) Judged(qid string) bool {
	_, ok := s.labels[qid]
	return ok
}

// JudgedQIDs returns every judged qid, sorted.
func (s *Store) JudgedQIDs() []string {
	qids := make([]string, 0, len(s.labels))
	for qid := range s.labels {
		qids = append(qids, qid)
	}
	sort.Strings(qids)
	return qids
}

// RelevantCount returns the number of documents labelled 1 for qid.
func (s *Store) RelevantCount(qid string) int {
	n := 0
	for _, l := range s.labels[qid] {
		if l == 1 {
			n++
		}
	}
	return n
}

// Len returns the number of stored judgments.
func (s *Store) Len() int {
	n := 0
	for _, docs := range s.labels {
		n += len(docs)
	}
	return n
}

// Entries returns every judgment sorted by qid then docno. Iteration is
// reported as "0".
func (s *Store) Entries() []Entry {
	entries := make([]Entry, 0, s.Len())
	for _, qid := range s.JudgedQIDs() {
		docs := s.labels[qid]
		docnos := make([]string, 0, len(docs))
		for d := range docs {
			docnos = append(docnos, d)
		}
		sort.Strings(docnos)
		for _, d := range docnos {
			entries = append(entries, Entry{QID: qid, Iteration: "0", DocNo: d, Label: docs[d]})
		}
	}
	return entries
}

// CrossCheck returns the qids of queries without judgments, in query order,
// and logs them as a warning.
func (s *Store) CrossCheck(queries []ingestion.Query) []string {
	var missing []string
	for _, q := range queries {
		if !s.Judged(q.QID) {
			missing = append(missing, q.QID)
		}
	}
	if len(missing) > 0 {
		slog.Default().With("component", "qrels").Warn("queries without judgments will not be evaluated",
			"qids", missing,
		)
	}
	return missing
}
