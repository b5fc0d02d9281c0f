// Package index holds the immutable per-variant inverted index: postings per
// term, document lengths and collection statistics.
package index

import (
	"errors"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/ingestion/validator"
	apperrors "github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/pkg/errors"
)

// CollectionIndex is built once and never mutated afterwards, so every
// accessor is safe for concurrent use without locking.
type CollectionIndex struct {
	mode      tokenizer.Mode
	postings  map[string]PostingList
	termStats map[string]TermStats
	docs      []DocEntry
	lengths   map[string]int
	stats     Stats
}

// Snapshot is the serializable form of a CollectionIndex. Terms are sorted.
type Snapshot struct {
	Mode  tokenizer.Mode
	Docs  []DocEntry
	Terms []TermEntry
}

// Build normalizes every document with analyzer under mode and indexes the
// resulting terms. An empty docno, blank text or a repeated docno aborts the
// build with an ErrData error naming the document.
func Build(docs []ingestion.Document, analyzer *tokenizer.Analyzer, mode tokenizer.Mode) (*CollectionIndex, error) {
	idx := newCollectionIndex(mode, len(docs))

	for i := range docs {
		doc := &docs[i]
		if err := validator.ValidateDocument(doc); err != nil {
			return nil, apperrors.Dataf("document %d (docno %q): %v", i, doc.DocNo, err)
		}
		if _, dup := idx.lengths[doc.DocNo]; dup {
			return nil, apperrors.Dataf("document %d: duplicate docno %q", i, doc.DocNo)
		}

		terms := analyzer.Terms(doc.Text, mode)
		ordinal := len(idx.docs)
		idx.docs = append(idx.docs, DocEntry{DocNo: doc.DocNo, Length: len(terms)})
		idx.lengths[doc.DocNo] = len(terms)

		freqs := make(map[string]int, len(terms))
		order := make([]string, 0, len(terms))
		for _, term := range terms {
			if freqs[term] == 0 {
				order = append(order, term)
			}
			freqs[term]++
		}
		for _, term := range order {
			idx.postings[term] = append(idx.postings[term], Posting{
				DocID:     doc.DocNo,
				Ordinal:   ordinal,
				Frequency: freqs[term],
			})
		}
	}

	idx.finish()
	return idx, nil
}

// Restore rebuilds an index from a snapshot, checking that every posting
// refers to a document in the table.
func Restore(snap Snapshot) (*CollectionIndex, error) {
	idx := newCollectionIndex(snap.Mode, len(snap.Docs))
	for i, d := range snap.Docs {
		if d.DocNo == "" {
			return nil, apperrors.Dataf("document %d: empty docno", i)
		}
		if _, dup := idx.lengths[d.DocNo]; dup {
			return nil, apperrors.Dataf("document %d: duplicate docno %q", i, d.DocNo)
		}
		if d.Length < 0 {
			return nil, apperrors.Dataf("document %q: negative length %d", d.DocNo, d.Length)
		}
		idx.docs = append(idx.docs, d)
		idx.lengths[d.DocNo] = d.Length
	}

	for _, entry := range snap.Terms {
		if entry.Term == "" {
			return nil, errors.New("restoring index: empty term")
		}
		list := make(PostingList, len(entry.Postings))
		copy(list, entry.Postings)
		for _, p := range list {
			if p.Ordinal < 0 || p.Ordinal >= len(idx.docs) || idx.docs[p.Ordinal].DocNo != p.DocID {
				return nil, apperrors.Dataf("term %q: posting for unknown document %q", entry.Term, p.DocID)
			}
			if p.Frequency < 1 {
				return nil, apperrors.Dataf("term %q: non-positive frequency for document %q", entry.Term, p.DocID)
			}
		}
		sort.Slice(list, func(i, j int) bool { return list[i].Ordinal < list[j].Ordinal })
		idx.postings[entry.Term] = list
	}

	idx.finish()
	return idx, nil
}

func newCollectionIndex(mode tokenizer.Mode, capacity int) *CollectionIndex {
	return &CollectionIndex{
		mode:     mode,
		postings: make(map[string]PostingList),
		docs:     make([]DocEntry, 0, capacity),
		lengths:  make(map[string]int, capacity),
	}
}

// finish derives term and collection statistics from postings and lengths.
func (c *CollectionIndex) finish() {
	c.termStats = make(map[string]TermStats, len(c.postings))
	for term, list := range c.postings {
		var cf int64
		for _, p := range list {
			cf += int64(p.Frequency)
		}
		c.termStats[term] = TermStats{DocFreq: len(list), CollectionFreq: cf}
	}

	var total int64
	for _, d := range c.docs {
		total += int64(d.Length)
	}
	c.stats = Stats{
		DocCount:    len(c.docs),
		UniqueTerms: len(c.postings),
		TotalTokens: total,
	}
	if len(c.docs) > 0 {
		c.stats.AvgDocLength = float64(total) / float64(len(c.docs))
	}
}

func (c *CollectionIndex) Mode() tokenizer.Mode {
	return c.mode
}

// Postings returns the postings of term in ordinal order, or nil when the
// term is not in the vocabulary. Callers must not modify the result.
func (c *CollectionIndex) Postings(term string) PostingList {
	return c.postings[term]
}

func (c *CollectionIndex) TermStats(term string) TermStats {
	return c.termStats[term]
}

// DocLength returns the number of indexed terms of docno.
func (c *CollectionIndex) DocLength(docno string) (int, bool) {
	n, ok := c.lengths[docno]
	return n, ok
}

// DocLengthAt returns the length of the document with the given ordinal.
func (c *CollectionIndex) DocLengthAt(ordinal int) int {
	return c.docs[ordinal].Length
}

func (c *CollectionIndex) Stats() Stats {
	return c.stats
}

// DocIDs returns every docno in ordinal order.
func (c *CollectionIndex) DocIDs() []string {
	ids := make([]string, len(c.docs))
	for i, d := range c.docs {
		ids[i] = d.DocNo
	}
	return ids
}

// Snapshot returns a copy of the index contents with terms sorted.
func (c *CollectionIndex) Snapshot() Snapshot {
	terms := make([]TermEntry, 0, len(c.postings))
	for term, list := range c.postings {
		cp := make(PostingList, len(list))
		copy(cp, list)
		terms = append(terms, TermEntry{Term: term, Postings: cp})
	}
	sort.Slice(terms, func(i, j int) bool { return terms[i].Term < terms[j].Term })

	docs := make([]DocEntry, len(c.docs))
	copy(docs, c.docs)
	return Snapshot{Mode: c.mode, Docs: docs, Terms: terms}
}
