package index

// Posting records how often a term occurs in one document. Ordinal is the
// document's first-seen position in the build input and is the tie-breaker
// for equal scores.
type Posting struct {
	DocID     string `json:"d"`
	Ordinal   int    `json:"o"`
	Frequency int    `json:"f"`
}

// PostingList is kept sorted by Ordinal.
type PostingList []Posting

type TermEntry struct {
	Term     string      `json:"term"`
	Postings PostingList `json:"postings"`
}

// DocEntry is one row of the document table, stored in ordinal order.
type DocEntry struct {
	DocNo  string `json:"n"`
	Length int    `json:"l"`
}

// Stats summarizes a whole collection.
type Stats struct {
	DocCount     int     `json:"doc_count"`
	UniqueTerms  int     `json:"unique_terms"`
	TotalTokens  int64   `json:"total_tokens"`
	AvgDocLength float64 `json:"avg_doc_length"`
}

// TermStats holds the collection-wide counts of a single term.
type TermStats struct {
	DocFreq        int   `json:"doc_freq"`
	CollectionFreq int64 `json:"collection_freq"`
}
