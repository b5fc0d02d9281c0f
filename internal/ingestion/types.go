// Package ingestion defines the records handed to the retrieval core by its
// external collaborators: documents, queries, and the raw tweet and topic
// formats written by the collection script.
package ingestion

// Document is one collection entry. DocNo is unique within a collection and
// the value is immutable once indexed.
type Document struct {
	DocNo string `json:"docno"`
	Text  string `json:"text"`
}

// Query is one information need evaluated against every index variant.
type Query struct {
	QID  string `json:"qid"`
	Text string `json:"query"`
}

// Tweet is the record shape stored in corpus.json by the tweet collector.
type Tweet struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	User      string `json:"user"`
	Text      string `json:"text"`
	Lang      string `json:"lang"`
	Retweets  int    `json:"retweets"`
	Likes     int    `json:"likes"`
}

// Topic is the record shape stored in topics.json by the tweet collector.
type Topic struct {
	Num   string `json:"num"`
	Title string `json:"title"`
}

// DefaultQueries returns the fixed topic set of the Gaza tweet collection.
func DefaultQueries() []Query {
	return []Query{
		{QID: "MB39", Text: "Gaza under attack"},
		{QID: "MB40", Text: "Military occupation Gaza"},
		{QID: "MB41", Text: "Israel Genocide Gaza"},
		{QID: "MB42", Text: "Ceasefire in Gaza"},
		{QID: "MB43", Text: "Massacres in Gaza"},
		{QID: "MB44", Text: "Palestinian rights"},
		{QID: "MB45", Text: "Refugees from Gaza"},
	}
}
