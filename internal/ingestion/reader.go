package ingestion

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/pkg/errors"
)

// ReadDocumentsTSV reads a tab-separated collection file. The header row must
// name a docno and a text column; their order does not matter and extra
// columns are ignored. Rows are returned in file order.
func ReadDocumentsTSV(r io.Reader) ([]Document, error) {
	rows, cols, err := readTSV(r, "docno", "text")
	if err != nil {
		return nil, fmt.Errorf("reading documents: %w", err)
	}
	docs := make([]Document, 0, len(rows))
	for _, row := range rows {
		docs = append(docs, Document{
			DocNo: strings.TrimSpace(row[cols[0]]),
			Text:  row[cols[1]],
		})
	}
	return docs, nil
}

// ReadQueriesTSV reads a qid/query header file.
func ReadQueriesTSV(r io.Reader) ([]Query, error) {
	rows, cols, err := readTSV(r, "qid", "query")
	if err != nil {
		return nil, fmt.Errorf("reading queries: %w", err)
	}
	queries := make([]Query, 0, len(rows))
	for _, row := range rows {
		queries = append(queries, Query{
			QID:  strings.TrimSpace(row[cols[0]]),
			Text: row[cols[1]],
		})
	}
	if err := checkUniqueQIDs(queries); err != nil {
		return nil, fmt.Errorf("reading queries: %w", err)
	}
	return queries, nil
}

// ReadTopicsJSON reads the collector's topic list: an array of
// {"num": ..., "title": ...} objects.
func ReadTopicsJSON(r io.Reader) ([]Query, error) {
	var topics []Topic
	if err := json.NewDecoder(r).Decode(&topics); err != nil {
		return nil, apperrors.Dataf("decoding topics: %v", err)
	}
	queries := make([]Query, 0, len(topics))
	for _, t := range topics {
		queries = append(queries, Query{QID: strings.TrimSpace(t.Num), Text: t.Title})
	}
	if err := checkUniqueQIDs(queries); err != nil {
		return nil, fmt.Errorf("reading topics: %w", err)
	}
	return queries, nil
}

// checkUniqueQIDs rejects a query set that repeats an identifier. Positions
// are 1-based record numbers.
func checkUniqueQIDs(queries []Query) error {
	seen := make(map[string]int, len(queries))
	for i, q := range queries {
		if first, dup := seen[q.QID]; dup {
			return apperrors.Dataf("query %d repeats qid %q first seen at query %d", i+1, q.QID, first)
		}
		seen[q.QID] = i + 1
	}
	return nil
}

// ReadTweetsJSON converts collected tweets into documents. Each reader holds
// either a JSON array of tweets or a single tweet object. Tweets with empty
// text are skipped; the rest get sequential docnos starting at 1 across all
// readers.
func ReadTweetsJSON(readers ...io.Reader) ([]Document, error) {
	var docs []Document
	for i, r := range readers {
		tweets, err := decodeTweets(r)
		if err != nil {
			return nil, fmt.Errorf("reading tweets source %d: %w", i, err)
		}
		for _, tw := range tweets {
			text := strings.TrimSpace(tw.Text)
			if text == "" {
				continue
			}
			docs = append(docs, Document{
				DocNo: strconv.Itoa(len(docs) + 1),
				Text:  text,
			})
		}
	}
	return docs, nil
}

// ReadDocumentsFile opens a collection by path, choosing the tweet JSON reader
// for .json files and the TSV reader otherwise.
func ReadDocumentsFile(path string) ([]Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening documents %s: %w", path, err)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".json") {
		return ReadTweetsJSON(f)
	}
	return ReadDocumentsTSV(f)
}

// ReadQueriesFile opens a query file by path. An empty path yields
// DefaultQueries.
func ReadQueriesFile(path string) ([]Query, error) {
	if path == "" {
		return DefaultQueries(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening queries %s: %w", path, err)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".json") {
		return ReadTopicsJSON(f)
	}
	return ReadQueriesTSV(f)
}

func decodeTweets(r io.Reader) ([]Tweet, error) {
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}

	dec := json.NewDecoder(br)
	if first == '[' {
		var tweets []Tweet
		if err := dec.Decode(&tweets); err != nil {
			return nil, apperrors.Dataf("decoding tweet array: %v", err)
		}
		return tweets, nil
	}

	var tweets []Tweet
	for {
		var tw Tweet
		err := dec.Decode(&tw)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperrors.Dataf("decoding tweet %d: %v", len(tweets)+1, err)
		}
		tweets = append(tweets, tw)
	}
	return tweets, nil
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		if b == ' ' || b == '\n' || b == '\r' || b == '\t' {
			continue
		}
		return b, br.UnreadByte()
	}
}

// readTSV returns the data rows of a headed TSV stream together with the
// column index of each required header name.
func readTSV(r io.Reader, required ...string) ([][]string, []int, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, apperrors.Dataf("missing header row")
	}
	if err != nil {
		return nil, nil, apperrors.Dataf("reading header: %v", err)
	}

	positions := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimPrefix(name, "\ufeff")
		positions[strings.ToLower(strings.TrimSpace(name))] = i
	}
	cols := make([]int, len(required))
	var missing []string
	for i, name := range required {
		pos, ok := positions[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		cols[i] = pos
	}
	if len(missing) > 0 {
		return nil, nil, apperrors.Dataf("header missing required columns %v", missing)
	}

	width := 0
	for _, c := range cols {
		width = max(width, c+1)
	}

	var rows [][]string
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, apperrors.Dataf("line %d: %v", line, err)
		}
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		if len(rec) < width {
			return nil, nil, apperrors.Dataf("line %d: expected at least %d columns, got %d", line, width, len(rec))
		}
		rows = append(rows, rec)
	}
	return rows, cols, nil
}
