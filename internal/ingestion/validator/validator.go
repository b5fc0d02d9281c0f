// Package validator checks documents and queries before they reach the index.
// It enforces identifier and text constraints and returns per-field error
// details.
package validator

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/ingestion"
	apperrors "github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/pkg/errors"
)

const (
	maxIDLength   = 255
	maxTextLength = 1048576
)

// ValidationError holds per-field validation failure messages. It matches
// errors.Is(err, apperrors.ErrData).
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		keys = append(keys, field)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, field := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", field, e.Fields[field]))
	}
	return strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return apperrors.ErrData
}

// ValidateDocument checks that a document carries a usable docno and
// non-empty text.
func ValidateDocument(doc *ingestion.Document) error {
	errs := make(map[string]string)
	checkID(errs, "docno", doc.DocNo)

	text := strings.TrimSpace(doc.Text)
	if text == "" {
		errs["text"] = "text is required and must not be empty"
	} else if len(text) > maxTextLength {
		errs["text"] = fmt.Sprintf("text must be at most %d bytes", maxTextLength)
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

// ValidateQuery checks that a query has an identifier. Empty query text is
// allowed; it simply retrieves nothing.
func ValidateQuery(q *ingestion.Query) error {
	errs := make(map[string]string)
	checkID(errs, "qid", q.QID)
	if len(q.Text) > maxTextLength {
		errs["query"] = fmt.Sprintf("query must be at most %d bytes", maxTextLength)
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

// checkID rejects empty identifiers and identifiers containing whitespace,
// which could never match a whitespace-delimited judgment line.
func checkID(errs map[string]string, field, id string) {
	switch {
	case id == "":
		errs[field] = field + " is required"
	case len(id) > maxIDLength:
		errs[field] = fmt.Sprintf("%s must be at most %d characters", field, maxIDLength)
	case strings.IndexFunc(id, unicode.IsSpace) >= 0:
		errs[field] = field + " must not contain whitespace"
	}
}
