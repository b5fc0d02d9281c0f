package ingestion

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	apperrors "github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/pkg/errors"
)

func TestReadDocumentsTSV(t *testing.T) {
	input := "lang\ttext\tdocno\n" +
		"en\tgaza ceasefire now\t1\n" +
		"en\tmilitary occupation continues\t2\n"
	docs, err := ReadDocumentsTSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadDocumentsTSV: %v", err)
	}
	want := []Document{
		{DocNo: "1", Text: "gaza ceasefire now"},
		{DocNo: "2", Text: "military occupation continues"},
	}
	if diff := cmp.Diff(want, docs); diff != "" {
		t.Errorf("documents mismatch (-want +got):\n%s", diff)
	}
}

func TestReadDocumentsTSVMissingColumn(t *testing.T) {
	_, err := ReadDocumentsTSV(strings.NewReader("docno\tbody\n1\thello\n"))
	if !errors.Is(err, apperrors.ErrData) {
		t.Fatalf("expected ErrData, got %v", err)
	}
	if !strings.Contains(err.Error(), "text") {
		t.Errorf("error should name the missing column: %v", err)
	}
}

func TestReadDocumentsTSVShortRow(t *testing.T) {
	_, err := ReadDocumentsTSV(strings.NewReader("docno\ttext\n1\n"))
	if !errors.Is(err, apperrors.ErrData) {
		t.Fatalf("expected ErrData, got %v", err)
	}
}

func TestReadQueriesTSV(t *testing.T) {
	queries, err := ReadQueriesTSV(strings.NewReader("qid\tquery\nMB42\tCeasefire in Gaza\n"))
	if err != nil {
		t.Fatalf("ReadQueriesTSV: %v", err)
	}
	if diff := cmp.Diff([]Query{{QID: "MB42", Text: "Ceasefire in Gaza"}}, queries); diff != "" {
		t.Errorf("queries mismatch (-want +got):\n%s", diff)
	}
}

func TestReadTopicsJSON(t *testing.T) {
	queries, err := ReadTopicsJSON(strings.NewReader(`[{"num":"MB39","title":"Gaza under attack"}]`))
	if err != nil {
		t.Fatalf("ReadTopicsJSON: %v", err)
	}
	if diff := cmp.Diff([]Query{{QID: "MB39", Text: "Gaza under attack"}}, queries); diff != "" {
		t.Errorf("topics mismatch (-want +got):\n%s", diff)
	}
}

func TestReadQueriesRejectsDuplicateQID(t *testing.T) {
	tests := []struct {
		name string
		read func() ([]Query, error)
	}{
		{"tsv", func() ([]Query, error) {
			return ReadQueriesTSV(strings.NewReader("qid\tquery\nq1\tgaza\nq2\trefugees\nq1\tceasefire\n"))
		}},
		{"topics", func() ([]Query, error) {
			return ReadTopicsJSON(strings.NewReader(`[{"num":"MB39","title":"Gaza"},{"num":" MB39 ","title":"Gaza again"}]`))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			queries, err := tt.read()
			if !errors.Is(err, apperrors.ErrData) {
				t.Fatalf("expected ErrData, got queries=%v err=%v", queries, err)
			}
			if !strings.Contains(err.Error(), "repeats qid") {
				t.Errorf("error should name the repeated qid: %v", err)
			}
		})
	}
}

func TestReadTweetsJSON(t *testing.T) {
	array := `[{"id":"a","text":"first tweet"},{"id":"b","text":"   "},{"id":"c","text":"second tweet"}]`
	single := `{"id":"d","text":"third tweet"}`

	docs, err := ReadTweetsJSON(strings.NewReader(array), strings.NewReader(single))
	if err != nil {
		t.Fatalf("ReadTweetsJSON: %v", err)
	}
	want := []Document{
		{DocNo: "1", Text: "first tweet"},
		{DocNo: "2", Text: "second tweet"},
		{DocNo: "3", Text: "third tweet"},
	}
	if diff := cmp.Diff(want, docs); diff != "" {
		t.Errorf("documents mismatch (-want +got):\n%s", diff)
	}
}

func TestReadTweetsJSONMalformed(t *testing.T) {
	if _, err := ReadTweetsJSON(strings.NewReader(`[{"text": }`)); !errors.Is(err, apperrors.ErrData) {
		t.Fatalf("expected ErrData, got %v", err)
	}
}

func TestDefaultQueries(t *testing.T) {
	queries := DefaultQueries()
	if len(queries) != 7 {
		t.Fatalf("got %d default queries, want 7", len(queries))
	}
	if queries[0].QID != "MB39" || queries[6].QID != "MB45" {
		t.Errorf("unexpected qid range %s..%s", queries[0].QID, queries[6].QID)
	}
}
