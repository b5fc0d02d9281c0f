package segment

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/ingestion"
)

func buildIndex(t *testing.T) *index.CollectionIndex {
	t.Helper()
	docs := []ingestion.Document{
		{DocNo: "1", Text: "gaza ceasefire now"},
		{DocNo: "2", Text: "military occupation continues"},
		{DocNo: "3", Text: "ceasefire talks in gaza"},
	}
	idx, err := index.Build(docs, tokenizer.DefaultAnalyzer(), tokenizer.ModeStemmed)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return idx
}

func writeSegment(t *testing.T, idx *index.CollectionIndex) string {
	t.Helper()
	path, err := NewWriter(t.TempDir()).Write("stemmed", idx.Snapshot())
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	return path
}

func TestWriteAndReadBack(t *testing.T) {
	idx := buildIndex(t)
	path := writeSegment(t, idx)
	if filepath.Base(path) != "stemmed.spdx" {
		t.Errorf("path = %s", path)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file should be gone after a successful write")
	}

	r, err := OpenReader(path)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer r.Close()

	if r.Variant() != "stemmed" || r.Mode() != tokenizer.ModeStemmed {
		t.Errorf("variant = %q, mode = %v", r.Variant(), r.Mode())
	}
	if r.DocCount() != 3 || r.Terms() != idx.Stats().UniqueTerms {
		t.Errorf("docs = %d, terms = %d", r.DocCount(), r.Terms())
	}

	postings, err := r.Search("gaza")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if diff := cmp.Diff(idx.Postings("gaza"), postings); diff != "" {
		t.Errorf("postings (-want +got):\n%s", diff)
	}
	if missing, err := r.Search("absent"); err != nil || missing != nil {
		t.Errorf("Search(absent) = %v, %v", missing, err)
	}

	snap, err := r.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if diff := cmp.Diff(idx.Snapshot(), snap); diff != "" {
		t.Errorf("snapshot (-want +got):\n%s", diff)
	}
}

func TestWriteEmptyIndex(t *testing.T) {
	idx, err := index.Build(nil, tokenizer.DefaultAnalyzer(), tokenizer.ModeRaw)
	if err != nil {
		t.Fatal(err)
	}
	path, err := NewWriter(t.TempDir()).Write("original", idx.Snapshot())
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	r, err := OpenReader(path)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer r.Close()
	snap, err := r.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(snap.Docs) != 0 || len(snap.Terms) != 0 {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestOpenReaderBadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.spdx")
	if err := os.WriteFile(path, make([]byte, HeaderSize+FooterSize), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := OpenReader(path)
	if err == nil || !strings.Contains(err.Error(), "magic") {
		t.Fatalf("expected bad magic error, got %v", err)
	}
}

func TestOpenReaderChecksumMismatch(t *testing.T) {
	path := writeSegment(t, buildIndex(t))
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	// Corrupt the stored dictionary checksum in the footer.
	data[len(data)-FooterSize] ^= 0xFF
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	_, err = OpenReader(path)
	if err == nil || !strings.Contains(err.Error(), "checksum") {
		t.Fatalf("expected checksum error, got %v", err)
	}
}

func TestOpenReaderTruncated(t *testing.T) {
	path := writeSegment(t, buildIndex(t))
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data[:len(data)-5], 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenReader(path); err == nil {
		t.Fatal("expected error for truncated segment")
	}
}

func TestOpenReaderCorruptHeader(t *testing.T) {
	tests := []struct {
		name  string
		field int
		value int64
	}{
		{"negative dictionary size", 24, -1},
		{"huge dictionary size", 24, math.MaxInt64},
		{"negative postings size", 40, -1},
		{"postings offset past end", 32, 1 << 40},
		{"document table offset shifted", 48, 65},
		{"negative document table size", 56, -8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeSegment(t, buildIndex(t))
			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}
			binary.LittleEndian.PutUint64(data[tt.field:tt.field+8], uint64(tt.value))
			if err := os.WriteFile(path, data, 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := OpenReader(path); err == nil {
				t.Fatal("expected error for corrupt header")
			}
		})
	}
}

func TestCheckDict(t *testing.T) {
	tests := []struct {
		name    string
		dict    []DictEntry
		wantErr bool
	}{
		{"valid", []DictEntry{{Term: "a", PostOffset: 0, PostLen: 4}, {Term: "b", PostOffset: 4, PostLen: 6}}, false},
		{"negative length", []DictEntry{{Term: "a", PostLen: -1}}, true},
		{"negative offset", []DictEntry{{Term: "a", PostOffset: -2, PostLen: 1}}, true},
		{"past section end", []DictEntry{{Term: "a", PostOffset: 8, PostLen: 4}}, true},
		{"huge length", []DictEntry{{Term: "a", PostLen: math.MaxInt}}, true},
		{"unsorted", []DictEntry{{Term: "b", PostLen: 1}, {Term: "a", PostOffset: 1, PostLen: 1}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkDict(tt.dict, 10)
			if (err != nil) != tt.wantErr {
				t.Errorf("checkDict() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
