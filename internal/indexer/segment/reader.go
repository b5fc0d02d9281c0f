package segment

import (
	"encoding/json"
	"fmt"
	"hash/crc32"
	"os"
	"sort"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/indexer/tokenizer"
)

// Reader gives random access to the postings of one segment file.
type Reader struct {
	file      *os.File
	filePath  string
	header    SegmentHeader
	dict      []DictEntry
	docs      docTable
	postCRC   uint32
	createdAt time.Time
}

// OpenReader validates the header magic and the dictionary and document table
// checksums before returning a Reader.
func OpenReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening segment file: %w", err)
	}
	r, err := newReader(f, path)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("segment %s: %w", path, err)
	}
	return r, nil
}

func newReader(f *os.File, path string) (*Reader, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat: %w", err)
	}
	if info.Size() < int64(HeaderSize+FooterSize) {
		return nil, fmt.Errorf("file too small (%d bytes)", info.Size())
	}

	headerBytes := make([]byte, HeaderSize)
	if _, err := f.ReadAt(headerBytes, 0); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	header, err := decodeHeader(headerBytes)
	if err != nil {
		return nil, err
	}
	if err := header.checkLayout(info.Size()); err != nil {
		return nil, err
	}
	footerOffset := header.DocsOffset + header.DocsSize

	footerBytes := make([]byte, FooterSize)
	if _, err := f.ReadAt(footerBytes, footerOffset); err != nil {
		return nil, fmt.Errorf("reading footer: %w", err)
	}
	ft, err := decodeFooter(footerBytes)
	if err != nil {
		return nil, err
	}

	dictBytes := make([]byte, header.DictSize)
	if _, err := f.ReadAt(dictBytes, header.DictOffset); err != nil {
		return nil, fmt.Errorf("reading dictionary: %w", err)
	}
	if got, want := crc32.ChecksumIEEE(dictBytes), ft.DictCRC; got != want {
		return nil, fmt.Errorf("dictionary checksum mismatch: got %08x, want %08x", got, want)
	}
	var dict []DictEntry
	if err := json.Unmarshal(dictBytes, &dict); err != nil {
		return nil, fmt.Errorf("parsing dictionary: %w", err)
	}
	if err := checkDict(dict, header.PostSize); err != nil {
		return nil, err
	}

	docsBytes := make([]byte, header.DocsSize)
	if _, err := f.ReadAt(docsBytes, header.DocsOffset); err != nil {
		return nil, fmt.Errorf("reading document table: %w", err)
	}
	if got, want := crc32.ChecksumIEEE(docsBytes), ft.DocsCRC; got != want {
		return nil, fmt.Errorf("document table checksum mismatch: got %08x, want %08x", got, want)
	}
	var docs docTable
	if err := json.Unmarshal(docsBytes, &docs); err != nil {
		return nil, fmt.Errorf("parsing document table: %w", err)
	}

	return &Reader{
		file:      f,
		filePath:  path,
		header:    header,
		dict:      dict,
		docs:      docs,
		postCRC:   ft.PostCRC,
		createdAt: time.Unix(ft.CreatedAt, 0),
	}, nil
}

// Search returns the postings of one term, or nil if the term is absent.
func (r *Reader) Search(term string) (index.PostingList, error) {
	i := sort.Search(len(r.dict), func(i int) bool {
		return r.dict[i].Term >= term
	})
	if i >= len(r.dict) || r.dict[i].Term != term {
		return nil, nil
	}
	return r.readPostings(r.dict[i])
}

func (r *Reader) readPostings(entry DictEntry) (index.PostingList, error) {
	postingsBytes := make([]byte, entry.PostLen)
	if _, err := r.file.ReadAt(postingsBytes, r.header.PostOffset+entry.PostOffset); err != nil {
		return nil, fmt.Errorf("reading postings for %q: %w", entry.Term, err)
	}
	var postings index.PostingList
	if err := json.Unmarshal(postingsBytes, &postings); err != nil {
		return nil, fmt.Errorf("parsing postings for %q: %w", entry.Term, err)
	}
	return postings, nil
}

// Snapshot reads every postings block and verifies the postings checksum.
func (r *Reader) Snapshot() (index.Snapshot, error) {
	terms := make([]index.TermEntry, 0, len(r.dict))
	sum := crc32.NewIEEE()
	for _, entry := range r.dict {
		postingsBytes := make([]byte, entry.PostLen)
		if _, err := r.file.ReadAt(postingsBytes, r.header.PostOffset+entry.PostOffset); err != nil {
			return index.Snapshot{}, fmt.Errorf("reading postings for %q: %w", entry.Term, err)
		}
		sum.Write(postingsBytes)
		var postings index.PostingList
		if err := json.Unmarshal(postingsBytes, &postings); err != nil {
			return index.Snapshot{}, fmt.Errorf("parsing postings for %q: %w", entry.Term, err)
		}
		terms = append(terms, index.TermEntry{Term: entry.Term, Postings: postings})
	}
	if got := sum.Sum32(); got != r.postCRC {
		return index.Snapshot{}, fmt.Errorf("postings checksum mismatch: got %08x, want %08x", got, r.postCRC)
	}
	docs := make([]index.DocEntry, len(r.docs.Docs))
	copy(docs, r.docs.Docs)
	return index.Snapshot{
		Mode:  tokenizer.Mode(r.docs.Mode),
		Docs:  docs,
		Terms: terms,
	}, nil
}

// Variant returns the name the segment was written under.
func (r *Reader) Variant() string {
	return r.docs.Variant
}

func (r *Reader) Mode() tokenizer.Mode {
	return tokenizer.Mode(r.docs.Mode)
}

func (r *Reader) Terms() int {
	return len(r.dict)
}

func (r *Reader) DocCount() uint32 {
	return r.header.DocCount
}

func (r *Reader) CreatedAt() time.Time {
	return r.createdAt
}

func (r *Reader) Path() string {
	return r.filePath
}

func (r *Reader) Close() error {
	return r.file.Close()
}
