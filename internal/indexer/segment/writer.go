// Package segment persists one index variant as a single .spdx file: a
// 64-byte header, JSON postings blocks, a JSON term dictionary, a JSON
// document table and a 32-byte footer carrying CRC32 checksums.
package segment

import (
	"encoding/json"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/indexer/index"
)

// DictEntry maps a term to its postings offset, length, and document frequency
// in the segment file.
type DictEntry struct {
	Term       string `json:"t"`
	PostOffset int64  `json:"o"`
	PostLen    int    `json:"l"`
	DocFreq    int    `json:"d"`
}

// docTable is the JSON document table. Docs are in ordinal order.
type docTable struct {
	Variant string           `json:"variant"`
	Mode    int              `json:"mode"`
	Docs    []index.DocEntry `json:"docs"`
}

// Writer serialises index snapshots into .spdx segment files.
type Writer struct {
	dataDir string
}

// NewWriter creates a Writer that writes segments into the given directory.
func NewWriter(dataDir string) *Writer {
	return &Writer{dataDir: dataDir}
}

// Path returns where the segment for the named variant is written.
func (w *Writer) Path(name string) string {
	return filepath.Join(w.dataDir, name+FileExt)
}

// Write atomically replaces the segment file for the named variant. It
// writes to a .tmp file first and renames on success.
func (w *Writer) Write(name string, snap index.Snapshot) (string, error) {
	if name == "" {
		return "", fmt.Errorf("segment name is required")
	}
	if err := os.MkdirAll(w.dataDir, 0o755); err != nil {
		return "", fmt.Errorf("creating segment directory: %w", err)
	}
	path := w.Path(name)
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("creating temp segment file: %w", err)
	}
	defer func() {
		f.Close()
		os.Remove(tmp)
	}()

	if err := encodeSegment(f, name, snap); err != nil {
		return "", err
	}
	if err := f.Sync(); err != nil {
		return "", fmt.Errorf("syncing segment file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing segment file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("renaming segment file: %w", err)
	}
	return path, nil
}

// sectionWriter appends to the file and tracks the current offset.
type sectionWriter struct {
	f   *os.File
	off int64
}

func (sw *sectionWriter) put(what string, b []byte) error {
	if _, err := sw.f.Write(b); err != nil {
		return fmt.Errorf("writing %s: %w", what, err)
	}
	sw.off += int64(len(b))
	return nil
}

// encodeSegment lays the sections out after a zeroed header, then patches
// the header once every offset is known.
func encodeSegment(f *os.File, name string, snap index.Snapshot) error {
	sw := &sectionWriter{f: f}
	if err := sw.put("header", make([]byte, HeaderSize)); err != nil {
		return err
	}

	h := SegmentHeader{
		Magic:      MagicBytes,
		Version:    FormatVersion,
		TermCount:  uint32(len(snap.Terms)),
		DocCount:   uint32(len(snap.Docs)),
		PostOffset: sw.off,
	}
	postCRC := crc32.NewIEEE()
	dict := make([]DictEntry, 0, len(snap.Terms))
	for _, entry := range snap.Terms {
		block, err := json.Marshal(entry.Postings)
		if err != nil {
			return fmt.Errorf("marshaling postings for term %q: %w", entry.Term, err)
		}
		dict = append(dict, DictEntry{
			Term:       entry.Term,
			PostOffset: sw.off - h.PostOffset,
			PostLen:    len(block),
			DocFreq:    len(entry.Postings),
		})
		if err := sw.put("postings for "+entry.Term, block); err != nil {
			return err
		}
		postCRC.Write(block)
	}
	h.PostSize = sw.off - h.PostOffset

	dictData, err := json.Marshal(dict)
	if err != nil {
		return fmt.Errorf("marshaling dictionary: %w", err)
	}
	h.DictOffset, h.DictSize = sw.off, int64(len(dictData))
	if err := sw.put("dictionary", dictData); err != nil {
		return err
	}

	docsData, err := json.Marshal(docTable{Variant: name, Mode: int(snap.Mode), Docs: snap.Docs})
	if err != nil {
		return fmt.Errorf("marshaling document table: %w", err)
	}
	h.DocsOffset, h.DocsSize = sw.off, int64(len(docsData))
	if err := sw.put("document table", docsData); err != nil {
		return err
	}

	footerData, err := encodeFixed(footer{
		DictCRC:   crc32.ChecksumIEEE(dictData),
		DocsCRC:   crc32.ChecksumIEEE(docsData),
		PostCRC:   postCRC.Sum32(),
		CreatedAt: time.Now().Unix(),
	}, FooterSize)
	if err != nil {
		return fmt.Errorf("encoding footer: %w", err)
	}
	if err := sw.put("footer", footerData); err != nil {
		return err
	}

	headerData, err := encodeFixed(h, HeaderSize)
	if err != nil {
		return fmt.Errorf("encoding header: %w", err)
	}
	if _, err := f.WriteAt(headerData, 0); err != nil {
		return fmt.Errorf("updating header: %w", err)
	}
	return nil
}
