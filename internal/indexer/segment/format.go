package segment

import (
	"encoding/binary"
	"fmt"
)

const (
	MagicBytes    uint32 = 0x53504458
	FormatVersion uint32 = 2
	HeaderSize    int    = 64
	FooterSize    int    = 32
	FileExt              = ".spdx"
)

var byteOrder = binary.LittleEndian

// SegmentHeader is the 64-byte header written at the start of every segment.
type SegmentHeader struct {
	Magic      uint32
	Version    uint32
	TermCount  uint32
	DocCount   uint32
	DictOffset int64
	DictSize   int64
	PostOffset int64
	PostSize   int64
	DocsOffset int64
	DocsSize   int64
}

// footer closes every segment with the section checksums.
type footer struct {
	DictCRC   uint32
	DocsCRC   uint32
	PostCRC   uint32
	Reserved0 uint32
	CreatedAt int64
	Reserved1 int64
}

func encodeFixed(v any, size int) ([]byte, error) {
	buf := make([]byte, size)
	if _, err := binary.Encode(buf, byteOrder, v); err != nil {
		return nil, err
	}
	return buf, nil
}

func decodeHeader(buf []byte) (SegmentHeader, error) {
	var h SegmentHeader
	if _, err := binary.Decode(buf, byteOrder, &h); err != nil {
		return h, fmt.Errorf("decoding header: %w", err)
	}
	if h.Magic != MagicBytes {
		return h, fmt.Errorf("invalid segment file: bad magic bytes %x", h.Magic)
	}
	if h.Version != FormatVersion {
		return h, fmt.Errorf("unsupported format version %d", h.Version)
	}
	return h, nil
}

func decodeFooter(buf []byte) (footer, error) {
	var ft footer
	if _, err := binary.Decode(buf, byteOrder, &ft); err != nil {
		return ft, fmt.Errorf("decoding footer: %w", err)
	}
	return ft, nil
}

// checkLayout rejects headers whose sections are not contiguous or do not
// fit the file, so corrupt sizes never reach an allocation.
func (h SegmentHeader) checkLayout(fileSize int64) error {
	for _, s := range []struct {
		name string
		size int64
	}{{"postings", h.PostSize}, {"dictionary", h.DictSize}, {"document table", h.DocsSize}} {
		if s.size < 0 || s.size > fileSize {
			return fmt.Errorf("%s size %d out of range for %d byte file", s.name, s.size, fileSize)
		}
	}
	switch {
	case h.PostOffset != int64(HeaderSize):
		return fmt.Errorf("postings offset %d, want %d", h.PostOffset, HeaderSize)
	case h.DictOffset != h.PostOffset+h.PostSize:
		return fmt.Errorf("dictionary offset %d does not follow postings", h.DictOffset)
	case h.DocsOffset != h.DictOffset+h.DictSize:
		return fmt.Errorf("document table offset %d does not follow dictionary", h.DocsOffset)
	case h.DocsOffset+h.DocsSize+int64(FooterSize) != fileSize:
		return fmt.Errorf("section sizes do not match file size %d", fileSize)
	}
	return nil
}

// checkDict verifies that every postings block lies inside the postings
// section and that terms are strictly ascending.
func checkDict(dict []DictEntry, postSize int64) error {
	for i, e := range dict {
		if e.PostOffset < 0 || e.PostLen < 0 || int64(e.PostLen) > postSize || e.PostOffset > postSize-int64(e.PostLen) {
			return fmt.Errorf("postings for %q at %d+%d outside %d byte section", e.Term, e.PostOffset, e.PostLen, postSize)
		}
		if i > 0 && dict[i-1].Term >= e.Term {
			return fmt.Errorf("dictionary out of order at %q", e.Term)
		}
	}
	return nil
}
