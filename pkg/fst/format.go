// Package fst implements the persisted word index: a minimal acyclic
// automaton mapping byte-string keys to uint64 weights, written once by a
// Builder and read in place (memory mapped) by an Index.
package fst

import (
	"encoding/binary"
	"io"

	"github.com/cockroachdb/errors"
)

// Magic identifies a wordfst index file.
var Magic = [4]byte{'W', 'F', 'S', 'T'}

const (
	FormatVersion uint32 = 1
	HeaderSize           = 48

	stateSize  = 8 // edgeStart uint32, edgeCount uint16, pad uint16
	targetSize = 4
	weightSize = 8
	sectionPad = 8
)

var (
	// ErrUnsortedInput is returned by Builder.Insert for keys that are not
	// strictly greater than the previous key (this includes duplicates).
	ErrUnsortedInput = errors.New("keys must be inserted in strictly increasing order")
	ErrBuilderClosed = errors.New("builder already closed")

	// ErrCorrupt is returned when an index file cannot be decoded.
	ErrCorrupt = errors.New("corrupt index")
	// ErrVersion is returned for index files written by another format version.
	ErrVersion = errors.New("unsupported index version")
)

// Header is the fixed-size block at the start of every index file.
type Header struct {
	Magic     [4]byte
	Version   uint32
	States    uint32
	Edges     uint32
	Keys      uint64
	Root      uint32
	Finals    uint32
	BitmapLen uint32
	Checksum  uint32
}

func (h Header) encode() []byte {
	buf := make([]byte, HeaderSize)
	copy(buf[0:4], h.Magic[:])
	binary.LittleEndian.PutUint32(buf[4:8], h.Version)
	binary.LittleEndian.PutUint32(buf[8:12], h.States)
	binary.LittleEndian.PutUint32(buf[12:16], h.Edges)
	binary.LittleEndian.PutUint64(buf[16:24], h.Keys)
	binary.LittleEndian.PutUint32(buf[24:28], h.Root)
	binary.LittleEndian.PutUint32(buf[28:32], h.Finals)
	binary.LittleEndian.PutUint32(buf[32:36], h.BitmapLen)
	binary.LittleEndian.PutUint32(buf[36:40], h.Checksum)
	return buf
}

func decodeHeader(buf []byte) (Header, error) {
	var h Header
	if len(buf) < HeaderSize {
		return h, errors.Wrapf(ErrCorrupt, "file too small for header (%d bytes)", len(buf))
	}
	copy(h.Magic[:], buf[0:4])
	if h.Magic != Magic {
		return h, errors.Wrapf(ErrCorrupt, "bad magic %q", h.Magic[:])
	}
	h.Version = binary.LittleEndian.Uint32(buf[4:8])
	if h.Version != FormatVersion {
		return h, errors.Wrapf(ErrVersion, "got version %d, want %d", h.Version, FormatVersion)
	}
	h.States = binary.LittleEndian.Uint32(buf[8:12])
	h.Edges = binary.LittleEndian.Uint32(buf[12:16])
	h.Keys = binary.LittleEndian.Uint64(buf[16:24])
	h.Root = binary.LittleEndian.Uint32(buf[24:28])
	h.Finals = binary.LittleEndian.Uint32(buf[28:32])
	h.BitmapLen = binary.LittleEndian.Uint32(buf[32:36])
	h.Checksum = binary.LittleEndian.Uint32(buf[36:40])
	return h, nil
}

// ReadHeader decodes the header at the start of r.
func ReadHeader(r io.Reader) (Header, error) {
	buf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return Header{}, errors.Wrap(ErrCorrupt, "file too small for header")
		}
		return Header{}, errors.Wrap(err, "reading header")
	}
	return decodeHeader(buf)
}

// layout holds the byte offsets of every section for a given header.
type layout struct {
	states  uint64
	targets uint64
	labels  uint64
	weights uint64
	bitmap  uint64
	end     uint64
}

func computeLayout(h Header) layout {
	var l layout
	l.states = HeaderSize
	l.targets = l.states + uint64(h.States)*stateSize
	l.labels = l.targets + uint64(h.Edges)*targetSize
	l.weights = align(l.labels + uint64(h.Edges))
	l.bitmap = l.weights + uint64(h.Finals)*weightSize
	l.end = l.bitmap + uint64(h.BitmapLen)
	return l
}

func align(n uint64) uint64 {
	if rem := n % sectionPad; rem != 0 {
		return n + sectionPad - rem
	}
	return n
}
