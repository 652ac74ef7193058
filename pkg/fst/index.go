package fst

import (
	"encoding/binary"
	"hash/crc32"
	"os"

	"github.com/RoaringBitmap/roaring/v2"
	mmap "github.com/blevesearch/mmap-go"
	"github.com/cockroachdb/errors"
)

// StateID identifies a state inside an Index.
type StateID uint32

type openOptions struct {
	verify bool
}

// OpenOption configures Open and Load.
type OpenOption func(*openOptions)

// WithVerify also checks the body checksum while opening. This touches
// every page of the file once.
func WithVerify() OpenOption {
	return func(o *openOptions) {
		o.verify = true
	}
}

// Index is a read-only view over a serialized automaton. All methods are
// safe for concurrent use; nothing mutates the underlying bytes.
//
// An index opened from a file keeps it mapped until Close. Modifying the
// file while it is mapped is undefined; rebuilds write a new file and rename
// it into place instead.
type Index struct {
	data    []byte
	mapping mmap.MMap
	path    string

	hdr     Header
	states  []byte
	targets []byte
	labels  []byte
	weights []byte
	finals  *roaring.Bitmap
}

// Open maps the index file at path read-only.
func Open(path string, opts ...OpenOption) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening index %s", path)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, errors.Wrapf(err, "stat index %s", path)
	}
	if fi.Size() < HeaderSize {
		return nil, errors.Wrapf(ErrCorrupt, "%s: file too small for header (%d bytes)", path, fi.Size())
	}

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "mapping index %s", path)
	}

	ix, err := load(m, opts)
	if err != nil {
		_ = m.Unmap()
		return nil, errors.Wrapf(err, "loading index %s", path)
	}
	ix.mapping = m
	ix.path = path
	return ix, nil
}

// Load reads an index from memory. data must not be modified while the
// Index is in use.
func Load(data []byte, opts ...OpenOption) (*Index, error) {
	return load(data, opts)
}

func load(data []byte, opts []OpenOption) (*Index, error) {
	var o openOptions
	for _, opt := range opts {
		opt(&o)
	}

	hdr, err := decodeHeader(data)
	if err != nil {
		return nil, err
	}
	l := computeLayout(hdr)
	if l.end > uint64(len(data)) {
		return nil, errors.Wrapf(ErrCorrupt, "sections end at %d, file has %d bytes", l.end, len(data))
	}
	if hdr.States == 0 || hdr.Root >= hdr.States {
		return nil, errors.Wrapf(ErrCorrupt, "root %d out of range (%d states)", hdr.Root, hdr.States)
	}
	if o.verify {
		if sum := crc32.ChecksumIEEE(data[HeaderSize:]); sum != hdr.Checksum {
			return nil, errors.Wrapf(ErrCorrupt, "checksum mismatch: got %08x, want %08x", sum, hdr.Checksum)
		}
	}

	ix := &Index{
		data:    data,
		hdr:     hdr,
		states:  data[l.states:l.targets],
		targets: data[l.targets:l.labels],
		labels:  data[l.labels : l.labels+uint64(hdr.Edges)],
		weights: data[l.weights:l.bitmap],
		finals:  roaring.New(),
	}
	if _, err := ix.finals.FromBuffer(data[l.bitmap:l.end]); err != nil {
		return nil, errors.Wrapf(ErrCorrupt, "decoding final state set: %v", err)
	}
	if got := ix.finals.GetCardinality(); got != uint64(hdr.Finals) {
		return nil, errors.Wrapf(ErrCorrupt, "final state set has %d entries, header says %d", got, hdr.Finals)
	}
	if hdr.Finals > 0 && ix.finals.Maximum() >= hdr.States {
		return nil, errors.Wrapf(ErrCorrupt, "final state %d out of range", ix.finals.Maximum())
	}
	if err := ix.verifyEdges(); err != nil {
		return nil, err
	}
	return ix, nil
}

// verifyEdges checks that every edge range and target stays inside the
// tables, so traversal never reads out of bounds.
func (ix *Index) verifyEdges() error {
	for s := uint32(0); s < ix.hdr.States; s++ {
		start, count := ix.state(StateID(s))
		if uint64(start)+uint64(count) > uint64(ix.hdr.Edges) {
			return errors.Wrapf(ErrCorrupt, "state %d edges [%d,+%d) out of range", s, start, count)
		}
		for i := uint32(0); i < uint32(count); i++ {
			t := ix.target(start + i)
			if uint32(t) >= ix.hdr.States {
				return errors.Wrapf(ErrCorrupt, "state %d edge %d targets %d", s, i, t)
			}
			if i > 0 && ix.labels[start+i-1] >= ix.labels[start+i] {
				return errors.Wrapf(ErrCorrupt, "state %d labels not sorted", s)
			}
		}
	}
	return nil
}

// Close releases the mapping. Using the index after Close panics.
func (ix *Index) Close() error {
	ix.states, ix.targets, ix.labels, ix.weights = nil, nil, nil, nil
	ix.data = nil
	if ix.mapping == nil {
		return nil
	}
	m := ix.mapping
	ix.mapping = nil
	if err := m.Unmap(); err != nil {
		return errors.Wrapf(err, "unmapping index %s", ix.path)
	}
	return nil
}

// Root returns the start state.
func (ix *Index) Root() StateID {
	return StateID(ix.hdr.Root)
}

func (ix *Index) state(s StateID) (start uint32, count uint16) {
	off := uint64(s) * stateSize
	start = binary.LittleEndian.Uint32(ix.states[off:])
	count = binary.LittleEndian.Uint16(ix.states[off+4:])
	return start, count
}

func (ix *Index) target(edge uint32) StateID {
	return StateID(binary.LittleEndian.Uint32(ix.targets[uint64(edge)*targetSize:]))
}

// Next follows the edge labelled b out of s.
func (ix *Index) Next(s StateID, b byte) (StateID, bool) {
	start, count := ix.state(s)
	lo, hi := start, start+uint32(count)
	for lo < hi {
		mid := lo + (hi-lo)/2
		switch l := ix.labels[mid]; {
		case l == b:
			return ix.target(mid), true
		case l < b:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return 0, false
}

// NumEdges returns the number of outgoing edges of s.
func (ix *Index) NumEdges(s StateID) int {
	_, count := ix.state(s)
	return int(count)
}

// Edge returns the i-th outgoing edge of s. Edges are ordered by label.
func (ix *Index) Edge(s StateID, i int) (byte, StateID) {
	start, _ := ix.state(s)
	e := start + uint32(i)
	return ix.labels[e], ix.target(e)
}

func (ix *Index) IsFinal(s StateID) bool {
	return ix.finals.Contains(uint32(s))
}

// Weight returns the weight stored on a final state.
func (ix *Index) Weight(s StateID) (uint64, bool) {
	if !ix.finals.Contains(uint32(s)) {
		return 0, false
	}
	rank := ix.finals.Rank(uint32(s))
	return binary.LittleEndian.Uint64(ix.weights[(rank-1)*weightSize:]), true
}

// Get looks up key exactly.
func (ix *Index) Get(key []byte) (uint64, bool) {
	s := ix.Root()
	for _, b := range key {
		next, ok := ix.Next(s, b)
		if !ok {
			return 0, false
		}
		s = next
	}
	return ix.Weight(s)
}

// Iterate calls fn for every key in lexicographic byte order. The key slice
// is reused between calls. Iteration stops at the first error, which is
// returned.
func (ix *Index) Iterate(fn func(key []byte, weight uint64) error) error {
	key := make([]byte, 0, 32)
	var walk func(s StateID) error
	walk = func(s StateID) error {
		if w, ok := ix.Weight(s); ok {
			if err := fn(key, w); err != nil {
				return err
			}
		}
		n := ix.NumEdges(s)
		for i := 0; i < n; i++ {
			label, next := ix.Edge(s, i)
			key = append(key, label)
			if err := walk(next); err != nil {
				return err
			}
			key = key[:len(key)-1]
		}
		return nil
	}
	return walk(ix.Root())
}

// Len returns the number of keys.
func (ix *Index) Len() uint64 {
	return ix.hdr.Keys
}

func (ix *Index) Stats() Stats {
	return Stats{
		Keys:   ix.hdr.Keys,
		States: ix.hdr.States,
		Edges:  ix.hdr.Edges,
		Finals: ix.hdr.Finals,
		Bytes:  int64(len(ix.data)),
	}
}
