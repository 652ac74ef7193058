package fst

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"io"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/cockroachdb/errors"
)

// Stats describes the shape of a built or opened index.
type Stats struct {
	Keys   uint64
	States uint32
	Edges  uint32
	Finals uint32
	Bytes  int64
}

type pendingEdge struct {
	label  byte
	target uint32
}

// pendingNode is a state on the unfinished path. The target of its last edge
// is only known once the child below it has been compiled.
type pendingNode struct {
	final  bool
	weight uint64
	edges  []pendingEdge
}

type compiledState struct {
	edgeStart uint32
	edgeCount uint16
	final     bool
	weight    uint64
}

// Builder compiles strictly increasing keys into a minimal acyclic
// automaton and serializes it on Close. It is not safe for concurrent use.
type Builder struct {
	w io.Writer

	unfinished []*pendingNode
	free       []*pendingNode
	last       []byte
	keys       uint64
	closed     bool

	states   []compiledState
	labels   []byte
	targets  []uint32
	registry map[string]uint32
	scratch  []byte

	stats Stats
}

// NewBuilder returns a Builder that writes the finished index to w.
func NewBuilder(w io.Writer) *Builder {
	b := &Builder{
		w:        w,
		registry: make(map[string]uint32),
	}
	b.unfinished = append(b.unfinished, b.newNode())
	return b
}

// Insert adds key with its weight. Keys must arrive in strictly increasing
// byte order; the empty key is only accepted as the very first key.
func (b *Builder) Insert(key []byte, weight uint64) error {
	if b.closed {
		return ErrBuilderClosed
	}
	if b.keys > 0 {
		switch c := bytes.Compare(key, b.last); {
		case c == 0:
			return errors.Wrapf(ErrUnsortedInput, "duplicate key %q", key)
		case c < 0:
			return errors.Wrapf(ErrUnsortedInput, "key %q inserted after %q", key, b.last)
		}
	}

	prefix := commonPrefix(key, b.last)
	b.freeze(prefix)
	for _, c := range key[prefix:] {
		parent := b.unfinished[len(b.unfinished)-1]
		parent.edges = append(parent.edges, pendingEdge{label: c})
		b.unfinished = append(b.unfinished, b.newNode())
	}

	node := b.unfinished[len(key)]
	node.final = true
	node.weight = weight

	b.last = append(b.last[:0], key...)
	b.keys++
	return nil
}

// Close compiles the remaining path and writes the index. It does not close
// the underlying writer.
func (b *Builder) Close() error {
	if b.closed {
		return ErrBuilderClosed
	}
	b.closed = true

	b.freeze(0)
	root := b.compile(b.unfinished[0])
	b.unfinished = nil
	b.free = nil
	b.registry = nil

	return b.write(root)
}

// Stats reports the shape of the written index. Only valid after Close.
func (b *Builder) Stats() Stats {
	return b.stats
}

// freeze compiles every unfinished node deeper than depth and links it into
// its parent.
func (b *Builder) freeze(depth int) {
	for len(b.unfinished) > depth+1 {
		n := len(b.unfinished) - 1
		node := b.unfinished[n]
		b.unfinished = b.unfinished[:n]

		id := b.compile(node)
		parent := b.unfinished[n-1]
		parent.edges[len(parent.edges)-1].target = id
		b.release(node)
	}
}

// compile returns the id of a state equivalent to node, registering a new
// one when no equivalent state exists yet.
func (b *Builder) compile(node *pendingNode) uint32 {
	key := b.registryKey(node)
	if id, ok := b.registry[string(key)]; ok {
		return id
	}

	id := uint32(len(b.states))
	st := compiledState{
		edgeStart: uint32(len(b.labels)),
		edgeCount: uint16(len(node.edges)),
		final:     node.final,
		weight:    node.weight,
	}
	for _, e := range node.edges {
		b.labels = append(b.labels, e.label)
		b.targets = append(b.targets, e.target)
	}
	b.states = append(b.states, st)
	b.registry[string(key)] = id
	return id
}

func (b *Builder) registryKey(node *pendingNode) []byte {
	buf := b.scratch[:0]
	if node.final {
		buf = append(buf, 1)
		buf = binary.LittleEndian.AppendUint64(buf, node.weight)
	} else {
		buf = append(buf, 0)
	}
	for _, e := range node.edges {
		buf = append(buf, e.label)
		buf = binary.LittleEndian.AppendUint32(buf, e.target)
	}
	b.scratch = buf
	return buf
}

func (b *Builder) newNode() *pendingNode {
	if n := len(b.free); n > 0 {
		node := b.free[n-1]
		b.free = b.free[:n-1]
		return node
	}
	return &pendingNode{}
}

func (b *Builder) release(node *pendingNode) {
	node.final = false
	node.weight = 0
	node.edges = node.edges[:0]
	b.free = append(b.free, node)
}

func (b *Builder) write(root uint32) error {
	finals := roaring.New()
	for id, st := range b.states {
		if st.final {
			finals.Add(uint32(id))
		}
	}
	finals.RunOptimize()

	var bitmap bytes.Buffer
	if _, err := finals.WriteTo(&bitmap); err != nil {
		return errors.Wrap(err, "serializing final state set")
	}

	hdr := Header{
		Magic:     Magic,
		Version:   FormatVersion,
		States:    uint32(len(b.states)),
		Edges:     uint32(len(b.labels)),
		Keys:      b.keys,
		Root:      root,
		Finals:    uint32(finals.GetCardinality()),
		BitmapLen: uint32(bitmap.Len()),
	}

	// The body is written twice: once into the checksum, once for real.
	crc := crc32.NewIEEE()
	if err := b.writeBody(crc, bitmap.Bytes()); err != nil {
		return err
	}
	hdr.Checksum = crc.Sum32()

	bw := bufio.NewWriterSize(b.w, 64*1024)
	if _, err := bw.Write(hdr.encode()); err != nil {
		return errors.Wrap(err, "writing header")
	}
	if err := b.writeBody(bw, bitmap.Bytes()); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return errors.Wrap(err, "flushing index")
	}

	b.stats = Stats{
		Keys:   hdr.Keys,
		States: hdr.States,
		Edges:  hdr.Edges,
		Finals: hdr.Finals,
		Bytes:  int64(computeLayout(hdr).end),
	}
	return nil
}

func (b *Builder) writeBody(w io.Writer, bitmap []byte) error {
	var buf [8]byte

	for _, st := range b.states {
		binary.LittleEndian.PutUint32(buf[0:4], st.edgeStart)
		binary.LittleEndian.PutUint16(buf[4:6], st.edgeCount)
		binary.LittleEndian.PutUint16(buf[6:8], 0)
		if _, err := w.Write(buf[:stateSize]); err != nil {
			return errors.Wrap(err, "writing state table")
		}
	}
	for _, t := range b.targets {
		binary.LittleEndian.PutUint32(buf[0:4], t)
		if _, err := w.Write(buf[:targetSize]); err != nil {
			return errors.Wrap(err, "writing edge targets")
		}
	}
	if _, err := w.Write(b.labels); err != nil {
		return errors.Wrap(err, "writing edge labels")
	}

	end := uint64(HeaderSize) + uint64(len(b.states))*stateSize + uint64(len(b.targets))*targetSize + uint64(len(b.labels))
	if pad := align(end) - end; pad > 0 {
		clear(buf[:])
		if _, err := w.Write(buf[:pad]); err != nil {
			return errors.Wrap(err, "writing padding")
		}
	}

	for _, st := range b.states {
		if !st.final {
			continue
		}
		binary.LittleEndian.PutUint64(buf[:], st.weight)
		if _, err := w.Write(buf[:weightSize]); err != nil {
			return errors.Wrap(err, "writing weights")
		}
	}
	if _, err := w.Write(bitmap); err != nil {
		return errors.Wrap(err, "writing final state set")
	}
	return nil
}

func commonPrefix(a, b []byte) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}
