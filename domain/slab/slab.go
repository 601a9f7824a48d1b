package slab

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"bookmirror/domain/market"
)

const (
	// HeaderLen is the fixed byte length of the slab header.
	HeaderLen = 28
	// NodeLen is the fixed stride of one node record: a 4-byte tag
	// followed by a payload region padded to 68 bytes.
	NodeLen = 72
)

// Header mirrors the slab account header. BumpIndex is the high-water
// mark of slots ever allocated; FreeListHead/FreeListLen describe the
// recycled-slot list; Root and LeafCount describe the tree.
type Header struct {
	BumpIndex    uint32
	FreeListLen  uint32
	FreeListHead uint32
	Root         uint32
	LeafCount    uint32
}

// Slab is a decoded point-in-time snapshot of one side of a book: a
// fixed-capacity arena of nodes forming a binary radix tree over
// 128-bit order keys. It is immutable; the owning program mutates the
// account, this mirror only reads it.
type Slab struct {
	Header Header
	Nodes  []Node
}

// Decode parses a raw slab account buffer. It returns a *FormatError
// when the buffer length is inconsistent with the declared structure
// or a node carries an unknown tag. It never panics on malformed
// input.
func Decode(buf []byte) (*Slab, error) {
	if len(buf) < HeaderLen {
		return nil, formatErrorf("buffer is %d bytes, header needs %d", len(buf), HeaderLen)
	}
	rest := len(buf) - HeaderLen
	if rest%NodeLen != 0 {
		return nil, formatErrorf("%d bytes after header is not a multiple of the %d-byte node stride", rest, NodeLen)
	}
	count := rest / NodeLen

	h := Header{
		BumpIndex:    binary.LittleEndian.Uint32(buf[0:4]),
		FreeListLen:  binary.LittleEndian.Uint32(buf[8:12]),
		FreeListHead: binary.LittleEndian.Uint32(buf[16:20]),
		Root:         binary.LittleEndian.Uint32(buf[20:24]),
		LeafCount:    binary.LittleEndian.Uint32(buf[24:28]),
	}
	if int(h.BumpIndex) > count {
		return nil, formatErrorf("bump index %d exceeds the %d node records present", h.BumpIndex, count)
	}

	nodes := make([]Node, count)
	for i := 0; i < count; i++ {
		rec := buf[HeaderLen+i*NodeLen:][:NodeLen]
		n, err := decodeNode(rec)
		if err != nil {
			return nil, errors.Wrapf(err, "node %d", i)
		}
		nodes[i] = n
	}
	return &Slab{Header: h, Nodes: nodes}, nil
}

func decodeNode(rec []byte) (Node, error) {
	tag := NodeTag(binary.LittleEndian.Uint32(rec[0:4]))
	p := rec[4:]
	switch tag {
	case TagUninitialized:
		return UninitializedNode{}, nil
	case TagInner:
		return InnerNode{
			PrefixLen: binary.LittleEndian.Uint32(p[0:4]),
			Key:       decodeKey(p[4:20]),
			Children: [2]uint32{
				binary.LittleEndian.Uint32(p[20:24]),
				binary.LittleEndian.Uint32(p[24:28]),
			},
		}, nil
	case TagLeaf:
		leaf := LeafNode{
			OwnerSlot:     p[0],
			FeeTier:       p[1],
			Key:           decodeKey(p[4:20]),
			Quantity:      binary.LittleEndian.Uint64(p[52:60]),
			ClientOrderID: binary.LittleEndian.Uint64(p[60:68]),
		}
		copy(leaf.Owner[:], p[20:52])
		return leaf, nil
	case TagFree:
		return FreeNode{Next: binary.LittleEndian.Uint32(p[0:4])}, nil
	case TagLastFree:
		return LastFreeNode{}, nil
	default:
		return nil, formatErrorf("unknown node tag %d", tag)
	}
}

// decodeKey reads a little-endian u128.
func decodeKey(b []byte) market.Key {
	return market.Key{
		Lo: binary.LittleEndian.Uint64(b[0:8]),
		Hi: binary.LittleEndian.Uint64(b[8:16]),
	}
}

// Get finds the leaf with the given key. A miss returns (nil, nil); a
// tree whose descent cannot terminate within the arena capacity
// returns a *CorruptionError.
func (s *Slab) Get(key market.Key) (*LeafNode, error) {
	if s.Header.LeafCount == 0 {
		return nil, nil
	}
	index := s.Header.Root
	for steps := 0; steps <= len(s.Nodes); steps++ {
		if int(index) >= len(s.Nodes) {
			return nil, &CorruptionError{Steps: steps}
		}
		switch n := s.Nodes[index].(type) {
		case LeafNode:
			if n.Key == key {
				return &n, nil
			}
			return nil, nil
		case InnerNode:
			if n.PrefixLen >= 128 {
				return nil, &CorruptionError{Steps: steps}
			}
			if !n.Key.Xor(key).Rsh(128 - uint(n.PrefixLen)).IsZero() {
				// The shared prefix diverges from the search
				// key: nothing below can match.
				return nil, nil
			}
			index = n.Children[key.Bit(128-uint(n.PrefixLen)-1)]
		default:
			return nil, &CorruptionError{Steps: steps}
		}
	}
	return nil, &CorruptionError{Steps: len(s.Nodes) + 1}
}
