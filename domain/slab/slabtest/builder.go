// Package slabtest builds serialized slab buffers for tests. It
// performs the critbit insertion the on-chain program would, then
// renders the arena in the account byte layout.
package slabtest

import (
	"encoding/binary"
	"math/bits"

	"bookmirror/domain/market"
	"bookmirror/domain/slab"
)

// Builder accumulates leaves into an in-memory critbit tree.
type Builder struct {
	nodes     []slab.Node
	root      uint32
	leafCount uint32
}

func NewBuilder() *Builder {
	return &Builder{}
}

// Add inserts a leaf built from the usual order fields.
func (b *Builder) Add(side market.Side, priceLots, seq, quantity uint64, clientID uint64) *Builder {
	b.Insert(slab.LeafNode{
		Key:           market.EncodeOrderKey(side, priceLots, seq),
		Quantity:      quantity,
		ClientOrderID: clientID,
	})
	return b
}

// Insert places a leaf into the tree, splitting an inner node at the
// first diverging bit. An existing leaf with the same key is replaced.
func (b *Builder) Insert(leaf slab.LeafNode) {
	if b.leafCount == 0 {
		b.root = b.push(leaf)
		b.leafCount = 1
		return
	}

	index := b.root
	parent, slot := -1, 0
	for {
		switch n := b.nodes[index].(type) {
		case slab.LeafNode:
			if n.Key == leaf.Key {
				b.nodes[index] = leaf
				return
			}
			b.split(index, parent, slot, leaf, n.Key)
			return
		case slab.InnerNode:
			shared := commonPrefixLen(n.Key, leaf.Key)
			if shared < uint(n.PrefixLen) {
				b.split(index, parent, slot, leaf, n.Key)
				return
			}
			bit := leaf.Key.Bit(128 - uint(n.PrefixLen) - 1)
			parent, slot = int(index), int(bit)
			index = n.Children[bit]
		default:
			panic("slabtest: free node reached during insert")
		}
	}
}

// split replaces nodes[index] in its parent with a new inner node
// whose children are the existing subtree and the new leaf.
func (b *Builder) split(index uint32, parent, slot int, leaf slab.LeafNode, existing market.Key) {
	shared := commonPrefixLen(existing, leaf.Key)
	leafIdx := b.push(leaf)

	inner := slab.InnerNode{PrefixLen: uint32(shared), Key: leaf.Key}
	bit := leaf.Key.Bit(128 - shared - 1)
	inner.Children[bit] = leafIdx
	inner.Children[1-bit] = index
	innerIdx := b.push(inner)

	if parent < 0 {
		b.root = innerIdx
	} else {
		p := b.nodes[parent].(slab.InnerNode)
		p.Children[slot] = innerIdx
		b.nodes[parent] = p
	}
	b.leafCount++
}

func (b *Builder) push(n slab.Node) uint32 {
	b.nodes = append(b.nodes, n)
	return uint32(len(b.nodes) - 1)
}

// Bytes renders the tree in the slab account layout.
func (b *Builder) Bytes() []byte {
	buf := make([]byte, slab.HeaderLen+len(b.nodes)*slab.NodeLen)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(b.nodes)))
	binary.LittleEndian.PutUint32(buf[20:24], b.root)
	binary.LittleEndian.PutUint32(buf[24:28], b.leafCount)
	for i, n := range b.nodes {
		encodeNode(buf[slab.HeaderLen+i*slab.NodeLen:][:slab.NodeLen], n)
	}
	return buf
}

func encodeNode(rec []byte, n slab.Node) {
	binary.LittleEndian.PutUint32(rec[0:4], uint32(n.Tag()))
	p := rec[4:]
	switch v := n.(type) {
	case slab.InnerNode:
		binary.LittleEndian.PutUint32(p[0:4], v.PrefixLen)
		putKey(p[4:20], v.Key)
		binary.LittleEndian.PutUint32(p[20:24], v.Children[0])
		binary.LittleEndian.PutUint32(p[24:28], v.Children[1])
	case slab.LeafNode:
		p[0] = v.OwnerSlot
		p[1] = v.FeeTier
		putKey(p[4:20], v.Key)
		copy(p[20:52], v.Owner[:])
		binary.LittleEndian.PutUint64(p[52:60], v.Quantity)
		binary.LittleEndian.PutUint64(p[60:68], v.ClientOrderID)
	case slab.FreeNode:
		binary.LittleEndian.PutUint32(p[0:4], v.Next)
	}
}

func putKey(b []byte, k market.Key) {
	binary.LittleEndian.PutUint64(b[0:8], k.Lo)
	binary.LittleEndian.PutUint64(b[8:16], k.Hi)
}

// commonPrefixLen counts the equal leading bits of two keys, 128 when
// they are identical.
func commonPrefixLen(a, b market.Key) uint {
	x := a.Xor(b)
	if x.Hi != 0 {
		return uint(bits.LeadingZeros64(x.Hi))
	}
	if x.Lo != 0 {
		return 64 + uint(bits.LeadingZeros64(x.Lo))
	}
	return 128
}
