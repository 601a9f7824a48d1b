package slab

import "bookmirror/domain/market"

// NodeTag is the 4-byte discriminant leading every node record.
type NodeTag uint32

const (
	TagUninitialized NodeTag = iota
	TagInner
	TagLeaf
	TagFree
	TagLastFree
)

// Node is one slot of the slab arena. The five variants below are the
// closed set of node kinds the on-chain program writes; every consumer
// switches over them exhaustively.
type Node interface {
	Tag() NodeTag
}

// UninitializedNode is a slot the program never touched.
type UninitializedNode struct{}

// InnerNode is a branch: every leaf underneath shares the top
// PrefixLen bits of Key. Children[0] continues where the next bit is
// 0, Children[1] where it is 1. Child links are arena indices, not
// pointers.
type InnerNode struct {
	PrefixLen uint32
	Key       market.Key
	Children  [2]uint32
}

// LeafNode is a resting order.
type LeafNode struct {
	OwnerSlot     uint8
	FeeTier       uint8
	Key           market.Key
	Owner         [32]byte
	Quantity      uint64
	ClientOrderID uint64
}

// FreeNode is a recycled slot, linked into the header's free list by
// arena index.
type FreeNode struct {
	Next uint32
}

// LastFreeNode terminates the free list.
type LastFreeNode struct{}

func (UninitializedNode) Tag() NodeTag { return TagUninitialized }
func (InnerNode) Tag() NodeTag         { return TagInner }
func (LeafNode) Tag() NodeTag          { return TagLeaf }
func (FreeNode) Tag() NodeTag          { return TagFree }
func (LastFreeNode) Tag() NodeTag      { return TagLastFree }
