package slab

// Iterator walks the leaves of a slab in key order using an explicit
// index stack, so adversarially deep trees cannot grow the call
// stack. Each call to Items produces an independent iterator; sharing
// one across goroutines is not supported.
//
// Usage follows the scanner idiom:
//
//	it := s.Items(false)
//	for it.Next() {
//		leaf := it.Leaf()
//		...
//	}
//	if err := it.Err(); err != nil { ... }
type Iterator struct {
	nodes      []Node
	descending bool
	stack      []uint32
	cur        *LeafNode
	visited    int
	err        error
}

// Items returns a fresh iterator over the slab's leaves. Ascending
// (descending=false) visits keys from lowest to highest.
func (s *Slab) Items(descending bool) *Iterator {
	it := &Iterator{nodes: s.Nodes, descending: descending}
	if s.Header.LeafCount > 0 {
		it.stack = append(it.stack, s.Header.Root)
	}
	return it
}

// Next advances to the next leaf. It returns false at the end of the
// tree or on corruption; check Err to tell the two apart.
func (it *Iterator) Next() bool {
	if it.err != nil {
		return false
	}
	for len(it.stack) > 0 {
		index := it.stack[len(it.stack)-1]
		it.stack = it.stack[:len(it.stack)-1]

		it.visited++
		if it.visited > len(it.nodes) || int(index) >= len(it.nodes) {
			// A valid tree touches each arena slot at most once.
			it.err = &CorruptionError{Steps: it.visited}
			return false
		}

		switch n := it.nodes[index].(type) {
		case LeafNode:
			it.cur = &n
			return true
		case InnerNode:
			if it.descending {
				it.stack = append(it.stack, n.Children[0], n.Children[1])
			} else {
				it.stack = append(it.stack, n.Children[1], n.Children[0])
			}
		default:
			// Free or uninitialized slots are never reachable
			// from the root of a well-formed tree.
			it.err = &CorruptionError{Steps: it.visited}
			return false
		}
	}
	return false
}

// Leaf returns the leaf Next positioned on.
func (it *Iterator) Leaf() *LeafNode { return it.cur }

// Err returns the corruption error that stopped the iterator, if any.
func (it *Iterator) Err() error { return it.err }

// Walk visits every leaf in key order until visit returns false.
// Corruption encountered mid-walk is returned after the leaves seen so
// far have been visited.
func (s *Slab) Walk(descending bool, visit func(*LeafNode) bool) error {
	it := s.Items(descending)
	for it.Next() {
		if !visit(it.Leaf()) {
			return nil
		}
	}
	return it.Err()
}
