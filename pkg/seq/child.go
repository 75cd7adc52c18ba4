package seq

import "github.com/flier/ropeseq/internal/ident"

// Child is the tagged-union node reference every tree position holds: a
// Leaf, a BNode, or an ANode, each independently mutable or frozen (ANodes
// are always frozen). Dispatch is a type switch instead of virtual calls,
// collapsing the six-way mutable/frozen x Leaf/BNode/ANode union from the
// original design down to three concrete pointer types per height.
type Child[T any] interface {
	Height() int
	Len() int
	Frozen() bool

	// Get returns the element at logical position i.
	Get(i int) T
	// Fill bulk-reads up to length elements starting at off into dest,
	// returning the count actually written.
	Fill(dest []T, off, length int) int
}

func isANode[T any](c Child[T]) bool {
	_, ok := c.(*ANode[T])
	return ok
}

// identityOf returns a token identifying the physical storage backing c,
// for Leaf and BNode only (ANodes never serve as overlay children so they
// never need one). The second return is false for any other kind.
func identityOf[T any](c Child[T]) (ident.Token, bool) {
	switch v := c.(type) {
	case *Leaf[T]:
		return v.Token(), true
	case *BNode[T]:
		return v.Token(), true
	default:
		return 0, false
	}
}

// freezeChild freezes a mutable Leaf or BNode in place and returns it; an
// already-frozen node (or an ANode, always frozen) is returned unchanged.
func freezeChild[T any](c Child[T]) Child[T] {
	switch v := c.(type) {
	case *Leaf[T]:
		return v.Freeze()
	case *BNode[T]:
		return v.Freeze()
	default:
		return c
	}
}
