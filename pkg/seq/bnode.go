package seq

import (
	"sort"

	"github.com/flier/ropeseq/internal/debug"
	"github.com/flier/ropeseq/internal/ident"
	"github.com/flier/ropeseq/pkg/tuple"
	"github.com/flier/ropeseq/pkg/xerrors"
)

// BNode is an inner B-tree node of height h >= 1, holding 1..MAX children
// of height h-1, each independently mutable or frozen. A running
// cumulative-size array makes positional queries O(log MAX) via binary
// search.
type BNode[T any] struct {
	params   Params
	height   int
	children []Child[T]
	cum      []int // cum[i] = total length of children[0..i]
	frozen   bool
}

var _ Child[int] = (*BNode[int])(nil)

// NewBNode constructs an empty mutable BNode of the given height (>= 1).
func NewBNode[T any](p Params, height int) *BNode[T] {
	if height < 1 {
		panic(xerrors.NewLogicError("bnode: height must be >= 1, got %d", height))
	}
	return &BNode[T]{params: p, height: height}
}

// newBNodeFromChildren assembles a BNode directly from an already-ordered
// slice of same-height children, as Builder's join does when bulk-splicing
// frozen subtrees rather than incrementally calling AddNode. The result
// starts frozen: its children are themselves already frozen/closed
// subtrees being assembled in bulk, not edited in place afterward.
func newBNodeFromChildren[T any](p Params, height int, children []Child[T]) *BNode[T] {
	if len(children) == 0 {
		panic(xerrors.NewLogicError("bnode: cannot construct with zero children"))
	}
	if len(children) > p.MAX {
		panic(xerrors.NewLogicError("bnode: %d children exceeds MAX=%d", len(children), p.MAX))
	}
	b := &BNode[T]{params: p, height: height, children: children}
	b.recomputeCum()
	b.frozen = b.allChildrenFrozen()
	return b
}

func (b *BNode[T]) allChildrenFrozen() bool {
	for _, c := range b.children {
		if !c.Frozen() {
			return false
		}
	}
	return true
}

func (b *BNode[T]) recomputeCum() {
	b.cum = make([]int, len(b.children))
	sum := 0
	for i, c := range b.children {
		sum += c.Len()
		b.cum[i] = sum
	}
	debug.Assert(len(b.children) <= b.params.MAX,
		"bnode: %d children exceeds MAX=%d after recompute", len(b.children), b.params.MAX)
}

func (b *BNode[T]) Height() int { return b.height }

func (b *BNode[T]) Len() int {
	if len(b.cum) == 0 {
		return 0
	}
	return b.cum[len(b.cum)-1]
}

func (b *BNode[T]) Frozen() bool { return b.frozen }

func (b *BNode[T]) ChildCount() int { return len(b.children) }

func (b *BNode[T]) ChildAt(i int) Child[T] { return b.children[i] }

// childrenCopy returns a fresh slice aliasing the same Child references, so
// callers (join's splicing logic) can build new BNodes without mutating
// this one's slice in place.
func (b *BNode[T]) childrenCopy() []Child[T] {
	out := make([]Child[T], len(b.children))
	copy(out, b.children)
	return out
}

// AddNode pushes child (of height h-1) onto the back, or front if asPrefix.
// Fatal if full or the child's height doesn't match, or if b is frozen.
func (b *BNode[T]) AddNode(child Child[T], asPrefix bool) {
	if b.frozen {
		panic(xerrors.NewLogicError("bnode: add_node on a frozen node"))
	}
	if len(b.children) >= b.params.MAX {
		panic(xerrors.NewLogicError("bnode: add_node at capacity MAX=%d", b.params.MAX))
	}
	if child.Height() != b.height-1 {
		panic(xerrors.NewLogicError("bnode: child height %d != %d", child.Height(), b.height-1))
	}
	if asPrefix {
		b.children = append([]Child[T]{child}, b.children...)
	} else {
		b.children = append(b.children, child)
	}
	b.recomputeCum()
}

// RemoveNode pops a child from the front (fromFront) or back and returns it.
func (b *BNode[T]) RemoveNode(fromFront bool) Child[T] {
	if b.frozen {
		panic(xerrors.NewLogicError("bnode: remove_node on a frozen node"))
	}
	if len(b.children) == 0 {
		panic(xerrors.NewLogicError("bnode: remove_node on an empty node"))
	}
	var c Child[T]
	if fromFront {
		c = b.children[0]
		b.children = b.children[1:]
	} else {
		c = b.children[len(b.children)-1]
		b.children = b.children[:len(b.children)-1]
	}
	b.recomputeCum()
	return c
}

// MoveNodes moves count children from src starting at srcPos, inserting
// them at destPos in b. Frozen children are reference-moved.
func (b *BNode[T]) MoveNodes(src *BNode[T], srcPos, destPos, count int) {
	if b.frozen {
		panic(xerrors.NewLogicError("bnode: move_nodes into a frozen node"))
	}
	moved := make([]Child[T], count)
	copy(moved, src.children[srcPos:srcPos+count])
	src.children = append(src.children[:srcPos], src.children[srcPos+count:]...)
	src.recomputeCum()

	tail := append([]Child[T]{}, b.children[destPos:]...)
	b.children = append(append(b.children[:destPos], moved...), tail...)
	b.recomputeCum()
}

// AddNodes copies count children from src starting at srcPos, inserting
// them at destPos in b (frozen children copy by reference).
func (b *BNode[T]) AddNodes(src *BNode[T], srcPos, destPos, count int) {
	if b.frozen {
		panic(xerrors.NewLogicError("bnode: add_nodes into a frozen node"))
	}
	copied := make([]Child[T], count)
	copy(copied, src.children[srcPos:srcPos+count])

	tail := append([]Child[T]{}, b.children[destPos:]...)
	b.children = append(append(b.children[:destPos], copied...), tail...)
	b.recomputeCum()
}

// Freeze recursively freezes every mutable child in order, then marks b
// itself frozen. Freezing does not change any child's length; cumulative
// sizes are recomputed afterward regardless.
func (b *BNode[T]) Freeze() *BNode[T] {
	if b.frozen {
		return b
	}
	for i, c := range b.children {
		b.children[i] = freezeChild(c)
	}
	b.recomputeCum()
	b.frozen = true
	return b
}

// FreezeSeam freezes only the extreme child on the given side (front if
// onFront, else back), recursing if that child is itself a BNode. Used by
// Builder when a mutable root's seam is about to become interior to a
// taller node and must stop being editable in place.
func (b *BNode[T]) FreezeSeam(onFront bool) {
	if len(b.children) == 0 {
		return
	}
	idx := len(b.children) - 1
	if onFront {
		idx = 0
	}
	switch c := b.children[idx].(type) {
	case *BNode[T]:
		c.FreezeSeam(onFront)
	case *Leaf[T]:
		c.Freeze()
	}
	b.recomputeCum()
}

func (b *BNode[T]) Get(i int) T {
	idx, local := b.locate(i).Unpack()
	return b.children[idx].Get(local)
}

// locate finds which child holds logical position i and the position local
// to that child, via binary search over cumulative sizes. Returned as a
// tuple.Tuple2 rather than named returns since both the child index and the
// local offset are always consumed together at every call site.
func (b *BNode[T]) locate(i int) tuple.Tuple2[int, int] {
	idx := sort.Search(len(b.cum), func(k int) bool { return b.cum[k] > i })
	if idx >= len(b.cum) {
		panic(xerrors.NewLogicError("bnode: index %d out of range [0,%d)", i, b.Len()))
	}
	prev := 0
	if idx > 0 {
		prev = b.cum[idx-1]
	}
	return tuple.New2(idx, i-prev)
}

func (b *BNode[T]) Fill(dest []T, off, length int) int {
	if off+length > b.Len() {
		length = b.Len() - off
	}
	if length <= 0 {
		return 0
	}
	startIdx, startLocal := b.locate(off).Unpack()
	written := 0
	local := startLocal
	for idx := startIdx; idx < len(b.children) && written < length; idx++ {
		remain := length - written
		childLen := b.children[idx].Len() - local
		n := remain
		if childLen < n {
			n = childLen
		}
		got := b.children[idx].Fill(dest[written:written+n], local, n)
		written += got
		local = 0
	}
	return written
}

// SetValues bulk-writes through to descendant leaves. Every leaf touched
// must be mutable; fatal otherwise.
func (b *BNode[T]) SetValues(src []T, off, length int) {
	if b.frozen {
		panic(xerrors.NewLogicError("bnode: set_values on a frozen node"))
	}
	if off+length > b.Len() {
		panic(xerrors.NewLogicError("bnode: set_values(%d,%d) out of range [0,%d)", off, length, b.Len()))
	}
	startIdx, startLocal := b.locate(off).Unpack()
	written := 0
	local := startLocal
	for idx := startIdx; idx < len(b.children) && written < length; idx++ {
		remain := length - written
		childLen := b.children[idx].Len() - local
		n := remain
		if childLen < n {
			n = childLen
		}
		switch c := b.children[idx].(type) {
		case *Leaf[T]:
			c.SetValues(src[written:written+n], local, n)
		case *BNode[T]:
			c.SetValues(src[written:written+n], local, n)
		default:
			panic(xerrors.NewLogicError("bnode: set_values touches a frozen/annotated child"))
		}
		written += n
		local = 0
	}
}

// IsBalanced reports children_count >= MAX/2; a root node is exempt.
func (b *BNode[T]) IsBalanced(isRoot bool) bool {
	if isRoot {
		return len(b.children) >= 1
	}
	return len(b.children) >= b.params.MAX/2
}

// IsDeepBalanced checks the balance predicate recursively at every level.
func (b *BNode[T]) IsDeepBalanced(isRoot bool) bool {
	if !b.IsBalanced(isRoot) {
		return false
	}
	for _, c := range b.children {
		switch v := c.(type) {
		case *BNode[T]:
			if !v.IsDeepBalanced(false) {
				return false
			}
		case *Leaf[T]:
			if !v.IsBalanced(false) {
				return false
			}
		case *ANode[T]:
			if !v.IsBalanced(false) {
				return false
			}
		}
	}
	return true
}

// IsOneSideBalanced checks balance along the front- or back-seam only,
// following the extreme child down each level without descending into the
// interior.
func (b *BNode[T]) IsOneSideBalanced(isRoot, onFront bool) bool {
	if len(b.children) == 0 {
		return isRoot
	}
	idx := len(b.children) - 1
	if onFront {
		idx = 0
	}
	switch v := b.children[idx].(type) {
	case *BNode[T]:
		return v.IsBalanced(false) && v.IsOneSideBalanced(false, onFront)
	case *Leaf[T]:
		return v.IsBalanced(false)
	case *ANode[T]:
		return v.IsBalanced(false)
	}
	return true
}

// Token returns a pointer-identity token for this BNode, stable once
// frozen (frozen BNodes are never copied in place).
func (b *BNode[T]) Token() ident.Token { return ident.Of(b) }
