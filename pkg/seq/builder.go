package seq

import (
	"github.com/flier/ropeseq/internal/debug"
	"github.com/flier/ropeseq/internal/slab"
	"github.com/flier/ropeseq/pkg/opt"
	"github.com/flier/ropeseq/pkg/seq/adapter"
	"github.com/flier/ropeseq/pkg/xerrors"
)

// Builder incrementally composes a tree by accepting incoming subtrees on
// either side, maintaining the balance contract, and materializing
// annotations when necessary, finally returning a frozen root.
//
// Unlike the original design's in-place "active seam" of mutable nodes
// threaded through a parents array, this Builder always splices by
// rebuilding the affected children-level slice and reassembling through
// join (see join2/insertSpine below): simpler to get right without a
// compiler to check it against, at the cost of the original's bounded
// in-place-mutation fast path. Every stated invariant still holds; there
// is simply never more than zero mutable roots at any point, which
// trivially satisfies "at most one".
type Builder[T any] struct {
	params           Params
	adapter          adapter.Adapter[T]
	ctx              adapter.Context
	root             Child[T]
	maxMutationLevel int

	// leafPool backs every Leaf this Builder allocates directly (normalize's
	// partial-window leaf copy, and the empty-root case in Close): leaves a Builder
	// creates are either folded into the frozen result it eventually
	// returns or never escape it at all, so there is never a point at
	// which one needs to be handed back with Free — the pool is here for
	// the batch-allocation/amortized-growth behavior described in
	// internal/slab, not manual reclamation.
	leafPool *slab.Pool[Leaf[T]]
}

// newLeaf allocates a fresh empty mutable Leaf out of leafPool instead of
// the bare heap, lazily creating the pool on first use.
func (b *Builder[T]) newLeaf() *Leaf[T] {
	if b.leafPool == nil {
		b.leafPool = new(slab.Pool[Leaf[T]])
	}
	ref := b.leafPool.Alloc()
	*ref.Ptr = Leaf[T]{
		params:   b.params,
		adapter:  b.adapter,
		storage:  b.adapter.CreateLeaf(b.ctx, b.params.S),
		capacity: b.params.S,
	}
	return ref.Ptr
}

// NewBuilder constructs a Builder with no mutation-level bound.
func NewBuilder[T any](p Params, a adapter.Adapter[T]) *Builder[T] {
	return &Builder[T]{params: p, adapter: a, maxMutationLevel: 1<<30 - 1}
}

// NewBuilderWithMutationLevel constructs a Builder bounded to mutate at or
// below height level; used internally for annotation push-down and
// compaction sub-Builders.
func NewBuilderWithMutationLevel[T any](p Params, a adapter.Adapter[T], level int) *Builder[T] {
	b := NewBuilder[T](p, a)
	b.maxMutationLevel = level
	return b
}

// SetContext supplies the leaf-storage allocation-session context for
// index-adapter leaves created during this build.
func (b *Builder[T]) SetContext(ctx adapter.Context) { b.ctx = ctx }

// SetMaxMutationLevel adjusts the mutation-level bound.
func (b *Builder[T]) SetMaxMutationLevel(level int) { b.maxMutationLevel = level }

func (b *Builder[T]) Size() int {
	if b.root == nil {
		return 0
	}
	return b.root.Len()
}

func (b *Builder[T]) Height() int {
	if b.root == nil {
		return 0
	}
	return b.root.Height()
}

func (b *Builder[T]) Get(i int) T {
	if b.root == nil {
		panic(xerrors.NewLogicError("builder: get(%d) on an empty builder", i))
	}
	return b.root.Get(i)
}

func (b *Builder[T]) rootChild() Child[T] { return b.root }

// AddNode appends (or, if asPrefix, prepends) the window [offset, offset+
// length) of incoming. length < 0 means "take all from offset".
func (b *Builder[T]) AddNode(incoming Child[T], offset, length int, asPrefix bool) {
	if incoming == nil {
		panic(xerrors.NewLogicError("builder: add_node with nil incoming"))
	}
	if length < 0 {
		length = incoming.Len() - offset
	}
	if offset < 0 || length < 0 || offset+length > incoming.Len() {
		panic(xerrors.NewLogicError("builder: add_node window (%d,%d) out of range for len %d", offset, length, incoming.Len()))
	}
	if length == 0 {
		return
	}

	piece := b.normalize(incoming, offset, length)
	if b.root == nil {
		b.root = piece
		return
	}
	if asPrefix {
		b.root = join2(b.params, b.adapter, b.ctx, piece, b.root)
	} else {
		b.root = join2(b.params, b.adapter, b.ctx, b.root, piece)
	}
	b.root = prune(b.root)
}

// normalize turns an arbitrary (incoming, offset, length) into a single
// frozen Child ready to be joined onto the root: the whole node if the
// window covers it in full (shared, no copy), else a fresh windowed copy.
func (b *Builder[T]) normalize(incoming Child[T], offset, length int) Child[T] {
	if offset == 0 && length == incoming.Len() {
		return freezeChild(incoming)
	}
	if leaf, ok := incoming.(*Leaf[T]); ok {
		buf := make([]T, length)
		leaf.Fill(buf, offset, length)
		nl := b.newLeaf()
		nl.Append(buf, false)
		return nl.Freeze()
	}
	return sliceChild[T](b.params, b.adapter, b.ctx, freezeChild(incoming), offset, length)
}

// Close finalizes the builder, returning a frozen root. If the root is (or
// becomes, after pruning) an ANode and allowAnnotatedRoot is false,
// annotations are pushed down repeatedly until the root is a plain Leaf or
// BNode, per the non-optional public-facade decision recorded in
// DESIGN.md.
func (b *Builder[T]) Close(allowAnnotatedRoot bool) Child[T] {
	if b.root == nil {
		return b.newLeaf().Freeze()
	}
	root := prune(freezeChild(b.root))
	if !allowAnnotatedRoot {
		for isANode[T](root) {
			root = prune(pushDownToPlain(b.params, b.adapter, b.ctx, root))
		}
		debug.Assert(!isANode[T](root), "builder: close left an annotated root after push-down")
	}
	b.root = root
	return root
}

// PushDownAnnotations rebuilds the current root, if it is an ANode, via a
// one-level-lower sub-Builder that expands its overlays back into a plain
// tree.
func (b *Builder[T]) PushDownAnnotations() {
	if b.root == nil || !isANode[T](b.root) {
		return
	}
	b.root = prune(pushDownToPlain(b.params, b.adapter, b.ctx, b.root))
}

// prune collapses single-child BNode chains down to their sole descendant,
// repeatedly.
func prune[T any](c Child[T]) Child[T] {
	for {
		bn, ok := c.(*BNode[T])
		if !ok || bn.ChildCount() != 1 {
			return c
		}
		c = bn.ChildAt(0)
	}
}

// pushDownToPlain rebuilds an ANode as a plain Leaf/BNode by re-ingesting
// its overlay children (and, for null markers, the origin's children
// covering that range, or a copied slice of a Leaf origin) through a
// sub-Builder bounded one level below the ANode's own height. Loops until the result is no longer itself an ANode (possible at
// heights > 1, where the sub-Builder's own output could still need a
// further push-down pass).
func pushDownToPlain[T any](p Params, a adapter.Adapter[T], ctx adapter.Context, c Child[T]) Child[T] {
	for {
		an, ok := c.(*ANode[T])
		if !ok {
			return c
		}
		sub := NewBuilderWithMutationLevel[T](p, a, an.height-1)
		sub.SetContext(ctx)
		an.ForEachChild(func(child opt.Option[Child[T]], off, length int) {
			if child.IsSome() {
				cc := child.Unwrap()
				sub.AddNode(cc, off, length, false)
			} else if bn, ok := an.origin.(*BNode[T]); ok {
				// Feed the origin's own children so each pass works one level lower.
				start := 0
				for i := 0; i < bn.ChildCount() && length > 0; i++ {
					ch := bn.ChildAt(i)
					end := start + ch.Len()
					if off < end {
						n := min(length, end-off)
						sub.AddNode(ch, off-start, n, false)
						off += n
						length -= n
					}
					start = end
				}
			} else {
				piece := sliceChild[T](p, a, ctx, an.origin, off, length)
				sub.AddNode(piece, 0, piece.Len(), false)
			}
		})
		c = sub.Close(true)
	}
}

// sliceChild returns a frozen Child covering exactly [off, off+length) of
// c: a fresh copied Leaf if c is a Leaf, else a single-overlay ANode
// wrapping c as origin (spec §4.6: "a fresh ANode wrapping the original as
// origin with a single windowed overlay").
func sliceChild[T any](p Params, a adapter.Adapter[T], ctx adapter.Context, c Child[T], off, length int) Child[T] {
	if length == 0 {
		return NewLeaf[T](p, a, ctx).Freeze()
	}
	if leaf, ok := c.(*Leaf[T]); ok {
		buf := make([]T, length)
		leaf.Fill(buf, off, length)
		nl := NewLeaf[T](p, a, ctx)
		nl.Append(buf, false)
		return nl.Freeze()
	}
	frozen := freezeChild(c)
	an := NewANode[T](p, a, frozen)
	an.SetContext(ctx)
	if err := an.AddNode(opt.None[Child[T]](), off, length, false); err != nil {
		panic(xerrors.NewLogicError("seq: slice could not wrap origin range: %v", err))
	}
	return an
}

func mergeLeaves[T any](p Params, a adapter.Adapter[T], ctx adapter.Context, la, lc *Leaf[T]) *Leaf[T] {
	buf := make([]T, la.Len()+lc.Len())
	la.Fill(buf, 0, la.Len())
	lc.Fill(buf[la.Len():], 0, lc.Len())
	nl := NewLeaf[T](p, a, ctx)
	nl.Append(buf, false)
	return nl.Freeze()
}

// join2 concatenates left and right, dispatching on relative height: equal
// heights merge or wrap (joinEqual); a height mismatch descends the taller
// side's near spine, splicing the shorter tree in where it fits and
// rejoining whatever surrounds it (insertSpine) — the case dispatch of
// add_node (spec §4.5.2) expressed as a single recursive join instead of
// an explicit parents-array/seam-tracking walk.
func join2[T any](p Params, a adapter.Adapter[T], ctx adapter.Context, left, right Child[T]) Child[T] {
	if left == nil {
		return right
	}
	if right == nil {
		return left
	}
	if isANode[T](left) {
		left = pushDownToPlain(p, a, ctx, left)
	}
	if isANode[T](right) {
		right = pushDownToPlain(p, a, ctx, right)
	}

	lh, rh := left.Height(), right.Height()
	wantLen := left.Len() + right.Len()

	var joined Child[T]
	switch {
	case lh == rh:
		joined = joinEqual(p, a, ctx, left, right)
	case lh > rh:
		joined = insertSpine(p, a, ctx, left, right, lh-rh, true)
	default:
		joined = insertSpine(p, a, ctx, right, left, rh-lh, false)
	}

	debug.Assert(joined.Len() == wantLen, "seq: join2 lost elements, got %d want %d", joined.Len(), wantLen)
	return joined
}

// joinEqual merges two same-height, non-annotated children: Leaves merge
// if they fit a single leaf, else both become the two children of a fresh
// height-1 parent; BNodes merge if their children fit MAX, else their
// pooled children are split into two new halves under a fresh parent one
// level taller (freezing is implicit: both operands are already frozen by
// the time join2 calls this).
func joinEqual[T any](p Params, a adapter.Adapter[T], ctx adapter.Context, x, y Child[T]) Child[T] {
	h := x.Height()
	if h == 0 {
		lx, xok := x.(*Leaf[T])
		ly, yok := y.(*Leaf[T])
		if xok && yok && lx.Len()+ly.Len() <= p.S {
			return mergeLeaves(p, a, ctx, lx, ly)
		}
		return newBNodeFromChildren(p, 1, []Child[T]{x, y})
	}

	bx, xok := x.(*BNode[T])
	by, yok := y.(*BNode[T])
	if xok && yok {
		combined := append(bx.childrenCopy(), by.childrenCopy()...)
		if len(combined) <= p.MAX {
			return newBNodeFromChildren(p, h, combined)
		}
		return wrapParts(p, h+1, splitIfNeeded(p, h, combined))
	}

	panic(xerrors.NewInvariantViolation("seq: joinEqual received non-Leaf/BNode operands at height %d", h))
}

// insertSpine descends tall's near spine (rightmost descendants if
// onRight, else leftmost) to where short's height fits, joins it in, and
// rejoins the untouched siblings around the result via join2 itself — so
// the final shape is always correct regardless of how much a lower-level
// join grows, shrinks, or reshapes that one child (in particular when that
// child turns out to be, or to push down to, an ANode whose materialized
// height doesn't match its nominal position: see DESIGN.md for why this
// sibling-rejoining approach was chosen over splicing a raw children slice
// in place).
//
// The heightDiff==1 case is special-cased to append/prepend short as a
// direct child of tall when tall has room, rather than always descending
// one more level and re-merging: without this, every single-leaf concat
// onto an under-full BNode would force an unnecessary merge-or-split at
// the bottom of the spine and inflate the tree's height for no reason.
func insertSpine[T any](p Params, a adapter.Adapter[T], ctx adapter.Context, tall, short Child[T], heightDiff int, onRight bool) Child[T] {
	if heightDiff == 0 || isANode[T](tall) {
		if onRight {
			return join2(p, a, ctx, tall, short)
		}
		return join2(p, a, ctx, short, tall)
	}

	bn := tall.(*BNode[T])

	if heightDiff == 1 && bn.ChildCount() < p.MAX {
		children := bn.childrenCopy()
		if onRight {
			children = append(children, short)
		} else {
			children = append([]Child[T]{short}, children...)
		}
		return newBNodeFromChildren(p, bn.Height(), children)
	}

	idx := 0
	if onRight {
		idx = bn.ChildCount() - 1
	}

	var replaced Child[T]
	if heightDiff == 1 {
		if onRight {
			replaced = join2(p, a, ctx, bn.ChildAt(idx), short)
		} else {
			replaced = join2(p, a, ctx, short, bn.ChildAt(idx))
		}
	} else {
		replaced = insertSpine(p, a, ctx, bn.ChildAt(idx), short, heightDiff-1, onRight)
	}

	var rest Child[T]
	if onRight {
		for i := 0; i < bn.ChildCount()-1; i++ {
			rest = join2(p, a, ctx, rest, bn.ChildAt(i))
		}
		return join2(p, a, ctx, rest, replaced)
	}
	for i := 1; i < bn.ChildCount(); i++ {
		rest = join2(p, a, ctx, rest, bn.ChildAt(i))
	}
	return join2(p, a, ctx, replaced, rest)
}

func splitIfNeeded[T any](p Params, height int, children []Child[T]) []Child[T] {
	if len(children) <= p.MAX {
		return []Child[T]{newBNodeFromChildren(p, height, children)}
	}
	mid := len(children) / 2
	return []Child[T]{
		newBNodeFromChildren(p, height, children[:mid]),
		newBNodeFromChildren(p, height, children[mid:]),
	}
}

func wrapParts[T any](p Params, parentHeight int, parts []Child[T]) Child[T] {
	if len(parts) == 1 {
		return parts[0]
	}
	return newBNodeFromChildren(p, parentHeight, parts)
}
