package seq

import (
	"github.com/flier/ropeseq/pkg/seq/adapter"
	"github.com/flier/ropeseq/pkg/xerrors"
)

// Sequence is the single value this package exposes: length, indexed read,
// range fill, concatenation, slice, and overwrite, all expressed in terms of
// a Builder-assembled Child tree. A Sequence is mutable until MakeConst is
// called; concat/append/prepend/slice always return a fresh frozen
// Sequence, consuming their mutable operand's root and sharing a frozen
// one's.
type Sequence[T any] struct {
	params  Params
	adapter adapter.Adapter[T]
	ctx     adapter.Context
	root    Child[T]
}

// New returns an empty mutable Sequence using the given Params and storage
// adapter.
func New[T any](p Params, a adapter.Adapter[T]) *Sequence[T] {
	return NewWithContext[T](p, a, nil)
}

// NewWithContext is New, supplying an adapter context (nil for Dense, an
// *adapter.AllocSession for RowIndex) to use for every leaf this Sequence
// allocates.
func NewWithContext[T any](p Params, a adapter.Adapter[T], ctx adapter.Context) *Sequence[T] {
	return &Sequence[T]{
		params:  p,
		adapter: a,
		ctx:     ctx,
		root:    NewLeaf[T](p, a, ctx),
	}
}

func wrap[T any](p Params, a adapter.Adapter[T], ctx adapter.Context, root Child[T]) *Sequence[T] {
	return &Sequence[T]{params: p, adapter: a, ctx: ctx, root: root}
}

func (s *Sequence[T]) Len() int {
	if s.root == nil {
		return 0
	}
	return s.root.Len()
}

func (s *Sequence[T]) Height() int {
	if s.root == nil {
		return 0
	}
	return s.root.Height()
}

func (s *Sequence[T]) Get(i int) T { return s.root.Get(i) }

// Fill bulk-reads up to length elements starting at off into dest,
// returning the count actually written.
func (s *Sequence[T]) Fill(dest []T, off, length int) int {
	if s.root == nil {
		return 0
	}
	return s.root.Fill(dest, off, length)
}

// Frozen reports whether this Sequence's root is presently frozen (shared,
// no longer writable through this handle: Overwrite panics on a frozen
// root).
func (s *Sequence[T]) Frozen() bool {
	return s.root == nil || s.root.Frozen()
}

// concatWith builds a fresh frozen Sequence by add_node-ing this Sequence's
// root then other's, in the given order, exactly as spec §4.6 describes:
// `Builder::new(); builder.add_node(A); builder.add_node(B); builder.close()`.
func concatWith[T any](p Params, a adapter.Adapter[T], ctx adapter.Context, first, second Child[T]) *Sequence[T] {
	b := NewBuilder[T](p, a)
	b.SetContext(ctx)
	if first != nil && first.Len() > 0 {
		b.AddNode(first, 0, first.Len(), false)
	}
	if second != nil && second.Len() > 0 {
		b.AddNode(second, 0, second.Len(), false)
	}
	root := b.Close(false)
	return wrap[T](p, a, ctx, root)
}

// Concat returns a new frozen Sequence holding this Sequence's elements
// followed by other's. Mutable operands are consumed (their roots frozen in
// place and reused); frozen operands are shared.
func (s *Sequence[T]) Concat(other *Sequence[T]) *Sequence[T] {
	return concatWith[T](s.params, s.adapter, s.ctx, s.root, other.root)
}

// Append is an alias for Concat, read the other way around: self with other
// appended to the back.
func (s *Sequence[T]) Append(other *Sequence[T]) *Sequence[T] { return s.Concat(other) }

// Prepend returns a new frozen Sequence holding other's elements followed by
// this Sequence's.
func (s *Sequence[T]) Prepend(other *Sequence[T]) *Sequence[T] {
	return concatWith[T](s.params, s.adapter, s.ctx, other.root, s.root)
}

// Slice returns a new frozen Sequence covering [off, off+length) of this
// one: a leaf slice if the whole window is already a single Leaf, else a
// fresh ANode wrapping the (now-frozen) original as origin with a single
// windowed overlay, normalized by Close (spec §4.6).
func (s *Sequence[T]) Slice(off, length int) *Sequence[T] {
	if off < 0 || length < 0 || off+length > s.Len() {
		panic(xerrors.NewLogicError("sequence: slice(%d,%d) out of range [0,%d)", off, length, s.Len()))
	}
	if length == 0 {
		return New[T](s.params, s.adapter).MakeConst()
	}
	frozen := freezeChild[T](s.root)
	piece := sliceChild[T](s.params, s.adapter, s.ctx, frozen, off, length)
	b := NewBuilder[T](s.params, s.adapter)
	b.SetContext(s.ctx)
	b.AddNode(piece, 0, piece.Len(), false)
	return wrap[T](s.params, s.adapter, s.ctx, b.Close(false))
}

// Overwrite bulk-writes src into [off, off+len(src)) of a mutable Sequence,
// descending through to mutable leaves. Fatal if the touched range crosses
// a frozen node; there is no copy-on-write path, and Sequences returned by
// Concat, Prepend and Slice are frozen.
func (s *Sequence[T]) Overwrite(off int, src []T) {
	length := len(src)
	if length == 0 {
		return
	}
	if off < 0 || off+length > s.Len() {
		panic(xerrors.NewLogicError("sequence: overwrite(%d,len=%d) out of range [0,%d)", off, length, s.Len()))
	}
	switch c := s.root.(type) {
	case *Leaf[T]:
		c.SetValues(src, off, length)
	case *BNode[T]:
		c.SetValues(src, off, length)
	default:
		panic(xerrors.NewLogicError("sequence: overwrite touches a frozen/annotated root; make_const was called or the root still carries annotations"))
	}
}

// MakeConst freezes this Sequence's root in place and returns it; repeated
// calls are idempotent in both storage identity and content (spec property
// 4, freeze idempotence).
func (s *Sequence[T]) MakeConst() *Sequence[T] {
	s.root = freezeChild[T](s.root)
	return s
}

// Root exposes the underlying Child tree, for callers (tests, the
// compaction/push-down machinery) that need to inspect tree shape directly.
func (s *Sequence[T]) Root() Child[T] { return s.root }
