package seq

import (
	"github.com/flier/ropeseq/internal/debug"
	"github.com/flier/ropeseq/internal/ident"
	"github.com/flier/ropeseq/pkg/seq/adapter"
	"github.com/flier/ropeseq/pkg/xerrors"
)

// Leaf is a height-0 node: a fixed-capacity view (storage, offset, length)
// with capacity <= S. Storage is either an owned mutable buffer or a
// shared frozen one, managed through the pluggable adapter.Adapter policy.
type Leaf[T any] struct {
	params   Params
	adapter  adapter.Adapter[T]
	storage  adapter.Storage
	offset   int
	length   int
	capacity int
}

var _ Child[int] = (*Leaf[int])(nil)

// NewLeaf returns a fresh mutable Leaf of (offset=0, length=0, capacity=S).
func NewLeaf[T any](p Params, a adapter.Adapter[T], ctx adapter.Context) *Leaf[T] {
	return &Leaf[T]{
		params:   p,
		adapter:  a,
		storage:  a.CreateLeaf(ctx, p.S),
		capacity: p.S,
	}
}

func (l *Leaf[T]) Height() int { return 0 }

func (l *Leaf[T]) Len() int { return l.length }

func (l *Leaf[T]) Frozen() bool { return !l.adapter.IsMutable(l.storage) }

// Available returns capacity - length - offset if mutable, else 0.
func (l *Leaf[T]) Available() int {
	if !l.adapter.IsMutable(l.storage) {
		return 0
	}
	return l.capacity - l.length - l.offset
}

// IsBalanced reports length >= S/2; a root leaf is exempt (spec §3.3: a
// single leaf is always an acceptable root regardless of size).
func (l *Leaf[T]) IsBalanced(isRoot bool) bool {
	if isRoot {
		return true
	}
	return l.length >= l.params.S/2
}

func (l *Leaf[T]) Get(i int) T {
	if i < 0 || i >= l.length {
		panic(xerrors.NewLogicError("leaf: index %d out of range [0,%d)", i, l.length))
	}
	return l.adapter.At(l.storage, l.offset+i)
}

// SetAt writes v at logical position i. Fatal if the leaf is frozen.
func (l *Leaf[T]) SetAt(i int, v T) {
	if !l.adapter.IsMutable(l.storage) {
		panic(xerrors.NewLogicError("leaf: set_at on a frozen leaf"))
	}
	if i < 0 || i >= l.length {
		panic(xerrors.NewLogicError("leaf: index %d out of range [0,%d)", i, l.length))
	}
	l.adapter.SetAt(l.storage, l.offset+i, v)
}

// Append adds src to the back (or, if asPrefix, the front) of the leaf,
// shifting the existing window within capacity if there isn't already
// room on that side. Fatal if the leaf is frozen or len(src) would overflow
// capacity.
func (l *Leaf[T]) Append(src []T, asPrefix bool) {
	if !l.adapter.IsMutable(l.storage) {
		panic(xerrors.NewLogicError("leaf: append on a frozen leaf"))
	}
	n := len(src)
	if n == 0 {
		return
	}
	if l.length+n > l.capacity {
		panic(xerrors.NewLogicError("leaf: append overflows capacity (%d+%d>%d)", l.length, n, l.capacity))
	}

	if asPrefix {
		if l.offset < n {
			newOffset := l.capacity - l.length - n
			if newOffset < 0 {
				newOffset = 0
			}
			l.adapter.ShiftData(l.storage, l.offset, newOffset+n, l.length)
			l.offset = newOffset
		} else {
			l.offset -= n
		}
		l.adapter.SetValues(l.storage, l.offset, src, n)
		l.length += n

		debug.Assert(l.offset >= 0 && l.offset+l.length <= l.capacity,
			"leaf: prefix-append left window (%d,%d) outside capacity %d", l.offset, l.length, l.capacity)
		return
	}

	if l.offset+l.length+n > l.capacity {
		l.adapter.ShiftData(l.storage, l.offset, 0, l.length)
		l.offset = 0
	}
	l.adapter.SetValues(l.storage, l.offset+l.length, src, n)
	l.length += n

	debug.Assert(l.offset >= 0 && l.offset+l.length <= l.capacity,
		"leaf: append left window (%d,%d) outside capacity %d", l.offset, l.length, l.capacity)
}

// AppendFrom copies a window of another Leaf onto this one's back or front.
func (l *Leaf[T]) AppendFrom(other *Leaf[T], off, length int, asPrefix bool) {
	if length == 0 {
		return
	}
	buf := make([]T, length)
	other.Fill(buf, off, length)
	l.Append(buf, asPrefix)
}

// Slice narrows the view in place; no data moves. Fatal if frozen or the
// requested window is out of range.
func (l *Leaf[T]) Slice(off, length int) {
	if !l.adapter.IsMutable(l.storage) {
		panic(xerrors.NewLogicError("leaf: slice on a frozen leaf"))
	}
	if off < 0 || length < 0 || off+length > l.length {
		panic(xerrors.NewLogicError("leaf: slice(%d,%d) out of range [0,%d)", off, length, l.length))
	}
	l.offset += off
	l.length = length
}

func (l *Leaf[T]) Fill(dest []T, off, length int) int {
	if off < 0 || off > l.length {
		panic(xerrors.NewLogicError("leaf: fill offset %d out of range [0,%d]", off, l.length))
	}
	if off+length > l.length {
		length = l.length - off
	}
	if length <= 0 {
		return 0
	}
	return l.adapter.GetValues(dest, l.storage, l.offset+off, length)
}

// SetValues bulk-writes into the leaf's existing window. Fatal if frozen.
func (l *Leaf[T]) SetValues(src []T, off, length int) {
	if !l.adapter.IsMutable(l.storage) {
		panic(xerrors.NewLogicError("leaf: set_values on a frozen leaf"))
	}
	if off < 0 || off+length > l.length {
		panic(xerrors.NewLogicError("leaf: set_values(%d,%d) out of range [0,%d)", off, length, l.length))
	}
	l.adapter.SetValues(l.storage, l.offset+off, src, length)
}

// Freeze transitions the leaf to shared-frozen in place and returns it.
func (l *Leaf[T]) Freeze() *Leaf[T] {
	if l.adapter.IsMutable(l.storage) {
		l.storage = l.adapter.MakeConst(l.storage)
	}
	return l
}

// Thaw returns a fresh, independently-owned mutable copy.
func (l *Leaf[T]) Thaw(ctx adapter.Context) *Leaf[T] {
	return &Leaf[T]{
		params:   l.params,
		adapter:  l.adapter,
		storage:  l.adapter.Mutate(l.storage, ctx),
		offset:   l.offset,
		length:   l.length,
		capacity: l.capacity,
	}
}

// Token returns the identity of the leaf's backing storage, for ANode
// fuse-in-place detection and the sharing-invariant tests.
func (l *Leaf[T]) Token() ident.Token { return l.adapter.Identity(l.storage) }
