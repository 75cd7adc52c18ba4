// Package adapter defines the storage-adapter policy that decides how a
// Leaf's raw elements are stored, copied, and frozen, independent of the
// tree's balance and sharing rules.
package adapter

import "github.com/flier/ropeseq/internal/ident"

// Context is an opaque, adapter-defined handle threaded through every
// adapter call. Dense uses nil; RowIndex uses an *AllocSession.
type Context any

// Storage is an opaque, adapter-defined handle to a leaf's backing data.
type Storage any

// Adapter implements the storage-backing policy for leaves of element type
// T. A zero-value adapter (e.g. Dense[T]{}) must be directly usable.
type Adapter[T any] interface {
	// CreateLeaf returns a fresh mutable Storage with room for capacity
	// elements.
	CreateLeaf(ctx Context, capacity int) Storage

	At(s Storage, pos int) T
	SetAt(s Storage, pos int, v T)

	// Copy moves length elements from src[srcOff:] to dst[dstOff:]. src and
	// dst may be the same Storage.
	Copy(dst Storage, dstOff int, src Storage, srcOff, length int)
	// GetValues bulk-reads length elements starting at srcOff into dst,
	// returning the count actually written.
	GetValues(dst []T, src Storage, srcOff, length int) int
	// SetValues bulk-writes length elements from src into dst starting at
	// dstOff.
	SetValues(dst Storage, dstOff int, src []T, length int)

	// Mutate thaws s: it returns a fresh, independently-owned mutable
	// Storage with the same logical content, allocated via ctx.
	Mutate(s Storage, ctx Context) Storage
	// MakeConst freezes s in place and returns the (now shared-frozen)
	// handle.
	MakeConst(s Storage) Storage

	// ShiftData moves length elements within s from index "from" to index
	// "to", as if by memmove.
	ShiftData(s Storage, from, to, length int)

	IsMutable(s Storage) bool
	IsNull(s Storage) bool

	// Identity returns a token that compares equal for two Storage handles
	// iff they are backed by the same physical allocation. Used by ANode's
	// fuse-in-place rule and the sharing-invariant tests.
	Identity(s Storage) ident.Token
}
