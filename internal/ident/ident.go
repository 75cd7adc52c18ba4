// Package ident mints cheap identity tokens for frozen storage handles.
//
// ANode's fuse-in-place rule (spec §4.4: "same pointer, touching
// origin_offset") and the sharing-invariant tests (spec §8.1 property 7,
// "tested by pointer identity on frozen leaves/BNodes") both need to ask
// "are these two frozen handles backed by the exact same physical storage?".
// Of hashes a handle's runtime address with a process-seeded hasher so two
// tokens compare equal iff they were minted from the same address, without
// requiring the caller to keep raw pointers around just for comparison.
package ident

import (
	"unsafe"

	"github.com/dolthub/maphash"
)

// Token is an opaque identity token for a frozen storage handle.
type Token uint64

var hasher = maphash.NewHasher[uintptr]()

// Of returns the identity token for p's address.
//
// p must be non-nil. The token is only meaningful for the lifetime of the
// allocation p points into: callers must not compare tokens of handles that
// may have been freed and recycled by a slab pool in between.
func Of[T any](p *T) Token {
	return Token(hasher.Hash(uintptr(unsafe.Pointer(p))))
}
