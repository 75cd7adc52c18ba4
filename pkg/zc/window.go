// Package zc provides helpers for working with zero-copy ranges.
//
// Window is the safe, typed counterpart of the byte-oriented zero-copy view
// used elsewhere in this codebase's ancestry: instead of packing a
// (offset, length) pair relative to a raw byte buffer, it describes a window
// of elements relative to a generic backing store (a Leaf's storage, an
// ANode's origin, ...). No unsafe pointer arithmetic is involved; the window
// is pure bookkeeping and the caller dereferences it through whatever typed
// accessor the backing store exposes.
package zc

import "fmt"

// Window is a (start, length) pair describing a contiguous range inside a
// larger, logically addressed sequence.
//
// The zero value is the empty window at offset zero.
type Window struct {
	start, length int
}

// New returns the window [start, start+length).
func New(start, length int) Window {
	if start < 0 || length < 0 {
		panic(fmt.Sprintf("zc: invalid window [%d:%d]", start, start+length))
	}
	return Window{start, length}
}

// Start returns the start offset of this window within its source.
func (w Window) Start() int { return w.start }

// Len returns the length of this window.
func (w Window) Len() int { return w.length }

// End returns the end offset (exclusive) of this window within its source.
func (w Window) End() int { return w.start + w.length }

// IsEmpty reports whether this window spans zero elements.
func (w Window) IsEmpty() bool { return w.length == 0 }

// Shrink returns the window [start+off, start+off+length), which must lie
// within this window's extent (it panics otherwise). It is the slice
// composition rule for windows; Leaf.Slice and Sequence.Slice do their own
// offset arithmetic and do not call it.
func (w Window) Shrink(off, length int) Window {
	if off < 0 || length < 0 || off+length > w.length {
		panic(fmt.Sprintf("zc: window [%d:%d] out of range of %v", off, off+length, w))
	}
	return Window{w.start + off, length}
}

// Adjacent reports whether w immediately precedes other (w.End() ==
// other.Start()), which is the condition ANode uses to fuse two overlays
// covering the same origin in place instead of allocating a new one.
func (w Window) Adjacent(other Window) bool { return w.End() == other.Start() }

func (w Window) String() string { return fmt.Sprintf("[%d:%d]", w.start, w.End()) }
