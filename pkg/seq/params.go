package seq

import (
	"math/bits"

	"github.com/flier/ropeseq/pkg/xerrors"
)

// Params holds the construction-time shape parameters of a tree: S (leaf
// capacity) and MAX (inner-node fan-out), plus their memoized bit-widths.
// Builders and nodes are parameterized by a Params value instead of
// compile-time constants, since Go generics have no non-type const
// parameters; the slab pools take no Params.
type Params struct {
	S, MAX int
	logS   int
	logMAX int
}

// NewParams validates and constructs a Params. S and MAX must be powers of
// two; MAX must be at least 4.
func NewParams(s, max int) Params {
	if s <= 0 || s&(s-1) != 0 {
		panic(xerrors.NewLogicError("seq: S must be a positive power of two, got %d", s))
	}
	if max < 4 || max&(max-1) != 0 {
		panic(xerrors.NewLogicError("seq: MAX must be a power of two >= 4, got %d", max))
	}
	return Params{
		S:      s,
		MAX:    max,
		logS:   bits.Len(uint(s)) - 1,
		logMAX: bits.Len(uint(max)) - 1,
	}
}

// MinSizeForHeight returns the minimum retained payload an inner node of
// height h must hold to be considered balanced.
func (p Params) MinSizeForHeight(h int) int {
	exp := (p.logS - 1) + (p.logMAX-1)*h
	if exp < 0 {
		exp = 0
	}
	return 1 << uint(exp)
}

// minChildRetention is the minimum viable payload for an ANode overlay
// child of the given height: a leaf's balance floor at height 0, else the
// same minSizeForHeight floor used for balance elsewhere.
func (p Params) minChildRetention(childHeight int) int {
	if childHeight == 0 {
		return p.S / 2
	}
	return p.MinSizeForHeight(childHeight)
}

// maxOverlayWindow bounds how large a single height-0 ANode overlay may be,
// keeping leaf-sized overlays small enough that compaction stays worthwhile.
func (p Params) maxOverlayWindow() int {
	return 2 * p.S / p.MAX
}
