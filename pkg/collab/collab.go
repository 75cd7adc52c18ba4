// Package collab declares the external collaborators the sequence core
// treats as out-of-scope: the columnar DataFrame layer that uses a
// Sequence of row identifiers as its index. None of these are implemented
// here; they exist so pkg/seq/adapter.RowIndex has concrete interfaces to
// be typed against at the boundary the core actually touches.
package collab

import (
	"errors"

	"github.com/flier/ropeseq/pkg/seq/adapter"
)

// ErrWrongVersion is raised by MutableFrame implementations to signal a
// concurrent-update conflict. It belongs to the external wrapper, never to
// pkg/seq itself.
var ErrWrongVersion = errors.New("collab: wrong version")

// RowIndex is the row-identifier index a DataFrame column is keyed by.
// pkg/seq.Sequence[adapter.RowID] satisfies the read side of this directly.
type RowIndex interface {
	Len() int
	Get(i int) adapter.RowID
	Fill(dest []adapter.RowID, off, length int) int
}

// DataFrameSpace is the block-addressed physical storage a RowIndex's row
// identifiers resolve into. It is responsible for eventually gathering rows
// that an AllocSession's Remaps describe into their new blocks.
type DataFrameSpace interface {
	Gather(remaps []adapter.Remap) error
}

// MutableFrame is the versioned wrapper around a RowIndex + DataFrameSpace
// pair that detects concurrent mutation.
type MutableFrame interface {
	Version() uint64
	CompareAndSwap(expected uint64, next RowIndex) error
}
