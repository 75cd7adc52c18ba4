package adapter

import (
	"github.com/flier/goutil/pkg/arena"
	"github.com/flier/goutil/pkg/arena/slice"

	"github.com/flier/ropeseq/internal/ident"
)

// RowID is a logical row identifier: a block id packed with an in-block
// offset, the element type the RowIndex adapter stores.
type RowID uint64

func newRowID(block uint64, offset int) RowID {
	return RowID(block<<32 | uint64(uint32(offset)))
}

// Remap records that rows formerly addressed by (FromBlock, FromOffset) now
// live at (ToBlock, ToOffset), so an external DataFrameSpace (pkg/collab)
// can later physically gather the underlying column data into the new
// block. Produced whenever Mutate thaws a frozen index leaf.
type Remap struct {
	FromBlock, ToBlock   uint64
	FromOffset, ToOffset int
	Length               int
}

// AllocSession is the per-Builder allocation-session context the RowIndex
// adapter requires: it hands out fresh block ids and accumulates the Remaps
// produced while the session is open. The row-id buffers themselves come
// out of mem, an arena.Arena shared by every leaf the session touches: row
// ids are plain uint64s (pointer-free), exactly the shape arena.go's own
// doc comment says an Arena is meant to hold, and bump-allocating every
// leaf's buffer out of one chunked arena avoids a separate heap allocation
// per leaf. Buffers are never individually released back to mem — frozen
// index leaves persist indefinitely as shared structure in older tree
// versions, so mem (and everything allocated from it) is simply left for
// the garbage collector once nothing reachable still points into it.
type AllocSession struct {
	next   uint64
	mem    arena.Arena
	Remaps []Remap
}

// NewBlock reserves and returns a fresh block id.
func (s *AllocSession) NewBlock() uint64 {
	s.next++
	return s.next
}

type rowBuf struct {
	block  uint64
	ids    slice.Slice[RowID]
	frozen bool
}

func newRowBuf(ctx Context, block uint64, capacity int) *rowBuf {
	sess, ok := ctx.(*AllocSession)
	if !ok || sess == nil {
		// No session: fall back to a throwaway Arena of its own, so RowIndex
		// stays usable outside a Builder (e.g. direct unit construction)
		// without special-casing every method below on whether a session is
		// present.
		a := &arena.Arena{}
		ids := slice.Make[RowID](a, capacity)
		fillRowIDs(ids, block)
		return &rowBuf{block: block, ids: ids}
	}

	ids := slice.Make[RowID](&sess.mem, capacity)
	fillRowIDs(ids, block)
	return &rowBuf{block: block, ids: ids}
}

func fillRowIDs(ids slice.Slice[RowID], block uint64) {
	for i := 0; i < ids.Len(); i++ {
		ids.Store(i, newRowID(block, i))
	}
}

// RowIndex is the index-adapter storage policy: each leaf element is a row
// identifier derived from a block id assigned at leaf-creation time plus an
// in-block offset. Thawing a frozen index leaf allocates a fresh block
// through the AllocSession context and records the row remapping that lets
// an external DataFrameSpace gather the physical data later. Leaf buffers
// are arena-backed (see AllocSession.mem) since RowID is fixed-size and
// pointer-free.
type RowIndex struct{}

var _ Adapter[RowID] = RowIndex{}

func (RowIndex) CreateLeaf(ctx Context, capacity int) Storage {
	var block uint64
	if sess, ok := ctx.(*AllocSession); ok && sess != nil {
		block = sess.NewBlock()
	}
	return newRowBuf(ctx, block, capacity)
}

func (RowIndex) At(s Storage, pos int) RowID { return s.(*rowBuf).ids.Load(pos) }

func (RowIndex) SetAt(s Storage, pos int, v RowID) { s.(*rowBuf).ids.Store(pos, v) }

func (RowIndex) Copy(dst Storage, dstOff int, src Storage, srcOff, length int) {
	d, sr := dst.(*rowBuf), src.(*rowBuf)
	copy(d.ids.Raw()[dstOff:dstOff+length], sr.ids.Raw()[srcOff:srcOff+length])
}

func (RowIndex) GetValues(dst []RowID, src Storage, srcOff, length int) int {
	sr := src.(*rowBuf)
	return copy(dst[:length], sr.ids.Raw()[srcOff:srcOff+length])
}

func (RowIndex) SetValues(dst Storage, dstOff int, src []RowID, length int) {
	d := dst.(*rowBuf)
	copy(d.ids.Raw()[dstOff:dstOff+length], src[:length])
}

func (RowIndex) Mutate(s Storage, ctx Context) Storage {
	old := s.(*rowBuf)
	var newBlock uint64
	sess, ok := ctx.(*AllocSession)
	if ok && sess != nil {
		newBlock = sess.NewBlock()
	}
	fresh := newRowBuf(ctx, newBlock, old.ids.Len())
	if ok && sess != nil {
		sess.Remaps = append(sess.Remaps, Remap{
			FromBlock: old.block, ToBlock: newBlock,
			FromOffset: 0, ToOffset: 0,
			Length: old.ids.Len(),
		})
	}
	return fresh
}

func (RowIndex) MakeConst(s Storage) Storage {
	b := s.(*rowBuf)
	b.frozen = true
	return b
}

func (RowIndex) ShiftData(s Storage, from, to, length int) {
	b := s.(*rowBuf)
	copy(b.ids.Raw()[to:to+length], b.ids.Raw()[from:from+length])
}

func (RowIndex) IsMutable(s Storage) bool { return s != nil && !s.(*rowBuf).frozen }

func (RowIndex) IsNull(s Storage) bool { return s == nil }

func (RowIndex) Identity(s Storage) ident.Token { return ident.Of(s.(*rowBuf)) }
