package seq

import (
	"github.com/flier/ropeseq/internal/debug"
	"github.com/flier/ropeseq/pkg/opt"
	"github.com/flier/ropeseq/pkg/res"
	"github.com/flier/ropeseq/pkg/seq/adapter"
	"github.com/flier/ropeseq/pkg/tuple"
	"github.com/flier/ropeseq/pkg/xerrors"
	"github.com/flier/ropeseq/pkg/zc"
)

// overlay is one entry of an ANode's overlay list: either a real frozen
// child windowed by window, or (child is None) a null marker meaning "read
// from origin" at window's (offset, length). The single window carries
// both the spec's "(offset,length) window into that child" and
// "(origin_offset, retained_length)" bookkeeping, since both always
// coincide for any overlay this Builder ever constructs — there is only
// one offset parameter in the public add_node(incoming, offset, length,
// as_prefix) contract to begin with.
type overlay[T any] struct {
	child  opt.Option[Child[T]]
	window zc.Window
}

// ANode is an annotated node of height h >= 0: an immutable frozen origin
// (Leaf if h=0, else BNode of height h) plus an ordered list of up to MAX
// overlays that together tile the ANode's own logical sequence exactly.
// ANodes are always frozen; their "mutation" is Builder-hosted and
// produces a new frozen ANode.
type ANode[T any] struct {
	params   Params
	adapter  adapter.Adapter[T]
	height   int
	origin   Child[T]
	overlays []overlay[T]
	size     int
	ctx      adapter.Context
}

var _ Child[int] = (*ANode[int])(nil)

// NewANode constructs an empty ANode (no overlays yet) over a frozen,
// non-annotated origin.
func NewANode[T any](p Params, a adapter.Adapter[T], origin Child[T]) *ANode[T] {
	if !origin.Frozen() {
		panic(xerrors.NewLogicError("anode: origin must be frozen"))
	}
	if isANode[T](origin) {
		panic(xerrors.NewLogicError("anode: origin must not itself be annotated"))
	}
	return &ANode[T]{params: p, adapter: a, height: origin.Height(), origin: origin}
}

// SetContext supplies the leaf-storage allocation-session context used if
// compaction needs to materialize a fresh leaf.
func (a *ANode[T]) SetContext(ctx adapter.Context) { a.ctx = ctx }

func (a *ANode[T]) Height() int { return a.height }

func (a *ANode[T]) Len() int { return a.size }

func (a *ANode[T]) Frozen() bool { return true }

// Origin returns the immutable node this ANode annotates.
func (a *ANode[T]) Origin() Child[T] { return a.origin }

func (a *ANode[T]) clone() *ANode[T] {
	cp := &ANode[T]{params: a.params, adapter: a.adapter, height: a.height, origin: a.origin, size: a.size, ctx: a.ctx}
	cp.overlays = append([]overlay[T]{}, a.overlays...)
	return cp
}

// validOverlay checks the height/frozen/window constraints from §4.4,
// independent of whether there's a free slot or fusion is possible.
func (a *ANode[T]) validOverlay(incoming opt.Option[Child[T]], length int) bool {
	if length <= 0 {
		return false
	}
	if incoming.IsNone() {
		return true
	}
	child := incoming.Unwrap()
	if !child.Frozen() {
		return false
	}
	if isANode[T](child) {
		return false
	}
	if child.Height() >= a.height {
		return false
	}
	if length < a.params.minChildRetention(child.Height()) {
		return false
	}
	if a.height == 0 && length > a.params.maxOverlayWindow() {
		return false
	}
	return true
}

func (a *ANode[T]) maxCompactionSize() int {
	if a.height == 0 {
		return a.params.S / a.params.MAX
	}
	return a.params.MinSizeForHeight(a.height - 1)
}

// CanCompact reports whether any two adjacent overlays together fit within
// maxCompactionSize.
func (a *ANode[T]) CanCompact() bool { return a.findCompactionRun().IsOk() }

// CanAccept reports whether incoming can be added as an overlay right now:
// either there's a free slot and the window is valid, fuse-in-place
// applies, or compaction could free a slot.
func (a *ANode[T]) CanAccept(incoming opt.Option[Child[T]], offset, length int, asPrefix bool) bool {
	if !a.validOverlay(incoming, length) {
		return false
	}
	if len(a.overlays) < a.params.MAX {
		return true
	}
	if len(a.overlays) > 0 {
		idx := len(a.overlays) - 1
		if asPrefix {
			idx = 0
		}
		if a.fuses(idx, incoming, offset, length, asPrefix) {
			return true
		}
	}
	return a.CanCompact()
}

func (a *ANode[T]) fuses(idx int, incoming opt.Option[Child[T]], offset, length int, front bool) bool {
	existing := a.overlays[idx]
	if existing.child.IsNone() != incoming.IsNone() {
		return false
	}
	if existing.child.IsSome() {
		ec := existing.child.Unwrap()
		ic := incoming.Unwrap()
		et, eok := identityOf[T](ec)
		it, iok := identityOf[T](ic)
		if !eok || !iok || et != it {
			return false
		}
	}
	if front {
		return offset+length == existing.window.Start()
	}
	return existing.window.End() == offset
}

// AddNode adds an overlay window to the front (asPrefix) or back. incoming
// = opt.None means "reuse origin" for this range. Returns xerrors.ErrFull
// if the overlay list is full and neither fuse-in-place nor compaction can
// make room; that is the one recoverable error in this layer.
func (a *ANode[T]) AddNode(incoming opt.Option[Child[T]], offset, length int, asPrefix bool) error {
	if !a.validOverlay(incoming, length) {
		panic(xerrors.NewLogicError("anode: overlay rejected by height/frozen/window constraints"))
	}

	if len(a.overlays) > 0 {
		idx := len(a.overlays) - 1
		if asPrefix {
			idx = 0
		}
		if a.fuses(idx, incoming, offset, length, asPrefix) {
			w := a.overlays[idx].window
			if asPrefix {
				a.overlays[idx].window = zc.New(offset, w.Len()+length)
			} else {
				a.overlays[idx].window = zc.New(w.Start(), w.Len()+length)
			}
			a.size += length
			return nil
		}
	}

	if len(a.overlays) >= a.params.MAX {
		if err := a.Compact(a.ctx); err != nil {
			return err
		}
		if len(a.overlays) >= a.params.MAX {
			return xerrors.ErrFull
		}
	}

	ov := overlay[T]{child: incoming, window: zc.New(offset, length)}
	if asPrefix {
		a.overlays = append([]overlay[T]{ov}, a.overlays...)
	} else {
		a.overlays = append(a.overlays, ov)
	}
	a.size += length

	debug.Assert(len(a.overlays) <= a.params.MAX,
		"anode: %d overlays exceeds MAX=%d after add_node", len(a.overlays), a.params.MAX)
	debug.Assert(a.overlaysCoverSize(),
		"anode: overlay windows sum to %d, size tracks %d", a.overlaySpan(), a.size)
	return nil
}

// overlaySpan sums the overlay windows' lengths, for the debug.Assert in
// AddNode checking that the overlay list still tiles the ANode exactly.
func (a *ANode[T]) overlaySpan() int {
	total := 0
	for _, ov := range a.overlays {
		total += ov.window.Len()
	}
	return total
}

func (a *ANode[T]) overlaysCoverSize() bool { return a.overlaySpan() == a.size }

func (a *ANode[T]) locate(i int) tuple.Tuple2[int, int] {
	pos := 0
	for k, ov := range a.overlays {
		if i < pos+ov.window.Len() {
			return tuple.New2(k, i-pos)
		}
		pos += ov.window.Len()
	}
	panic(xerrors.NewLogicError("anode: index %d out of range [0,%d)", i, a.size))
}

func (a *ANode[T]) Get(i int) T {
	idx, local := a.locate(i).Unpack()
	ov := a.overlays[idx]
	if ov.child.IsNone() {
		return a.origin.Get(ov.window.Start() + local)
	}
	c := ov.child.Unwrap()
	return c.Get(ov.window.Start() + local)
}

func (a *ANode[T]) Fill(dest []T, off, length int) int {
	if off+length > a.size {
		length = a.size - off
	}
	if length <= 0 {
		return 0
	}
	written := 0
	pos := 0
	for _, ov := range a.overlays {
		ovLen := ov.window.Len()
		if pos+ovLen <= off {
			pos += ovLen
			continue
		}
		if pos >= off+length {
			break
		}
		segStart := 0
		if off > pos {
			segStart = off - pos
		}
		segLen := ovLen - segStart
		if end := off + length; pos+segStart+segLen > end {
			segLen = end - (pos + segStart)
		}
		if segLen > 0 {
			if ov.child.IsNone() {
				written += a.origin.Fill(dest[written:written+segLen], ov.window.Start()+segStart, segLen)
			} else {
				c := ov.child.Unwrap()
				written += c.Fill(dest[written:written+segLen], ov.window.Start()+segStart, segLen)
			}
		}
		pos += ovLen
	}
	return written
}

// ForEachChild visits every overlay in order with its full window, used by
// Builder's pushDownToPlain to re-ingest an ANode's content. It takes no
// (off, len) range and does no clamping.
func (a *ANode[T]) ForEachChild(visitor func(child opt.Option[Child[T]], offset, length int)) {
	for _, ov := range a.overlays {
		visitor(ov.child, ov.window.Start(), ov.window.Len())
	}
}

// Compact finds a maximal adjacent run of overlays whose aggregated size
// fits maxCompactionSize, materializes it via a sub-Builder bounded at
// mutation level h-1, and fuses the run into a single overlay. Returns
// xerrors.ErrFull if no adjacent run fits.
func (a *ANode[T]) Compact(ctx adapter.Context) error {
	run := a.findCompactionRun()
	if run.IsErr() {
		return xerrors.ErrFull
	}
	i, j := run.Expect("checked IsErr above").Unpack()

	b := NewBuilderWithMutationLevel[T](a.params, a.adapter, a.height-1)
	b.SetContext(ctx)
	for k := i; k <= j; k++ {
		ov := a.overlays[k]
		if ov.child.IsNone() {
			piece := sliceChild[T](a.params, a.adapter, ctx, a.origin, ov.window.Start(), ov.window.Len())
			b.AddNode(piece, 0, piece.Len(), false)
		} else {
			c := ov.child.Unwrap()
			b.AddNode(c, ov.window.Start(), ov.window.Len(), false)
		}
	}
	fused := b.Close(true)
	for isANode[T](fused) {
		fused = pushDownToPlain(a.params, a.adapter, ctx, fused)
	}

	size := 0
	for k := i; k <= j; k++ {
		size += a.overlays[k].window.Len()
	}
	debug.Assert(size == fused.Len(), "anode: compaction changed retained size %d -> %d", size, fused.Len())
	newOv := overlay[T]{child: opt.Some(fused), window: zc.New(0, fused.Len())}
	if size != fused.Len() {
		// compaction must not change the logical content it covers
		panic(xerrors.NewInvariantViolation("anode: compaction changed retained size %d -> %d", size, fused.Len()))
	}

	merged := append([]overlay[T]{}, a.overlays[:i]...)
	merged = append(merged, newOv)
	merged = append(merged, a.overlays[j+1:]...)
	a.overlays = merged
	return nil
}

// findCompactionRun finds the first adjacent pair (i, i+1) whose combined
// size fits maxCompactionSize and extends it rightward while the total
// still fits, returning the maximal run (i, j). The result is a
// res.Result rather than an (i, j, ok) triple since "no run fits" is exactly
// the Full condition Compact's caller already propagates as an error.
func (a *ANode[T]) findCompactionRun() res.Result[tuple.Tuple2[int, int]] {
	max := a.maxCompactionSize()
	for k := 0; k+1 < len(a.overlays); k++ {
		sum := a.overlays[k].window.Len() + a.overlays[k+1].window.Len()
		if sum <= max {
			j := k + 1
			for j+1 < len(a.overlays) && sum+a.overlays[j+1].window.Len() <= max {
				j++
				sum += a.overlays[j].window.Len()
			}
			return res.Ok(tuple.New2(k, j))
		}
	}
	return res.Err[tuple.Tuple2[int, int]](xerrors.ErrFull)
}

// IsBalanced reports sum(retained) >= minSizeForHeight(h); a root ANode is
// exempt but per invariant §3.3 never actually reaches a public root.
func (a *ANode[T]) IsBalanced(isRoot bool) bool {
	if isRoot {
		return true
	}
	return a.size >= a.params.MinSizeForHeight(a.height)
}

// MinRetention returns minSizeForHeight(h), the balance floor for this
// ANode.
func (a *ANode[T]) MinRetention() int { return a.params.MinSizeForHeight(a.height) }
