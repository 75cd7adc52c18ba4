package adapter

import "github.com/flier/ropeseq/internal/ident"

// denseBuf is an owned slice of T, the normal-case leaf backing.
type denseBuf[T any] struct {
	data   []T
	frozen bool
}

// Dense is the default storage adapter: each leaf owns a plain []T. Freezing
// hands the slice to shared-frozen ownership in place (O(1), no copy); the
// first subsequent mutation physically copies it (see Mutate).
type Dense[T any] struct{}

var _ Adapter[int] = Dense[int]{}

func (Dense[T]) CreateLeaf(_ Context, capacity int) Storage {
	return &denseBuf[T]{data: make([]T, capacity)}
}

func (Dense[T]) At(s Storage, pos int) T { return s.(*denseBuf[T]).data[pos] }

func (Dense[T]) SetAt(s Storage, pos int, v T) { s.(*denseBuf[T]).data[pos] = v }

func (Dense[T]) Copy(dst Storage, dstOff int, src Storage, srcOff, length int) {
	d, sr := dst.(*denseBuf[T]), src.(*denseBuf[T])
	copy(d.data[dstOff:dstOff+length], sr.data[srcOff:srcOff+length])
}

func (Dense[T]) GetValues(dst []T, src Storage, srcOff, length int) int {
	sr := src.(*denseBuf[T])
	return copy(dst[:length], sr.data[srcOff:srcOff+length])
}

func (Dense[T]) SetValues(dst Storage, dstOff int, src []T, length int) {
	d := dst.(*denseBuf[T])
	copy(d.data[dstOff:dstOff+length], src[:length])
}

func (Dense[T]) Mutate(s Storage, _ Context) Storage {
	d := s.(*denseBuf[T])
	cp := make([]T, len(d.data))
	copy(cp, d.data)
	return &denseBuf[T]{data: cp}
}

func (Dense[T]) MakeConst(s Storage) Storage {
	d := s.(*denseBuf[T])
	d.frozen = true
	return d
}

func (Dense[T]) ShiftData(s Storage, from, to, length int) {
	d := s.(*denseBuf[T])
	copy(d.data[to:to+length], d.data[from:from+length])
}

func (Dense[T]) IsMutable(s Storage) bool {
	return s != nil && !s.(*denseBuf[T]).frozen
}

func (Dense[T]) IsNull(s Storage) bool { return s == nil }

func (Dense[T]) Identity(s Storage) ident.Token { return ident.Of(s.(*denseBuf[T])) }
