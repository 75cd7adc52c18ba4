package seq_test

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/flier/ropeseq/pkg/seq"
	"github.com/flier/ropeseq/pkg/seq/adapter"
)

func leafParams() seq.Params { return seq.NewParams(4, 4) }

func TestLeaf(t *testing.T) {
	Convey("Leaf", t, func() {
		p := leafParams()
		a := adapter.Dense[int]{}
		l := seq.NewLeaf[int](p, a, nil)

		Convey("a fresh leaf is empty, mutable, height 0", func() {
			So(l.Len(), ShouldEqual, 0)
			So(l.Height(), ShouldEqual, 0)
			So(l.Frozen(), ShouldBeFalse)
			So(l.Available(), ShouldEqual, 4)
		})

		Convey("Append adds to the back by default", func() {
			l.Append([]int{1, 2, 3}, false)

			So(l.Len(), ShouldEqual, 3)
			So(l.Get(0), ShouldEqual, 1)
			So(l.Get(1), ShouldEqual, 2)
			So(l.Get(2), ShouldEqual, 3)
		})

		Convey("Append as prefix shifts existing elements right", func() {
			l.Append([]int{2, 3}, false)
			l.Append([]int{1}, true)

			buf := make([]int, 3)
			l.Fill(buf, 0, 3)
			So(buf, ShouldResemble, []int{1, 2, 3})
		})

		Convey("Append past capacity panics", func() {
			l.Append([]int{1, 2, 3, 4}, false)

			So(func() { l.Append([]int{5}, false) }, ShouldPanic)
		})

		Convey("SetAt overwrites a single element", func() {
			l.Append([]int{1, 2, 3}, false)
			l.SetAt(1, 99)

			So(l.Get(1), ShouldEqual, 99)
		})

		Convey("Slice narrows the view without copying", func() {
			l.Append([]int{1, 2, 3, 4}, false)
			l.Slice(1, 2)

			So(l.Len(), ShouldEqual, 2)
			So(l.Get(0), ShouldEqual, 2)
			So(l.Get(1), ShouldEqual, 3)
		})

		Convey("IsBalanced", func() {
			Convey("a root leaf is always balanced", func() {
				So(l.IsBalanced(true), ShouldBeTrue)
			})

			Convey("a non-root leaf needs length >= S/2", func() {
				So(l.IsBalanced(false), ShouldBeFalse)

				l.Append([]int{1, 2}, false)
				So(l.IsBalanced(false), ShouldBeTrue)
			})
		})

		Convey("Freeze", func() {
			l.Append([]int{1, 2}, false)
			l.Freeze()

			So(l.Frozen(), ShouldBeTrue)
			So(func() { l.SetAt(0, 9) }, ShouldPanic)
			So(func() { l.Append([]int{3}, false) }, ShouldPanic)

			Convey("Freeze is idempotent in identity", func() {
				tok := l.Token()
				l.Freeze()

				So(l.Token(), ShouldEqual, tok)
			})

			Convey("Thaw produces an independently-owned mutable copy", func() {
				cp := l.Thaw(nil)

				So(cp.Frozen(), ShouldBeFalse)
				So(cp.Len(), ShouldEqual, l.Len())
				So(cp.Token(), ShouldNotEqual, l.Token())

				cp.SetAt(0, 42)
				So(l.Get(0), ShouldEqual, 1)
			})
		})

		Convey("Fill reads a window and clamps past the end", func() {
			l.Append([]int{1, 2, 3}, false)
			buf := make([]int, 5)

			n := l.Fill(buf, 1, 5)
			So(n, ShouldEqual, 2)
			So(buf[:2], ShouldResemble, []int{2, 3})
		})
	})
}
