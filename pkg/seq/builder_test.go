package seq_test

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/flier/ropeseq/pkg/seq"
	"github.com/flier/ropeseq/pkg/seq/adapter"
)

func frozenLeaf(p seq.Params, a adapter.Adapter[int], vals ...int) *seq.Leaf[int] {
	l := leafWith(p, a, vals...)
	l.Freeze()
	return l
}

func fillAll(t *testing.T, c seq.Child[int]) []int {
	t.Helper()
	buf := make([]int, c.Len())
	c.Fill(buf, 0, c.Len())
	return buf
}

func TestBuilder(t *testing.T) {
	Convey("Builder", t, func() {
		p := leafParams() // S=4, MAX=4
		a := adapter.Dense[int]{}

		Convey("two leaves that fit in one S merge into a single leaf", func() {
			b := seq.NewBuilder[int](p, a)
			b.AddNode(frozenLeaf(p, a, 1), 0, 1, false)
			b.AddNode(frozenLeaf(p, a, 2), 0, 1, false)

			root := b.Close(false)
			So(root.Height(), ShouldEqual, 0)
			So(root.Len(), ShouldEqual, 2)
			So(fillAll(t, root), ShouldResemble, []int{1, 2})
		})

		Convey("leaves that overflow S wrap as siblings under a new BNode", func() {
			b := seq.NewBuilder[int](p, a)
			b.AddNode(frozenLeaf(p, a, 1, 2, 3), 0, 3, false)
			b.AddNode(frozenLeaf(p, a, 4, 5, 6), 0, 3, false)

			root := b.Close(false)
			So(root.Height(), ShouldEqual, 1)
			So(root.Len(), ShouldEqual, 6)
			So(fillAll(t, root), ShouldResemble, []int{1, 2, 3, 4, 5, 6})
		})

		Convey("prepend places incoming content before the existing root", func() {
			b := seq.NewBuilder[int](p, a)
			b.AddNode(frozenLeaf(p, a, 3, 4), 0, 2, false)
			b.AddNode(frozenLeaf(p, a, 1, 2), 0, 2, true)

			root := b.Close(false)
			So(fillAll(t, root), ShouldResemble, []int{1, 2, 3, 4})
		})

		Convey("repeated joins that overflow MAX split into a taller tree", func() {
			b := seq.NewBuilder[int](p, a)
			want := []int{}
			for i := 0; i < p.MAX*3; i++ {
				b.AddNode(frozenLeaf(p, a, i, i), 0, 2, false)
				want = append(want, i, i)
			}

			root := b.Close(false)
			So(root.Height(), ShouldBeGreaterThanOrEqualTo, 1)
			So(root.Len(), ShouldEqual, len(want))
			So(fillAll(t, root), ShouldResemble, want)
		})

		Convey("partial windows copy only the requested range", func() {
			b := seq.NewBuilder[int](p, a)
			source := frozenLeaf(p, a, 1, 2, 3, 4)
			b.AddNode(source, 1, 2, false)

			root := b.Close(false)
			So(fillAll(t, root), ShouldResemble, []int{2, 3})
		})

		Convey("Close never returns an annotated root when allowAnnotatedRoot is false", func() {
			b := seq.NewBuilder[int](p, a)
			source := frozenLeaf(p, a, 1, 2, 3, 4)
			b.AddNode(source, 1, 2, false)

			root := b.Close(false)
			_, isANode := root.(*seq.ANode[int])
			So(isANode, ShouldBeFalse)
		})

		Convey("an empty builder closes to an empty frozen leaf", func() {
			b := seq.NewBuilder[int](p, a)
			root := b.Close(false)

			So(root.Len(), ShouldEqual, 0)
			So(root.Frozen(), ShouldBeTrue)
		})
	})
}
