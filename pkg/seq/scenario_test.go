package seq_test

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/flier/ropeseq/pkg/opt"
	"github.com/flier/ropeseq/pkg/seq"
	"github.com/flier/ropeseq/pkg/seq/adapter"
)

// scenarioParams matches the worked examples: S=16, MAX=4.
func scenarioParams() seq.Params { return seq.NewParams(16, 4) }

func leafOf(p seq.Params, a adapter.Adapter[int], vals ...int) *seq.Sequence[int] {
	s := seq.New[int](p, a)
	s.Root().(*seq.Leaf[int]).Append(vals, false)
	return s
}

// TestScenarioA covers "two small leaves": concat of two single-element
// leaves yields one frozen height-0 leaf with both elements, in order.
func TestScenarioA(t *testing.T) {
	Convey("Scenario A: two small leaves", t, func() {
		p := scenarioParams()
		a := adapter.Dense[int]{}

		s1 := leafOf(p, a, 10)
		s2 := leafOf(p, a, 20)

		joined := s1.Concat(s2)

		So(joined.Height(), ShouldEqual, 0)
		So(joined.Len(), ShouldEqual, 2)
		buf := make([]int, 2)
		joined.Fill(buf, 0, 2)
		So(buf, ShouldResemble, []int{10, 20})
	})
}

// TestScenarioB covers "partial prefix + full": a one-element slice of one
// leaf prepended to a multi-element slice of another stays a single,
// balanced leaf (S/2 = 8 here, well under the combined length).
func TestScenarioB(t *testing.T) {
	Convey("Scenario B: partial prefix + full window", t, func() {
		p := scenarioParams()
		a := adapter.Dense[int]{}

		p1vals := make([]int, p.S-2)
		for i := range p1vals {
			p1vals[i] = 7 + 3*i
		}
		p2vals := make([]int, p.S)
		for i := range p2vals {
			p2vals[i] = 20 + 7*i
		}

		p1 := leafOf(p, a, p1vals...)
		p2 := leafOf(p, a, p2vals...)
		p1.MakeConst()
		p2.MakeConst()

		prefix := p1.Slice(1, 1)    // [10]
		rest := p2.Slice(1, p.S-2) // [27, 34, ...]

		result := prefix.Concat(rest)

		So(result.Height(), ShouldEqual, 0)
		So(result.Len(), ShouldEqual, 1+(p.S-2))

		want := append([]int{p1vals[1]}, p2vals[1:p.S-1]...)
		buf := make([]int, result.Len())
		result.Fill(buf, 0, result.Len())
		So(buf, ShouldResemble, want)

		_, isBNode := result.Root().(*seq.BNode[int])
		So(isBNode, ShouldBeFalse)
	})
}

// TestScenarioC covers a height-1 BNode built from MAX identical frozen
// leaves: deep-balanced, and make_const is a pointer-stable no-op on already
// frozen children.
func TestScenarioC(t *testing.T) {
	Convey("Scenario C: BNode from MAX identical leaves", t, func() {
		p := scenarioParams()
		a := adapter.Dense[int]{}

		pattern := make([]int, p.S)
		for i := range pattern {
			pattern[i] = i
		}

		s := seq.New[int](p, a)
		s.Root().(*seq.Leaf[int]).Append(pattern, false)
		s.MakeConst()

		whole := s
		for i := 1; i < p.MAX; i++ {
			next := seq.New[int](p, a)
			next.Root().(*seq.Leaf[int]).Append(pattern, false)
			next.MakeConst()
			whole = whole.Concat(next)
		}

		So(whole.Height(), ShouldEqual, 1)
		So(whole.Len(), ShouldEqual, p.MAX*p.S)

		bn, ok := whole.Root().(*seq.BNode[int])
		So(ok, ShouldBeTrue)
		So(bn.IsDeepBalanced(true), ShouldBeTrue)

		tokens := make([]any, bn.ChildCount())
		for i := 0; i < bn.ChildCount(); i++ {
			tokens[i] = bn.ChildAt(i).(*seq.Leaf[int]).Token()
		}
		whole.MakeConst() // already frozen: must not disturb child identity
		for i := 0; i < bn.ChildCount(); i++ {
			So(bn.ChildAt(i).(*seq.Leaf[int]).Token(), ShouldEqual, tokens[i])
		}

		buf := make([]int, p.S)
		whole.Fill(buf, p.S, p.S)
		So(buf, ShouldResemble, pattern)
	})
}

// TestScenarioD covers an ANode round-trip: a windowed overlay shadows part
// of a frozen origin; fill reads the overlay where it applies and the
// origin elsewhere, and closing with allowAnnotatedRoot=false densifies to
// a plain tree with identical content.
func TestScenarioD(t *testing.T) {
	Convey("Scenario D: ANode round-trip", t, func() {
		p := scenarioParams()
		a := adapter.Dense[int]{}

		origin := seq.NewBNode[int](p, 1)
		for i := 0; i < p.MAX; i++ {
			l := seq.NewLeaf[int](p, a, nil)
			vals := make([]int, p.S)
			for j := range vals {
				vals[j] = i*100 + j
			}
			l.Append(vals, false)
			origin.AddNode(l, false)
		}
		origin.Freeze()

		an := seq.NewANode[int](p, a, origin)
		overlayVals := make([]int, p.S)
		for i := range overlayVals {
			overlayVals[i] = -1 - i
		}
		overlayLeaf := seq.NewLeaf[int](p, a, nil)
		overlayLeaf.Append(overlayVals, false)
		overlayLeaf.Freeze()

		err := an.AddNode(opt.Some[seq.Child[int]](overlayLeaf), 0, p.S, false)
		So(err, ShouldBeNil)
		err = an.AddNode(opt.None[seq.Child[int]](), p.S, origin.Len()-p.S, false)
		So(err, ShouldBeNil)

		So(an.Len(), ShouldEqual, origin.Len())
		for i := 0; i < p.S; i++ {
			So(an.Get(i), ShouldEqual, overlayVals[i])
		}
		for i := p.S; i < an.Len(); i++ {
			So(an.Get(i), ShouldEqual, origin.Get(i))
		}

		b := seq.NewBuilder[int](p, a)
		b.SetContext(nil)
		b.AddNode(an, 0, an.Len(), false)
		closed := b.Close(false)

		_, stillAnnotated := closed.(*seq.ANode[int])
		So(stillAnnotated, ShouldBeFalse)
		So(closed.Len(), ShouldEqual, an.Len())
		for i := 0; i < closed.Len(); i++ {
			So(closed.Get(i), ShouldEqual, an.Get(i))
		}
	})
}

// TestScenarioE covers insert-at-middle, as a DataFrame insertAt emulation:
// repeatedly splicing a single-element marker into the middle of a base
// sequence leaves every other element at its original value. Scaled down
// from the worked example's 5000/10 to keep the tree small; the property
// exercised is identical.
func TestScenarioE(t *testing.T) {
	Convey("Scenario E: insert-at-middle", t, func() {
		p := scenarioParams()
		a := adapter.Dense[int]{}

		const n = 400
		base := make([]int, n)
		for i := range base {
			base[i] = i
		}
		s := seq.New[int](p, a)
		for _, v := range base {
			one := seq.New[int](p, a)
			one.Root().(*seq.Leaf[int]).Append([]int{v}, false)
			s = s.Concat(one)
		}

		model := append([]int{}, base...)
		const inserts = 5
		pos := n / 2
		for k := 0; k < inserts; k++ {
			marker := seq.New[int](p, a)
			marker.Root().(*seq.Leaf[int]).Append([]int{-1}, false)

			left := s.Slice(0, pos)
			right := s.Slice(pos, s.Len()-pos)
			s = left.Concat(marker).Concat(right)

			model = append(append(append([]int{}, model[:pos]...), -1), model[pos:]...)
			pos += 7
		}

		So(s.Len(), ShouldEqual, n+inserts)

		buf := make([]int, s.Len())
		s.Fill(buf, 0, s.Len())
		So(buf, ShouldResemble, model)
	})
}

// TestScenarioF covers sparse-filter densification: selecting scattered
// elements out of a base sequence and concatenating just those together
// must reproduce exactly the selected values, densely packed, regardless of
// how sparse the selection was in the original.
func TestScenarioF(t *testing.T) {
	Convey("Scenario F: sparse filter densifies", t, func() {
		p := scenarioParams()
		a := adapter.Dense[int]{}

		const n = 500
		const step = 50
		s := seq.New[int](p, a)
		for i := 0; i < n; i++ {
			one := seq.New[int](p, a)
			one.Root().(*seq.Leaf[int]).Append([]int{i}, false)
			s = s.Concat(one)
		}
		s.MakeConst()

		var want []int
		filtered := seq.New[int](p, a)
		for i := 0; i < n; i += step {
			want = append(want, i)
			filtered = filtered.Concat(s.Slice(i, 1))
		}

		So(filtered.Len(), ShouldEqual, len(want))
		buf := make([]int, len(want))
		filtered.Fill(buf, 0, len(want))
		So(buf, ShouldResemble, want)

		Convey("the densified result is a plain tree, not an annotated one", func() {
			_, isANode := filtered.Root().(*seq.ANode[int])
			So(isANode, ShouldBeFalse)
		})
	})
}
