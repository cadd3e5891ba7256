// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pathtree_test

import (
	"fmt"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/openhasp/fwtool/fwtool/internal/elfsym"
	"github.com/openhasp/fwtool/fwtool/internal/pathtree"
)

func sym(name, file string, size uint64) *elfsym.Symbol {
	return &elfsym.Symbol{Name: name, File: file, Size: size}
}

// dump renders the tree as indented "name size" lines.
func dump(t *pathtree.Tree) string {
	var b strings.Builder
	t.Walk(func(n *pathtree.Node, depth int) {
		if n.IsRoot() {
			return
		}
		b.WriteString(strings.Repeat("  ", depth-1))
		b.WriteString(n.Name())
		if size, ok := n.CumulativeSize(); ok {
			fmt.Fprintf(&b, " %d", size)
		}
		b.WriteByte('\n')
	})
	return b.String()
}

var _ = DescribeTable("Split",
	func(path string, want []string) {
		Expect(pathtree.Split(path)).To(Equal(want))
	},
	Entry("absolute", "/x/y.c", []string{"/", "x", "y.c"}),
	Entry("unclean", "/x//z/../y.c", []string{"/", "x", "y.c"}),
	Entry("relative", "src/main.cpp", []string{"src", "main.cpp"}),
	Entry("root", "/", []string{"/"}),
)

var _ = Describe("Tree", func() {
	It("groups symbols by path and compacts single-child chains", func() {
		t := pathtree.New(sym("a", "/x/y.c", 10), sym("b", "/x/z.c", 20))
		t.MergePaths(false)
		t.AccumulateSizes()

		root := t.Root()
		Expect(root.Children()).To(HaveLen(1))
		x := root.Children()[0]
		Expect(x.Segment()).To(Equal("/x"))
		Expect(x.IsDir()).To(BeTrue())
		size, ok := x.CumulativeSize()
		Expect(ok).To(BeTrue())
		Expect(size).To(Equal(uint64(30)))
		Expect(x.Children()).To(HaveLen(2))
		for _, f := range x.Children() {
			Expect(f.IsFile()).To(BeTrue())
			Expect(f.Children()).To(HaveLen(1))
			Expect(f.Children()[0].IsSymbol()).To(BeTrue())
		}
	})

	It("routes symbols without a file to the unknown branch only", func() {
		t := pathtree.New(sym("a", "/x/y.c", 1), sym("orphan", "", 2))
		var parents []string
		t.Walk(func(n *pathtree.Node, _ int) {
			if n.IsSymbol() && n.Symbol().Name == "orphan" {
				parents = append(parents, n.Parent().Segment())
			}
		})
		Expect(parents).To(Equal([]string{pathtree.Unknown}))
		Expect(t.Root().Children()[1].IsOther()).To(BeTrue())
	})

	It("does not create the unknown branch when every symbol has a file", func() {
		t := pathtree.New(sym("a", "/x/y.c", 1))
		t.Walk(func(n *pathtree.Node, _ int) {
			Expect(n.IsOther()).To(BeFalse())
		})
	})

	It("keeps a relative ? directory apart from the unknown branch", func() {
		t := pathtree.New(sym("a", "?/y.c", 1), sym("b", "", 2))
		Expect(t.Root().Children()).To(HaveLen(2))
	})

	It("compacts idempotently", func() {
		t := pathtree.New(
			sym("a", "/home/user/fw/src/main.cpp", 5),
			sym("b", "/home/user/fw/src/wifi.cpp", 7),
			sym("c", "/home/user/fw/lib/lv/lv_obj.c", 9),
			sym("d", "", 1),
		)
		t.MergePaths(false)
		once := dump(t)
		t.MergePaths(false)
		Expect(dump(t)).To(Equal(once))
		Expect(once).To(Equal(strings.Join([]string{
			"/home/user/fw",
			"  src",
			"    main.cpp",
			"      a",
			"    wifi.cpp",
			"      b",
			"  lib/lv/lv_obj.c",
			"    c",
			"?",
			"  d",
			"",
		}, "\n")))
	})

	It("abbreviates folded segments in fish mode", func() {
		t := pathtree.New(
			sym("a", "/home/user/fw/src/main.cpp", 5),
			sym("b", "/home/user/fw/src/wifi.cpp", 7),
		)
		t.MergePaths(true)
		Expect(t.Root().Children()[0].Segment()).To(Equal("/h/u/f/src"))
	})

	It("keeps the root size invariant under compaction", func() {
		t := pathtree.New(sym("a", "/a/b/c.c", 3), sym("b", "/a/d.c", 4), sym("c", "", 5))
		t.AccumulateSizes()
		before, _ := t.Root().CumulativeSize()
		t.MergePaths(false)
		t.AccumulateSizes()
		after, _ := t.Root().CumulativeSize()
		Expect(before).To(Equal(uint64(12)))
		Expect(after).To(Equal(before))
		Expect(t.CalculateTotalSize()).To(Equal(before))
		total, ok := t.TotalSize()
		Expect(ok).To(BeTrue())
		Expect(total).To(Equal(before))
		Expect(t.Symbols()).To(Equal(3))
	})

	It("recomputes sizes from scratch", func() {
		t := pathtree.New(sym("a", "/a.c", 3))
		t.AccumulateSizes()
		t.AccumulateSizes()
		size, _ := t.Root().CumulativeSize()
		Expect(size).To(Equal(uint64(3)))

		t.ResetSizes()
		_, ok := t.Root().CumulativeSize()
		Expect(ok).To(BeFalse())
		_, ok = t.TotalSize()
		Expect(ok).To(BeFalse())
	})

	DescribeTable("Sort",
		func(accumulate bool, order pathtree.SymbolOrder, want string) {
			t := pathtree.New(
				sym("small", "/p/f.c", 1),
				sym("big", "/p/f.c", 9),
				sym("mid", "/p/f.c", 5),
				sym("z", "/p/a.c", 2),
				sym("sub", "/p/d/x.c", 3),
				sym("orphan", "", 4),
				sym("m1", "/p/f.c", 5),
			)
			if accumulate {
				t.AccumulateSizes()
			}
			t.Sort(order)
			var b strings.Builder
			t.Walk(func(n *pathtree.Node, depth int) {
				if !n.IsRoot() {
					b.WriteString(strings.Repeat(" ", depth-1) + n.Name() + "\n")
				}
			})
			Expect(b.String()).To(Equal(want))

			// Sorting again with the same key changes nothing.
			before := dump(t)
			t.Sort(order)
			Expect(dump(t)).To(Equal(before))
		},
		Entry("by size", true, pathtree.BySize,
			"/\n p\n  d\n   x.c\n    sub\n  f.c\n   big\n   mid\n   m1\n   small\n  a.c\n   z\n?\n orphan\n"),
		Entry("by name without sizes", false, pathtree.ByName,
			"/\n p\n  d\n   x.c\n    sub\n  a.c\n   z\n  f.c\n   big\n   m1\n   mid\n   small\n?\n orphan\n"),
	)

	DescribeTable("Sort of the unknown branch among root files",
		func(accumulate bool, want string) {
			t := pathtree.New(
				sym("small", "rel.c", 1),
				sym("orphan", "", 4),
				sym("top", "/abs/x.c", 2),
				sym("big", "zz.c", 9),
			)
			if accumulate {
				t.AccumulateSizes()
			}
			t.Sort(pathtree.BySize)
			var names []string
			for _, c := range t.Root().Children() {
				names = append(names, c.Name())
			}
			Expect(strings.Join(names, " ")).To(Equal(want))
		},
		Entry("by size", true, "/ zz.c ? rel.c"),
		Entry("by name without sizes", false, "/ ? rel.c zz.c"),
	)

	It("panics when a node is used as another kind", func() {
		t := pathtree.New(sym("a", "", 1))
		Expect(func() { t.Root().Segment() }).To(Panic())
		Expect(func() { t.Root().Children()[0].Symbol() }).To(Panic())
	})
})
