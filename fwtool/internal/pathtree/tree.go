// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pathtree groups symbols in a tree by the path of the source file
// they were defined in.
package pathtree

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/openhasp/fwtool/fwtool/internal/elfsym"
)

// Unknown is the segment of the branch that collects symbols without a
// known source file.
const Unknown = "?"

// Tree is a tree of path segments with symbols as leaves.
type Tree struct {
	root    *Node
	unknown *Node

	total    uint64
	hasTotal bool
}

// New returns a tree that contains the given symbols.
func New(syms ...*elfsym.Symbol) *Tree {
	t := &Tree{root: &Node{kind: KindRoot}}
	for _, s := range syms {
		t.Add(s)
	}
	return t
}

func (t *Tree) Root() *Node { return t.root }

// Add adds the symbol to the tree creating all missing path nodes.
func (t *Tree) Add(s *elfsym.Symbol) {
	leaf := &Node{kind: KindSymbol, sym: s}
	if s.File == "" {
		if t.unknown == nil {
			t.unknown = t.root.add(&Node{kind: KindPath, pathKind: Other, segment: Unknown})
		}
		t.unknown.add(leaf)
		return
	}
	if !filepath.IsAbs(s.File) {
		logrus.Warnf("symbol's path is not absolute: %s: %s", s, s.File)
	}
	n := t.root
	for _, seg := range Split(s.File) {
		c := n.pathChild(seg)
		if c == nil {
			c = n.add(&Node{kind: KindPath, pathKind: Dir, segment: seg})
		}
		n = c
	}
	n.pathKind = File
	n.add(leaf)
}

// Split splits the path into its segments. The root of an absolute path is
// the first segment, e.g. "/" or `C:\`.
func Split(path string) []string {
	path = filepath.Clean(path)
	vol := filepath.VolumeName(path)
	rest := path[len(vol):]
	var segs []string
	switch {
	case rest != "" && os.IsPathSeparator(rest[0]):
		segs = append(segs, vol+string(filepath.Separator))
		rest = rest[1:]
	case vol != "":
		segs = append(segs, vol)
	}
	for _, seg := range strings.Split(rest, string(filepath.Separator)) {
		if seg != "" {
			segs = append(segs, seg)
		}
	}
	return segs
}

// Walk calls fn for every node in pre-order. The root has depth 0.
func (t *Tree) Walk(fn func(n *Node, depth int)) {
	walk(t.root, 0, fn)
}

func walk(n *Node, depth int, fn func(*Node, int)) {
	fn(n, depth)
	for _, c := range n.children {
		walk(c, depth+1, fn)
	}
}

func postOrder(n *Node, fn func(*Node)) {
	for _, c := range n.children {
		postOrder(c, fn)
	}
	fn(n)
}

// MergePaths folds every path node that has exactly one child, being a path
// node too, into this child. The child takes the parent's place and its
// segment is prefixed with the parent's one. In fish mode the last
// component of the folded prefix is shortened to its first character.
func (t *Tree) MergePaths(fish bool) {
	mergePaths(t.root, fish)
}

func mergePaths(n *Node, fish bool) {
	for i, c := range n.children {
		for c.kind == KindPath && len(c.children) == 1 && c.children[0].kind == KindPath {
			gc := c.children[0]
			prefix := c.segment
			if fish {
				prefix = abbrev(prefix)
			}
			gc.segment = filepath.Join(prefix, gc.segment)
			gc.parent = n
			n.children[i] = gc
			c = gc
		}
		mergePaths(c, fish)
	}
}

func abbrev(p string) string {
	head, tail := filepath.Split(p)
	if _, n := utf8.DecodeRuneInString(tail); n > 0 {
		tail = tail[:n]
	}
	return filepath.Join(head, tail)
}

// ResetSizes forgets all accumulated sizes and the total size.
func (t *Tree) ResetSizes() {
	t.Walk(func(n *Node, _ int) {
		n.size, n.hasSize = 0, false
	})
	t.total, t.hasTotal = 0, false
}

// AccumulateSizes computes the cumulative size of every node from scratch.
func (t *Tree) AccumulateSizes() {
	t.ResetSizes()
	postOrder(t.root, func(n *Node) {
		if n.kind == KindSymbol {
			n.size = n.sym.Size
		}
		n.hasSize = true
		if p := n.parent; p != nil {
			p.size += n.size
		}
	})
}

// SymbolOrder selects the order of symbols with the same parent.
type SymbolOrder uint8

const (
	BySize SymbolOrder = iota // descending size
	ByName                    // ascending name
)

// Sort orders the children of every node that has more than one child:
// directories first, then files together with the unknown branch, then
// symbols. Path nodes are ordered by descending cumulative size or by name if
// sizes were not accumulated.
func (t *Tree) Sort(order SymbolOrder) {
	t.Walk(func(n *Node, _ int) {
		if len(n.children) > 1 {
			sortChildren(n, order)
		}
	})
}

func rank(n *Node) int {
	switch {
	case n.IsDir():
		return 0
	case n.IsFile(), n.IsOther():
		return 1
	}
	return 2
}

func sortChildren(n *Node, order SymbolOrder) {
	cs := n.children
	sort.SliceStable(cs, func(i, j int) bool {
		a, b := cs[i], cs[j]
		ra, rb := rank(a), rank(b)
		if ra != rb {
			return ra < rb
		}
		switch ra {
		case 0, 1:
			if a.hasSize && b.hasSize {
				return a.size > b.size
			}
			return a.segment < b.segment
		case 2:
			if order == ByName {
				return a.sym.Name < b.sym.Name
			}
			return a.sym.Size > b.sym.Size
		}
		return false
	})
}

// CalculateTotalSize sums the sizes of all symbols in the tree.
func (t *Tree) CalculateTotalSize() uint64 {
	var total uint64
	t.Walk(func(n *Node, _ int) {
		if n.kind == KindSymbol {
			total += n.sym.Size
		}
	})
	t.total, t.hasTotal = total, true
	return total
}

// TotalSize returns the value computed by CalculateTotalSize.
func (t *Tree) TotalSize() (uint64, bool) {
	return t.total, t.hasTotal
}

// Symbols returns the number of symbol leaves.
func (t *Tree) Symbols() int {
	n := 0
	t.Walk(func(nd *Node, _ int) {
		if nd.kind == KindSymbol {
			n++
		}
	})
	return n
}
