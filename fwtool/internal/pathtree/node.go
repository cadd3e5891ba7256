// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pathtree

import "github.com/openhasp/fwtool/fwtool/internal/elfsym"

// Kind tells what a Node holds.
type Kind uint8

const (
	KindRoot Kind = iota
	KindPath
	KindSymbol
)

func (k Kind) String() string {
	switch k {
	case KindRoot:
		return "root"
	case KindPath:
		return "path"
	case KindSymbol:
		return "symbol"
	}
	return "invalid"
}

// PathKind classifies path nodes.
type PathKind uint8

const (
	Dir   PathKind = iota
	File           // last segment of a symbol's source path
	Other          // synthetic segments, like the unknown branch
)

// Node is a node of the tree: the root, a path segment or a symbol.
type Node struct {
	kind     Kind
	pathKind PathKind
	segment  string
	sym      *elfsym.Symbol

	parent   *Node
	children []*Node

	size    uint64
	hasSize bool
}

func (n *Node) Kind() Kind        { return n.kind }
func (n *Node) Parent() *Node     { return n.parent }
func (n *Node) Children() []*Node { return n.children }
func (n *Node) Len() int          { return len(n.children) }

func (n *Node) IsRoot() bool   { return n.kind == KindRoot }
func (n *Node) IsPath() bool   { return n.kind == KindPath }
func (n *Node) IsSymbol() bool { return n.kind == KindSymbol }
func (n *Node) IsDir() bool    { return n.kind == KindPath && n.pathKind == Dir }
func (n *Node) IsFile() bool   { return n.kind == KindPath && n.pathKind == File }
func (n *Node) IsOther() bool  { return n.kind == KindPath && n.pathKind == Other }

// PathKind returns the classification of a path node.
func (n *Node) PathKind() PathKind {
	n.must(KindPath)
	return n.pathKind
}

// Segment returns the path segment of a path node. Merged nodes hold a
// multi-segment path.
func (n *Node) Segment() string {
	n.must(KindPath)
	return n.segment
}

// Symbol returns the symbol of a symbol node.
func (n *Node) Symbol() *elfsym.Symbol {
	n.must(KindSymbol)
	return n.sym
}

// Name returns the segment of a path node, the symbol name of a symbol node
// and an empty string for the root.
func (n *Node) Name() string {
	switch n.kind {
	case KindPath:
		return n.segment
	case KindSymbol:
		return n.sym.Name
	}
	return ""
}

// CumulativeSize returns the sum of sizes of all symbols below n (the symbol
// size for symbol nodes). The second result is false if the sizes were not
// accumulated.
func (n *Node) CumulativeSize() (uint64, bool) {
	return n.size, n.hasSize
}

func (n *Node) must(k Kind) {
	if n.kind != k {
		panic("pathtree: " + n.kind.String() + " node used as " + k.String())
	}
}

func (n *Node) add(c *Node) *Node {
	c.parent = n
	n.children = append(n.children, c)
	return c
}

// pathChild returns the dir or file child with the given segment or nil.
func (n *Node) pathChild(seg string) *Node {
	var found *Node
	for _, c := range n.children {
		if c.kind == KindPath && c.pathKind != Other && c.segment == seg {
			if found != nil {
				panic("pathtree: duplicate segment " + seg)
			}
			found = c
		}
	}
	return found
}
