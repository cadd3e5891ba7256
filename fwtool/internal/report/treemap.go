// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package report

import (
	"fmt"
	"image/color"
	"io"
	"strconv"

	"github.com/nikolaydubina/go-binsize-treemap/fmtbytecount"
	"github.com/nikolaydubina/treemap"
	"github.com/nikolaydubina/treemap/render"

	"github.com/openhasp/fwtool/fwtool/internal/pathtree"
)

// TreemapOptions describe the SVG canvas.
type TreemapOptions struct {
	Width, Height float64
	Margin        float64 // between boxes
	Padding       float64 // between box border and content
	RootPadding   float64 // around the root box
}

var DefaultTreemapOptions = TreemapOptions{
	Width:       1024,
	Height:      1024,
	Margin:      4,
	Padding:     4,
	RootPadding: 16,
}

var borderGrey = color.RGBA{128, 128, 128, 255}

// Treemap converts the tree into a treemap tree with the given root title.
// Node sizes are the symbol sizes summed up the paths. Node names carry the
// size.
func Treemap(t *pathtree.Tree, title string) treemap.Tree {
	tm := treemap.Tree{
		Nodes: make(map[string]treemap.Node),
		To:    make(map[string][]string),
		Root:  title,
	}
	labels := map[string]string{title: title}
	keys := map[*pathtree.Node]string{t.Root(): title}
	t.Walk(func(n *pathtree.Node, _ int) {
		if n.IsRoot() {
			return
		}
		parent := keys[n.Parent()]
		key := parent + "/" + n.Name()
		for i := 1; ; i++ {
			if _, dup := labels[key]; !dup {
				break
			}
			key = parent + "/" + n.Name() + "#" + strconv.Itoa(i)
		}
		keys[n] = key
		labels[key] = n.Name()
		tm.To[parent] = append(tm.To[parent], key)
		if n.IsSymbol() {
			tm.Nodes[key] = treemap.Node{Path: key, Size: float64(n.Symbol().Size)}
		}
	})
	treemap.SumSizeImputer{EmptyLeafSize: 0}.ImputeSize(tm)
	for key, n := range tm.Nodes {
		v, unit := fmtbytecount.ByteCountIEC(uint(n.Size))
		n.Name = fmt.Sprintf("%s %.2f%sB", labels[key], v, unit)
		if unit == "B" {
			n.Name = fmt.Sprintf("%s %.0fB", labels[key], v)
		}
		tm.Nodes[key] = n
	}
	return tm
}

// WriteTreemap writes the tree as an SVG treemap.
func WriteTreemap(w io.Writer, t *pathtree.Tree, title string, o TreemapOptions) error {
	tm := Treemap(t, title)
	b := render.UITreeMapBuilder{
		Colorer:     render.NoneColorer{},
		BorderColor: borderGrey,
	}
	box := b.NewUITreeMap(tm, o.Width, o.Height, o.Margin, o.Padding, o.RootPadding)
	_, err := w.Write(render.SVGRenderer{}.Render(box, o.Width, o.Height))
	return err
}
