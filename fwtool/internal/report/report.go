// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package report renders symbol size trees and section lists as text
// tables.
package report

import (
	"bufio"
	"io"
	"math"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/openhasp/fwtool/fwtool/internal/pathtree"
)

const (
	colSep    = "   "
	minName   = len("Symbol")
	ellipsis  = "..."
	totalName = "Symbols total"
)

var tableHeaders = [3]string{"Symbol", "Size", "%"}

// Options control the rendering of a tree.
type Options struct {
	Header      string // banner title, a plain separator if empty
	MaxWidth    int    // maximum line width, 0 means unlimited
	MinSize     uint64 // symbols smaller than this are not printed
	FilesOnly   bool   // do not print symbols at all
	Human       bool   // sizes with binary prefixes
	Colors      bool
	Alternating bool // alternate the color of symbol lines
	Indent      int  // spaces per tree level, 2 if zero
	NoTrim      bool // do not truncate names that exceed the column
}

// Line is a rendered line of the report.
type Line struct {
	Text  string
	Style Style
	Node  *pathtree.Node // nil for heading lines
	Depth int

	fields [3]string
}

// Render produces the report lines for the tree: a heading (banner, column
// names, separator), one line per path and per symbol in pre-order and a
// footer with the total size if it was calculated.
func Render(t *pathtree.Tree, o Options) []Line {
	indent := o.Indent
	if indent <= 0 {
		indent = 2
	}
	minSize := o.MinSize
	if o.FilesOnly {
		minSize = math.MaxUint64
	}
	total, hasTotal := t.TotalSize()

	var lines []Line
	t.Walk(func(n *pathtree.Node, depth int) {
		if n.IsRoot() {
			return
		}
		depth--
		var size uint64
		sizeStr, pctStr := "-", "-"
		if n.IsSymbol() {
			size = n.Symbol().Size
			if size < minSize {
				return
			}
			sizeStr = sizeString(size, o.Human)
			if hasTotal {
				pctStr = percentString(size, total)
			}
		} else if cs, ok := n.CumulativeSize(); ok {
			sizeStr = sizeString(cs, o.Human)
			if hasTotal {
				pctStr = percentString(cs, total)
			}
		}
		lines = append(lines, Line{
			Node:   n,
			Depth:  depth,
			fields: [3]string{strings.Repeat(" ", indent*depth) + n.Name(), sizeStr, pctStr},
		})
	})

	widths := columnWidths(lines, o.MaxWidth)
	for i := range lines {
		l := &lines[i]
		if !o.NoTrim {
			for k, f := range l.fields {
				if runewidth.StringWidth(f) > widths[k] {
					l.fields[k] = runewidth.Truncate(f, widths[k], ellipsis)
				}
			}
		}
		l.Text = row(widths, l.fields, false)
	}

	out := heading(widths, o.Header)
	out = append(out, lines...)
	if hasTotal {
		out = append(out, footer(widths, sizeString(total, o.Human))...)
	}
	if o.Colors {
		colorize(out, o.Alternating)
	}
	return out
}

// columnWidths returns the widest field of every column, at least as wide
// as the column name. The name column shrinks so that the whole line fits in
// maxWidth.
func columnWidths(lines []Line, maxWidth int) (w [3]int) {
	for i, h := range tableHeaders {
		w[i] = len(h)
	}
	for _, l := range lines {
		for i, f := range l.fields {
			w[i] = max(w[i], runewidth.StringWidth(f))
		}
	}
	if maxWidth > 0 {
		sum := w[0] + w[1] + w[2] + 2*len(colSep)
		if sum > maxWidth {
			w[0] = max(w[0]-(sum-maxWidth), minName)
		}
	}
	return w
}

func padRight(s string, w int) string {
	if n := w - runewidth.StringWidth(s); n > 0 {
		return s + strings.Repeat(" ", n)
	}
	return s
}

func padLeft(s string, w int) string {
	if n := w - runewidth.StringWidth(s); n > 0 {
		return strings.Repeat(" ", n) + s
	}
	return s
}

// row formats the fields: name aligned to the left, numbers to the right,
// or all to the left for the column names.
func row(w [3]int, f [3]string, left bool) string {
	pad := padLeft
	if left {
		pad = padRight
	}
	return padRight(f[0], w[0]) + colSep + pad(f[1], w[1]) + colSep + pad(f[2], w[2])
}

func separator(n int) string { return strings.Repeat("=", n) }

// banner centers " title " on a separator of the given length.
func banner(n int, title string) string {
	sep := separator(n)
	if title == "" {
		return sep
	}
	h := " " + title + " "
	mid := n / 2
	before, after := (len(h)+1)/2, len(h)/2
	lo, hi := max(mid-before, 0), min(mid+after, n)
	return sep[:lo] + h + sep[hi:]
}

func heading(w [3]int, title string) []Line {
	cols := row(w, tableHeaders, true)
	n := runewidth.StringWidth(cols)
	return []Line{
		{Text: banner(n, title)},
		{Text: cols},
		{Text: separator(n)},
	}
}

func footer(w [3]int, total string) []Line {
	totals := row(w, [3]string{totalName, total, ""}, false)
	sep := separator(runewidth.StringWidth(totals))
	return []Line{{Text: sep}, {Text: totals}, {Text: sep}}
}

func colorize(lines []Line, alternating bool) {
	alt := false
	for i := range lines {
		l := &lines[i]
		switch n := l.Node; {
		case n == nil:
			l.Style = Heading
		case n.IsDir():
			l.Style = DirStyle
		case n.IsFile():
			l.Style = FileStyle
		case n.IsOther():
			l.Style = OtherStyle
		case n.IsSymbol():
			if alt && alternating {
				l.Style = SymbolAltStyle
				alt = false
			} else {
				l.Style = SymbolStyle
				alt = true
			}
		}
	}
}

// Print writes the lines to w.
func Print(w io.Writer, lines []Line) error {
	bw := bufio.NewWriter(w)
	for _, l := range lines {
		bw.WriteString(l.Style.Paint(l.Text))
		bw.WriteByte('\n')
	}
	return bw.Flush()
}
