// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package report

import "github.com/fatih/color"

// Style selects the color of a report line.
type Style uint8

const (
	Plain Style = iota
	Bold
	Heading
	DirStyle
	FileStyle
	OtherStyle
	SymbolStyle
	SymbolAltStyle
)

// The output is colored even if it is not a terminal, as long as colors were
// requested.
var styles = map[Style]*color.Color{
	Bold:           color.New(color.Bold),
	Heading:        color.New(color.Bold, color.FgBlue),
	DirStyle:       color.New(color.FgBlue),
	FileStyle:      color.New(color.FgHiBlue),
	OtherStyle:     color.New(color.FgHiBlue),
	SymbolStyle:    color.New(color.FgHiYellow),
	SymbolAltStyle: color.New(color.FgHiGreen),
}

func init() {
	for _, c := range styles {
		c.EnableColor()
	}
}

// Paint returns s wrapped in the escape codes of the style.
func (st Style) Paint(s string) string {
	if c, ok := styles[st]; ok {
		return c.Sprint(s)
	}
	return s
}
