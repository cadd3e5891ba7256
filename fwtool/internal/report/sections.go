// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package report

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/olekukonko/tablewriter"

	"github.com/openhasp/fwtool/fwtool/internal/elfsym"
)

// Sections renders the section header table: number, name, type, address,
// human readable size and flag names. Addresses and sizes are aligned to the
// right, everything else to the left.
func Sections(ss []*elfsym.Section, colors bool) []Line {
	var buf bytes.Buffer
	tw := tablewriter.NewWriter(&buf)
	tw.SetHeader([]string{"N", "Name", "Type", "Addr", "Size", "Flags"})
	tw.SetAutoFormatHeaders(false)
	tw.SetAutoWrapText(false)
	tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	tw.SetColumnAlignment([]int{
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_LEFT,
	})
	tw.SetBorder(false)
	tw.SetHeaderLine(false)
	tw.SetColumnSeparator("")
	tw.SetCenterSeparator("")
	tw.SetRowSeparator("")
	tw.SetTablePadding(colSep)
	tw.SetNoWhiteSpace(true)
	for _, s := range ss {
		tw.Append([]string{
			strconv.Itoa(s.Num),
			s.Name,
			s.Type,
			"0x" + strconv.FormatUint(s.Addr, 16),
			paddedHumanSize(s.Size),
			strings.Join(s.Flags.Names(), ","),
		})
	}
	tw.Render()

	rows := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	width := 0
	for i, r := range rows {
		rows[i] = strings.TrimRight(r, " ")
		width = max(width, runewidth.StringWidth(rows[i]))
	}
	sep := separator(width)
	lines := []Line{{Text: banner(width, "SECTIONS")}, {Text: rows[0]}, {Text: sep}}
	for _, r := range rows[1:] {
		lines = append(lines, Line{Text: r})
	}
	lines = append(lines, Line{Text: sep})
	if colors {
		for _, i := range []int{0, 1, 2, len(lines) - 1} {
			lines[i].Style = Bold
		}
	}
	return lines
}
