// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package elfsym parses the textual reports produced by the binutils readelf
// and nm programs: the symbol table, the section header table and the
// symbol to source location mapping.
package elfsym

import (
	"bufio"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Ndx is the section a symbol is defined in: an index into the section
// header table or a special name like UND, ABS or COM.
type Ndx struct {
	Index   int
	Special string
}

// IsIndex reports whether n refers to a section header by index.
func (n Ndx) IsIndex() bool { return n.Special == "" }

func (n Ndx) String() string {
	if n.IsIndex() {
		return strconv.Itoa(n.Index)
	}
	return n.Special
}

func parseNdx(s string) Ndx {
	if i, err := strconv.Atoi(s); err == nil {
		return Ndx{Index: i}
	}
	return Ndx{Special: s}
}

// Symbol is a linker symbol as reported by readelf, optionally completed with
// the source location reported by nm.
type Symbol struct {
	Num   int
	Name  string
	Value uint64
	Size  uint64
	Type  string
	Bind  string
	Vis   string
	Ndx   Ndx

	File string // empty if unknown
	Line int    // 0 if unknown
}

func (s *Symbol) String() string { return "Symbol(" + s.Name + ")" }

// DefaultIgnoredTypes lists the symbol types that do not describe code or
// data.
var DefaultIgnoredTypes = []string{"NOTYPE", "SECTION", "FILE"}

// SymbolFilter decides which of the parsed symbols are kept.
type SymbolFilter struct {
	IgnoredTypes []string // compared case-insensitively
	KeepZeroSize bool
}

// DefaultSymbolFilter returns the filter used when nothing else is requested.
func DefaultSymbolFilter() SymbolFilter {
	return SymbolFilter{IgnoredTypes: DefaultIgnoredTypes}
}

func (f SymbolFilter) keep(s *Symbol) bool {
	if strings.TrimSpace(s.Name) == "" {
		return false
	}
	for _, t := range f.IgnoredTypes {
		if strings.EqualFold(t, s.Type) {
			return false
		}
	}
	return f.KeepZeroSize || s.Size != 0
}

// NUM: VALUE SIZE TYPE BIND VIS NDX NAME
//
//	565: 08002bf9     2 FUNC    WEAK   DEFAULT    2 TIM2_IRQHandler
var symbolRE = regexp.MustCompile(
	`^\s*(\d+):\s+([0-9a-fA-F]+)\s+([0-9]+)\s+(\S+)\s+(\S+)\s+(\S+)\s+(\S+)\s+(.*)$`,
)

// ParseSymbol parses a single line of the `readelf --wide --syms` output.
// It returns false if the line does not describe a symbol or if the symbol
// is rejected by the filter. The symbol value is hexadecimal while the size
// is decimal.
func ParseSymbol(line string, f SymbolFilter) (*Symbol, bool) {
	line = strings.TrimRight(line, "\r\n")
	m := symbolRE.FindStringSubmatch(line)
	if m == nil {
		logrus.Debugf("no match: %s", strings.TrimSpace(line))
		return nil, false
	}
	num, err1 := strconv.Atoi(m[1])
	value, err2 := strconv.ParseUint(m[2], 16, 64)
	size, err3 := strconv.ParseUint(m[3], 10, 64)
	if err1 != nil || err2 != nil || err3 != nil {
		logrus.Debugf("no match: %s", strings.TrimSpace(line))
		return nil, false
	}
	s := &Symbol{
		Num:   num,
		Value: value,
		Size:  size,
		Type:  m[4],
		Bind:  m[5],
		Vis:   m[6],
		Ndx:   parseNdx(m[7]),
		Name:  m[8],
	}
	if !f.keep(s) {
		logrus.Debugf("ignoring: %s", strings.TrimSpace(line))
		return nil, false
	}
	return s, true
}

// Stats counts the lines seen by ReadSymbols.
type Stats struct {
	Parsed  int // symbols returned
	Ignored int // lines that did not produce a symbol
}

// ReadSymbols parses the whole `readelf --wide --syms` report read from r.
func ReadSymbols(r io.Reader, f SymbolFilter) ([]*Symbol, Stats, error) {
	var (
		syms  []*Symbol
		stats Stats
	)
	sc := newScanner(r)
	for sc.Scan() {
		if s, ok := ParseSymbol(sc.Text(), f); ok {
			syms = append(syms, s)
			stats.Parsed++
		} else {
			stats.Ignored++
		}
	}
	if err := sc.Err(); err != nil {
		return nil, stats, errors.Wrap(err, "reading symbols")
	}
	return syms, stats, nil
}

// C++ template instantiations easily exceed the default token size.
const maxLine = 1 << 20

func newScanner(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)
	return sc
}
