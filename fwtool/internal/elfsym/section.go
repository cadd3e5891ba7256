// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package elfsym

import (
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Section header flags as printed by readelf.
const (
	FlagWrite      = 'W'
	FlagAlloc      = 'A'
	FlagExec       = 'X'
	FlagMerge      = 'M'
	FlagStrings    = 'S'
	FlagInfo       = 'I'
	FlagLinkOrder  = 'L'
	FlagOSNonconf  = 'O'
	FlagGroup      = 'G'
	FlagTLS        = 'T'
	FlagCompressed = 'C'
	FlagUnknown    = 'x'
	FlagOS         = 'o'
	FlagExclude    = 'E'
	FlagPureCode   = 'y'
	FlagProcessor  = 'p'
)

var flagNames = map[rune]string{
	FlagWrite:      "WRITE",
	FlagAlloc:      "ALLOC",
	FlagExec:       "EXECUTE",
	FlagMerge:      "MERGE",
	FlagStrings:    "STRINGS",
	FlagInfo:       "INFO",
	FlagLinkOrder:  "LINK_ORDER",
	FlagOSNonconf:  "OS_NONCONFORMING",
	FlagGroup:      "GROUP",
	FlagTLS:        "TLS",
	FlagCompressed: "COMPRESSED",
	FlagUnknown:    "UNKNOWN",
	FlagOS:         "OS_SPECIFIC",
	FlagExclude:    "EXCLUDE",
	FlagPureCode:   "PURECODE",
	FlagProcessor:  "PROCESSOR_SPECIFIC",
}

// Flags is the set of section flag characters, e.g. "WAX".
type Flags string

func (f Flags) Has(flag rune) bool { return strings.ContainsRune(string(f), flag) }

// Names returns the display names of the flags in f. Unknown characters are
// returned as they are.
func (f Flags) Names() []string {
	names := make([]string, 0, len(f))
	for _, c := range f {
		if n, ok := flagNames[c]; ok {
			names = append(names, n)
		} else {
			names = append(names, string(c))
		}
	}
	return names
}

// Section is an entry of the section header table.
type Section struct {
	Num     int
	Name    string
	Type    string
	Addr    uint64
	Offset  uint64
	Size    uint64
	EntSize uint64
	Flags   Flags
	Link    int
	Info    int
	Align   int
}

// ReadOnly reports whether the section is not writable.
func (s *Section) ReadOnly() bool {
	return s != nil && !s.Flags.Has(FlagWrite)
}

// OccupiesMemory reports whether the section is allocated in the target
// memory.
func (s *Section) OccupiesMemory() bool {
	return s != nil && s.Flags.Has(FlagAlloc)
}

// OccupiesROM reports whether the section contributes to the flash image.
func (s *Section) OccupiesROM() bool {
	return s.OccupiesMemory() && s.Type != "NOBITS"
}

// OccupiesRAM reports whether the section takes up writable memory.
func (s *Section) OccupiesRAM() bool {
	return s.OccupiesMemory() && !s.ReadOnly()
}

// [NUM] NAME TYPE ADDRESS OFFSET SIZE ENTSIZE FLAGS LINK INFO ALIGN
//
//	[ 2] .text  PROGBITS  08000190 010190 0036ac 00  AX  0   0  4
var sectionRE = regexp.MustCompile(
	`^\s*\[\s*(\d+)\]\s+(\S+)\s+(\S+)\s+([0-9a-fA-F]+)\s+([0-9a-fA-F]+)\s+([0-9a-fA-F]+)\s+([0-9a-fA-F]+)\s+(\S*)\s+([0-9a-fA-F]+)\s+([0-9a-fA-F]+)\s+([0-9a-fA-F]+)\s*$`,
)

// ParseSection parses a single line of the `readelf --wide --section-headers`
// output. Address, offset, size and entry size are hexadecimal, link, info
// and alignment are decimal.
func ParseSection(line string) (*Section, bool) {
	line = strings.TrimRight(line, "\r\n")
	m := sectionRE.FindStringSubmatch(line)
	if m == nil {
		logrus.Debugf("no match: %s", strings.TrimSpace(line))
		return nil, false
	}
	var p numParser
	s := &Section{
		Num:     p.dec(m[1]),
		Name:    m[2],
		Type:    m[3],
		Addr:    p.hex(m[4]),
		Offset:  p.hex(m[5]),
		Size:    p.hex(m[6]),
		EntSize: p.hex(m[7]),
		Flags:   Flags(m[8]),
		Link:    p.dec(m[9]),
		Info:    p.dec(m[10]),
		Align:   p.dec(m[11]),
	}
	if p.err != nil {
		logrus.Debugf("no match: %s: %v", strings.TrimSpace(line), p.err)
		return nil, false
	}
	return s, true
}

// ReadSections parses the whole `readelf --wide --section-headers` report
// read from r.
func ReadSections(r io.Reader) ([]*Section, error) {
	var ss []*Section
	sc := newScanner(r)
	for sc.Scan() {
		if s, ok := ParseSection(sc.Text()); ok {
			ss = append(ss, s)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "reading sections")
	}
	return ss, nil
}

// Index maps section numbers to sections.
func Index(ss []*Section) map[int]*Section {
	m := make(map[int]*Section, len(ss))
	for _, s := range ss {
		m[s.Num] = s
	}
	return m
}

// numParser remembers the first conversion error.
type numParser struct{ err error }

func (p *numParser) hex(s string) uint64 {
	v, err := strconv.ParseUint(s, 16, 64)
	if p.err == nil {
		p.err = err
	}
	return v
}

func (p *numParser) dec(s string) int {
	v, err := strconv.Atoi(s)
	if p.err == nil {
		p.err = err
	}
	return v
}
