// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package elfsym

import (
	"io"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Location is the place in the source code where a symbol was defined.
type Location struct {
	File string
	Line int
}

// FileInfo maps symbol names to their source locations.
type FileInfo map[string]Location

// NAME TYPE VALUE SIZE [FILE[:LINE]]
//
//	MemManage_Handler T 08004130 00000002	/some/path/file.c:80
var fileInfoRE = regexp.MustCompile(`^(\S+)\s+(\S+)\s+([0-9a-fA-F]+)\s+([0-9a-fA-F]+)(.*)$`)

// ParseFileInfo parses a single line of the `nm --portability --line-numbers`
// output. It returns the symbol name and its location, which is zero if nm
// did not report one.
func ParseFileInfo(line string) (string, Location, bool) {
	line = strings.TrimRight(line, "\r\n")
	m := fileInfoRE.FindStringSubmatch(line)
	if m == nil {
		return "", Location{}, false
	}
	return m[1], parseLocation(strings.TrimSpace(m[5])), true
}

func parseLocation(s string) (loc Location) {
	if s == "" {
		return
	}
	file := s
	if i := strings.LastIndexByte(s, ':'); i >= 0 {
		if n, err := strconv.Atoi(s[i+1:]); err == nil {
			file, loc.Line = s[:i], n
		}
	}
	if file != "" {
		loc.File = filepath.Clean(file)
	}
	return
}

// ReadFileInfo parses the whole `nm --portability --line-numbers` report read
// from r. For duplicate names the last entry wins.
func ReadFileInfo(r io.Reader) (FileInfo, error) {
	fi := make(FileInfo)
	sc := newScanner(r)
	for sc.Scan() {
		if name, loc, ok := ParseFileInfo(sc.Text()); ok {
			fi[name] = loc
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "reading file info")
	}
	return fi, nil
}

// Attach sets the File and Line fields of the symbols that have an entry in
// fi. Of several symbols sharing a name only the last one gets the location,
// the others stay without a file. Entries without a location are skipped,
// entries that do not name any of the symbols are reported as warnings. It
// returns the number of symbols updated.
func (fi FileInfo) Attach(syms []*Symbol) int {
	byName := make(map[string]*Symbol, len(syms))
	for _, s := range syms {
		byName[s.Name] = s
	}
	n := 0
	for name, loc := range fi {
		if loc == (Location{}) {
			continue
		}
		s, ok := byName[name]
		if !ok {
			logrus.Warnf("nm found fileinfo for symbol %q, which has not been found by readelf", name)
			continue
		}
		s.File, s.Line = loc.File, loc.Line
		n++
	}
	return n
}
