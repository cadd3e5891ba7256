// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package util

import (
	"debug/elf"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// Segment is a piece of a flash image placed at a physical address.
type Segment struct {
	Name   string // file or ELF section name, used in error messages
	Vaddr  uint64 // address in the memory during execution
	Paddr  uint64 // physical location of the data in the Flash
	Offset uint64 // offset in the ELF file to the beginning of the data
	Data   []byte
}

// End returns the first address past the segment.
func (s *Segment) End() uint64 { return s.Paddr + uint64(len(s.Data)) }

type Segments []*Segment

// ReadELF reads the loadable sections of the program and returns them as
// a slice. The order of the returned segments is unspecified.
func ReadELF(fs afero.Fs, name string) (Segments, error) {
	r, err := fs.Open(name)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	f, err := elf.NewFile(r)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", name)
	}
	defer f.Close()
	ss := make(Segments, 0, 16)
	for _, s := range f.Sections {
		if s.Type != elf.SHT_PROGBITS || s.Flags&elf.SHF_ALLOC == 0 {
			continue
		}
		data, err := s.Data()
		if err != nil {
			return nil, errors.Wrapf(err, "section %s", s.Name)
		}
		if len(data) == 0 {
			continue
		}
		paddr := ^uint64(0)
		for _, p := range f.Progs {
			if p.Type != elf.PT_LOAD {
				continue
			}
			if p.Off <= s.Offset && s.Offset < p.Off+p.Filesz {
				paddr = p.Paddr + s.Offset - p.Off
				break
			}
		}
		if paddr == ^uint64(0) {
			logrus.Warnf("%s: section %s is not covered by a loadable segment", name, s.Name)
			continue
		}
		ss = append(ss, &Segment{s.Name, s.Addr, paddr, s.Offset, data})
	}
	return ss, nil
}

// ParseBin parses a single "BIN:ADDR" include description.
func ParseBin(ba string) (bin string, addr uint64, err error) {
	i := strings.LastIndexByte(ba, ':')
	if i <= 0 {
		return "", 0, errors.Errorf("bad '%s' include, want BIN:ADDR", ba)
	}
	bin = ba[:i]
	addr, err = strconv.ParseUint(ba[i+1:], 0, 64)
	if err != nil {
		return "", 0, errors.Wrapf(err, "bad address in '%s'", ba)
	}
	return bin, addr, nil
}

// ReadBin reads a binary file that should be placed at addr.
func ReadBin(fs afero.Fs, bin string, addr uint64) (*Segment, error) {
	data, err := afero.ReadFile(fs, bin)
	if err != nil {
		return nil, err
	}
	return &Segment{Name: bin, Paddr: addr, Data: data}, nil
}

// ReadBins reads binary files according to the description
// BIN1:ADDR1[,BIN2:ADDR2[,...]] and returns them as a slice of segments.
func ReadBins(fs afero.Fs, descr string) (Segments, error) {
	bins := strings.Split(descr, ",")
	ss := make(Segments, len(bins))
	for k, ba := range bins {
		bin, addr, err := ParseBin(ba)
		if err != nil {
			return nil, err
		}
		if ss[k], err = ReadBin(fs, bin, addr); err != nil {
			return nil, err
		}
	}
	return ss, nil
}

// Size returns the total number of data bytes in all segments.
func (ss Segments) Size() int {
	n := 0
	for _, s := range ss {
		n += len(s.Data)
	}
	return n
}

// SortByPaddr sorts segments according to the Paddr field.
func (ss Segments) SortByPaddr() {
	sort.SliceStable(
		ss,
		func(i, j int) bool {
			return ss[i].Paddr < ss[j].Paddr
		},
	)
}

// CheckOverlap sorts the segments by Paddr and reports the first pair of
// overlapping ones.
func (ss Segments) CheckOverlap() error {
	ss.SortByPaddr()
	for i := 1; i < len(ss); i++ {
		if p, s := ss[i-1], ss[i]; s.Paddr < p.End() {
			return errors.Errorf(
				"%s [%#x,%#x) overlaps %s at %#x",
				p.Name, p.Paddr, p.End(), s.Name, s.Paddr,
			)
		}
	}
	return nil
}

// Flatten flattens segments by writing their data to the provided io.Writer
// according to the Paddr field (before writing the segments are sorted using
// SortByPaddr method). The gaps between segments are filled using the pad
// byte.
func (ss Segments) Flatten(w io.Writer, pad byte) (n int, err error) {
	if len(ss) == 0 {
		return
	}
	if err = ss.CheckOverlap(); err != nil {
		err = errors.Wrap(err, "flatten")
		return
	}
	pa := ss[0].Paddr
	n, err = w.Write(ss[0].Data)
	if err != nil {
		return
	}
	pa += uint64(n)
	var padCache []byte
	for _, s := range ss[1:] {
		m := int(s.Paddr - pa)
		if m != 0 {
			m, err = w.Write(PadBytes(&padCache, m, pad))
			n += m
			if err != nil {
				return
			}
			pa += uint64(m)
		}
		m, err = w.Write(s.Data)
		n += m
		if err != nil {
			return
		}
		pa += uint64(m)
	}
	return
}

// PadBytes returns the slice containing n bytes equal b.
func PadBytes(cache *[]byte, n int, b byte) []byte {
	if len(*cache) < n {
		*cache = make([]byte, n)
		for i := range *cache {
			(*cache)[i] = b
		}
	}
	return (*cache)[:n]
}
