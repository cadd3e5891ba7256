// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package util

import (
	"io"

	"github.com/marcinbor85/gohex"
	"github.com/pkg/errors"
)

// HexLineLen is the number of data bytes in an Intel HEX record.
const HexLineLen = 16

// WriteHex writes the segments in the Intel HEX format.
func (ss Segments) WriteHex(w io.Writer) error {
	if err := ss.CheckOverlap(); err != nil {
		return errors.Wrap(err, "hex")
	}
	mem := gohex.NewMemory()
	for _, s := range ss {
		if len(s.Data) == 0 {
			continue
		}
		if s.End() > 1<<32 {
			return errors.Errorf("hex: %s at %#x does not fit in 32-bit address space", s.Name, s.Paddr)
		}
		if err := mem.AddBinary(uint32(s.Paddr), s.Data); err != nil {
			return errors.Wrapf(err, "hex: %s", s.Name)
		}
	}
	return errors.Wrap(mem.DumpIntelHex(w, HexLineLen), "hex")
}
