// Copyright 2024 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bin

import (
	"encoding/binary"
	"io"
)

const uf2FamilyIDPresent = 0x00002000

const (
	uf2Magic0 = 0x0a324655
	uf2Magic1 = 0x9e5d5157
	uf2Magic2 = 0x0ab16f30
)

var uf2Families = map[string]uint32{
	"esp32":    0x1c5f21b0,
	"esp32s2":  0xbfdd4eee,
	"esp32c3":  0xd42ba06c,
	"esp32s3":  0xc47e5767,
	"esp32c6":  0x540ddf62,
	"rp2040":   0xe48bff56,
	"absolute": 0xe48bff57,
	"data":     0xe48bff58,
}

// uf2Block is one 512 byte block of a UF2 file.
type uf2Block struct {
	Magic0  uint32
	Magic1  uint32
	Flags   uint32
	Addr    uint32
	Len     uint32
	Seq     uint32
	Total   uint32
	Family  uint32
	Payload [256]byte
	_       [476 - 256]byte
	Magic2  uint32
}

// uf2Writer splits the written data into blocks of 256 bytes placed at
// consecutive addresses.
type uf2Writer struct {
	w io.Writer
	b uf2Block
}

func newUF2Writer(w io.Writer, addr, family uint32, size int) *uf2Writer {
	u := &uf2Writer{w: w}
	u.b.Magic0 = uf2Magic0
	u.b.Magic1 = uf2Magic1
	u.b.Magic2 = uf2Magic2
	u.b.Flags = uf2FamilyIDPresent
	u.b.Addr = addr
	u.b.Total = uint32((size + len(u.b.Payload) - 1) / len(u.b.Payload))
	u.b.Family = family
	return u
}

func (u *uf2Writer) emit() error {
	b := &u.b
	if err := binary.Write(u.w, binary.LittleEndian, b); err != nil {
		return err
	}
	b.Addr += b.Len
	b.Seq++
	b.Len = 0
	return nil
}

func (u *uf2Writer) Write(p []byte) (n int, err error) {
	b := &u.b
	for len(p) != 0 {
		m := copy(b.Payload[b.Len:], p)
		n += m
		p = p[m:]
		b.Len += uint32(m)
		if int(b.Len) == len(b.Payload) {
			if err = u.emit(); err != nil {
				return
			}
		}
	}
	return
}

// Flush writes the last, partially filled block padded with zeros.
func (u *uf2Writer) Flush() error {
	b := &u.b
	if b.Len == 0 {
		return nil
	}
	clear(b.Payload[b.Len:])
	b.Len = uint32(len(b.Payload))
	return u.emit()
}
