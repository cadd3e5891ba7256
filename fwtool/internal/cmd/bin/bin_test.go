// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bin

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"testing"

	"github.com/marcinbor85/gohex"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var text = []byte{1, 2, 3, 4, 5, 6, 7, 8}

// tinyELF returns an Xtensa executable with one 8-byte .text section
// executed at 0x400d0000 and loaded from the flash at 0x10000.
func tinyELF(t *testing.T) []byte {
	const (
		phoff   = 52
		textOff = 96
		strOff  = textOff + 8
		shoff   = 124
	)
	strtab := "\x00.text\x00.shstrtab\x00"
	var ident [elf.EI_NIDENT]byte
	copy(ident[:], elf.ELFMAG)
	ident[elf.EI_CLASS] = byte(elf.ELFCLASS32)
	ident[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	ident[elf.EI_VERSION] = byte(elf.EV_CURRENT)

	var buf bytes.Buffer
	le := binary.LittleEndian
	require.NoError(t, binary.Write(&buf, le, elf.Header32{
		Ident:     ident,
		Type:      uint16(elf.ET_EXEC),
		Machine:   uint16(elf.EM_XTENSA),
		Version:   uint32(elf.EV_CURRENT),
		Entry:     0x400d0000,
		Phoff:     phoff,
		Shoff:     shoff,
		Ehsize:    52,
		Phentsize: 32,
		Phnum:     1,
		Shentsize: 40,
		Shnum:     3,
		Shstrndx:  2,
	}))
	require.NoError(t, binary.Write(&buf, le, elf.Prog32{
		Type:   uint32(elf.PT_LOAD),
		Off:    textOff,
		Vaddr:  0x400d0000,
		Paddr:  0x10000,
		Filesz: uint32(len(text)),
		Memsz:  uint32(len(text)),
		Flags:  uint32(elf.PF_R | elf.PF_X),
		Align:  4,
	}))
	buf.Write(make([]byte, textOff-buf.Len()))
	buf.Write(text)
	buf.WriteString(strtab)
	buf.Write(make([]byte, shoff-buf.Len()))
	require.NoError(t, binary.Write(&buf, le, []elf.Section32{
		{},
		{
			Name:      1,
			Type:      uint32(elf.SHT_PROGBITS),
			Flags:     uint32(elf.SHF_ALLOC | elf.SHF_EXECINSTR),
			Addr:      0x400d0000,
			Off:       textOff,
			Size:      uint32(len(text)),
			Addralign: 4,
		},
		{
			Name:      7,
			Type:      uint32(elf.SHT_STRTAB),
			Off:       strOff,
			Size:      uint32(len(strtab)),
			Addralign: 1,
		},
	}))
	return buf.Bytes()
}

func testFs(t *testing.T) afero.Fs {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "app.elf", tinyELF(t), 0o644))
	require.NoError(t, afero.WriteFile(fs, "boot.bin", []byte{0xe9, 0, 0, 0}, 0o644))
	return fs
}

func TestBin(t *testing.T) {
	fs := testFs(t)
	o := &options{format: Bin, inc: "boot.bin:0xfff0", pad: 0xff}
	require.NoError(t, o.convert(fs, "app.elf", "app.bin"))
	data, err := afero.ReadFile(fs, "app.bin")
	require.NoError(t, err)
	want := append([]byte{0xe9, 0, 0, 0}, bytes.Repeat([]byte{0xff}, 12)...)
	assert.Equal(t, append(want, text...), data)
}

func TestUF2(t *testing.T) {
	fs := testFs(t)
	o := &options{format: UF2, pad: 0xff, family: "esp32s3"}
	require.NoError(t, o.convert(fs, "app.elf", "app.uf2"))
	data, err := afero.ReadFile(fs, "app.uf2")
	require.NoError(t, err)
	require.Len(t, data, 512)
	var b uf2Block
	require.NoError(t, binary.Read(bytes.NewReader(data), binary.LittleEndian, &b))
	assert.Equal(t, uint32(uf2Magic0), b.Magic0)
	assert.Equal(t, uint32(uf2Magic2), b.Magic2)
	assert.Equal(t, uint32(uf2FamilyIDPresent), b.Flags)
	assert.Equal(t, uint32(0x10000), b.Addr)
	assert.Equal(t, uint32(256), b.Len)
	assert.Equal(t, uint32(1), b.Total)
	assert.Equal(t, uint32(0xc47e5767), b.Family)
	assert.Equal(t, text, b.Payload[:len(text)])

	o.family = "nope"
	assert.ErrorContains(t, o.convert(fs, "app.elf", "app.uf2"), "bad family ID")
}

func TestUF2Blocks(t *testing.T) {
	var buf bytes.Buffer
	u := newUF2Writer(&buf, 0x1000, 7, 600)
	_, err := u.Write(make([]byte, 600))
	require.NoError(t, err)
	require.NoError(t, u.Flush())
	require.Equal(t, 3*512, buf.Len())
	var b uf2Block
	require.NoError(t, binary.Read(bytes.NewReader(buf.Bytes()[1024:]), binary.LittleEndian, &b))
	assert.Equal(t, uint32(2), b.Seq)
	assert.Equal(t, uint32(3), b.Total)
	assert.Equal(t, uint32(0x1200), b.Addr)
}

func TestHex(t *testing.T) {
	fs := testFs(t)
	o := &options{format: Hex}
	require.NoError(t, o.convert(fs, "app.elf", "app.hex"))
	f, err := fs.Open("app.hex")
	require.NoError(t, err)
	defer f.Close()
	mem := gohex.NewMemory()
	require.NoError(t, mem.ParseIntelHex(f))
	segs := mem.GetDataSegments()
	require.Len(t, segs, 1)
	assert.Equal(t, uint32(0x10000), segs[0].Address)
	assert.Equal(t, text, segs[0].Data)
}

func TestParseFamily(t *testing.T) {
	id, err := parseFamily("esp32s2")
	require.NoError(t, err)
	assert.Equal(t, uint32(0xbfdd4eee), id)
	id, err = parseFamily("0x1234")
	require.NoError(t, err)
	assert.Equal(t, uint32(0x1234), id)
	_, err = parseFamily("0x123456789")
	assert.Error(t, err)
}

func TestErrors(t *testing.T) {
	fs := testFs(t)
	o := &options{format: Bin}
	assert.ErrorContains(t, o.convert(fs, "missing.elf", "x.bin"), "readelf")
	assert.ErrorContains(t, o.convert(fs, "boot.bin", "x.bin"), "readelf")
	o.inc = "boot.bin"
	assert.ErrorContains(t, o.convert(fs, "app.elf", "x.bin"), "readbins")
	o.inc = "boot.bin:0x10004"
	assert.ErrorContains(t, o.convert(fs, "app.elf", "x.bin"), "overlaps")
}
