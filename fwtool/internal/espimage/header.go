// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package espimage handles the application and bootloader images of the
// ESP32 ROM loader and combines them into a single flash image.
package espimage

import (
	"crypto/sha256"
	"encoding/binary"
	"maps"
	"slices"
	"strings"

	"github.com/pkg/errors"
)

// Magic is the first byte of every image loaded by the ROM bootloader.
const Magic = 0xe9

// Keep leaves a header field unchanged.
const Keep = "keep"

const (
	hdrSegments  = 1
	hdrFlashMode = 2
	hdrFlashSize = 3  // high nibble, the low one is the SPI frequency
	hdrHashFlag  = 23 // extended header: SHA-256 digest appended
	hdrLen       = 24
	segHdrLen    = 8
	digestLen    = sha256.Size
)

var flashModes = map[string]byte{
	"qio":  0,
	"qout": 1,
	"dio":  2,
	"dout": 3,
}

var flashSizes = map[string]byte{
	"1MB":   0x00,
	"2MB":   0x10,
	"4MB":   0x20,
	"8MB":   0x30,
	"16MB":  0x40,
	"32MB":  0x50,
	"64MB":  0x60,
	"128MB": 0x70,
}

// FlashModes returns the known flash mode names.
func FlashModes() []string { return slices.Sorted(maps.Keys(flashModes)) }

// FlashSizes returns the known flash size names.
func FlashSizes() []string { return slices.Sorted(maps.Keys(flashSizes)) }

// Header describes the fixed part of an image header.
type Header struct {
	Segments  int
	FlashMode byte
	FlashSize byte // size code in the high nibble
	HashFlag  bool
}

// ParseHeader decodes the image header.
func ParseHeader(img []byte) (Header, error) {
	if len(img) < hdrLen || img[0] != Magic {
		return Header{}, errors.New("not an ESP image")
	}
	return Header{
		Segments:  int(img[hdrSegments]),
		FlashMode: img[hdrFlashMode],
		FlashSize: img[hdrFlashSize] & 0xf0,
		HashFlag:  img[hdrHashFlag] == 1,
	}, nil
}

// dataLen returns the length of the image up to and including the checksum
// byte, that is the offset of the appended digest.
func dataLen(img []byte, h Header) (int, error) {
	off := hdrLen
	for i := 0; i < h.Segments; i++ {
		if off+segHdrLen > len(img) {
			return 0, errors.Errorf("segment %d: header past the end of the image", i)
		}
		off += segHdrLen + int(binary.LittleEndian.Uint32(img[off+4:]))
	}
	// the checksum is the last byte of the 16-byte aligned block
	off += 16 - off%16
	if off > len(img) {
		return 0, errors.New("image is truncated")
	}
	return off, nil
}

// PatchHeader sets the flash mode and size of the image in place and
// updates the appended digest if present. Images that do not start with
// Magic are left unchanged, as are fields set to Keep. It reports whether the
// image was modified.
func PatchHeader(img []byte, mode, size string) (bool, error) {
	h, err := ParseHeader(img)
	if err != nil {
		return false, nil
	}
	var m, sz byte
	if mode != Keep {
		var ok bool
		if m, ok = flashModes[mode]; !ok {
			return false, errors.Errorf(
				"unknown flash mode %q, want one of: %s",
				mode, strings.Join(FlashModes(), ", "),
			)
		}
	}
	if size != Keep {
		var ok bool
		if sz, ok = flashSizes[size]; !ok {
			return false, errors.Errorf(
				"unknown flash size %q, want one of: %s",
				size, strings.Join(FlashSizes(), ", "),
			)
		}
	}
	n := 0
	if h.HashFlag {
		if n, err = dataLen(img, h); err != nil {
			return false, err
		}
		if n+digestLen > len(img) {
			return false, errors.New("image too short for the SHA-256 digest")
		}
	}
	orig := [2]byte{img[hdrFlashMode], img[hdrFlashSize]}
	if mode != Keep {
		img[hdrFlashMode] = m
	}
	if size != Keep {
		img[hdrFlashSize] = img[hdrFlashSize]&0x0f | sz
	}
	if orig == [2]byte{img[hdrFlashMode], img[hdrFlashSize]} {
		return false, nil
	}
	if h.HashFlag {
		sum := sha256.Sum256(img[:n])
		copy(img[n:], sum[:])
	}
	return true, nil
}
