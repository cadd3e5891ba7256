// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package espimage

import (
	"io"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/openhasp/fwtool/fwtool/internal/util"
)

// Names of the images provided by the build and the framework.
const (
	BootloaderBin = "bootloader_dio_40m.bin"
	PartitionsBin = "partitions.bin"
	BootApp0Bin   = "boot_app0.bin"
)

// Bootloader returns the path to the second stage bootloader of the Arduino
// framework. Newer frameworks keep it in a per chip directory.
func Bootloader(fs afero.Fs, frameworkDir, chip string) string {
	p := filepath.Join(frameworkDir, "tools", "sdk", chip, "bin", BootloaderBin)
	if ok, _ := afero.Exists(fs, p); ok {
		return p
	}
	return filepath.Join(frameworkDir, "tools", "sdk", "bin", BootloaderBin)
}

// BootApp0 returns the path to the initial OTA data image of the Arduino
// framework.
func BootApp0(frameworkDir string) string {
	return filepath.Join(frameworkDir, "tools", "partitions", BootApp0Bin)
}

// Part is a file written to the flash at Addr.
type Part struct {
	Path string
	Addr uint64
}

// MergeOptions control the header patching of the bootloader and the
// content of the gaps.
type MergeOptions struct {
	FlashMode  string
	FlashSize  string
	Bootloader uint64 // address of the image whose header is patched
	Base       uint64 // flash address of the first output byte
	Pad        byte
}

// Merge writes all parts as one flat flash image starting at o.Base.
func Merge(fs afero.Fs, w io.Writer, parts []Part, o MergeOptions) (int, error) {
	ss := make(util.Segments, 0, len(parts)+1)
	ss = append(ss, &util.Segment{Name: "image start", Paddr: o.Base})
	for _, p := range parts {
		if p.Addr < o.Base {
			return 0, errors.Errorf("%s at %#x is below the image start %#x", p.Path, p.Addr, o.Base)
		}
		s, err := util.ReadBin(fs, p.Path, p.Addr)
		if err != nil {
			return 0, err
		}
		if p.Addr == o.Bootloader {
			patched, err := PatchHeader(s.Data, o.FlashMode, o.FlashSize)
			if err != nil {
				return 0, errors.Wrap(err, p.Path)
			}
			if patched {
				logrus.Infof("flash params set to %s %s in %s", o.FlashMode, o.FlashSize, p.Path)
			}
		}
		logrus.Debugf("%#08x %s (%d bytes)", p.Addr, p.Path, len(s.Data))
		ss = append(ss, s)
	}
	return ss.Flatten(w, o.Pad)
}
