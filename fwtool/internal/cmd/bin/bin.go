// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bin

import (
	"bytes"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/openhasp/fwtool/fwtool/internal/config"
	"github.com/openhasp/fwtool/fwtool/internal/util"
)

const (
	DescrBin = "convert an ELF file to a binary image"
	DescrUF2 = "convert an ELF file to the UF2 format"
	DescrHex = "convert an ELF file to the Intel HEX format"
)

// Output formats, also the names of the commands.
const (
	Bin = "bin"
	UF2 = "uf2"
	Hex = "hex"
)

var descr = map[string]string{Bin: DescrBin, UF2: DescrUF2, Hex: DescrHex}

type options struct {
	format string
	inc    string
	pad    uint8
	family string
}

// NewCommand returns the command that converts ELF files to the given
// format.
func NewCommand(format string) *cobra.Command {
	o := &options{format: format}
	cmd := &cobra.Command{
		Use:   format + " [OPTIONS] [ELF [" + strings.ToUpper(format) + "]]",
		Short: descr[format],
		Long: descr[format] + ".\n\n" +
			"Without ELF the firmware.elf of the configured build environment is used,\n" +
			"or the name of the current directory with the .elf suffix.",
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromContext(cmd.Context())
			args = append(args, "", "")
			in := args[0]
			if in == "" {
				in = cfg.ELF()
			}
			in, out := util.InOutFiles(in, ".elf", args[1], "."+format)
			return o.convert(afero.NewOsFs(), in, out)
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&o.inc, "inc", "", "binary files to be included `BIN1:ADDR1[,BIN2:ADDR2[,...]]`")
	if format != Hex {
		fs.Uint8Var(&o.pad, "pad", 0xff, "pad `byte` used to fill gaps between sections")
	}
	if format == UF2 {
		fs.StringVar(&o.family, "family", "",
			"UF2 family `ID` (32-bit number) or a known family name: "+
				strings.Join(slices.Sorted(maps.Keys(uf2Families)), ", "),
		)
	}
	return cmd
}

func (o *options) convert(fs afero.Fs, in, out string) (err error) {
	ss, err := util.ReadELF(fs, in)
	if err != nil {
		return errors.Wrap(err, "readelf")
	}
	if o.inc != "" {
		inc, err := util.ReadBins(fs, o.inc)
		if err != nil {
			return errors.Wrap(err, "readbins")
		}
		ss = append(ss, inc...)
	}
	if len(ss) == 0 {
		return errors.Errorf("%s: no loadable sections", in)
	}
	var family uint32
	if o.format == UF2 {
		if family, err = parseFamily(o.family); err != nil {
			return err
		}
	}
	f, err := fs.Create(out)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	switch o.format {
	case Bin:
		_, err = ss.Flatten(f, o.pad)
	case UF2:
		err = writeUF2(f, ss, o.pad, family)
	case Hex:
		err = ss.WriteHex(f)
	}
	if err == nil {
		util.Info("%s -> %s", in, out)
	}
	return err
}

func parseFamily(family string) (uint32, error) {
	if id, ok := uf2Families[family]; ok {
		return id, nil
	}
	u, err := strconv.ParseUint(family, 0, 32)
	if err != nil {
		return 0, errors.Errorf("uf2: bad family ID: %q", family)
	}
	return uint32(u), nil
}

func writeUF2(w io.Writer, ss util.Segments, pad byte, family uint32) error {
	buf := bytes.NewBuffer(make([]byte, 0, ss.Size()*5/4))
	if _, err := ss.Flatten(buf, pad); err != nil {
		return err
	}
	addr := uint32(ss[0].Paddr)
	if uint64(addr) != ss[0].Paddr {
		return errors.Errorf("uf2: the target address %#x doesn't fit in 32 bits", ss[0].Paddr)
	}
	u := newUF2Writer(w, addr, family, buf.Len())
	if _, err := u.Write(buf.Bytes()); err != nil {
		return err
	}
	return u.Flush()
}
