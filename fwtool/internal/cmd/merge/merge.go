// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package merge

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/openhasp/fwtool/fwtool/internal/config"
	"github.com/openhasp/fwtool/fwtool/internal/espimage"
	"github.com/openhasp/fwtool/fwtool/internal/fwversion"
	"github.com/openhasp/fwtool/fwtool/internal/util"
)

const Descr = "merge the bootloader, partition table and application into one flash image"

// Merger builds the full flash image of one build environment.
type Merger struct {
	Fs     afero.Fs
	Config *config.Config
	Env    string
	Bin    string   // application image
	Inc    []string // additional BIN:ADDR parts
	Out    string   // output file, derived from the version if empty
	Hex    bool     // also write the image in the Intel HEX format
}

func NewCommand() *cobra.Command {
	m := new(Merger)
	var inc string
	cmd := &cobra.Command{
		Use:   "merge [OPTIONS]",
		Short: Descr,
		Long: Descr + ".\n\n" +
			"The image is written to OUTPUT_DIR/firmware/NAME_full_FLASHSIZE_vVERSION.bin\n" +
			"unless -o is given. The flash mode and size are set in the bootloader header.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := *config.FromContext(cmd.Context())
			fs := cmd.Flags()
			if !fs.Changed("env") {
				m.Env = cfg.Env
			}
			if fs.Changed("flash-mode") {
				cfg.FlashMode, _ = fs.GetString("flash-mode")
			}
			if fs.Changed("flash-size") {
				cfg.FlashSize, _ = fs.GetString("flash-size")
			}
			if inc != "" {
				m.Inc = strings.Split(inc, ",")
			}
			m.Fs = afero.NewOsFs()
			m.Config = &cfg
			return m.Run()
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&m.Env, "env", "", "build environment `NAME`")
	fs.StringVar(&m.Bin, "bin", "", "application `IMAGE` (default BUILD_DIR/ENV/firmware.bin)")
	fs.StringVarP(&m.Out, "output", "o", "", "output `FILE`")
	fs.StringVar(&inc, "inc", "", "binary files to be included `BIN1:ADDR1[,BIN2:ADDR2[,...]]`")
	fs.BoolVar(&m.Hex, "hex", false, "write an Intel HEX file next to the binary image")
	fs.String("flash-mode", "", "flash `MODE` set in the bootloader header: qio, qout, dio, dout or keep")
	fs.String("flash-size", "", "flash `SIZE` set in the bootloader header, e.g. 4MB, or keep")
	return cmd
}

// Parts returns the images and their flash offsets.
func (m *Merger) Parts() ([]espimage.Part, error) {
	cfg := m.Config
	bin := m.Bin
	if bin == "" {
		bin = filepath.Join(cfg.BuildDir, m.Env, "firmware.bin")
	}
	parts := []espimage.Part{
		{Path: espimage.Bootloader(m.Fs, cfg.FrameworkDir, cfg.Chip), Addr: cfg.Offsets.Bootloader},
		{Path: filepath.Join(cfg.BuildDir, m.Env, espimage.PartitionsBin), Addr: cfg.Offsets.Partitions},
		{Path: espimage.BootApp0(cfg.FrameworkDir), Addr: cfg.Offsets.BootApp0},
		{Path: bin, Addr: cfg.Offsets.App},
	}
	for _, ba := range m.Inc {
		path, addr, err := util.ParseBin(ba)
		if err != nil {
			return nil, err
		}
		parts = append(parts, espimage.Part{Path: path, Addr: addr})
	}
	return parts, nil
}

func (m *Merger) output() (string, error) {
	if m.Out != "" {
		return m.Out, nil
	}
	v, err := fwversion.Version(fwversion.ParseDefines(m.Config.BuildFlags))
	if err != nil {
		return "", err
	}
	if err := util.PrepareOutput(m.Fs, m.Config.OutputDir); err != nil {
		return "", err
	}
	name := fwversion.FullName(m.Env, m.Config.FlashSize, v)
	return filepath.Join(m.Config.OutputDir, util.FirmwareDir, name), nil
}

// Run writes the merged image.
func (m *Merger) Run() error {
	if m.Env == "" {
		return errors.New("no build environment given")
	}
	parts, err := m.Parts()
	if err != nil {
		return err
	}
	out, err := m.output()
	if err != nil {
		return err
	}
	cfg := m.Config
	var buf bytes.Buffer
	_, err = espimage.Merge(m.Fs, &buf, parts, espimage.MergeOptions{
		FlashMode:  cfg.FlashMode,
		FlashSize:  cfg.FlashSize,
		Bootloader: cfg.Offsets.Bootloader,
		Pad:        0xff,
	})
	if err != nil {
		return errors.Wrap(err, "merge")
	}
	if err := afero.WriteFile(m.Fs, out, buf.Bytes(), 0o644); err != nil {
		return err
	}
	logrus.Infof("wrote %s (%d bytes)", out, buf.Len())
	if !m.Hex {
		return nil
	}
	hex := strings.TrimSuffix(out, filepath.Ext(out)) + ".hex"
	f, err := m.Fs.Create(hex)
	if err != nil {
		return err
	}
	ss := util.Segments{{Name: out, Data: buf.Bytes()}}
	if err := ss.WriteHex(f); err != nil {
		f.Close()
		return err
	}
	logrus.Infof("wrote %s", hex)
	return f.Close()
}
