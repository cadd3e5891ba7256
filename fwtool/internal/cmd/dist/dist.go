// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dist

import (
	"path/filepath"
	"slices"
	"strings"

	"github.com/blang/semver/v4"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/openhasp/fwtool/fwtool/internal/config"
	"github.com/openhasp/fwtool/fwtool/internal/espimage"
	"github.com/openhasp/fwtool/fwtool/internal/fwversion"
	"github.com/openhasp/fwtool/fwtool/internal/util"
)

const Descr = "copy the build artifacts to the output directory under versioned names"

// Artifact kinds.
const (
	Firmware   = "firmware"
	OTA        = "ota"
	Partitions = "partitions"
)

var kinds = []string{Firmware, OTA, Partitions}

func NewCommand() *cobra.Command {
	var bin, env string
	cmd := &cobra.Command{
		Use:       "dist [OPTIONS] [" + strings.Join(kinds, "|") + "]...",
		Short:     Descr,
		ValidArgs: kinds,
		Args:      cobra.OnlyValidArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromContext(cmd.Context())
			if !cmd.Flags().Changed("env") {
				env = cfg.Env
			}
			if env == "" {
				return errors.New("no build environment given")
			}
			if bin == "" {
				bin = filepath.Join(cfg.BuildDir, env, "firmware.bin")
			}
			if len(args) == 0 {
				args = kinds
			}
			d := &Dist{Fs: afero.NewOsFs(), Config: cfg, Env: env, Bin: bin}
			return d.Run(args...)
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&bin, "bin", "", "application `IMAGE` (default BUILD_DIR/ENV/firmware.bin)")
	fs.StringVar(&env, "env", "", "build environment `NAME`")
	return cmd
}

// Dist copies the artifacts of one build environment.
type Dist struct {
	Fs     afero.Fs
	Config *config.Config
	Env    string
	Bin    string // application image
}

func (d *Dist) dst(name string) string {
	return filepath.Join(d.Config.OutputDir, util.FirmwareDir, name)
}

// Run copies the artifacts of the given kinds.
func (d *Dist) Run(kinds ...string) error {
	if err := util.PrepareOutput(d.Fs, d.Config.OutputDir); err != nil {
		return err
	}
	var v semver.Version
	if slices.Contains(kinds, Firmware) || slices.Contains(kinds, OTA) {
		var err error
		if v, err = fwversion.Version(fwversion.ParseDefines(d.Config.BuildFlags)); err != nil {
			return err
		}
	}
	for _, k := range kinds {
		var err error
		switch k {
		case Firmware:
			err = util.CopyFile(d.Fs, d.Bin, d.dst(fwversion.Variant(d.Env, v)+".bin"))
		case OTA:
			err = util.CopyFile(d.Fs, d.Bin, d.dst(fwversion.OTAName(d.Env, v)))
		case Partitions:
			err = d.partitions()
		default:
			err = errors.Errorf("unknown artifact %q", k)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (d *Dist) partitions() error {
	cfg := d.Config
	srcs := []string{
		filepath.Join(cfg.BuildDir, d.Env, espimage.PartitionsBin),
		espimage.BootApp0(cfg.FrameworkDir),
		espimage.Bootloader(d.Fs, cfg.FrameworkDir, cfg.Chip),
	}
	for _, src := range srcs {
		if err := util.CopyFile(d.Fs, src, d.dst(filepath.Base(src))); err != nil {
			return err
		}
	}
	return nil
}
