// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"maps"
	"os"
	"slices"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/openhasp/fwtool/fwtool/internal/cmd/assets"
	"github.com/openhasp/fwtool/fwtool/internal/cmd/bin"
	"github.com/openhasp/fwtool/fwtool/internal/cmd/dist"
	"github.com/openhasp/fwtool/fwtool/internal/cmd/merge"
	"github.com/openhasp/fwtool/fwtool/internal/cmd/size"
	"github.com/openhasp/fwtool/fwtool/internal/cmd/version"
	"github.com/openhasp/fwtool/fwtool/internal/config"
	"github.com/openhasp/fwtool/fwtool/internal/util"
)

var tools = map[string]func() *cobra.Command{
	"assets":  assets.NewCommand,
	"bin":     func() *cobra.Command { return bin.NewCommand(bin.Bin) },
	"dist":    dist.NewCommand,
	"hex":     func() *cobra.Command { return bin.NewCommand(bin.Hex) },
	"merge":   merge.NewCommand,
	"size":    size.NewCommand,
	"uf2":     func() *cobra.Command { return bin.NewCommand(bin.UF2) },
	"version": version.NewCommand,
}

func newRootCommand(fs afero.Fs) *cobra.Command {
	var (
		verbosity int
		cfgPath   string
	)
	root := &cobra.Command{
		Use:           "fwtool",
		Short:         "firmware build, packaging and size analysis tool",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			util.SetupLogging(verbosity)
			cfg, err := config.Load(fs, cfgPath)
			if err != nil {
				return err
			}
			cmd.SetContext(config.NewContext(cmd.Context(), cfg))
			return nil
		},
	}
	// Bad flags exit with 2, like the flag package does.
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return util.WithExitCode(2, err)
	})
	pf := root.PersistentFlags()
	pf.CountVarP(&verbosity, "verbose", "v", "verbose output (can be specified multiple times)")
	pf.StringVar(&cfgPath, "config", config.DefaultFile, "configuration `FILE`")
	for _, name := range slices.Sorted(maps.Keys(tools)) {
		root.AddCommand(tools[name]())
	}
	return root
}

func main() {
	err := newRootCommand(afero.NewOsFs()).ExecuteContext(context.Background())
	if err != nil {
		logrus.Error(err)
		os.Exit(util.ExitCode(err))
	}
}
