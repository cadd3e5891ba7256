// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package version

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/openhasp/fwtool/fwtool/internal/config"
	"github.com/openhasp/fwtool/fwtool/internal/fwversion"
)

const Descr = "print the build flags that stamp the firmware version"

func NewCommand() *cobra.Command {
	var (
		repo       string
		env        string
		flashBytes uint64
		describe   bool
		progname   bool
		buildFlags string
	)
	cmd := &cobra.Command{
		Use:   "version [OPTIONS]",
		Short: Descr,
		Long: Descr + ".\n\n" +
			"With --progname the name of the application image is printed instead,\n" +
			"derived from the environment and the HASP version defines of the build flags.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.FromContext(cmd.Context())
			fs := cmd.Flags()
			if !fs.Changed("flash-bytes") {
				flashBytes = cfg.FlashBytes()
			}
			if !fs.Changed("build-flags") {
				buildFlags = cfg.BuildFlags
			}
			if !fs.Changed("env") {
				env = cfg.Env
			}
			w := cmd.OutOrStdout()
			if progname {
				if env == "" {
					return errors.New("no build environment given")
				}
				v, err := fwversion.Version(fwversion.ParseDefines(buildFlags))
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(w, fwversion.Variant(env, v))
				return err
			}
			st, err := fwversion.ReadStamp(repo, describe)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(w, strings.Join(fwversion.BuildFlags(st, flashBytes), "\n"))
			return err
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&repo, "repo", ".", "`DIR` inside the git repository of the firmware")
	fs.StringVar(&env, "env", "", "build environment `NAME`")
	fs.Uint64Var(&flashBytes, "flash-bytes", 0, "flash size in `BYTES`, 0 to omit ESP_FLASH_SIZE")
	fs.BoolVar(&describe, "describe", false, "add AUTO_VERSION from the nearest tag")
	fs.BoolVar(&progname, "progname", false, "print the versioned program name")
	fs.StringVar(&buildFlags, "build-flags", "", "compiler `FLAGS` defining the HASP version")
	return cmd
}
