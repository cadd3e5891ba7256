// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package assets

import (
	"bytes"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/openhasp/fwtool/fwtool/internal/config"
	"github.com/openhasp/fwtool/fwtool/internal/fwversion"
)

const Descr = "stamp the web assets with the commit hash and gzip them"

// Placeholder is replaced by the commit hash in every asset.
const Placeholder = "COMMIT_HASH"

// Default is used if no assets are configured.
var Default = []config.Asset{
	{Src: "data/edit.htm", Dst: "data/static/edit.htm.gz"},
	{Src: "data/main.js", Dst: "data/static/main.js.gz"},
	{Src: "data/script.js", Dst: "data/static/script.js.gz"},
	{Src: "data/en.json", Dst: "data/static/en.json.gz"},
	{Src: "data/style.css", Dst: "data/static/style.css.gz"},
}

func NewCommand() *cobra.Command {
	var repo, commit string
	cmd := &cobra.Command{
		Use:   "assets [OPTIONS]",
		Short: Descr,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.FromContext(cmd.Context())
			if commit == "" {
				st, err := fwversion.ReadStamp(repo, false)
				if err != nil {
					return err
				}
				commit = st.Commit
			}
			assets := cfg.Assets
			if len(assets) == 0 {
				assets = Default
			}
			return Stamp(afero.NewOsFs(), assets, commit)
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&repo, "repo", ".", "`DIR` inside the git repository of the firmware")
	fs.StringVar(&commit, "commit", "", "commit `HASH` to use instead of the one of the repository HEAD")
	return cmd
}

// Stamp writes every asset gzipped to its destination, with all occurrences
// of Placeholder replaced by commit.
func Stamp(fs afero.Fs, assets []config.Asset, commit string) error {
	for _, a := range assets {
		if err := stamp(fs, a, []byte(commit)); err != nil {
			return errors.Wrap(err, a.Src)
		}
		logrus.Infof("%s -> %s", a.Src, a.Dst)
	}
	return nil
}

func stamp(fs afero.Fs, a config.Asset, commit []byte) (err error) {
	data, err := afero.ReadFile(fs, a.Src)
	if err != nil {
		return err
	}
	data = bytes.ReplaceAll(data, []byte(Placeholder), commit)
	if err := fs.MkdirAll(filepath.Dir(a.Dst), 0o755); err != nil {
		return err
	}
	f, err := fs.Create(a.Dst)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	zw, err := gzip.NewWriterLevel(f, gzip.BestCompression)
	if err != nil {
		return err
	}
	zw.Name = filepath.Base(a.Src)
	if _, err := zw.Write(data); err != nil {
		return err
	}
	return zw.Close()
}
