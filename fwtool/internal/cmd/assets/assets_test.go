// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package assets

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openhasp/fwtool/fwtool/internal/config"
)

func gunzip(t *testing.T, fs afero.Fs, name string) string {
	f, err := fs.Open(name)
	require.NoError(t, err)
	defer f.Close()
	zr, err := gzip.NewReader(f)
	require.NoError(t, err)
	data, err := io.ReadAll(zr)
	require.NoError(t, err)
	return string(data)
}

func TestStamp(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "data/main.js", []byte(`const v="COMMIT_HASH";//COMMIT_HASH`), 0o644))
	require.NoError(t, afero.WriteFile(fs, "data/en.json", []byte(`{"a":1}`), 0o644))

	err := Stamp(fs, []config.Asset{
		{Src: "data/main.js", Dst: "data/static/main.js.gz"},
		{Src: "data/en.json", Dst: "out/en.json.gz"},
	}, "abc1234")
	require.NoError(t, err)
	assert.Equal(t, `const v="abc1234";//abc1234`, gunzip(t, fs, "data/static/main.js.gz"))
	assert.Equal(t, `{"a":1}`, gunzip(t, fs, "out/en.json.gz"))
}

func TestStampMissing(t *testing.T) {
	err := Stamp(afero.NewMemMapFs(), Default, "abc1234")
	assert.ErrorContains(t, err, "data/edit.htm")
}

func TestCommand(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Assets = []config.Asset{{
		Src: filepath.Join(dir, "style.css"),
		Dst: filepath.Join(dir, "static", "style.css.gz"),
	}}
	require.NoError(t, os.WriteFile(cfg.Assets[0].Src, []byte("/* COMMIT_HASH */"), 0o644))

	cmd := NewCommand()
	cmd.SetArgs([]string{"--commit", "0123456"})
	cmd.SetOut(io.Discard)
	require.NoError(t, cmd.ExecuteContext(config.NewContext(context.Background(), cfg)))
	assert.Equal(t, "/* 0123456 */", gunzip(t, afero.NewOsFs(), cfg.Assets[0].Dst))
}
