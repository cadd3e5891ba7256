// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
env: esp32-lanbon_l8
buildDir: .pio/build
outputDir: out
frameworkDir: /pkg/framework-arduinoespressif32
toolchain: xtensa-esp32-elf-
flashSize: 8MB
offsets:
  app: 0x20000
assets:
  - src: data/main.js
    dst: data/static/main.js.gz
size:
  maxWidth: 120
  humanReadable: true
`

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(afero.NewMemMapFs(), DefaultFile)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadEmptyFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, DefaultFile, nil, 0o644))
	cfg, err := Load(fs, DefaultFile)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, DefaultFile, []byte(sample), 0o644))
	cfg, err := Load(fs, DefaultFile)
	require.NoError(t, err)

	assert.Equal(t, "esp32-lanbon_l8", cfg.Env)
	assert.Equal(t, "out", cfg.OutputDir)
	assert.Equal(t, "8MB", cfg.FlashSize)
	assert.Equal(t, uint64(8<<20), cfg.FlashBytes())
	assert.Equal(t, "dio", cfg.FlashMode, "default kept")
	assert.Equal(t, uint64(0x20000), cfg.Offsets.App)
	assert.Equal(t, uint64(0x1000), cfg.Offsets.Bootloader, "default kept")
	assert.Equal(t, []Asset{{Src: "data/main.js", Dst: "data/static/main.js.gz"}}, cfg.Assets)
	assert.Equal(t, 120, cfg.Size.MaxWidth)
	assert.True(t, cfg.Size.Human)
}

func TestLoadUnknownField(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, DefaultFile, []byte("flashsize: 4MB\n"), 0o644))
	_, err := Load(fs, DefaultFile)
	assert.ErrorContains(t, err, "could not parse fwtool.yaml")
}

func TestLoadInvalid(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, DefaultFile, []byte("flashMode: fast\n"), 0o644))
	_, err := Load(fs, DefaultFile)
	assert.ErrorContains(t, err, "invalid configuration")

	require.NoError(t, afero.WriteFile(fs, DefaultFile, []byte("assets:\n  - src: a\n"), 0o644))
	_, err = Load(fs, DefaultFile)
	assert.ErrorContains(t, err, "invalid configuration")
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv(EnvPrefix+"OUTPUT_DIR", "dist")
	t.Setenv(EnvPrefix+"FLASH_SIZE", "16MB")
	t.Setenv(EnvPrefix+"ENV", "")
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, DefaultFile, []byte(sample), 0o644))
	cfg, err := Load(fs, DefaultFile)
	require.NoError(t, err)
	assert.Equal(t, "dist", cfg.OutputDir)
	assert.Equal(t, uint64(16<<20), cfg.FlashBytes())
	assert.Equal(t, "esp32-lanbon_l8", cfg.Env, "empty variable ignored")

	t.Setenv(EnvPrefix+"FLASH_MODE", "slow")
	_, err = Load(fs, DefaultFile)
	assert.Error(t, err)
}

func TestLoadExpandsHome(t *testing.T) {
	home, err := homedir.Dir()
	require.NoError(t, err)
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, DefaultFile, []byte("toolchain: ~/xtensa/bin/xtensa-esp32-elf-\n"), 0o644))
	cfg, err := Load(fs, DefaultFile)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "xtensa/bin/xtensa-esp32-elf-"), cfg.Toolchain)
}

func TestFlashBytes(t *testing.T) {
	for size, want := range map[string]uint64{
		"4MB":  4 << 20,
		"32MB": 32 << 20,
		"keep": 0,
		"":     0,
	} {
		cfg := &Config{FlashSize: size}
		assert.Equal(t, want, cfg.FlashBytes(), size)
	}
}

func TestContext(t *testing.T) {
	assert.Equal(t, Default(), FromContext(context.Background()))
	cfg := &Config{Env: "esp32dev", BuildDir: ".pio/build"}
	assert.Same(t, cfg, FromContext(NewContext(context.Background(), cfg)))
	assert.Equal(t, filepath.Join(".pio/build", "esp32dev", "firmware.elf"), cfg.ELF())
	assert.Empty(t, Default().ELF())
}
