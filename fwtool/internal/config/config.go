// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config loads the description of the firmware build layout shared
// by all fwtool commands.
package config

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strconv"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"gopkg.in/validator.v2"
	"gopkg.in/yaml.v3"
)

// DefaultFile is the configuration file looked up in the working directory.
const DefaultFile = "fwtool.yaml"

// EnvPrefix prefixes the environment variables that override configuration
// fields.
const EnvPrefix = "FWTOOL_"

// Offsets of the images in the flash of an ESP32.
type Offsets struct {
	Bootloader uint64 `yaml:"bootloader"`
	Partitions uint64 `yaml:"partitions"`
	BootApp0   uint64 `yaml:"bootApp0"`
	App        uint64 `yaml:"app"`
}

// Asset is a web asset stamped with the commit hash and gzipped.
type Asset struct {
	Src string `yaml:"src" validate:"nonzero"`
	Dst string `yaml:"dst" validate:"nonzero"`
}

// Size holds the defaults of the size command.
type Size struct {
	MaxWidth    int    `yaml:"maxWidth" validate:"min=0"`
	MinSize     uint64 `yaml:"minSize"`
	Human       bool   `yaml:"humanReadable"`
	Alternating bool   `yaml:"alternatingColors"`
	Demangler   string `yaml:"demangler"`
}

type Config struct {
	// Env is the build environment, the name of the directory in BuildDir
	// that holds the build artifacts.
	Env string `yaml:"env" env:"ENV"`

	// BuildDir holds one directory per build environment.
	BuildDir string `yaml:"buildDir" env:"BUILD_DIR" validate:"nonzero"`

	// OutputDir receives the distributed artifacts.
	OutputDir string `yaml:"outputDir" env:"OUTPUT_DIR" validate:"nonzero"`

	// FrameworkDir is the Arduino ESP32 framework package directory that
	// provides the bootloader and boot_app0 images.
	FrameworkDir string `yaml:"frameworkDir" env:"FRAMEWORK_DIR"`

	// Toolchain is the prefix of the binutils programs, e.g.
	// "xtensa-esp32-elf-" or "/opt/xtensa/bin/xtensa-esp32-elf-".
	Toolchain string `yaml:"toolchain" env:"TOOLCHAIN"`

	// BuildFlags are the compiler flags of the build that define the
	// firmware version.
	BuildFlags string `yaml:"buildFlags" env:"BUILD_FLAGS"`

	Chip      string `yaml:"chip" env:"CHIP" validate:"nonzero"`
	FlashMode string `yaml:"flashMode" env:"FLASH_MODE" validate:"regexp=^(qio|qout|dio|dout|keep)$"`
	FlashSize string `yaml:"flashSize" env:"FLASH_SIZE" validate:"regexp=^(keep|[0-9]+MB)$"`

	Offsets Offsets `yaml:"offsets"`
	Assets  []Asset `yaml:"assets"`
	Size    Size    `yaml:"size"`
}

// Default returns the configuration used for fields that are not set.
func Default() *Config {
	return &Config{
		BuildDir:  ".pio/build",
		OutputDir: "build_output",
		Chip:      "esp32",
		FlashMode: "dio",
		FlashSize: "4MB",
		Offsets: Offsets{
			Bootloader: 0x1000,
			Partitions: 0x8000,
			BootApp0:   0xe000,
			App:        0x10000,
		},
		Size: Size{MaxWidth: 80},
	}
}

// Load reads the YAML configuration file. A missing file is not an error,
// the defaults are used instead. Top level fields tagged with `env` are
// overridden by the FWTOOL_<TAG> environment variables.
func Load(fs afero.Fs, path string) (*Config, error) {
	logrus.Debugf("loading config from %s", path)
	cfg := Default()
	data, err := afero.ReadFile(fs, path)
	switch {
	case err == nil:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, errors.Wrapf(err, "could not parse %s", path)
		}
	case os.IsNotExist(err):
		logrus.Debugf("'%s' does not exist", path)
	default:
		return nil, err
	}
	if err := overrideFromEnv(cfg); err != nil {
		return nil, err
	}
	if err := validator.Validate(cfg); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}
	logrus.Debugf("config is valid %+v", cfg)
	return cfg, nil
}

func overrideFromEnv(cfg *Config) error {
	t := reflect.TypeOf(*cfg)
	v := reflect.ValueOf(cfg).Elem()
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("env")
		if tag == "" {
			continue
		}
		val, ok := os.LookupEnv(EnvPrefix + tag)
		if !ok || val == "" {
			continue
		}
		f := v.Field(i)
		switch f.Kind() {
		case reflect.String:
			f.SetString(val)
		case reflect.Int:
			n, err := strconv.Atoi(val)
			if err != nil {
				return errors.Wrapf(err, "%s%s", EnvPrefix, tag)
			}
			f.SetInt(int64(n))
		}
	}
	return nil
}

func (cfg *Config) expandPaths() error {
	paths := []*string{&cfg.BuildDir, &cfg.OutputDir, &cfg.FrameworkDir, &cfg.Toolchain}
	for i := range cfg.Assets {
		paths = append(paths, &cfg.Assets[i].Src, &cfg.Assets[i].Dst)
	}
	for _, p := range paths {
		exp, err := homedir.Expand(*p)
		if err != nil {
			return errors.Wrapf(err, "could not expand %s", *p)
		}
		*p = exp
	}
	return nil
}

// FlashBytes returns the flash size in bytes, 0 if it is "keep".
func (cfg *Config) FlashBytes() uint64 {
	n, err := strconv.ParseUint(cfg.FlashSize[:max(len(cfg.FlashSize)-2, 0)], 10, 64)
	if err != nil {
		return 0
	}
	return n << 20
}

type ctxKey struct{}

// NewContext returns a context carrying cfg.
func NewContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, ctxKey{}, cfg)
}

// FromContext returns the configuration stored in ctx, the defaults if
// there is none.
func FromContext(ctx context.Context) *Config {
	if ctx != nil {
		if cfg, ok := ctx.Value(ctxKey{}).(*Config); ok {
			return cfg
		}
	}
	return Default()
}

// ELF returns the path to the program built for the configured environment,
// an empty string if no environment is set.
func (cfg *Config) ELF() string {
	if cfg.Env == "" {
		return ""
	}
	return filepath.Join(cfg.BuildDir, cfg.Env, "firmware.elf")
}
