// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fwversion derives the firmware version and the names of the
// distributed images from the build flags and the git repository.
package fwversion

import (
	"fmt"
	"strings"

	"github.com/blang/semver/v4"
	"github.com/pkg/errors"
)

// Define is a preprocessor macro defined on the compiler command line.
type Define struct {
	Name  string
	Value string
}

// ParseDefines returns the -D macros in a build flags string. Both the "-DX=1"
// and the "-D X=1" forms are recognized, other flags are skipped.
func ParseDefines(flags string) []Define {
	var defs []Define
	fields := strings.Fields(flags)
	for i := 0; i < len(fields); i++ {
		f := fields[i]
		if !strings.HasPrefix(f, "-D") {
			continue
		}
		f = f[2:]
		if f == "" {
			if i++; i == len(fields) {
				break
			}
			f = fields[i]
		}
		name, value, _ := strings.Cut(f, "=")
		defs = append(defs, Define{name, value})
	}
	return defs
}

// The two spellings of the version macros used by the firmware builds.
var versionDefines = [][3]string{
	{"HASP_VER_MAJ", "HASP_VER_MIN", "HASP_VER_REV"},
	{"HASP_VERSION_MAJOR", "HASP_VERSION_MINOR", "HASP_VERSION_REVISION"},
}

// Version returns the firmware version defined by the build flags. A later
// definition of a macro overrides an earlier one.
func Version(defs []Define) (semver.Version, error) {
	m := make(map[string]string, len(defs))
	for _, d := range defs {
		m[d.Name] = d.Value
	}
	names := versionDefines[0]
	for _, vd := range versionDefines {
		if _, ok := m[vd[0]]; ok {
			names = vd
			break
		}
	}
	parts := make([]string, len(names))
	for i, name := range names {
		v, ok := m[name]
		if !ok {
			return semver.Version{}, errors.Errorf("%s is not defined", name)
		}
		parts[i] = strings.Trim(v, `"\`)
	}
	v, err := semver.Parse(strings.Join(parts, "."))
	return v, errors.Wrap(err, "bad firmware version")
}

func short(v semver.Version) string {
	return fmt.Sprintf("v%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Variant returns the name of the application image of the build
// environment.
func Variant(env string, v semver.Version) string {
	return env + "_" + short(v)
}

var flashSuffixes = []string{"_4MB", "_8MB", "_16MB", "_32MB"}

// StripFlashSuffix removes the flash size markers from an environment name.
func StripFlashSuffix(env string) string {
	for _, s := range flashSuffixes {
		env = strings.ReplaceAll(env, s, "")
	}
	return env
}

// OTAName returns the name of the over-the-air update image.
func OTAName(env string, v semver.Version) string {
	return StripFlashSuffix(env) + "_ota_" + short(v) + ".bin"
}

// FullName returns the name of the merged image written at flash offset 0.
func FullName(env, flashSize string, v semver.Version) string {
	return StripFlashSuffix(env) + "_full_" + flashSize + "_" + short(v) + ".bin"
}
