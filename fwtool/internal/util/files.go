// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package util

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// Subdirectories of the output directory.
const (
	FirmwareDir = "firmware"
	MapDir      = "map"
)

// PrepareOutput creates the output directory and its subdirectories.
func PrepareOutput(fs afero.Fs, out string) error {
	for _, d := range []string{FirmwareDir, MapDir} {
		if err := fs.MkdirAll(filepath.Join(out, d), 0o755); err != nil {
			return err
		}
	}
	return nil
}

// CopyFile copies src to dst. An existing dst is removed first.
func CopyFile(fs afero.Fs, src, dst string) (err error) {
	defer func() {
		if err != nil {
			err = errors.Wrapf(err, "copy %s to %s", src, dst)
		}
	}()
	r, err := fs.Open(src)
	if err != nil {
		return err
	}
	defer r.Close()
	if err := fs.Remove(dst); err != nil && !os.IsNotExist(err) {
		return err
	}
	w, err := fs.Create(dst)
	if err != nil {
		return err
	}
	if _, err = io.Copy(w, r); err != nil {
		w.Close()
		return err
	}
	if err = w.Close(); err != nil {
		return err
	}
	Info("%s -> %s", src, dst)
	return nil
}
