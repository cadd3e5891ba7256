// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package util

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

func Info(f string, args ...any) {
	logrus.Infof(f, args...)
}

// DirName returns the last element of the path to the current working
// directory or an empty string if it cannot be determined.
func DirName() string {
	dir, err := os.Getwd()
	if err != nil {
		logrus.Warn(err)
		return ""
	}
	dir = filepath.Base(dir)
	if dir == "/" || dir == "." {
		dir = ""
	}
	return dir
}

// InOutFiles infers the name of the input file from the name of the current
// working directory if the inName is an empty string. The output name is the
// input name with the inSuffix replaced by the outSuffix.
func InOutFiles(inName, inSuffix, outName, outSuffix string) (string, string) {
	if inName == "" {
		inName = DirName() + inSuffix
	}
	if outName == "" {
		outName = strings.TrimSuffix(inName, inSuffix) + outSuffix
	}
	return inName, outName
}
