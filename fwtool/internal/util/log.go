// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package util

import (
	"bytes"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/sirupsen/logrus"
)

// levels maps the number of -v flags to the log level.
var levels = [...]logrus.Level{
	logrus.ErrorLevel,
	logrus.WarnLevel,
	logrus.InfoLevel,
	logrus.DebugLevel,
}

// Level returns the log level for the given verbosity (number of -v flags).
func Level(verbosity int) logrus.Level {
	switch {
	case verbosity < 0:
		verbosity = 0
	case verbosity >= len(levels):
		verbosity = len(levels) - 1
	}
	return levels[verbosity]
}

// SetupLogging configures the standard logrus logger to print plain
// "[LEVEL] message" lines to stderr.
func SetupLogging(verbosity int) {
	SetupLoggingTo(os.Stderr, verbosity)
}

func SetupLoggingTo(w io.Writer, verbosity int) {
	logrus.SetOutput(w)
	logrus.SetFormatter(new(LineFormatter))
	logrus.SetLevel(Level(verbosity))
}

// LineFormatter formats log entries as "[LEVEL] message" followed by the
// entry fields, if any, in key=value form.
type LineFormatter struct{}

func (LineFormatter) Format(e *logrus.Entry) ([]byte, error) {
	b := e.Buffer
	if b == nil {
		b = new(bytes.Buffer)
	}
	b.WriteByte('[')
	b.WriteString(strings.ToUpper(e.Level.String()))
	b.WriteString("] ")
	b.WriteString(strings.TrimRight(e.Message, "\n"))
	for _, k := range slices.Sorted(maps.Keys(e.Data)) {
		fmt.Fprintf(b, " %s=%v", k, e.Data[k])
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}
