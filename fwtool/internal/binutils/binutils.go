// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package binutils runs the programs of a (cross) binutils toolchain and
// streams their output.
package binutils

import (
	"bufio"
	"context"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Tool names without the toolchain prefix.
const (
	Readelf = "readelf"
	Nm      = "nm"
	CxxFilt = "c++filt"
)

// DefaultWaitTimeout is the time a tool has to exit after its output was
// consumed.
const DefaultWaitTimeout = 3 * time.Second

type Error struct {
	Op  string
	Err error
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func wrapErr(op string, err *error) {
	if *err != nil {
		*err = &Error{op, *err}
	}
}

// ErrNotFound is returned (wrapped) by Resolve for missing executables.
var ErrNotFound = errors.New("executable not found")

// Toolchain locates and runs the binutils programs. The Prefix is prepended
// to every tool name, e.g. "xtensa-esp32-elf-" or a path prefix like
// "/opt/xtensa/bin/xtensa-esp32-elf-".
type Toolchain struct {
	Prefix      string
	WaitTimeout time.Duration

	paths map[string]string
}

func New(prefix string) *Toolchain {
	return &Toolchain{Prefix: prefix, WaitTimeout: DefaultWaitTimeout}
}

// Exe returns the prefixed name of the tool.
func (tc *Toolchain) Exe(tool string) string {
	return tc.Prefix + tool
}

// Resolve looks up the executables of the named tools. It fails on the first
// tool that cannot be found.
func (tc *Toolchain) Resolve(tools ...string) error {
	if tc.paths == nil {
		tc.paths = make(map[string]string)
	}
	for _, tool := range tools {
		exe := tc.Exe(tool)
		path, err := exec.LookPath(exe)
		if err != nil {
			return &Error{exe, ErrNotFound}
		}
		logrus.Debugf("using %s", path)
		tc.paths[tool] = path
	}
	return nil
}

func (tc *Toolchain) command(ctx context.Context, tool string, args []string) *exec.Cmd {
	path, ok := tc.paths[tool]
	if !ok {
		path = tc.Exe(tool)
	}
	return exec.CommandContext(ctx, path, args...)
}

// Run runs the tool with the given arguments and passes its standard output
// to fn. A non-zero exit status is returned as an error wrapping the
// *exec.ExitError. The error returned by fn takes precedence.
func (tc *Toolchain) Run(ctx context.Context, tool string, args []string, fn func(io.Reader) error) (err error) {
	name := tc.Exe(tool)
	defer wrapErr(name, &err)
	cmd := tc.command(ctx, tool, args)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	out, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	logrus.Infof("running %s %s", name, strings.Join(args, " "))
	if err = cmd.Start(); err != nil {
		return err
	}
	ferr := fn(out)
	if ferr != nil {
		// Unblock the tool if fn stopped reading early.
		io.Copy(io.Discard, out)
	}
	werr := waitTimeout(cmd, tc.waitTimeout())
	if ferr != nil {
		return ferr
	}
	if werr != nil && stderr.Len() != 0 {
		logrus.Error(strings.TrimSpace(stderr.String()))
	}
	return werr
}

func (tc *Toolchain) waitTimeout() time.Duration {
	if tc.WaitTimeout <= 0 {
		return DefaultWaitTimeout
	}
	return tc.WaitTimeout
}

// Proc is a running tool used as a line oriented filter.
type Proc struct {
	name    string
	cmd     *exec.Cmd
	in      io.WriteCloser
	out     *bufio.Reader
	timeout time.Duration
}

// Start starts the tool as a filter: lines written with Query go to its
// standard input and the answers are read from its standard output.
func (tc *Toolchain) Start(ctx context.Context, tool string, args ...string) (p *Proc, err error) {
	name := tc.Exe(tool)
	defer wrapErr(name, &err)
	cmd := tc.command(ctx, tool, args)
	in, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	out, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err = cmd.Start(); err != nil {
		return nil, err
	}
	return &Proc{name, cmd, in, bufio.NewReader(out), tc.waitTimeout()}, nil
}

// Query writes one line to the process and reads one line of answer. The
// answer is returned without surrounding white space.
func (p *Proc) Query(line string) (ans string, err error) {
	defer wrapErr(p.name, &err)
	if _, err = io.WriteString(p.in, line+"\n"); err != nil {
		return "", err
	}
	ans, err = p.out.ReadString('\n')
	if err == io.EOF && ans != "" {
		err = nil
	}
	return strings.TrimSpace(ans), err
}

// Close closes the standard input of the process and waits for it to exit.
func (p *Proc) Close() (err error) {
	defer wrapErr(p.name, &err)
	p.in.Close()
	return waitTimeout(p.cmd, p.timeout)
}

func waitTimeout(cmd *exec.Cmd, d time.Duration) error {
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()
	select {
	case err := <-done:
		return err
	case <-time.After(d):
		cmd.Process.Kill()
		<-done
		return errors.Errorf("did not exit within %v", d)
	}
}
