// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package util

import (
	"os/exec"
	"strconv"

	"github.com/pkg/errors"
)

// ExitError is an error that requests a specific process exit status.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return "exit status " + strconv.Itoa(e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// WithExitCode returns err annotated with the exit status code.
func WithExitCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &ExitError{code, err}
}

// ExitCode returns the exit status the program should terminate with for the
// given error: 0 for nil, the code carried by an ExitError or by the exit
// status of a failed external command, 1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *ExitError
	if errors.As(err, &ee) && ee.Code != 0 {
		return ee.Code
	}
	var xe *exec.ExitError
	if errors.As(err, &xe) && xe.ExitCode() > 0 {
		return xe.ExitCode()
	}
	return 1
}
