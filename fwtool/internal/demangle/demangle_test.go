// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package demangle

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openhasp/fwtool/fwtool/internal/binutils"
	"github.com/openhasp/fwtool/fwtool/internal/elfsym"
)

func symbols(names ...string) []*elfsym.Symbol {
	ss := make([]*elfsym.Symbol, len(names))
	for i, n := range names {
		ss[i] = &elfsym.Symbol{Name: n}
	}
	return ss
}

func names(ss []*elfsym.Symbol) []string {
	ns := make([]string, len(ss))
	for i, s := range ss {
		ns[i] = s.Name
	}
	return ns
}

func TestBuiltin(t *testing.T) {
	ss := symbols("_Z3foov", "_ZN3app4initEv", "app_main")
	require.NoError(t, Builtin{}.Demangle(context.Background(), ss))
	require.Equal(t, []string{"foo()", "app::init()", "app_main"}, names(ss))
}

// fakeToolchain returns a toolchain whose c++filt is the given shell script.
func fakeToolchain(t *testing.T, script string) *binutils.Toolchain {
	dir := t.TempDir()
	exe := filepath.Join(dir, "fake-"+binutils.CxxFilt)
	require.NoError(t, os.WriteFile(exe, []byte("#!/bin/sh\n"+script+"\n"), 0o755))
	return binutils.New(filepath.Join(dir, "fake-"))
}

func TestCxxFilt(t *testing.T) {
	tc := fakeToolchain(t, `while read l; do echo "demangled $l"; done`)
	ss := symbols("_Z3foov", "app_main")
	require.NoError(t, CxxFilt{tc}.Demangle(context.Background(), ss))
	require.Equal(t, []string{"demangled _Z3foov", "demangled app_main"}, names(ss))
}

func TestCxxFiltExitStatus(t *testing.T) {
	tc := fakeToolchain(t, `cat; exit 4`)
	ss := symbols("a")
	err := CxxFilt{tc}.Demangle(context.Background(), ss)
	require.Error(t, err)
	require.Equal(t, "a", ss[0].Name)
}

func TestNew(t *testing.T) {
	d, err := New(NameBuiltin, nil)
	require.NoError(t, err)
	require.IsType(t, Builtin{}, d)

	d, err = New("", binutils.New(""))
	require.NoError(t, err)
	require.IsType(t, CxxFilt{}, d)

	_, err = New("llvm", nil)
	require.Error(t, err)
}
