// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package demangle rewrites mangled C++ symbol names into their readable
// form.
package demangle

import (
	"context"

	"github.com/ianlancetaylor/demangle"
	"github.com/pkg/errors"

	"github.com/openhasp/fwtool/fwtool/internal/binutils"
	"github.com/openhasp/fwtool/fwtool/internal/elfsym"
)

// Demangler rewrites the names of symbols in place. It must be applied after
// the source locations were attached because those are looked up by the
// mangled names.
type Demangler interface {
	Demangle(ctx context.Context, syms []*elfsym.Symbol) error
}

// Names of the available demanglers.
const (
	NameCxxFilt = "c++filt"
	NameBuiltin = "builtin"
)

// New returns the demangler with the given name.
func New(name string, tc *binutils.Toolchain) (Demangler, error) {
	switch name {
	case NameCxxFilt, "":
		return CxxFilt{tc}, nil
	case NameBuiltin:
		return Builtin{}, nil
	}
	return nil, errors.Errorf("unknown demangler %q (want %s or %s)", name, NameCxxFilt, NameBuiltin)
}

// CxxFilt demangles names using a single c++filt process of the toolchain.
// Names are passed one at a time and every answer is read before the next
// name is written.
type CxxFilt struct {
	Toolchain *binutils.Toolchain
}

func (d CxxFilt) Demangle(ctx context.Context, syms []*elfsym.Symbol) error {
	p, err := d.Toolchain.Start(ctx, binutils.CxxFilt)
	if err != nil {
		return err
	}
	for _, s := range syms {
		name, err := p.Query(s.Name)
		if err != nil {
			p.Close()
			return err
		}
		s.Name = name
	}
	return p.Close()
}

// Builtin demangles names in-process. Names that are not mangled are left
// unchanged.
type Builtin struct{}

func (Builtin) Demangle(_ context.Context, syms []*elfsym.Symbol) error {
	for _, s := range syms {
		s.Name = demangle.Filter(s.Name)
	}
	return nil
}
