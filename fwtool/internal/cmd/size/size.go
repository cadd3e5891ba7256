// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package size prints the ROM and RAM usage of a program as a tree of
// source paths and symbols.
package size

import (
	"context"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/openhasp/fwtool/fwtool/internal/binutils"
	"github.com/openhasp/fwtool/fwtool/internal/config"
	"github.com/openhasp/fwtool/fwtool/internal/demangle"
	"github.com/openhasp/fwtool/fwtool/internal/elfsym"
	"github.com/openhasp/fwtool/fwtool/internal/pathtree"
	"github.com/openhasp/fwtool/fwtool/internal/report"
)

const Descr = "print the memory usage of an ELF file by source path and symbol"

type options struct {
	ram, rom      bool
	printSections bool
	useSections   []int

	toolchain string
	maxWidth  int
	minSize   uint64

	fish, byName, human, filesOnly, alternating bool

	noDemangle, noMergePaths, noColor, noCumulative, noTotals bool

	demangler    string
	keepZeroSize bool
	treemap      string
	metricsFile  string
}

func (o *options) addFlags(fs *pflag.FlagSet) {
	fs.BoolVarP(&o.ram, "ram", "R", false, "print RAM usage")
	fs.BoolVarP(&o.rom, "rom", "F", false, "print ROM usage")
	fs.BoolVarP(&o.printSections, "print-sections", "P", false,
		"print section headers that can be used for filtering symbols with -S option")
	fs.IntSliceVarP(&o.useSections, "use-sections", "S", nil,
		"print memory usage only from the sections with given `NUMBER`s")

	fs.StringVarP(&o.toolchain, "toolchain-triplet", "t", "",
		"toolchain `PREFIX` of readelf, nm and c++filt, e.g. xtensa-esp32-elf-")
	fs.IntVarP(&o.maxWidth, "max-width", "w", 80, "maximum output width, 0 for no limit")
	fs.Uint64VarP(&o.minSize, "min-size", "m", 0, "do not print symbols smaller than `SIZE`")
	fs.BoolVarP(&o.fish, "fish-paths", "f", false, "when merging paths, use fish-like method to shrink them")
	fs.BoolVarP(&o.byName, "sort-by-name", "s", false, "sort symbols by name instead of size")
	fs.BoolVarP(&o.human, "human-readable", "H", false, "print sizes in human readable format")
	fs.BoolVarP(&o.filesOnly, "files-only", "o", false, "print only files (to be used with cumulative size enabled)")
	fs.BoolVarP(&o.alternating, "alternating-colors", "a", false, "use alternating colors when printing symbols")

	fs.BoolVar(&o.noDemangle, "no-demangle", false, "disable demangling of C++ symbol names")
	fs.BoolVar(&o.noMergePaths, "no-merge-paths", false, "disable merging paths that consist of only one part")
	fs.BoolVar(&o.noColor, "no-color", false, "disable colored output")
	fs.BoolVar(&o.noCumulative, "no-cumulative-size", false, "disable printing of cumulative sizes for paths")
	fs.BoolVar(&o.noTotals, "no-totals", false, "disable printing the total symbols size")

	fs.StringVar(&o.demangler, "demangler", demangle.NameCxxFilt,
		"demangler to use: "+demangle.NameCxxFilt+" or "+demangle.NameBuiltin)
	fs.BoolVar(&o.keepZeroSize, "keep-zero-size", false, "do not ignore symbols of zero size")
	fs.StringVar(&o.treemap, "treemap", "", "write an SVG treemap of every printed view to `FILE`")
	fs.StringVar(&o.metricsFile, "metrics-file", "", "write the view sizes to `FILE` in the Prometheus text format")

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		if name == "toolchain-path" {
			name = "toolchain-triplet"
		}
		return pflag.NormalizedName(name)
	})
}

// fromConfig replaces the defaults of the flags that were not set.
func (o *options) fromConfig(fs *pflag.FlagSet, cfg *config.Config) {
	if !fs.Changed("toolchain-triplet") {
		o.toolchain = cfg.Toolchain
	}
	if !fs.Changed("max-width") {
		o.maxWidth = cfg.Size.MaxWidth
	}
	if !fs.Changed("min-size") {
		o.minSize = cfg.Size.MinSize
	}
	if !fs.Changed("human-readable") {
		o.human = cfg.Size.Human
	}
	if !fs.Changed("alternating-colors") {
		o.alternating = cfg.Size.Alternating
	}
	if !fs.Changed("demangler") && cfg.Size.Demangler != "" {
		o.demangler = cfg.Size.Demangler
	}
}

func NewCommand() *cobra.Command {
	o := new(options)
	cmd := &cobra.Command{
		Use:   "size [OPTIONS] [ELF_FILE]",
		Short: Descr,
		Long: Descr + ".\n\n" +
			"Without ELF_FILE the firmware.elf of the configured build environment is used.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromContext(cmd.Context())
			o.fromConfig(cmd.Flags(), cfg)
			elf := cfg.ELF()
			if len(args) != 0 {
				elf = args[0]
			}
			if elf == "" {
				return errors.New("no ELF file given and no build environment configured")
			}
			a := &analyzer{
				o:   o,
				fs:  afero.NewOsFs(),
				out: cmd.OutOrStdout(),
				tc:  binutils.New(o.toolchain),
			}
			return a.run(cmd.Context(), elf)
		},
	}
	o.addFlags(cmd.Flags())
	return cmd
}

// view selects the symbols of one printed tree.
type view struct {
	title string
	keep  func(*elfsym.Section) bool
}

func (o *options) views() []view {
	var vs []view
	if o.rom {
		vs = append(vs, view{"ROM", (*elfsym.Section).OccupiesROM})
	}
	if o.ram {
		vs = append(vs, view{"RAM", (*elfsym.Section).OccupiesRAM})
	}
	if len(o.useSections) != 0 {
		nums := make(map[int]bool, len(o.useSections))
		strs := make([]string, len(o.useSections))
		for i, n := range o.useSections {
			nums[n] = true
			strs[i] = strconv.Itoa(n)
		}
		vs = append(vs, view{
			"SECTIONS: " + strings.Join(strs, ","),
			func(s *elfsym.Section) bool { return s != nil && nums[s.Num] },
		})
	}
	return vs
}

type analyzer struct {
	o   *options
	fs  afero.Fs
	out io.Writer
	tc  *binutils.Toolchain

	syms     []*elfsym.Symbol
	sections []*elfsym.Section
	index    map[int]*elfsym.Section
	metrics  *report.Metrics
}

func (a *analyzer) run(ctx context.Context, elf string) error {
	o := a.o
	if ok, _ := afero.Exists(a.fs, elf); !ok {
		return errors.Errorf("ELF file %s does not exist", elf)
	}
	views := o.views()
	if len(views) == 0 && !o.printSections {
		return errors.New("no memory type action specified (RAM/ROM or special), see -h for help")
	}
	var dm demangle.Demangler
	tools := []string{binutils.Readelf, binutils.Nm}
	if !o.noDemangle {
		var err error
		if dm, err = demangle.New(o.demangler, a.tc); err != nil {
			return err
		}
		if _, ok := dm.(demangle.CxxFilt); ok {
			tools = append(tools, binutils.CxxFilt)
		}
	}
	if err := a.tc.Resolve(tools...); err != nil {
		return err
	}
	if err := a.load(ctx, elf, dm); err != nil {
		return err
	}
	if o.metricsFile != "" {
		a.metrics = report.NewMetrics()
		a.metrics.ObserveSections(a.sections)
	}
	if o.printSections {
		if err := report.Print(a.out, report.Sections(a.sections, !o.noColor)); err != nil {
			return err
		}
	}
	for _, v := range views {
		if err := a.printView(v, len(views) > 1); err != nil {
			return err
		}
	}
	if a.metrics != nil {
		logrus.Infof("writing metrics to %s", o.metricsFile)
		return errors.Wrap(a.metrics.WriteFile(o.metricsFile), "metrics")
	}
	return nil
}

func (a *analyzer) load(ctx context.Context, elf string, dm demangle.Demangler) error {
	filter := elfsym.DefaultSymbolFilter()
	filter.KeepZeroSize = a.o.keepZeroSize
	err := a.tc.Run(ctx, binutils.Readelf, []string{"--wide", "--syms", elf}, func(r io.Reader) error {
		var (
			stats elfsym.Stats
			err   error
		)
		a.syms, stats, err = elfsym.ReadSymbols(r, filter)
		logrus.Infof("%d symbols, %d lines ignored", stats.Parsed, stats.Ignored)
		return err
	})
	if err != nil {
		return err
	}
	var fi elfsym.FileInfo
	err = a.tc.Run(ctx, binutils.Nm, []string{"--portability", "--line-numbers", elf}, func(r io.Reader) error {
		var err error
		fi, err = elfsym.ReadFileInfo(r)
		return err
	})
	if err != nil {
		return err
	}
	logrus.Infof("source location found for %d symbols", fi.Attach(a.syms))
	// Demangling must follow Attach, file info is keyed by mangled names.
	if dm != nil {
		if err := dm.Demangle(ctx, a.syms); err != nil {
			return err
		}
	}
	err = a.tc.Run(ctx, binutils.Readelf, []string{"--wide", "--section-headers", elf}, func(r io.Reader) error {
		var err error
		a.sections, err = elfsym.ReadSections(r)
		return err
	})
	if err != nil {
		return err
	}
	a.index = elfsym.Index(a.sections)
	return nil
}

// filter returns the symbols defined in the sections accepted by keep.
func (a *analyzer) filter(keep func(*elfsym.Section) bool) ([]*elfsym.Symbol, error) {
	var names []string
	for _, s := range a.sections {
		if keep(s) {
			names = append(names, s.Name)
		}
	}
	secs := strings.Join(names, ", ")
	logrus.Infof("Considering sections: %s", secs)
	var syms []*elfsym.Symbol
	for _, s := range a.syms {
		var sec *elfsym.Section
		if s.Ndx.IsIndex() {
			sec = a.index[s.Ndx.Index]
		}
		if keep(sec) {
			syms = append(syms, s)
		}
	}
	if len(syms) == 0 {
		return nil, errors.Errorf(
			"No symbols from given section found or all were ignored!\n       Sections were: %s",
			secs,
		)
	}
	return syms, nil
}

func (a *analyzer) printView(v view, many bool) error {
	o := a.o
	syms, err := a.filter(v.keep)
	if err != nil {
		return err
	}
	t := pathtree.New(syms...)
	if !o.noMergePaths {
		t.MergePaths(o.fish)
	}
	if !o.noCumulative {
		t.AccumulateSizes()
	}
	order := pathtree.BySize
	if o.byName {
		order = pathtree.ByName
	}
	t.Sort(order)
	if !o.noTotals {
		t.CalculateTotalSize()
	}
	lines := report.Render(t, report.Options{
		Header:      v.title,
		MaxWidth:    o.maxWidth,
		MinSize:     o.minSize,
		FilesOnly:   o.filesOnly,
		Human:       o.human,
		Colors:      !o.noColor,
		Alternating: o.alternating,
	})
	if err := report.Print(a.out, lines); err != nil {
		return err
	}
	if a.metrics != nil {
		a.metrics.ObserveView(v.title, t)
	}
	if o.treemap != "" {
		name := o.treemap
		if many {
			name = viewFile(name, v.title)
		}
		if err := a.writeTreemap(name, t, v.title); err != nil {
			return err
		}
	}
	return nil
}

func (a *analyzer) writeTreemap(name string, t *pathtree.Tree, title string) (err error) {
	logrus.Infof("writing %s treemap to %s", title, name)
	f, err := a.fs.Create(name)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return report.WriteTreemap(f, t, title, report.DefaultTreemapOptions)
}

// viewFile inserts the view title into the file name, e.g. size.svg becomes
// size-sections-1-2.svg for the "SECTIONS: 1,2" view.
func viewFile(name, title string) string {
	slug := strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + "-" + strings.Join(slug, "-") + ext
}
