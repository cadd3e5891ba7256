// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package report

import (
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/openhasp/fwtool/fwtool/internal/elfsym"
	"github.com/openhasp/fwtool/fwtool/internal/pathtree"
)

// Metrics collects size gauges of the analyzed firmware, to be written in
// the Prometheus text format for CI dashboards.
type Metrics struct {
	reg      *prometheus.Registry
	total    *prometheus.GaugeVec
	symbols  *prometheus.GaugeVec
	files    *prometheus.GaugeVec
	sections *prometheus.GaugeVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		total: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "fwtool",
			Name:      "view_size_bytes",
			Help:      "Total size of the symbols of a memory view.",
		}, []string{"view"}),
		symbols: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "fwtool",
			Name:      "view_symbols",
			Help:      "Number of symbols in a memory view.",
		}, []string{"view"}),
		files: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "fwtool",
			Name:      "file_size_bytes",
			Help:      "Total size of the symbols defined in a source file.",
		}, []string{"view", "file"}),
		sections: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "fwtool",
			Name:      "section_size_bytes",
			Help:      "Size of an allocated section.",
		}, []string{"section", "memory"}),
	}
	m.reg.MustRegister(m.total, m.symbols, m.files, m.sections)
	return m
}

// ObserveView records the totals of a rendered view and the size of every
// file in its tree.
func (m *Metrics) ObserveView(view string, t *pathtree.Tree) {
	var total uint64
	var count int
	files := make(map[string]uint64)
	var path []string
	t.Walk(func(n *pathtree.Node, depth int) {
		if n.IsRoot() {
			return
		}
		path = append(path[:depth-1], n.Name())
		if n.IsSymbol() {
			total += n.Symbol().Size
			count++
			if p := n.Parent(); p.IsFile() {
				files[filepath.Join(path[:depth-1]...)] += n.Symbol().Size
			}
		}
	})
	m.total.WithLabelValues(view).Set(float64(total))
	m.symbols.WithLabelValues(view).Set(float64(count))
	for f, size := range files {
		m.files.WithLabelValues(view, f).Set(float64(size))
	}
}

// ObserveSections records the sizes of all allocated sections.
func (m *Metrics) ObserveSections(ss []*elfsym.Section) {
	for _, s := range ss {
		switch {
		case s.OccupiesRAM():
			m.sections.WithLabelValues(s.Name, "ram").Set(float64(s.Size))
		case s.OccupiesROM():
			m.sections.WithLabelValues(s.Name, "rom").Set(float64(s.Size))
		}
	}
}

// WriteFile writes all gauges to the named file in the text exposition
// format.
func (m *Metrics) WriteFile(name string) error {
	return prometheus.WriteToTextfile(name, m.reg)
}
