// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package benchplot renders the history of aggregated benchmarks as
// charts, one file per benchmark identity.
//
// Charts are written to <dir>/<suite>/<name>.<format>, where name is
// the benchmark identity made safe for use as a file name (see
// FileName). These are the plot artifacts that a manifest indexes next
// to the stores.
package benchplot

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aclements/go-moremath/stats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/heat-perf/benchhist/benchstore"
	"github.com/heat-perf/benchhist/internal/atomicfile"
)

// Formats lists the supported output formats.
var Formats = []string{"png", "svg", "pdf"}

// Options control WriteStore.
type Options struct {
	// Dir is the root directory for charts. Each suite gets its own
	// subdirectory.
	Dir string

	// Format is one of Formats. The default is "png".
	Format string

	// Metric selects the statistic to chart. If empty, each chart
	// uses the first metric, in sorted order, found in its history.
	Metric string

	// Width and Height are the chart dimensions. Zero means
	// 16cm by 9cm.
	Width, Height vg.Length

	// Warn, if non-nil, is called for each benchmark that is skipped.
	Warn func(format string, args ...interface{})
}

// A Chart describes one written chart.
type Chart struct {
	Identity string
	Metric   string
	Path     string
	Points   int
}

// maxNameLen bounds the readable part of a chart file name.
const maxNameLen = 80

// FileName returns the base file name, without extension, used for the
// chart of identity. It is the identity with unsafe characters
// replaced, cut to maxNameLen bytes, followed by "-" and a digest of
// the full identity, so distinct identities never share a file.
func FileName(identity string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r == '/':
			return ','
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case strings.ContainsRune("._=+,-", r):
			return r
		}
		return '_'
	}, identity)
	if len(safe) > maxNameLen {
		safe = safe[:maxNameLen]
	}
	sum := sha256.Sum256([]byte(identity))
	return safe + "-" + hex.EncodeToString(sum[:4])
}

// Metrics returns the sorted names of all statistics in e's history.
func Metrics(e *benchstore.Entry) []string {
	seen := make(map[string]bool)
	var names []string
	for _, p := range e.History {
		for k := range p.Stats {
			if !seen[k] {
				seen[k] = true
				names = append(names, k)
			}
		}
	}
	sort.Strings(names)
	return names
}

// Series returns the values of metric over e's history. X is the
// history index; points lacking the metric are left out.
func Series(e *benchstore.Entry, metric string) plotter.XYs {
	var xys plotter.XYs
	for i, p := range e.History {
		v, ok := p.Stats[metric]
		if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		xys = append(xys, plotter.XY{X: float64(i), Y: v})
	}
	return xys
}

// New builds the chart of metric for e. It returns an error if e has
// no values for metric.
func New(e *benchstore.Entry, metric string) (*plot.Plot, error) {
	xys := Series(e, metric)
	if len(xys) == 0 {
		return nil, fmt.Errorf("%s: no values for %s", e.Identity, metric)
	}
	label, factor, binary := tidyMetric(metric)
	ys := make([]float64, len(xys))
	for i := range xys {
		xys[i].Y *= factor
		ys[i] = xys[i].Y
	}

	pl := plot.New()
	pl.Title.Text = e.Identity
	pl.X.Label.Text = "run"
	pl.Y.Label.Text = label
	pl.Y.Tick.Marker = unitTicks{binary}

	grid := plotter.NewGrid()
	grid.Vertical.Color = nil
	pl.Add(grid)

	line, err := plotter.NewLine(xys)
	if err != nil {
		return nil, err
	}
	line.Color = color.NRGBA{0, 0x55, 0xAA, 0xFF}
	points, err := plotter.NewScatter(xys)
	if err != nil {
		return nil, err
	}
	points.Color = line.Color
	pl.Add(line, points)

	med := median(ys)
	medLine := plotter.NewFunction(func(float64) float64 { return med })
	medLine.Color = color.NRGBA{0x99, 0, 0xFF, 0xFF}
	medLine.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	pl.Add(medLine)
	pl.Legend.Add("median", medLine)
	pl.Legend.Top = true

	// A flat series would otherwise collapse the Y axis.
	lo, hi := stats.Bounds(ys)
	if lo == hi {
		pad := math.Abs(lo) / 10
		if pad == 0 {
			pad = 1
		}
		pl.Y.Min, pl.Y.Max = lo-pad, hi+pad
	}

	runs := make([]string, len(e.History))
	for i, p := range e.History {
		runs[i] = shortRun(p.Run)
	}
	pl.NominalX(runs...)
	pl.X.Min, pl.X.Max = -0.5, float64(len(e.History))-0.5
	return pl, nil
}

// median returns the median of ys without reordering ys.
func median(ys []float64) float64 {
	return stats.Sample{Xs: ys}.Quantile(0.5)
}

// shortRun abbreviates long run keys for tick labels.
func shortRun(run string) string {
	run = strings.TrimPrefix(run, "sha256:")
	if len(run) > 12 {
		return run[:12]
	}
	return run
}

// WriteStore writes one chart per entry of s. Entries without a value
// for the chosen metric are skipped.
func WriteStore(s *benchstore.Store, opts *Options) ([]*Chart, error) {
	format := opts.Format
	if format == "" {
		format = "png"
	}
	if !validFormat(format) {
		return nil, fmt.Errorf("unsupported chart format %q", format)
	}
	w, h := opts.Width, opts.Height
	if w == 0 {
		w = 16 * vg.Centimeter
	}
	if h == 0 {
		h = 9 * vg.Centimeter
	}
	dir := filepath.Join(opts.Dir, s.Suite)

	var charts []*Chart
	written := make(map[string]string)
	for _, e := range s.Entries {
		metric := opts.Metric
		if metric == "" {
			if ms := Metrics(e); len(ms) > 0 {
				metric = ms[0]
			}
		}
		n := len(Series(e, metric))
		if metric == "" || n == 0 {
			if opts.Warn != nil {
				opts.Warn("%s: %s: nothing to plot\n", s.Suite, e.Identity)
			}
			continue
		}
		pl, err := New(e, metric)
		if err != nil {
			return charts, err
		}
		wt, err := pl.WriterTo(w, h, format)
		if err != nil {
			return charts, err
		}
		var buf bytes.Buffer
		if _, err := wt.WriteTo(&buf); err != nil {
			return charts, fmt.Errorf("%s: %w", e.Identity, err)
		}
		if err := os.MkdirAll(dir, 0777); err != nil {
			return charts, err
		}
		path := filepath.Join(dir, FileName(e.Identity)+"."+format)
		if other, ok := written[path]; ok {
			return charts, fmt.Errorf("%s and %s both chart to %s", other, e.Identity, path)
		}
		written[path] = e.Identity
		if err := atomicfile.WriteFile(path, buf.Bytes(), 0644); err != nil {
			return charts, err
		}
		charts = append(charts, &Chart{Identity: e.Identity, Metric: metric, Path: path, Points: n})
	}
	return charts, nil
}

func validFormat(f string) bool {
	for _, g := range Formats {
		if f == g {
			return true
		}
	}
	return false
}
