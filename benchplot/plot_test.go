// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchplot

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gonum.org/v1/plot/plotter"

	"github.com/heat-perf/benchhist/benchrec"
	"github.com/heat-perf/benchhist/benchstore"
)

func testStore() *benchstore.Store {
	s := benchstore.New("linalg")
	e := s.AddEntry("Matmul", benchrec.Params{"n": benchrec.NumberParam(100), "dtype": benchrec.StringParam("float32")})
	e.Append(&benchstore.Point{Run: "r1", Stats: map[string]float64{"mean": 2, "min": 1.5}})
	e.Append(&benchstore.Point{Run: "r2", Stats: map[string]float64{"min": 1.4}})
	e.Append(&benchstore.Point{Run: "r3", Stats: map[string]float64{"mean": 2.2, "min": 1.6}})

	flat := s.AddEntry("Flat", nil)
	flat.Append(&benchstore.Point{Run: "r1", Stats: map[string]float64{"mean": 0}})
	flat.Append(&benchstore.Point{Run: "r2", Stats: map[string]float64{"mean": 0}})
	return s
}

func TestFileName(t *testing.T) {
	for _, test := range []struct {
		identity, prefix string
	}{
		{"Matmul", "Matmul-"},
		{"Matmul/dtype=float32/n=100", "Matmul,dtype=float32,n=100-"},
		{"Sort/kind=a b%2Fc", "Sort,kind=a_b_2Fc-"},
		{"ümlaut", "_mlaut-"},
	} {
		got := FileName(test.identity)
		if !strings.HasPrefix(got, test.prefix) || len(got) != len(test.prefix)+8 {
			t.Errorf("FileName(%q) = %q, want %q and an 8-digit digest", test.identity, got, test.prefix)
		}
		if again := FileName(test.identity); again != got {
			t.Errorf("FileName(%q) is not stable: %q then %q", test.identity, got, again)
		}
	}
}

func TestFileNameDistinct(t *testing.T) {
	for _, pair := range [][2]string{
		{"A/x=a b", "A/x=a_b"},
		{"A/x=a,b", "A/x=a%2Fb"},
		{"A/x=%2F", "A/x=_2F"},
		{strings.Repeat("L", 200) + "1", strings.Repeat("L", 200) + "2"},
	} {
		if a, b := FileName(pair[0]), FileName(pair[1]); a == b {
			t.Errorf("%q and %q share file name %q", pair[0], pair[1], a)
		}
	}
	if n := len(FileName(strings.Repeat("x", 500))); n != maxNameLen+9 {
		t.Errorf("long identity gave a %d-byte name, want %d", n, maxNameLen+9)
	}
}

func TestMedian(t *testing.T) {
	ys := []float64{3, 1, 2}
	if got := median(ys); got != 2 {
		t.Errorf("median(%v) = %v, want 2", ys, got)
	}
	if diff := cmp.Diff([]float64{3, 1, 2}, ys); diff != "" {
		t.Errorf("median reordered its input (-want +got):\n%s", diff)
	}
	if got := median([]float64{4, 1, 3, 2}); got != 2.5 {
		t.Errorf("median of four values = %v, want 2.5", got)
	}
}

func TestWriteStoreSimilarNames(t *testing.T) {
	s := benchstore.New("s")
	for _, v := range []string{"a b", "a_b"} {
		e := s.AddEntry("A", benchrec.Params{"x": benchrec.StringParam(v)})
		e.Append(&benchstore.Point{Run: "r1", Stats: map[string]float64{"mean": 1}})
	}
	charts, err := WriteStore(s, &Options{Dir: t.TempDir(), Format: "svg"})
	if err != nil {
		t.Fatalf("WriteStore: %v", err)
	}
	if len(charts) != 2 || charts[0].Path == charts[1].Path {
		t.Fatalf("charts = %+v, want two distinct files", charts)
	}
	for _, c := range charts {
		if _, err := os.Stat(c.Path); err != nil {
			t.Error(err)
		}
	}
}

func TestSeries(t *testing.T) {
	e := testStore().Lookup("Matmul/dtype=float32/n=100")
	if diff := cmp.Diff([]string{"mean", "min"}, Metrics(e)); diff != "" {
		t.Errorf("Metrics (-want +got):\n%s", diff)
	}
	want := plotter.XYs{{X: 0, Y: 2}, {X: 2, Y: 2.2}}
	if diff := cmp.Diff(want, Series(e, "mean")); diff != "" {
		t.Errorf("Series(mean) (-want +got):\n%s", diff)
	}
	if got := Series(e, "max"); len(got) != 0 {
		t.Errorf("Series(max) = %v, want nothing", got)
	}
}

func TestWriteStore(t *testing.T) {
	dir := t.TempDir()
	var warnings []string
	opts := &Options{
		Dir:  dir,
		Warn: func(format string, args ...interface{}) { warnings = append(warnings, format) },
	}
	charts, err := WriteStore(testStore(), opts)
	if err != nil {
		t.Fatalf("WriteStore: %v", err)
	}
	if len(charts) != 2 || len(warnings) != 0 {
		t.Fatalf("wrote %d charts with %d warnings, want 2 and 0", len(charts), len(warnings))
	}
	c := charts[0]
	wantPath := filepath.Join(dir, "linalg", FileName("Matmul/dtype=float32/n=100")+".png")
	if c.Path != wantPath || c.Metric != "mean" || c.Points != 2 {
		t.Errorf("chart = %+v, want %s of mean with 2 points", c, wantPath)
	}
	data, err := os.ReadFile(c.Path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Errorf("%s is not a PNG file", c.Path)
	}
}

func TestWriteStoreMetric(t *testing.T) {
	dir := t.TempDir()
	var skipped int
	opts := &Options{
		Dir:    dir,
		Format: "svg",
		Metric: "min",
		Warn:   func(string, ...interface{}) { skipped++ },
	}
	charts, err := WriteStore(testStore(), opts)
	if err != nil {
		t.Fatalf("WriteStore: %v", err)
	}
	// Flat has no "min" values.
	if len(charts) != 1 || skipped != 1 {
		t.Fatalf("wrote %d charts, skipped %d; want 1 and 1", len(charts), skipped)
	}
	if charts[0].Points != 3 || filepath.Ext(charts[0].Path) != ".svg" {
		t.Errorf("chart = %+v", charts[0])
	}
	if _, err := os.Stat(filepath.Join(dir, "linalg", FileName("Flat")+".svg")); err == nil {
		t.Errorf("chart written for benchmark without the metric")
	}
}

func TestWriteStoreBadFormat(t *testing.T) {
	if _, err := WriteStore(testStore(), &Options{Dir: t.TempDir(), Format: "gif"}); err == nil {
		t.Fatal("WriteStore with format gif succeeded")
	}
}
