// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchstore

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/heat-perf/benchhist/benchrec"
)

// storeWithExtras has unknown fields at every level, as written by a
// newer version of this package.
const storeWithExtras = `{
	"version": 1,
	"suite": "linalg",
	"benchmarks": [
		{
			"identity": "Matmul/n=100",
			"name": "Matmul",
			"params": {"n": 100},
			"history": [
				{"run": "r1", "timestamp": "2024-01-01T00:00:00+00:00", "stats": {"mean": 1.25, "min": 1}, "metadata": {"commit": "abc"}, "machine": {"cores": 8}},
				{"run": "r2", "stats": {"mean": 1.5}}
			],
			"owner": "numerics"
		},
		{"identity": "Sum", "name": "Sum", "history": [{"run": "r1", "stats": {"mean": 3}}]}
	],
	"generator": "benchhist/2",
	"thresholds": {"mean": 0.1}
}`

var storeCmp = cmp.Options{
	cmp.AllowUnexported(benchrec.Param{}),
	cmpopts.IgnoreUnexported(Store{}, Entry{}),
	cmp.Transformer("raw", func(m json.RawMessage) string {
		// Compare raw JSON semantically.
		var v interface{}
		if err := json.Unmarshal(m, &v); err != nil {
			return string(m)
		}
		out, _ := json.Marshal(v)
		return string(out)
	}),
}

func TestRoundTrip(t *testing.T) {
	s, err := Decode([]byte(storeWithExtras))
	if err != nil {
		t.Fatal(err)
	}
	if got := s.Extra["generator"]; string(got) != `"benchhist/2"` {
		t.Errorf("top-level extra generator = %s", got)
	}
	if got := s.Entries[0].Extra["owner"]; string(got) != `"numerics"` {
		t.Errorf("entry extra owner = %s", got)
	}
	if _, ok := s.Entries[0].History[0].Extra["machine"]; !ok {
		t.Errorf("point extra machine was dropped")
	}

	data, err := s.Encode()
	if err != nil {
		t.Fatal(err)
	}
	for _, field := range []string{`"generator"`, `"thresholds"`, `"owner"`, `"machine"`, `"cores": 8`} {
		if !strings.Contains(string(data), field) {
			t.Errorf("encoded store lacks %s:\n%s", field, data)
		}
	}
	s2, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(s, s2, storeCmp); diff != "" {
		t.Errorf("round trip mismatch (-before +after):\n%s", diff)
	}

	// Encoding is stable once canonical.
	data2, err := s2.Encode()
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != string(data2) {
		t.Errorf("second encoding differs:\n%s\n---\n%s", data, data2)
	}
}

func TestDecodeErrors(t *testing.T) {
	for _, test := range []struct{ name, doc, want string }{
		{"empty", ``, "unexpected end"},
		{"truncated", storeWithExtras[:100], "unexpected end"},
		{"not object", `[1, 2]`, "cannot unmarshal"},
		{"no version", `{"benchmarks": []}`, "unsupported store version 0"},
		{"future", `{"version": 99, "benchmarks": []}`, "unsupported store version 99"},
		{"no identity", `{"version": 1, "benchmarks": [{"name": "A", "history": []}]}`, "no identity"},
		{"duplicate", `{"version": 1, "benchmarks": [{"identity": "A"}, {"identity": "A"}]}`, "duplicate benchmark"},
		{"null point", `{"version": 1, "benchmarks": [{"identity": "A", "history": [null]}]}`, "is null"},
	} {
		_, err := Decode([]byte(test.doc))
		if err == nil {
			t.Errorf("%s: got success, want error containing %q", test.name, test.want)
		} else if !strings.Contains(err.Error(), test.want) {
			t.Errorf("%s: got %q, want error containing %q", test.name, err, test.want)
		}
	}
}

func TestLoadAbsentVsCorrupt(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "default.json")

	_, err := Load(path)
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Load(absent) = %v, want fs.ErrNotExist", err)
	}
	var fe *FormatError
	if errors.As(err, &fe) {
		t.Errorf("Load(absent) returned a FormatError")
	}

	s, created, err := LoadOrNew(path, "default")
	if err != nil || !created || s.Suite != "default" || len(s.Entries) != 0 {
		t.Errorf("LoadOrNew(absent) = %+v, %v, %v", s, created, err)
	}

	if err := os.WriteFile(path, []byte(`{"version": 1, "benchmarks": [`), 0644); err != nil {
		t.Fatal(err)
	}
	_, err = Load(path)
	if !errors.As(err, &fe) {
		t.Fatalf("Load(corrupt) = %v, want *FormatError", err)
	}
	if fe.Path != path {
		t.Errorf("FormatError.Path = %q, want %q", fe.Path, path)
	}
	if errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Load(corrupt) looks like an absent store")
	}
	if _, _, err := LoadOrNew(path, "default"); !errors.As(err, &fe) {
		t.Errorf("LoadOrNew(corrupt) = %v, want *FormatError", err)
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "linalg.json")
	s := New("linalg")
	rec := &benchrec.Record{
		Name:   "Matmul",
		Params: benchrec.Params{"n": benchrec.NumberParam(100)},
		Stats:  map[string]float64{"mean": 2.5},
		RunID:  "r1",
		Extra:  map[string]json.RawMessage{"host": json.RawMessage(`"ci"`), "run": json.RawMessage(`7`)},
	}
	e := s.AddEntry(rec.Name, rec.Params)
	e.Append(PointFromRecord(rec))

	if err := s.Save(path, nil); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(path + LockSuffix); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("lock file left behind: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(s, got, storeCmp); diff != "" {
		t.Errorf("Load mismatch (-saved +loaded):\n%s", diff)
	}
	ge := got.Lookup("Matmul/n=100")
	if ge == nil || !ge.HasRun("r1") {
		t.Fatalf("loaded store lost entry or run index: %+v", ge)
	}
	p := ge.History[0]
	if string(p.Extra["host"]) != `"ci"` || string(p.Extra["record_run"]) != `7` {
		t.Errorf("record extras = %v", p.Extra)
	}

	// Saving again from the loaded copy is fine.
	ge.Append(&Point{Run: "r2", Stats: map[string]float64{"mean": 2.4}})
	if err := got.Save(path, nil); err != nil {
		t.Fatalf("second Save: %v", err)
	}
}

func TestSaveConflict(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.json")
	if err := New("s").Save(path, nil); err != nil {
		t.Fatal(err)
	}
	a, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	a.AddEntry("A", nil).Append(&Point{Run: "r1", Stats: map[string]float64{"x": 1}})
	b.AddEntry("B", nil).Append(&Point{Run: "r1", Stats: map[string]float64{"x": 2}})

	if err := a.Save(path, nil); err != nil {
		t.Fatalf("first writer: %v", err)
	}
	before, _ := os.ReadFile(path)
	if err := b.Save(path, nil); !errors.Is(err, ErrConflict) {
		t.Fatalf("second writer: got %v, want ErrConflict", err)
	}
	after, _ := os.ReadFile(path)
	if string(before) != string(after) {
		t.Errorf("conflicting Save modified the store")
	}

	// A new store must not clobber one created concurrently.
	if err := New("s").Save(path, nil); !errors.Is(err, ErrConflict) {
		t.Errorf("saving new store over existing file: got %v, want ErrConflict", err)
	}
}

func TestLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.json")
	opts := &LockOptions{Timeout: 50 * time.Millisecond, StaleAge: time.Hour}

	l, err := AcquireLock(path, opts)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := AcquireLock(path, opts); !errors.Is(err, ErrLocked) {
		t.Errorf("second AcquireLock: got %v, want ErrLocked", err)
	}
	if err := New("s").Save(path, opts); !errors.Is(err, ErrLocked) {
		t.Errorf("Save while locked: got %v, want ErrLocked", err)
	}
	if err := l.Release(); err != nil {
		t.Fatal(err)
	}
	l2, err := AcquireLock(path, opts)
	if err != nil {
		t.Fatalf("AcquireLock after Release: %v", err)
	}
	l2.Release()
}

func TestStaleLockBroken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.json")
	if err := os.WriteFile(path+LockSuffix, []byte("pid 1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(path+LockSuffix, old, old); err != nil {
		t.Fatal(err)
	}
	l, err := AcquireLock(path, &LockOptions{Timeout: 10 * time.Millisecond, StaleAge: time.Minute})
	if err != nil {
		t.Fatalf("AcquireLock with stale lock: %v", err)
	}
	l.Release()
}
