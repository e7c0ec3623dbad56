// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchagg

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/heat-perf/benchhist/benchrec"
	"github.com/heat-perf/benchhist/benchstore"
)

var storeCmp = cmp.Options{
	cmp.AllowUnexported(benchrec.Param{}),
	cmpopts.IgnoreUnexported(benchstore.Store{}, benchstore.Entry{}),
}

func rec(name, run string, mean float64) *benchrec.Record {
	return &benchrec.Record{
		Name:  name,
		Suite: benchrec.DefaultSuite,
		RunID: run,
		Stats: map[string]float64{"mean": mean},
	}
}

func identities(s *benchstore.Store) []string {
	var ids []string
	for _, e := range s.Entries {
		ids = append(ids, e.Identity)
	}
	return ids
}

func runs(e *benchstore.Entry) []string {
	var rs []string
	for _, p := range e.History {
		rs = append(rs, p.Run)
	}
	return rs
}

func TestMergeIntoEmpty(t *testing.T) {
	s := benchstore.New("default")
	res := Merge(s, []*benchrec.Record{rec("B", "r1", 2), rec("A", "r1", 1)})

	if res.NewEntries != 2 || len(res.Appended) != 2 || res.Duplicates != 0 {
		t.Errorf("Merge result = %+v", res)
	}
	// Entries keep arrival order.
	if diff := cmp.Diff([]string{"B", "A"}, identities(s)); diff != "" {
		t.Errorf("identities (-want +got):\n%s", diff)
	}
	for _, e := range s.Entries {
		if len(e.History) != 1 {
			t.Errorf("%s has %d history points, want 1", e.Identity, len(e.History))
		}
	}
}

func TestMergeDuplicateRun(t *testing.T) {
	s := benchstore.New("default")
	Merge(s, []*benchrec.Record{rec("A", "r1", 1)})

	res := Merge(s, []*benchrec.Record{rec("A", "r1", 1)})
	if res.Duplicates != 1 || len(res.Appended) != 0 || res.NewEntries != 0 {
		t.Errorf("Merge result = %+v, want one duplicate", res)
	}
	if got := runs(s.Lookup("A")); len(got) != 1 {
		t.Errorf("history runs = %v, want [r1]", got)
	}

	// A duplicate within a single batch is also dropped.
	res = Merge(s, []*benchrec.Record{rec("A", "r2", 1), rec("A", "r2", 1)})
	if res.Duplicates != 1 || len(res.Appended) != 1 {
		t.Errorf("in-batch duplicate: result = %+v", res)
	}
	if diff := cmp.Diff([]string{"r1", "r2"}, runs(s.Lookup("A"))); diff != "" {
		t.Errorf("history runs (-want +got):\n%s", diff)
	}
}

func TestMergeConflict(t *testing.T) {
	s := seededStore()
	changed := rec("A", "r1", 1.5)
	meta := rec("B", "r1", 2)
	meta.Metadata = []byte(`{"commit": "def"}`)
	same := rec("B", "r1", 2)

	res := Merge(s, []*benchrec.Record{changed, meta, same})
	if res.Duplicates != 1 || len(res.Appended) != 0 {
		t.Errorf("Merge result = %+v, want one duplicate and nothing appended", res)
	}
	if len(res.Conflicts) != 2 {
		t.Fatalf("got %d conflicts, want 2", len(res.Conflicts))
	}
	if c := res.Conflicts[0]; c.Record != changed || c.Entry.Identity != "A" || c.Existing.Stats["mean"] != 1 {
		t.Errorf("first conflict = %+v", c)
	}
	if c := res.Conflicts[1]; c.Record != meta || c.Entry.Identity != "B" {
		t.Errorf("second conflict = %+v", c)
	}
	// The stored point wins.
	if p := s.Lookup("A").History[0]; p.Stats["mean"] != 1 {
		t.Errorf("stored point changed to %v", p.Stats)
	}
}

func TestMergeKindsStayApart(t *testing.T) {
	s := benchstore.New("default")
	str := rec("A", "r1", 1)
	str.Params = benchrec.Params{"n": benchrec.StringParam("10")}
	num := rec("A", "r1", 2)
	num.Params = benchrec.Params{"n": benchrec.NumberParam(10)}

	res := Merge(s, []*benchrec.Record{str, num})
	if res.NewEntries != 2 || len(res.Appended) != 2 || res.Duplicates != 0 || len(res.Conflicts) != 0 {
		t.Errorf("Merge result = %+v, want two new entries", res)
	}
	if e := s.Lookup("A/n=10"); e == nil || e.History[0].Stats["mean"] != 2 {
		t.Errorf("numeric entry = %+v", e)
	}
	if e := s.Lookup(`A/n="10"`); e == nil || e.History[0].Stats["mean"] != 1 {
		t.Errorf("string entry = %+v", e)
	}
}

func TestMergeWithoutRunID(t *testing.T) {
	s := benchstore.New("default")
	a := rec("A", "", 1)
	a.Timestamp = "2024-01-01T00:00:00+00:00"
	b := rec("A", "", 1)
	b.Timestamp = "2024-01-02T00:00:00+00:00"

	Merge(s, []*benchrec.Record{a, b})
	res := Merge(s, []*benchrec.Record{a, b})
	if res.Duplicates != 2 {
		t.Errorf("resubmitting records without run IDs: %+v, want 2 duplicates", res)
	}
	if n := len(s.Lookup("A").History); n != 2 {
		t.Errorf("history has %d points, want 2", n)
	}
}

func TestMergeIdempotent(t *testing.T) {
	batch := []*benchrec.Record{rec("A", "r2", 1), rec("C", "r2", 3), rec("A", "r3", 1.5)}

	once := seededStore()
	Merge(once, batch)

	twice := seededStore()
	Merge(twice, batch)
	res := Merge(twice, batch)
	if len(res.Appended) != 0 || res.NewEntries != 0 || res.Duplicates != len(batch) {
		t.Errorf("second merge = %+v, want only duplicates", res)
	}
	if diff := cmp.Diff(once, twice, storeCmp); diff != "" {
		t.Errorf("merging twice differs from merging once (-once +twice):\n%s", diff)
	}
}

func seededStore() *benchstore.Store {
	s := benchstore.New("default")
	Merge(s, []*benchrec.Record{rec("A", "r1", 1), rec("B", "r1", 2)})
	return s
}

func TestMergeMonotonic(t *testing.T) {
	s := seededStore()
	before := make(map[string][]benchstore.Point)
	for _, e := range s.Entries {
		for _, p := range e.History {
			before[e.Identity] = append(before[e.Identity], *p)
		}
	}

	res := Merge(s, []*benchrec.Record{rec("A", "r2", 9), rec("A", "r1", 99), rec("D", "r1", 4)})
	if len(res.Conflicts) != 1 {
		t.Errorf("got %d conflicts, want 1 for the resubmitted r1", len(res.Conflicts))
	}

	for id, old := range before {
		e := s.Lookup(id)
		if e == nil {
			t.Fatalf("entry %s disappeared", id)
		}
		if len(e.History) < len(old) {
			t.Errorf("%s shrank from %d to %d points", id, len(old), len(e.History))
			continue
		}
		for i := range old {
			if diff := cmp.Diff(old[i], *e.History[i]); diff != "" {
				t.Errorf("%s point %d changed (-old +new):\n%s", id, i, diff)
			}
		}
	}
	// B was not in the batch and is unchanged.
	if n := len(s.Lookup("B").History); n != 1 {
		t.Errorf("B has %d points, want 1", n)
	}
}

func TestMergePartialFailure(t *testing.T) {
	s := seededStore()
	bad := rec("", "r2", 1)
	noStats := rec("E", "r2", 0)
	noStats.Stats = nil
	batch := []*benchrec.Record{rec("A", "r2", 1), bad, rec("F", "r2", 1), noStats, rec("B", "r2", 2)}

	res := Merge(s, batch)
	if len(res.Skipped) != 2 {
		t.Fatalf("skipped %d records, want 2", len(res.Skipped))
	}
	if res.Skipped[0].Record != bad || res.Skipped[1].Record != noStats {
		t.Errorf("skipped the wrong records: %+v", res.Skipped)
	}
	if got, want := len(res.Appended), len(batch)-2; got != want {
		t.Errorf("appended %d points, want %d", got, want)
	}
	if _, err := s.Encode(); err != nil {
		t.Errorf("store is not encodable after partial failure: %v", err)
	}
}
