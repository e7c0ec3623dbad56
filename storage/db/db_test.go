// Copyright 2026 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package db_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/heat-perf/benchhist/benchrec"
	"github.com/heat-perf/benchhist/benchstore"
	. "github.com/heat-perf/benchhist/storage/db"
	"github.com/heat-perf/benchhist/storage/db/dbtest"
)

func newEntry() *benchstore.Entry {
	s := benchstore.New("linalg")
	e := s.AddEntry("Matmul", benchrec.Params{"n": benchrec.NumberParam(100)})
	e.Append(&benchstore.Point{Run: "r1", Timestamp: "2024-01-01T00:00:00+00:00", Stats: map[string]float64{"mean": 2, "min": 1}})
	e.Append(&benchstore.Point{Run: "r2", Stats: map[string]float64{"mean": 3}})
	return e
}

func TestInsertHistory(t *testing.T) {
	ctx := context.Background()
	db := dbtest.NewDB(t)

	e := newEntry()
	n, err := db.InsertHistory(ctx, "linalg", e)
	if err != nil {
		t.Fatalf("InsertHistory: %v", err)
	}
	if n != 2 {
		t.Errorf("inserted %d points, want 2", n)
	}

	got, err := db.Series(ctx, "linalg", "Matmul/n=100", "mean")
	if err != nil {
		t.Fatal(err)
	}
	want := []Sample{
		{Seq: 0, Run: "r1", Timestamp: "2024-01-01T00:00:00+00:00", Value: 2},
		{Seq: 1, Run: "r2", Value: 3},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Series mismatch (-want +got):\n%s", diff)
	}
}

// TestInsertHistoryIdempotent verifies that reinserting a history only
// adds the new points.
func TestInsertHistoryIdempotent(t *testing.T) {
	ctx := context.Background()
	db := dbtest.NewDB(t)

	e := newEntry()
	if _, err := db.InsertHistory(ctx, "linalg", e); err != nil {
		t.Fatal(err)
	}
	n, err := db.InsertHistory(ctx, "linalg", e)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("second insert added %d points, want 0", n)
	}

	e.Append(&benchstore.Point{Run: "r3", Stats: map[string]float64{"mean": 4}})
	if n, err = db.InsertHistory(ctx, "linalg", e); err != nil || n != 1 {
		t.Errorf("insert after append = %d, %v; want 1, nil", n, err)
	}
	if total, err := db.CountPoints(ctx); err != nil || total != 3 {
		t.Errorf("CountPoints = %d, %v; want 3, nil", total, err)
	}

	// Same identity in another suite is a different benchmark.
	if n, err = db.InsertHistory(ctx, "other", e); err != nil || n != 3 {
		t.Errorf("insert into other suite = %d, %v; want 3, nil", n, err)
	}
}
