// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package benchagg merges batches of benchmark result records into
// aggregate stores.
//
// Merging only ever adds history. A record whose benchmark identity is
// new to the store starts a new entry; otherwise it is appended to the
// existing entry, unless that entry already holds a point with the
// same run key, in which case it is a duplicate submission and is
// dropped. Merging the same batch twice therefore leaves the store as
// merging it once did.
//
// A resubmitted run whose results differ from the stored point is a
// conflict. The stored point is kept and the conflict is reported.
package benchagg

import (
	"github.com/heat-perf/benchhist/benchrec"
	"github.com/heat-perf/benchhist/benchstore"
)

// A Skipped is a record that was not merged because it is malformed.
type Skipped struct {
	Record *benchrec.Record
	Err    error
}

// An Appended is a history point added by a merge.
type Appended struct {
	Entry *benchstore.Entry
	Point *benchstore.Point
}

// A Conflict is a record for a run already in the history with
// different results. Existing is the point that was kept.
type Conflict struct {
	Entry    *benchstore.Entry
	Existing *benchstore.Point
	Record   *benchrec.Record
}

// A MergeResult describes the effect of Merge on a store.
type MergeResult struct {
	NewEntries int        // entries created
	Appended   []Appended // points added, in arrival order
	Duplicates int        // identical resubmissions dropped
	Conflicts  []Conflict // differing resubmissions dropped
	Skipped    []Skipped  // records rejected by validation
}

// Merge appends the records in recs to s in order. Records that fail
// validation are skipped and reported; they don't affect the rest of
// the batch.
func Merge(s *benchstore.Store, recs []*benchrec.Record) *MergeResult {
	res := new(MergeResult)
	for _, rec := range recs {
		if err := rec.Validate(); err != nil {
			res.Skipped = append(res.Skipped, Skipped{rec, err})
			continue
		}
		e := s.Lookup(rec.Identity())
		if e == nil {
			e = s.AddEntry(rec.Name, rec.Params)
			res.NewEntries++
		}
		p := benchstore.PointFromRecord(rec)
		if old := e.RunPoint(p.Run); old != nil {
			if old.SameResult(p) {
				res.Duplicates++
			} else {
				res.Conflicts = append(res.Conflicts, Conflict{e, old, rec})
			}
			continue
		}
		e.Append(p)
		res.Appended = append(res.Appended, Appended{e, p})
	}
	return res
}
