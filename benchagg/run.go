// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchagg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/heat-perf/benchhist/benchrec"
	"github.com/heat-perf/benchhist/benchstore"
	"github.com/heat-perf/benchhist/storage/db"
)

// Options configure Run.
type Options struct {
	// Inputs are the files and directories to read records from.
	Inputs []string

	// StoreDir is the directory holding one store file per suite,
	// named <suite>.json.
	StoreDir string

	// Retries is the number of times a suite is reloaded and
	// re-merged after another writer changed its store.
	Retries int

	// Lock controls store lock acquisition. nil means
	// benchstore.DefaultLockOptions.
	Lock *benchstore.LockOptions

	// DryRun merges in memory without saving anything.
	DryRun bool

	// DB, if non-nil, receives the history of every benchmark that
	// gained points.
	DB *db.DB

	// Warn, if non-nil, is called for each skipped record and each
	// conflicting resubmission.
	Warn func(format string, args ...interface{})
}

// A Report summarizes a Run.
type Report struct {
	// Records is the number of well-formed records read.
	Records int

	// Skipped lists the malformed records, as *benchrec.SyntaxError
	// values or validation errors.
	Skipped []error

	// Conflicts lists the records dropped because their run was
	// already merged with different results.
	Conflicts []error

	// Suites has one entry per suite seen in the input, sorted by
	// suite name.
	Suites []*SuiteReport
}

// A SuiteReport describes the update of one suite's store.
type SuiteReport struct {
	Suite      string
	Path       string
	Created    bool // the store file did not exist before
	NewEntries int
	Appended   int
	Duplicates int
	Conflicts  int
	Attempts   int
	Mirrored   int // points newly inserted into Options.DB
}

// StorePath returns the path of suite's store in dir.
func StorePath(dir, suite string) string {
	return filepath.Join(dir, suite+".json")
}

// Run reads every record under opts.Inputs and merges it into the
// store of its suite.
//
// Malformed records are reported and skipped. A store that exists but
// is unreadable is fatal, and is detected before any store is written.
// A store that changes underfoot is reloaded and merged again, up to
// opts.Retries times.
func Run(ctx context.Context, opts *Options) (*Report, error) {
	warn := opts.Warn
	if warn == nil {
		warn = func(string, ...interface{}) {}
	}
	if info, err := os.Stat(opts.StoreDir); err == nil && !info.IsDir() {
		return nil, fmt.Errorf("store directory %s is not a directory", opts.StoreDir)
	}

	rep := new(Report)
	bySuite := make(map[string][]*benchrec.Record)
	files := benchrec.Files{Paths: opts.Inputs}
	for files.Scan() {
		switch item := files.Result().(type) {
		case *benchrec.SyntaxError:
			// Non-fatal result parse error. Warn
			// but keep going.
			warn("%v\n", item)
			rep.Skipped = append(rep.Skipped, item)
		case *benchrec.Record:
			rep.Records++
			bySuite[item.Suite] = append(bySuite[item.Suite], item)
		}
	}
	if err := files.Err(); err != nil {
		return nil, err
	}

	suites := make([]string, 0, len(bySuite))
	for s := range bySuite {
		suites = append(suites, s)
	}
	sort.Strings(suites)

	// Load everything first so a corrupt store stops the run before
	// anything is written.
	stores := make(map[string]*benchstore.Store, len(suites))
	for _, suite := range suites {
		sr := &SuiteReport{Suite: suite, Path: StorePath(opts.StoreDir, suite)}
		s, created, err := benchstore.LoadOrNew(sr.Path, suite)
		if err != nil {
			return nil, err
		}
		sr.Created = created
		stores[suite] = s
		rep.Suites = append(rep.Suites, sr)
	}

	for _, sr := range rep.Suites {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		res, err := mergeSuite(stores[sr.Suite], sr, bySuite[sr.Suite], opts)
		if err != nil {
			return rep, err
		}
		for _, sk := range res.Skipped {
			err := fmt.Errorf("%s:%d: %v", fileName(sk.Record), line(sk.Record), sk.Err)
			warn("%v\n", err)
			rep.Skipped = append(rep.Skipped, err)
		}
		for _, c := range res.Conflicts {
			err := fmt.Errorf("%s:%d: %s: run %s was already merged with different results; keeping the earlier one",
				fileName(c.Record), line(c.Record), c.Entry.Identity, c.Existing.Run)
			warn("%v\n", err)
			rep.Conflicts = append(rep.Conflicts, err)
		}
		if opts.DB != nil && !opts.DryRun {
			if sr.Mirrored, err = mirror(ctx, opts.DB, sr.Suite, res); err != nil {
				return rep, fmt.Errorf("mirroring suite %s: %w", sr.Suite, err)
			}
		}
	}
	return rep, nil
}

// mergeSuite merges recs into s and saves it, retrying on conflicts.
func mergeSuite(s *benchstore.Store, sr *SuiteReport, recs []*benchrec.Record, opts *Options) (*MergeResult, error) {
	for {
		sr.Attempts++
		res := Merge(s, recs)
		sr.NewEntries, sr.Appended, sr.Duplicates = res.NewEntries, len(res.Appended), res.Duplicates
		sr.Conflicts = len(res.Conflicts)
		if opts.DryRun || len(res.Appended) == 0 {
			return res, nil
		}
		err := s.Save(sr.Path, opts.Lock)
		if err == nil {
			return res, nil
		}
		if !errors.Is(err, benchstore.ErrConflict) || sr.Attempts > opts.Retries {
			return nil, err
		}
		var created bool
		s, created, err = benchstore.LoadOrNew(sr.Path, sr.Suite)
		if err != nil {
			return nil, err
		}
		sr.Created = created
	}
}

// mirror inserts the history of every entry that gained points.
func mirror(ctx context.Context, d *db.DB, suite string, res *MergeResult) (int, error) {
	seen := make(map[*benchstore.Entry]bool)
	total := 0
	for _, a := range res.Appended {
		if seen[a.Entry] {
			continue
		}
		seen[a.Entry] = true
		n, err := d.InsertHistory(ctx, suite, a.Entry)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func fileName(r *benchrec.Record) string {
	f, _ := r.Pos()
	return f
}

func line(r *benchrec.Record) int {
	_, l := r.Pos()
	return l
}
