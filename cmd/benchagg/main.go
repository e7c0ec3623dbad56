// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Benchagg merges benchmark results into per-suite history stores.
//
// Usage:
//
//	benchagg [flags] [input...]
//
// Each input is a result file or a directory of result files. Files
// ending in .json hold JSON result records; .txt and .bench files hold
// the output of ``go test -bench''. With no inputs, benchagg reads the
// results directory under the root.
//
// Records are grouped by suite and merged into <data>/<suite>.json.
// A record whose run was already merged is ignored, so rerunning
// benchagg over the same results is harmless. Malformed records are
// reported and skipped.
//
// With -dsn, every benchmark that gained history is also mirrored
// into a SQL database (sqlite3 or mysql, per -driver). With -cloudsql,
// the mysql DSN is dialed through the Cloud SQL proxy.
//
// A record for a run that was already merged with different results
// is reported and dropped; the earlier point is kept.
//
// Benchagg exits with status 1 if the root is missing or a store can't
// be read or written, and 0 otherwise, even if records were skipped.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	_ "github.com/go-sql-driver/mysql"

	"github.com/heat-perf/benchhist/benchagg"
	"github.com/heat-perf/benchhist/benchstore"
	"github.com/heat-perf/benchhist/internal/config"
	"github.com/heat-perf/benchhist/storage/db"
	"github.com/heat-perf/benchhist/storage/db/cloudsql"
	_ "github.com/heat-perf/benchhist/storage/db/sqlite3"
)

var (
	root       = flag.String("root", ".", "read results and write stores under `dir`")
	configFile = flag.String("config", "", "read settings from `file` (default root/"+config.FileName+")")
	dataDir    = flag.String("data", "", "write stores to `dir` (default root/data)")
	retries    = flag.Int("retries", 0, "retry a store up to `n` times when another writer changed it")
	dryRun     = flag.Bool("n", false, "merge without writing anything")
	driver     = flag.String("driver", "", "SQL `driver` for -dsn: sqlite3 or mysql")
	dsn        = flag.String("dsn", "", "also mirror history into the database at `dsn`")
	cloudSQL   = flag.String("cloudsql", "", "dial the mysql -dsn through the Cloud SQL proxy to `instance` (project:region:name)")
	verbose    = flag.Bool("v", false, "print a line per suite")
)

const (
	exitOK    = 0
	exitFatal = 1
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage of benchagg:
	benchagg [flags] [input...]
`)
	flag.PrintDefaults()
	os.Exit(2)
}

func main() {
	flag.Usage = usage
	flag.Parse()

	cfg, err := config.Load(*root, *configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "benchagg: %v\n", err)
		os.Exit(exitFatal)
	}
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if set["data"] {
		cfg.Data = *dataDir
	}
	if set["retries"] {
		cfg.Retries = *retries
	}
	if set["driver"] {
		cfg.DB.Driver = *driver
	}
	if set["dsn"] {
		cfg.DB.DSN = *dsn
	}
	if set["cloudsql"] {
		cfg.DB.CloudSQL = *cloudSQL
	}
	os.Exit(run(cfg, flag.Args(), os.Stderr))
}

// run merges the results in inputs, or in the configured results
// directory if there are none, and returns the exit status.
func run(cfg *config.Config, inputs []string, stderr io.Writer) int {
	logf := func(format string, args ...interface{}) {
		fmt.Fprintf(stderr, "benchagg: "+format, args...)
	}
	if err := cfg.Validate(); err != nil {
		logf("%v\n", err)
		return exitFatal
	}
	if info, err := os.Stat(cfg.Root); err != nil {
		logf("%v\n", err)
		return exitFatal
	} else if !info.IsDir() {
		logf("root %s is not a directory\n", cfg.Root)
		return exitFatal
	}

	if len(inputs) == 0 {
		inputs = []string{cfg.Path(cfg.Results)}
	}
	opts := &benchagg.Options{
		Inputs:   inputs,
		StoreDir: cfg.Path(cfg.Data),
		Retries:  cfg.Retries,
		Lock:     &benchstore.LockOptions{Timeout: cfg.LockTimeout, StaleAge: benchstore.DefaultLockOptions.StaleAge},
		DryRun:   *dryRun,
		Warn:     logf,
	}
	if cfg.DB.DSN != "" && !*dryRun {
		source := cfg.DB.DSN
		if cfg.DB.CloudSQL != "" {
			var err error
			if source, err = cloudsql.DSN(cfg.DB.CloudSQL, source); err != nil {
				logf("%v\n", err)
				return exitFatal
			}
		}
		d, err := db.OpenSQL(cfg.DB.Driver, source)
		if err != nil {
			logf("opening %s database: %v\n", cfg.DB.Driver, err)
			return exitFatal
		}
		defer d.Close()
		opts.DB = d
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rep, err := benchagg.Run(ctx, opts)
	if rep != nil && *verbose {
		for _, sr := range rep.Suites {
			logf("%s: %d new benchmarks, %d points appended, %d duplicates, %d conflicts (%d attempts)\n",
				sr.Path, sr.NewEntries, sr.Appended, sr.Duplicates, sr.Conflicts, sr.Attempts)
		}
	}
	if err != nil {
		logf("%v\n", err)
		return exitFatal
	}
	if len(rep.Skipped) > 0 {
		logf("skipped %d malformed records\n", len(rep.Skipped))
	}
	if len(rep.Conflicts) > 0 {
		logf("dropped %d records that conflict with merged runs\n", len(rep.Conflicts))
	}
	if len(rep.Suites) == 0 {
		logf("no results found in %v\n", inputs)
	}
	return exitOK
}
