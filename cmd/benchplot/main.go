// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Benchplot draws the history of aggregated benchmarks.
//
// Usage:
//
//	benchplot [flags] [store.json...]
//
// For each benchmark in each store, benchplot writes a chart of one
// statistic over the benchmark's history to
// <plots>/<suite>/<benchmark>.<format>, with the median marked by a
// dashed line. With no arguments it plots every store in the data
// directory.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/heat-perf/benchhist/benchplot"
	"github.com/heat-perf/benchhist/benchstore"
	"github.com/heat-perf/benchhist/internal/config"
)

var (
	root       = flag.String("root", ".", "read stores and write charts under `dir`")
	configFile = flag.String("config", "", "read settings from `file` (default root/"+config.FileName+")")
	dataDir    = flag.String("data", "", "read stores from `dir` (default root/data)")
	plotsDir   = flag.String("plots", "", "write charts to `dir` (default root/plots)")
	format     = flag.String("format", "", "chart `format`: png, svg or pdf (default png)")
	metric     = flag.String("metric", "", "chart statistic `name` (default: first in sorted order)")
	verbose    = flag.Bool("v", false, "print each chart written")
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage of benchplot:
	benchplot [flags] [store.json...]
`)
	flag.PrintDefaults()
	os.Exit(2)
}

func main() {
	log.SetPrefix("benchplot: ")
	log.SetFlags(0)
	flag.Usage = usage
	flag.Parse()

	cfg, err := config.Load(*root, *configFile)
	if err != nil {
		fail("%v\n", err)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "data":
			cfg.Data = *dataDir
		case "plots":
			cfg.Plots = *plotsDir
		case "format":
			cfg.Plot.Format = *format
		case "metric":
			cfg.Plot.Metric = *metric
		}
	})

	stores := flag.Args()
	if len(stores) == 0 {
		stores, err = filepath.Glob(filepath.Join(cfg.Path(cfg.Data), "*.json"))
		if err != nil {
			fail("%v\n", err)
		}
		if len(stores) == 0 {
			log.Printf("no stores in %s", cfg.Path(cfg.Data))
			return
		}
	}

	opts := &benchplot.Options{
		Dir:    cfg.Path(cfg.Plots),
		Format: cfg.Plot.Format,
		Metric: cfg.Plot.Metric,
		Warn:   warn,
	}
	total := 0
	for _, path := range stores {
		s, err := benchstore.Load(path)
		if err != nil {
			fail("%v\n", err)
		}
		charts, err := benchplot.WriteStore(s, opts)
		if err != nil {
			fail("%s: %v\n", path, err)
		}
		if *verbose {
			for _, c := range charts {
				log.Printf("%s (%s, %d points)", c.Path, c.Metric, c.Points)
			}
		}
		total += len(charts)
	}
	if *verbose {
		log.Printf("wrote %d charts", total)
	}
}

func fail(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "benchplot: "+format, args...)
	os.Exit(1)
}

func warn(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "benchplot: "+format, args...)
}
