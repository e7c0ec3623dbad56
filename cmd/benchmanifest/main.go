// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Benchmanifest writes the index of benchmark stores and charts read
// by the visualization front end.
//
// Usage:
//
//	benchmanifest [-root dir] [-o file] [-fail-empty]
//
// Benchmanifest scans the root directory recursively and lists every
// .json store and every .png, .svg or .pdf chart in a JSON array of
// {"name", "path", "kind"} objects sorted by path. The results
// directory and the manifest itself are not listed. The previous
// manifest is replaced.
//
// Files that can't be read are reported and left out. If nothing is
// found, benchmanifest still writes an empty manifest and warns; with
// -fail-empty it then exits with status 3. A missing root directory
// is an error (status 1).
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/heat-perf/benchhist/benchmanifest"
	"github.com/heat-perf/benchhist/internal/config"
)

var (
	root       = flag.String("root", ".", "index artifacts under `dir`")
	configFile = flag.String("config", "", "read settings from `file` (default root/"+config.FileName+")")
	output     = flag.String("o", "", "write the manifest to `file` (default root/manifest.json)")
	failEmpty  = flag.Bool("fail-empty", false, "exit with status 3 if no artifacts are found")
	verbose    = flag.Bool("v", false, "print the number of entries written")
)

const (
	exitOK    = 0
	exitFatal = 1
	exitEmpty = 3
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage of benchmanifest:
	benchmanifest [flags]
`)
	flag.PrintDefaults()
	os.Exit(2)
}

func main() {
	log.SetPrefix("benchmanifest: ")
	log.SetFlags(0)
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() > 0 {
		usage()
	}

	cfg, err := config.Load(*root, *configFile)
	if err != nil {
		log.Fatal(err)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "o":
			cfg.Manifest = *output
		case "fail-empty":
			cfg.FailEmpty = *failEmpty
		}
	})
	os.Exit(build(cfg, os.Stderr))
}

// build writes the manifest for cfg and returns the exit status.
func build(cfg *config.Config, stderr io.Writer) int {
	logf := func(format string, args ...interface{}) {
		fmt.Fprintf(stderr, "benchmanifest: "+format+"\n", args...)
	}
	dest := cfg.Path(cfg.Manifest)
	m, err := benchmanifest.Build(cfg.Root, &benchmanifest.Options{
		Exclude: under(cfg.Root, dest, cfg.Path(cfg.Results)),
	})
	if err != nil {
		logf("%v", err)
		return exitFatal
	}
	for _, fe := range m.Errors {
		logf("skipping %v", fe)
	}
	if err := benchmanifest.Write(dest, m); err != nil {
		logf("%v", err)
		return exitFatal
	}
	if *verbose {
		logf("wrote %d entries to %s", len(m.Entries), dest)
	}
	if err := m.Check(); err != nil {
		logf("warning: %v", err)
		if cfg.FailEmpty {
			return exitEmpty
		}
	}
	return exitOK
}

// under returns the paths that lie inside root, relative to root and
// slash-separated.
func under(root string, paths ...string) []string {
	var rels []string
	for _, p := range paths {
		if rel, err := filepath.Rel(root, p); err == nil && filepath.IsLocal(rel) {
			rels = append(rels, filepath.ToSlash(rel))
		}
	}
	return rels
}
