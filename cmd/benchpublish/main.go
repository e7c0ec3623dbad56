// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Benchpublish uploads benchmark stores, charts and their manifest to
// Google Cloud Storage, where the visualization front end reads them.
//
// Usage:
//
//	benchpublish [-root dir] [-bucket name] [-prefix path] [-local dir]
//
// Benchpublish rebuilds the manifest of the root directory, uploads
// every artifact it lists under the same relative path, and uploads
// the manifest last. With -local, files are copied to a local
// directory instead, which is useful for serving a preview.
//
// Credentials come from -credentials (a service account key file),
// the BENCHHIST_GCS_TOKEN environment variable (an OAuth2 access
// token), or else Application Default Credentials.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/option"

	"github.com/heat-perf/benchhist/benchmanifest"
	"github.com/heat-perf/benchhist/internal/config"
	"github.com/heat-perf/benchhist/storage/fs"
	"github.com/heat-perf/benchhist/storage/fs/gcs"
	"github.com/heat-perf/benchhist/storage/fs/local"
)

var (
	root        = flag.String("root", ".", "publish artifacts under `dir`")
	configFile  = flag.String("config", "", "read settings from `file` (default root/"+config.FileName+")")
	bucket      = flag.String("bucket", "", "upload to the Cloud Storage bucket `name`")
	prefix      = flag.String("prefix", "", "upload below `path` in the bucket")
	credentials = flag.String("credentials", "", "authenticate with the service account key in `file`")
	localDir    = flag.String("local", "", "copy to `dir` instead of uploading")
	verbose     = flag.Bool("v", false, "print verbose log messages")
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage of benchpublish:
	benchpublish [flags]
`)
	flag.PrintDefaults()
	os.Exit(2)
}

func main() {
	log.SetPrefix("benchpublish: ")
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
		case "bucket":
			cfg.Publish.Bucket = *bucket
		case "prefix":
			cfg.Publish.Prefix = *prefix
		case "credentials":
			cfg.Publish.Credentials = *credentials
		}
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var dst fs.FS
	switch {
	case *localDir != "":
		dst = local.NewFS(*localDir)
	case cfg.Publish.Bucket != "":
		dst, err = gcs.NewFS(ctx, cfg.Publish.Bucket, clientOptions(cfg)...)
		if err != nil {
			log.Fatalf("gcs.NewFS: %v", err)
		}
	default:
		log.Print("no destination: set -bucket or -local")
		usage()
	}
	if cfg.Publish.Prefix != "" {
		dst = &prefixFS{dst, cfg.Publish.Prefix}
	}

	manifest := cfg.Path(cfg.Manifest)
	m, err := benchmanifest.Build(cfg.Root, &benchmanifest.Options{
		Exclude: excluded(cfg.Root, manifest, cfg.Path(cfg.Results)),
	})
	if err != nil {
		log.Fatal(err)
	}
	for _, fe := range m.Errors {
		log.Printf("skipping %v", fe)
	}
	if err := m.Check(); err != nil {
		log.Fatal(err)
	}

	name := filepath.Base(manifest)
	if rel, err := filepath.Rel(cfg.Root, manifest); err == nil && filepath.IsLocal(rel) {
		name = filepath.ToSlash(rel)
	}

	start := time.Now()
	if err := benchmanifest.Publish(ctx, dst, cfg.Root, m, name); err != nil {
		log.Fatalf("publish failed: %v", err)
	}
	if *verbose {
		log.Printf("%d files published in %.2f seconds.", len(m.Entries)+1, time.Since(start).Seconds())
	}
}

// clientOptions returns the Cloud Storage client options for cfg.
func clientOptions(cfg *config.Config) []option.ClientOption {
	var opts []option.ClientOption
	if cfg.Publish.Credentials != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.Publish.Credentials))
	}
	if cfg.Publish.Token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Publish.Token})
		opts = append(opts, option.WithTokenSource(ts))
	}
	return opts
}

// excluded returns the paths that lie inside root, relative to root.
func excluded(root string, paths ...string) []string {
	var rels []string
	for _, p := range paths {
		if rel, err := filepath.Rel(root, p); err == nil && filepath.IsLocal(rel) {
			rels = append(rels, filepath.ToSlash(rel))
		}
	}
	return rels
}

// prefixFS places every file below a fixed directory.
type prefixFS struct {
	fs.FS
	prefix string
}

func (p *prefixFS) NewWriter(ctx context.Context, name string, metadata map[string]string) (fs.Writer, error) {
	return p.FS.NewWriter(ctx, path.Join(p.prefix, name), metadata)
}
