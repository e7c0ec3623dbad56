// Copyright 2026 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gcs

import (
	"context"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/google/go-cmp/cmp"
	"google.golang.org/api/option"

	"github.com/heat-perf/benchhist/storage/fs"
)

func TestNewWriterMetadata(t *testing.T) {
	ctx := context.Background()
	gfs, err := NewFS(ctx, "bench-history", option.WithoutAuthentication())
	if err != nil {
		t.Fatal(err)
	}
	meta := map[string]string{fs.ContentTypeKey: "image/svg+xml", "suite": "linalg"}
	fw, err := gfs.NewWriter(ctx, "plots/linalg/a.svg", meta)
	if err != nil {
		t.Fatal(err)
	}
	w, ok := fw.(*storage.Writer)
	if !ok {
		t.Fatalf("NewWriter returned %T, want *storage.Writer", fw)
	}
	if w.ContentType != "image/svg+xml" {
		t.Errorf("ContentType = %q, want image/svg+xml", w.ContentType)
	}
	if diff := cmp.Diff(map[string]string{"suite": "linalg"}, w.Metadata); diff != "" {
		t.Errorf("Metadata (-want +got):\n%s", diff)
	}
	if _, ok := meta[fs.ContentTypeKey]; !ok {
		t.Errorf("NewWriter modified the caller's metadata")
	}
	if w.ObjectAttrs.Name != "plots/linalg/a.svg" || w.ObjectAttrs.Bucket != "bench-history" {
		t.Errorf("writer targets %s/%s", w.ObjectAttrs.Bucket, w.ObjectAttrs.Name)
	}
}
