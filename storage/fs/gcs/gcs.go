// Copyright 2026 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package gcs implements the fs.FS interface using Google Cloud Storage.
package gcs

import (
	"context"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/heat-perf/benchhist/storage/fs"
)

// impl is an fs.FS backed by Google Cloud Storage.
type impl struct {
	bucket *storage.BucketHandle
}

// NewFS constructs an FS that writes to the provided bucket.
// opts are passed to the Cloud Storage client; with none, Application
// Default Credentials are used.
func NewFS(ctx context.Context, bucketName string, opts ...option.ClientOption) (fs.FS, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &impl{client.Bucket(bucketName)}, nil
}

// NewWriter creates a new object in the bucket. The fs.ContentTypeKey
// metadata entry becomes the object's content type; the rest is stored
// as custom object metadata.
func (g *impl) NewWriter(ctx context.Context, name string, metadata map[string]string) (fs.Writer, error) {
	w := g.bucket.Object(name).NewWriter(ctx)
	meta := make(map[string]string, len(metadata))
	for k, v := range metadata {
		meta[k] = v
	}
	if ct, ok := meta[fs.ContentTypeKey]; ok {
		w.ContentType = ct
		delete(meta, fs.ContentTypeKey)
	}
	w.Metadata = meta
	return w, nil
}
