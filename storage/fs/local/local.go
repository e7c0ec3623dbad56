// Copyright 2026 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package local implements the fs.FS interface using local files.
// Metadata is not stored separately; the content type is implied by
// the file name.
package local

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/heat-perf/benchhist/internal/atomicfile"
	"github.com/heat-perf/benchhist/storage/fs"
)

// impl is an fs.FS backed by local disk.
type impl struct {
	root string
}

// NewFS constructs an FS that writes to the provided directory.
func NewFS(root string) fs.FS {
	return &impl{root}
}

// NewWriter returns a Writer for the file name, relative to the root.
// metadata is ignored.
func (l *impl) NewWriter(ctx context.Context, name string, metadata map[string]string) (fs.Writer, error) {
	path := filepath.Join(l.root, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0777); err != nil {
		return nil, err
	}
	return &wrapper{path: path}, nil
}

// wrapper buffers the content and replaces the file on Close, so
// readers never see a partially published file.
type wrapper struct {
	path   string
	buf    bytes.Buffer
	closed bool
}

func (w *wrapper) Write(p []byte) (int, error) {
	if w.closed {
		return 0, errors.New("write to closed file")
	}
	return w.buf.Write(p)
}

func (w *wrapper) Close() error {
	if w.closed {
		return errors.New("already closed")
	}
	w.closed = true
	return atomicfile.WriteFile(w.path, w.buf.Bytes(), 0644)
}

// CloseWithError discards the buffered content.
func (w *wrapper) CloseWithError(error) error {
	w.closed = true
	w.buf.Reset()
	return nil
}
