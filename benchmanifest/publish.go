// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchmanifest

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"

	"github.com/heat-perf/benchhist/storage/fs"
)

// Publish copies every artifact in m from root into fsys, under the
// same relative paths, followed by the manifest document itself as
// manifestName. The manifest goes last so a reader never sees it
// before the files it lists.
func Publish(ctx context.Context, fsys fs.FS, root string, m *Manifest, manifestName string) error {
	for _, e := range m.Entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := publishFile(ctx, fsys, filepath.Join(root, filepath.FromSlash(e.Path)), e.Path); err != nil {
			return fmt.Errorf("publishing %s: %w", e.Path, err)
		}
	}
	data, err := m.Encode()
	if err != nil {
		return err
	}
	w, err := fsys.NewWriter(ctx, manifestName, metadata(manifestName))
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		w.CloseWithError(err)
		return fmt.Errorf("publishing %s: %w", manifestName, err)
	}
	return w.Close()
}

func publishFile(ctx context.Context, fsys fs.FS, src, name string) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()

	w, err := fsys.NewWriter(ctx, name, metadata(name))
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, f); err != nil {
		w.CloseWithError(err)
		return err
	}
	return w.Close()
}

func metadata(name string) map[string]string {
	ct := mime.TypeByExtension(path.Ext(name))
	if ct == "" {
		ct = "application/octet-stream"
	}
	return map[string]string{fs.ContentTypeKey: ct}
}
