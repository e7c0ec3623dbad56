// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package benchmanifest builds the index of aggregate stores and plot
// artifacts that a visualization front end reads to discover results.
//
// A manifest is rebuilt from scratch on every run. Its entries are
// sorted by path, so building it twice over an unchanged tree yields
// byte-identical output.
package benchmanifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/heat-perf/benchhist/benchstore"
	"github.com/heat-perf/benchhist/internal/atomicfile"
)

// A Kind classifies a manifest entry.
type Kind string

const (
	KindData Kind = "data"
	KindPlot Kind = "plot"
)

// DefaultKinds maps file extensions to the kind of artifact they hold.
var DefaultKinds = map[string]Kind{
	".json": KindData,
	".png":  KindPlot,
	".svg":  KindPlot,
	".pdf":  KindPlot,
}

// An Entry is one artifact in a manifest.
type Entry struct {
	// Name is the display name: Path without its extension.
	Name string `json:"name"`
	// Path is the slash-separated path relative to the root.
	Path string `json:"path"`
	Kind Kind   `json:"kind"`
}

// A FileError is a file or directory that could not be read during
// discovery. FileErrors don't stop the build.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return e.Path + ": " + e.Err.Error()
}

func (e *FileError) Unwrap() error { return e.Err }

// ErrEmpty is returned by (*Manifest).Check when nothing was found.
var ErrEmpty = errors.New("manifest is empty: no data or plot files found")

// A Manifest is the result of Build.
type Manifest struct {
	Entries []*Entry

	// Errors lists the files that could not be read.
	Errors []*FileError
}

// Empty reports whether no artifacts were found.
func (m *Manifest) Empty() bool {
	return len(m.Entries) == 0
}

// Check returns ErrEmpty if m is empty.
func (m *Manifest) Check() error {
	if m.Empty() {
		return ErrEmpty
	}
	return nil
}

// Options control Build.
type Options struct {
	// Kinds maps lower-case file extensions, including the dot, to
	// artifact kinds. nil means DefaultKinds.
	Kinds map[string]Kind

	// Exclude lists slash-separated paths, relative to the root, to
	// leave out. Excluding a directory excludes everything below it.
	Exclude []string
}

// Build scans root recursively and returns the manifest of every
// recognized artifact under it. Hidden files and directories, store
// lock files and temporary files are skipped, as are files of
// unrecognized kinds.
//
// It is an error for root not to exist or not to be a directory.
// Unreadable files are recorded in Manifest.Errors.
func Build(root string, opts *Options) (*Manifest, error) {
	if opts == nil {
		opts = new(Options)
	}
	kinds := opts.Kinds
	if kinds == nil {
		kinds = DefaultKinds
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("manifest root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("manifest root %s is not a directory", root)
	}
	exclude := make(map[string]bool, len(opts.Exclude))
	for _, p := range opts.Exclude {
		exclude[path.Clean(p)] = true
	}

	m := &Manifest{Entries: []*Entry{}}
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if p == root {
			return err
		}
		rel, relErr := filepath.Rel(root, p)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)
		if err != nil {
			m.Errors = append(m.Errors, &FileError{rel, err})
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if skip(d.Name()) || exclude[rel] {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		kind, ok := kinds[strings.ToLower(path.Ext(rel))]
		if !ok {
			return nil
		}
		if err := checkReadable(p, d); err != nil {
			m.Errors = append(m.Errors, &FileError{rel, err})
			return nil
		}
		m.Entries = append(m.Entries, &Entry{
			Name: strings.TrimSuffix(rel, path.Ext(rel)),
			Path: rel,
			Kind: kind,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(m.Entries, func(i, j int) bool {
		return m.Entries[i].Path < m.Entries[j].Path
	})
	return m, nil
}

// skip reports whether a file or directory name is never part of a
// manifest.
func skip(name string) bool {
	return strings.HasPrefix(name, ".") ||
		strings.HasSuffix(name, benchstore.LockSuffix) ||
		strings.HasSuffix(name, atomicfile.TempSuffix)
}

// checkReadable verifies that the file at p is a regular file (or a
// link to one) that can be opened.
func checkReadable(p string, d fs.DirEntry) error {
	if d.Type()&fs.ModeSymlink != 0 {
		info, err := os.Stat(p)
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return fmt.Errorf("not a regular file")
		}
	} else if !d.Type().IsRegular() {
		return fmt.Errorf("not a regular file")
	}
	f, err := os.Open(p)
	if err != nil {
		return err
	}
	return f.Close()
}

// Encode returns the manifest document: a JSON array of entries.
func (m *Manifest) Encode() ([]byte, error) {
	entries := m.Entries
	if entries == nil {
		entries = []*Entry{}
	}
	data, err := json.MarshalIndent(entries, "", "\t")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// Write writes the manifest document to file, replacing any previous
// manifest atomically.
func Write(file string, m *Manifest) error {
	data, err := m.Encode()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(file), 0777); err != nil {
		return err
	}
	return atomicfile.WriteFile(file, data, 0644)
}
