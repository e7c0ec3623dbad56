// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchrec

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Extensions maps recognized input file extensions to their format.
var Extensions = map[string]Format{
	".json":  FormatJSON,
	".txt":   FormatGoBench,
	".bench": FormatGoBench,
}

// A Format is an input file format.
type Format int

const (
	FormatUnknown Format = iota
	FormatJSON
	FormatGoBench
)

// FormatOf returns the format of the file at path, by extension.
func FormatOf(path string) Format {
	return Extensions[strings.ToLower(filepath.Ext(path))]
}

// A Files reads records from a sequence of input files and
// directories. Directories are walked recursively in lexical order;
// only files with a recognized extension are read from them, and
// hidden files and directories are skipped. Files named explicitly
// are read regardless of extension, as Go benchmark format unless
// they end in ".json".
//
// Its API is modeled on bufio.Scanner.
type Files struct {
	// Paths is the list of files and directories to read.
	Paths []string

	// inputs is the sequence of remaining files, or nil if this
	// Files has not started yet.
	inputs []string

	q   []Item
	cur Item
	err error
}

// init expands directories in Paths into the list of input files.
func (f *Files) init() error {
	f.inputs = []string{}
	for _, path := range f.Paths {
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		if !info.IsDir() {
			f.inputs = append(f.inputs, path)
			continue
		}
		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if p != path && strings.HasPrefix(d.Name(), ".") {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.Type().IsRegular() && FormatOf(p) != FormatUnknown {
				f.inputs = append(f.inputs, p)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Scan advances to the next item in the sequence of files and
// reports whether an item was read. The caller should use the Result
// method to get the item. If Scan reaches the end of the file
// sequence, or if an I/O error occurs, it returns false. In this
// case, the caller should use the Err method to check for errors.
func (f *Files) Scan() bool {
	if f.err != nil {
		return false
	}
	if f.inputs == nil {
		if err := f.init(); err != nil {
			f.err = err
			return false
		}
	}
	for len(f.q) == 0 {
		if len(f.inputs) == 0 {
			return false
		}
		path := f.inputs[0]
		f.inputs = f.inputs[1:]
		items, err := readFile(path)
		if err != nil {
			f.err = err
			return false
		}
		f.q = items
	}
	f.cur, f.q = f.q[0], f.q[1:]
	return true
}

// Result returns the item that was just read by Scan. This is either
// a *Record or a *SyntaxError.
func (f *Files) Result() Item {
	return f.cur
}

// Err returns the I/O error that stopped Scan, if any.
func (f *Files) Err() error {
	return f.err
}

func readFile(path string) ([]Item, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	if FormatOf(path) == FormatJSON {
		return ReadJSON(file, path)
	}
	var items []Item
	r := NewReader(file, path)
	for r.Scan() {
		items = append(items, r.Result())
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return items, nil
}
