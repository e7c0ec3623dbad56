// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package benchstore implements the aggregate store: the durable,
// append-only history of benchmark results for one suite, indexed by
// benchmark identity.
//
// A store is a single JSON document. Benchmarks are kept in the order
// they were first seen and each benchmark's history in arrival order.
// Fields this package does not know about, at any level of the
// document, are preserved when the store is rewritten, so stores
// written by newer versions survive a round trip through older ones.
//
// Save replaces the store file atomically and detects concurrent
// writers: a store can only be saved over the file content it was
// loaded from.
package benchstore

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/heat-perf/benchhist/benchrec"
	"github.com/heat-perf/benchhist/internal/atomicfile"
)

// Version is the newest store format version this package reads and
// the version it writes.
const Version = 1

// A Store maps benchmark identities to their history.
type Store struct {
	Version int
	Suite   string
	Entries []*Entry

	// Extra holds unknown top-level fields.
	Extra map[string]json.RawMessage

	index map[string]*Entry

	// digest identifies the file content this store was decoded
	// from, or "" if it was not loaded from a file.
	digest string
}

// An Entry is the history of a single benchmark identity.
type Entry struct {
	Identity string
	Name     string
	Params   benchrec.Params
	History  []*Point

	// Extra holds unknown entry fields.
	Extra map[string]json.RawMessage

	runs map[string]*Point
}

// A Point is one observation in a benchmark's history.
type Point struct {
	// Run is the run key of the record this point came from.
	Run       string
	Timestamp string
	Stats     map[string]float64
	Metadata  json.RawMessage

	// Extra holds unknown point fields, including fields of the
	// input record that were not interpreted.
	Extra map[string]json.RawMessage
}

// A FormatError reports a store file that exists but can't be used.
// It is distinct from the file not existing.
type FormatError struct {
	Path string
	Err  error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("corrupt store %s: %v", e.Path, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

// ErrConflict is returned by Save when the store file changed since
// the store was loaded.
var ErrConflict = errors.New("store changed since it was loaded")

// New returns an empty store for suite.
func New(suite string) *Store {
	return &Store{Version: Version, Suite: suite, index: make(map[string]*Entry)}
}

// Load reads the store at path. If the file does not exist, the
// returned error satisfies errors.Is(err, fs.ErrNotExist). If it exists
// but can't be decoded, the error is a *FormatError.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := Decode(data)
	if err != nil {
		return nil, &FormatError{path, err}
	}
	s.digest = digest(data)
	return s, nil
}

// LoadOrNew is like Load, but returns an empty store for suite if the
// file does not exist. created reports whether that happened.
func LoadOrNew(path, suite string) (s *Store, created bool, err error) {
	s, err = Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return New(suite), true, nil
	}
	return s, false, err
}

// Decode decodes a store document.
func Decode(data []byte) (*Store, error) {
	s := new(Store)
	if err := json.Unmarshal(data, s); err != nil {
		return nil, err
	}
	if s.Version < 1 || s.Version > Version {
		return nil, fmt.Errorf("unsupported store version %d", s.Version)
	}
	s.index = make(map[string]*Entry, len(s.Entries))
	for i, e := range s.Entries {
		if e == nil || e.Identity == "" {
			return nil, fmt.Errorf("benchmark %d has no identity", i)
		}
		if _, ok := s.index[e.Identity]; ok {
			return nil, fmt.Errorf("duplicate benchmark %q", e.Identity)
		}
		s.index[e.Identity] = e
		e.runs = make(map[string]*Point, len(e.History))
		for j, p := range e.History {
			if p == nil {
				return nil, fmt.Errorf("benchmark %q: history point %d is null", e.Identity, j)
			}
			if _, ok := e.runs[p.Run]; !ok {
				e.runs[p.Run] = p
			}
		}
	}
	return s, nil
}

// Encode returns the store document for s.
func (s *Store) Encode() ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "\t")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// Lookup returns the entry for identity, or nil.
func (s *Store) Lookup(identity string) *Entry {
	return s.index[identity]
}

// AddEntry appends a new, empty entry for the benchmark name and
// params. It panics if the identity is already present.
func (s *Store) AddEntry(name string, params benchrec.Params) *Entry {
	id := benchrec.Identity(name, params)
	if s.index == nil {
		s.index = make(map[string]*Entry)
	}
	if _, ok := s.index[id]; ok {
		panic("benchstore: duplicate identity " + id)
	}
	e := &Entry{Identity: id, Name: name, Params: params, runs: make(map[string]*Point)}
	s.Entries = append(s.Entries, e)
	s.index[id] = e
	return e
}

// Len returns the total number of history points in s.
func (s *Store) Len() int {
	n := 0
	for _, e := range s.Entries {
		n += len(e.History)
	}
	return n
}

// HasRun reports whether e already holds a point for run.
func (e *Entry) HasRun(run string) bool {
	return e.runs[run] != nil
}

// RunPoint returns the first point of e for run, or nil.
func (e *Entry) RunPoint(run string) *Point {
	return e.runs[run]
}

// Append adds p to the end of e's history.
func (e *Entry) Append(p *Point) {
	if e.runs == nil {
		e.runs = make(map[string]*Point)
	}
	e.History = append(e.History, p)
	if e.runs[p.Run] == nil {
		e.runs[p.Run] = p
	}
}

// SameResult reports whether p and q carry the same statistics and
// metadata. Metadata is compared ignoring insignificant whitespace.
func (p *Point) SameResult(q *Point) bool {
	if len(p.Stats) != len(q.Stats) {
		return false
	}
	for k, v := range p.Stats {
		if w, ok := q.Stats[k]; !ok || v != w {
			return false
		}
	}
	return bytes.Equal(compactJSON(p.Metadata), compactJSON(q.Metadata))
}

func compactJSON(data json.RawMessage) []byte {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return data
	}
	return buf.Bytes()
}

// PointFromRecord returns the history point for rec.
func PointFromRecord(rec *benchrec.Record) *Point {
	stats := make(map[string]float64, len(rec.Stats))
	for k, v := range rec.Stats {
		stats[k] = v
	}
	p := &Point{
		Run:       rec.RunKey(),
		Timestamp: rec.Timestamp,
		Stats:     stats,
		Metadata:  rec.Metadata,
	}
	if len(rec.Extra) > 0 {
		p.Extra = make(map[string]json.RawMessage, len(rec.Extra))
		for k, v := range rec.Extra {
			if knownPointFields[k] {
				// Would shadow a point field.
				k = "record_" + k
			}
			p.Extra[k] = v
		}
	}
	return p
}

// Save writes s to path. It holds the lock file for path while it
// checks that the file still has the content s was loaded from (or
// still doesn't exist, for new stores) and atomically replaces it.
// If the file changed, Save returns an error wrapping ErrConflict and
// writes nothing. On any failure the previous file is left intact.
//
// opts may be nil to use DefaultLockOptions.
func (s *Store) Save(path string, opts *LockOptions) error {
	data, err := s.Encode()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0777); err != nil {
		return err
	}
	lock, err := AcquireLock(path, opts)
	if err != nil {
		return err
	}
	defer lock.Release()

	cur, err := os.ReadFile(path)
	curDigest := ""
	if err == nil {
		curDigest = digest(cur)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if curDigest != s.digest {
		return fmt.Errorf("saving %s: %w", path, ErrConflict)
	}
	if err := atomicfile.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	s.digest = digest(data)
	return nil
}

func digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
