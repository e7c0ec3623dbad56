// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchstore

import (
	"bytes"
	"encoding/json"
	"sort"

	"github.com/heat-perf/benchhist/benchrec"
)

// The *JSON types carry the known fields of each document level.
// Their json tags must agree with the known*Fields sets.

type storeJSON struct {
	Version    int      `json:"version"`
	Suite      string   `json:"suite,omitempty"`
	Benchmarks []*Entry `json:"benchmarks"`
}

type entryJSON struct {
	Identity string          `json:"identity"`
	Name     string          `json:"name"`
	Params   benchrec.Params `json:"params,omitempty"`
	History  []*Point        `json:"history"`
}

type pointJSON struct {
	Run       string             `json:"run"`
	Timestamp string             `json:"timestamp,omitempty"`
	Stats     map[string]float64 `json:"stats"`
	Metadata  json.RawMessage    `json:"metadata,omitempty"`
}

var (
	knownStoreFields = fieldSet("version", "suite", "benchmarks")
	knownEntryFields = fieldSet("identity", "name", "params", "history")
	knownPointFields = fieldSet("run", "timestamp", "stats", "metadata")
)

func fieldSet(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

func (s *Store) MarshalJSON() ([]byte, error) {
	benchmarks := s.Entries
	if benchmarks == nil {
		benchmarks = []*Entry{}
	}
	return marshalWithExtra(storeJSON{s.Version, s.Suite, benchmarks}, s.Extra)
}

func (s *Store) UnmarshalJSON(data []byte) error {
	var v storeJSON
	extra, err := unmarshalWithExtra(data, &v, knownStoreFields)
	if err != nil {
		return err
	}
	*s = Store{Version: v.Version, Suite: v.Suite, Entries: v.Benchmarks, Extra: extra}
	return nil
}

func (e *Entry) MarshalJSON() ([]byte, error) {
	history := e.History
	if history == nil {
		history = []*Point{}
	}
	return marshalWithExtra(entryJSON{e.Identity, e.Name, e.Params, history}, e.Extra)
}

func (e *Entry) UnmarshalJSON(data []byte) error {
	var v entryJSON
	extra, err := unmarshalWithExtra(data, &v, knownEntryFields)
	if err != nil {
		return err
	}
	*e = Entry{Identity: v.Identity, Name: v.Name, Params: v.Params, History: v.History, Extra: extra}
	return nil
}

func (p *Point) MarshalJSON() ([]byte, error) {
	stats := p.Stats
	if stats == nil {
		stats = map[string]float64{}
	}
	return marshalWithExtra(pointJSON{p.Run, p.Timestamp, stats, p.Metadata}, p.Extra)
}

func (p *Point) UnmarshalJSON(data []byte) error {
	var v pointJSON
	extra, err := unmarshalWithExtra(data, &v, knownPointFields)
	if err != nil {
		return err
	}
	*p = Point{Run: v.Run, Timestamp: v.Timestamp, Stats: v.Stats, Metadata: v.Metadata, Extra: extra}
	return nil
}

// unmarshalWithExtra decodes the JSON object data into v and returns
// the fields not in known.
func unmarshalWithExtra(data []byte, v interface{}, known map[string]bool) (map[string]json.RawMessage, error) {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return nil, err
	}
	for k := range all {
		if known[k] {
			delete(all, k)
		}
	}
	if len(all) == 0 {
		return nil, nil
	}
	return all, nil
}

// marshalWithExtra encodes v, which must encode as a JSON object, and
// appends the extra fields in sorted order.
func marshalWithExtra(v interface{}, extra map[string]json.RawMessage) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil || len(extra) == 0 {
		return data, err
	}
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.Write(data[:len(data)-1]) // drop '}'
	for i, k := range keys {
		if i > 0 || len(data) > 2 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(extra[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
