// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchrec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// A SyntaxError is a malformed record in an input file. SyntaxErrors
// are not fatal: the rest of the file is still read.
type SyntaxError struct {
	FileName string
	Line     int // line number, or element number for JSON input
	Msg      string
}

func (e *SyntaxError) Pos() (fileName string, line int) {
	return e.FileName, e.Line
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.FileName, e.Line, e.Msg)
}

// An Item is a single item read from an input file. It is either a
// *Record or a *SyntaxError.
type Item interface {
	// Pos returns the position of this item as a file name and a
	// 1-based line or element number within that file.
	Pos() (fileName string, line int)
}

var _ Item = (*Record)(nil)
var _ Item = (*SyntaxError)(nil)

// batchHeader holds the fields of a batch document that act as
// defaults for each of its results.
type batchHeader struct {
	Suite     string          `json:"suite"`
	RunID     string          `json:"run_id"`
	Timestamp string          `json:"timestamp"`
	Metadata  json.RawMessage `json:"metadata"`
}

// ReadJSON reads records from a JSON document. The document is either
// an array of records, a single record object, or a batch object whose
// "results" array holds the records and whose "suite", "run_id",
// "timestamp" and "metadata" fields are defaults for them.
//
// Each record is decoded and validated independently. A malformed
// record yields a *SyntaxError in its place. The returned error is
// non-nil only if the document as a whole can't be read.
func ReadJSON(r io.Reader, fileName string) ([]Item, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fileName, err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	var hdr batchHeader
	var elems []json.RawMessage
	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, &elems); err != nil {
			return []Item{&SyntaxError{fileName, 0, err.Error()}}, nil
		}
	case '{':
		var top map[string]json.RawMessage
		if err := json.Unmarshal(data, &top); err != nil {
			return []Item{&SyntaxError{fileName, 0, err.Error()}}, nil
		}
		results, ok := top["results"]
		if !ok {
			elems = []json.RawMessage{data}
			break
		}
		if err := json.Unmarshal(data, &hdr); err != nil {
			return []Item{&SyntaxError{fileName, 0, "batch header: " + err.Error()}}, nil
		}
		if err := json.Unmarshal(results, &elems); err != nil {
			return []Item{&SyntaxError{fileName, 0, "results: " + err.Error()}}, nil
		}
	default:
		return []Item{&SyntaxError{fileName, 0, "not a JSON object or array"}}, nil
	}

	items := make([]Item, 0, len(elems))
	for i, elem := range elems {
		rec, err := decodeRecord(elem, &hdr)
		if err != nil {
			items = append(items, &SyntaxError{fileName, i + 1, err.Error()})
			continue
		}
		rec.fileName, rec.line = fileName, i+1
		items = append(items, rec)
	}
	return items, nil
}

// decodeRecord decodes and validates a single JSON record, filling
// unset fields from hdr.
func decodeRecord(data json.RawMessage, hdr *batchHeader) (*Record, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	rec := &Record{
		Suite:     hdr.Suite,
		RunID:     hdr.RunID,
		Timestamp: hdr.Timestamp,
		Metadata:  hdr.Metadata,
	}
	str := func(key string, dst *string) error {
		raw, ok := fields[key]
		if !ok {
			return nil
		}
		delete(fields, key)
		if err := json.Unmarshal(raw, dst); err != nil {
			return fmt.Errorf("field %s: %w", key, err)
		}
		return nil
	}
	for key, dst := range map[string]*string{
		"name":      &rec.Name,
		"suite":     &rec.Suite,
		"run_id":    &rec.RunID,
		"timestamp": &rec.Timestamp,
	} {
		if err := str(key, dst); err != nil {
			return nil, err
		}
	}
	if raw, ok := fields["params"]; ok {
		delete(fields, "params")
		if err := json.Unmarshal(raw, &rec.Params); err != nil {
			return nil, fmt.Errorf("field params: %w", err)
		}
	}
	if raw, ok := fields["stats"]; ok {
		delete(fields, "stats")
		stats, err := decodeStats(raw)
		if err != nil {
			return nil, err
		}
		rec.Stats = stats
	}
	if raw, ok := fields["metadata"]; ok {
		delete(fields, "metadata")
		if !bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			rec.Metadata = raw
		}
	}
	if len(fields) > 0 {
		rec.Extra = fields
	}
	if err := rec.normalize(); err != nil {
		return nil, err
	}
	return rec, nil
}

// decodeStats decodes a stats object. Every value must be a number;
// null is rejected.
func decodeStats(raw json.RawMessage) (map[string]float64, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("field stats: %w", err)
	}
	stats := make(map[string]float64, len(fields))
	for k, v := range fields {
		var f *float64
		if err := json.Unmarshal(v, &f); err != nil {
			return nil, fmt.Errorf("statistic %s: %w", k, err)
		}
		if f == nil {
			return nil, fmt.Errorf("statistic %s is null", k)
		}
		stats[k] = *f
	}
	return stats, nil
}

// normalize fills defaults and validates rec. The timestamp is kept as
// given.
func (r *Record) normalize() error {
	if r.Suite == "" {
		r.Suite = DefaultSuite
	}
	return r.Validate()
}
