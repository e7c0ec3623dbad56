// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package benchrec defines benchmark result records, the unit of
// input to the aggregator.
//
// A Record is the outcome of one benchmark execution in one CI run:
// the benchmark name, its parameters, and the statistics reported by
// the benchmark runner. Records are read from JSON documents or from
// files in the Go benchmark format (see Files and Reader) and are
// never modified once read.
//
// Records are grouped over time by their identity, which is derived
// from the name and a canonical rendering of the parameters, and
// deduplicated by their run key.
package benchrec

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// DefaultSuite is the suite of records that don't name one.
const DefaultSuite = "default"

// A Record is a single benchmark result.
type Record struct {
	// Name is the benchmark name, without parameters.
	Name string

	// Params is the parameterization of this benchmark. Together
	// with Name it forms the benchmark identity.
	Params Params

	// Stats maps metric names (mean, min, sec/op, ...) to values as
	// reported by the benchmark runner.
	Stats map[string]float64

	// Suite names the aggregate store this record belongs to.
	Suite string

	// RunID identifies the CI run that produced this record, if known.
	RunID string

	// Timestamp is the time at which the record was produced, as
	// given in the input, or "".
	Timestamp string

	// Metadata is the run metadata, preserved verbatim. It is nil
	// or a JSON object.
	Metadata json.RawMessage

	// Extra holds fields of a JSON record that this package does
	// not interpret. They are carried into the aggregate store.
	Extra map[string]json.RawMessage

	fileName string
	line     int
}

// Pos returns the file name and position of a Record. For records
// read from Go benchmark format files this is the 1-based line
// number; for JSON files it is the 1-based element number. Records
// not read from a file return "", 0.
func (r *Record) Pos() (fileName string, line int) {
	return r.fileName, r.line
}

// Identity returns the benchmark identity of r: the name followed by
// "/key=value" for each parameter in key order.
//
// String values that would read as a number or boolean are quoted, so
// {"n": "10"} and {"n": 10} have different identities. '=' in the name
// and '/' in values are escaped, so a name never reads as a parameter.
func (r *Record) Identity() string {
	return Identity(r.Name, r.Params)
}

// Identity returns the benchmark identity for a name and parameter
// set. Parameter order never affects the result.
func Identity(name string, params Params) string {
	var b strings.Builder
	b.WriteString(nameEscaper.Replace(name))
	for _, k := range params.Keys() {
		b.WriteByte('/')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(valueEscaper.Replace(identValue(params[k])))
	}
	return b.String()
}

var (
	nameEscaper  = strings.NewReplacer("%", "%25", "=", "%3D")
	valueEscaper = strings.NewReplacer("%", "%25", "/", "%2F")
)

// identValue returns the text of p in an identity. Numbers and
// booleans appear as is. Strings do too, unless they could be taken
// for another kind, in which case they are quoted.
func identValue(p Param) string {
	s := p.String()
	if p.Kind != ParamString {
		return s
	}
	if s == "true" || s == "false" || strings.HasPrefix(s, `"`) {
		return strconv.Quote(s)
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return strconv.Quote(s)
	}
	return s
}

// RunKey returns the key used to detect duplicate submissions of r.
// This is RunID if set. Otherwise it is a digest of the timestamp,
// statistics and metadata, so resubmitting an identical record
// yields the same key. Timestamps that NormalizeDateString accepts
// are digested in normalized form, so equal times written with
// different zone offsets give the same key.
func (r *Record) RunKey() string {
	if r.RunID != "" {
		return r.RunID
	}
	h := sha256.New()
	ts := r.Timestamp
	if norm, err := NormalizeDateString(ts); err == nil {
		ts = norm
	}
	fmt.Fprintf(h, "%s\x00", ts)
	keys := make([]string, 0, len(r.Stats))
	for k := range r.Stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(h, "%s=%s\x00", k, strconv.FormatFloat(r.Stats[k], 'g', -1, 64))
	}
	if len(r.Metadata) > 0 {
		var buf bytes.Buffer
		if err := json.Compact(&buf, r.Metadata); err == nil {
			h.Write(buf.Bytes())
		} else {
			h.Write(r.Metadata)
		}
	}
	return "sha256:" + hex.EncodeToString(h.Sum(nil))[:16]
}

var suiteRE = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// ValidSuite reports whether s can name a suite. Suite names become
// file names, so they are restricted to a portable character set.
func ValidSuite(s string) bool {
	return suiteRE.MatchString(s) && s != "." && s != ".."
}

// Validate checks that r can be aggregated: it must have a name, at
// least one statistic, only finite statistics, well-formed parameter
// keys and a valid suite.
func (r *Record) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("missing benchmark name")
	}
	if len(r.Stats) == 0 {
		return fmt.Errorf("%s: no statistics", r.Name)
	}
	for k, v := range r.Stats {
		if k == "" {
			return fmt.Errorf("%s: empty statistic name", r.Name)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%s: statistic %s is not finite", r.Name, k)
		}
	}
	for k := range r.Params {
		if k == "" || strings.ContainsAny(k, "/=") {
			return fmt.Errorf("%s: bad parameter name %q", r.Name, k)
		}
	}
	if !ValidSuite(r.Suite) {
		return fmt.Errorf("%s: bad suite name %q", r.Name, r.Suite)
	}
	if len(r.Metadata) > 0 {
		var m map[string]json.RawMessage
		if err := json.Unmarshal(r.Metadata, &m); err != nil {
			return fmt.Errorf("%s: metadata is not an object", r.Name)
		}
	}
	return nil
}
