// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchrec

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// A Reader reads records from the Go benchmark format, as documented
// at https://golang.org/design/14313-benchmark-format.
//
// Configuration lines ("key: value") apply to all following results.
// The keys "suite", "run_id" (or "runid") and "timestamp" (or "date")
// fill the corresponding Record fields; all other keys are collected
// into Record.Metadata. Sub-benchmark name parts of the form
// "/key=value" become parameters, and a trailing "-N" GOMAXPROCS
// suffix becomes the "gomaxprocs" parameter. Each value/unit pair
// becomes a statistic named by its unit, and the iteration count
// becomes the "iterations" statistic. Values are not unit-converted.
//
// Its API is modeled on bufio.Scanner.
type Reader struct {
	s        *bufio.Scanner
	fileName string
	line     int
	err      error

	config map[string]string
	order  []string

	cur Item
}

// NewReader constructs a reader to parse the Go benchmark format from r.
// fileName is used in error messages and record positions.
func NewReader(r io.Reader, fileName string) *Reader {
	if fileName == "" {
		fileName = "<unknown>"
	}
	return &Reader{
		s:        bufio.NewScanner(r),
		fileName: fileName,
		config:   make(map[string]string),
	}
}

// Scan advances the reader to the next record and reports whether one
// was read. The caller should use the Result method to get it.
// If Scan reaches EOF or an I/O error occurs, it returns false,
// in which case the caller should use the Err method to check for errors.
func (r *Reader) Scan() bool {
	if r.err != nil {
		return false
	}
	for r.s.Scan() {
		r.line++
		line := r.s.Text()
		if strings.HasPrefix(line, "Benchmark") {
			item := r.parseBenchmarkLine(line)
			if item == nil {
				continue
			}
			r.cur = item
			return true
		}
		if key, val, ok := parseKeyValueLine(line); ok {
			r.setConfig(key, val)
		}
	}
	if err := r.s.Err(); err != nil {
		r.err = fmt.Errorf("%s:%d: %w", r.fileName, r.line, err)
	}
	return false
}

// Result returns the item read by the last call to Scan: either a
// *Record or a *SyntaxError. Unlike most Readers, the returned record
// is not reused and may be retained.
func (r *Reader) Result() Item {
	return r.cur
}

// Err returns the first non-EOF I/O error that was encountered by the
// Reader.
func (r *Reader) Err() error {
	return r.err
}

func (r *Reader) setConfig(key, val string) {
	if _, ok := r.config[key]; !ok {
		r.order = append(r.order, key)
	}
	if val == "" {
		delete(r.config, key)
		for i, k := range r.order {
			if k == key {
				r.order = append(r.order[:i], r.order[i+1:]...)
				break
			}
		}
		return
	}
	r.config[key] = val
}

func (r *Reader) syntaxError(msg string) *SyntaxError {
	return &SyntaxError{r.fileName, r.line, msg}
}

// parseBenchmarkLine parses a line beginning with "Benchmark". It
// returns nil for lines that should be skipped.
func (r *Reader) parseBenchmarkLine(line string) Item {
	fields := strings.Fields(line[len("Benchmark"):])
	if len(fields) == 0 {
		return r.syntaxError("missing benchmark name")
	}
	// "go test -v" prints the bare benchmark name when it starts.
	if len(fields) == 1 {
		return nil
	}
	rec := &Record{fileName: r.fileName, line: r.line}
	rec.Name, rec.Params = parseName(fields[0])
	iters, err := strconv.Atoi(fields[1])
	if err != nil {
		return r.syntaxError("parsing iteration count: " + err.(*strconv.NumError).Err.Error())
	}
	rest := fields[2:]
	if len(rest) == 0 {
		return r.syntaxError("missing measurements")
	}
	rec.Stats = map[string]float64{"iterations": float64(iters)}
	for len(rest) > 0 {
		if len(rest) == 1 {
			return r.syntaxError("missing units")
		}
		v, err := strconv.ParseFloat(rest[0], 64)
		if err != nil {
			return r.syntaxError("parsing measurement: " + err.(*strconv.NumError).Err.Error())
		}
		rec.Stats[rest[1]] = v
		rest = rest[2:]
	}

	meta := make(map[string]string)
	for _, k := range r.order {
		v := r.config[k]
		switch k {
		case "suite":
			rec.Suite = v
		case "run_id", "runid":
			rec.RunID = v
		case "timestamp", "date":
			rec.Timestamp = v
		default:
			meta[k] = v
		}
	}
	if len(meta) > 0 {
		rec.Metadata, _ = json.Marshal(meta)
	}
	if err := rec.normalize(); err != nil {
		return r.syntaxError(err.Error())
	}
	return rec
}

// parseName splits a full benchmark name into the base name, with any
// positional sub-benchmark parts, and the key=value parameters.
func parseName(full string) (string, Params) {
	params := make(Params)
	// Pull off GOMAXPROCS.
	if i := strings.LastIndexByte(full, '-'); i > 0 && i < len(full)-1 {
		if n, err := strconv.Atoi(full[i+1:]); err == nil && n > 0 {
			params["gomaxprocs"] = NumberParam(float64(n))
			full = full[:i]
		}
	}
	parts := strings.Split(full, "/")
	name := parts[0]
	for _, part := range parts[1:] {
		if eq := strings.IndexByte(part, '='); eq > 0 {
			params[part[:eq]] = paramFromText(part[eq+1:])
			continue
		}
		name += "/" + part
	}
	if len(params) == 0 {
		params = nil
	}
	return name, params
}

// paramFromText interprets a sub-benchmark value as a number when it
// parses as one.
func paramFromText(s string) Param {
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return NumberParam(f)
	}
	return StringParam(s)
}

// parseKeyValueLine attempts to parse line as a key: val pair,
// with ok reporting whether the line could be parsed.
func parseKeyValueLine(line string) (key, val string, ok bool) {
	for i := 0; i < len(line); {
		r, n := utf8.DecodeRuneInString(line[i:])
		// key begins with a lower case character ...
		if i == 0 && !unicode.IsLower(r) {
			return
		}
		// and contains no space characters nor upper case
		// characters.
		if unicode.IsSpace(r) || unicode.IsUpper(r) {
			return
		}
		if i > 0 && r == ':' {
			key, val = line[:i], line[i+1:]
			break
		}
		i += n
	}
	if key == "" {
		return
	}
	if val == "" {
		return key, "", true
	}
	// One or more ASCII space or tab characters separate "key:"
	// from "value."
	if val[0] != ' ' && val[0] != '\t' {
		return "", "", false
	}
	return key, strings.TrimSpace(val), true
}
