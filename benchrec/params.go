// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchrec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Params is a benchmark parameter set.
type Params map[string]Param

// Keys returns the parameter names in sorted order.
func (p Params) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Equal reports whether p and q hold the same parameters.
func (p Params) Equal(q Params) bool {
	if len(p) != len(q) {
		return false
	}
	for k, v := range p {
		if w, ok := q[k]; !ok || v != w {
			return false
		}
	}
	return true
}

// ParamKind is the JSON type of a Param.
type ParamKind uint8

const (
	ParamString ParamKind = iota
	ParamNumber
	ParamBool
)

// A Param is a single parameter value. It is a string, a number or a
// boolean. Numbers are held in canonical (shortest round-trip) form,
// so 1e3 and 1000 are the same parameter value.
//
// Params are comparable with ==.
type Param struct {
	Kind ParamKind
	text string
}

// StringParam returns a string-valued Param.
func StringParam(s string) Param { return Param{ParamString, s} }

// NumberParam returns a number-valued Param.
func NumberParam(f float64) Param {
	return Param{ParamNumber, strconv.FormatFloat(f, 'g', -1, 64)}
}

// BoolParam returns a boolean-valued Param.
func BoolParam(b bool) Param { return Param{ParamBool, strconv.FormatBool(b)} }

// String returns the canonical text of p.
func (p Param) String() string { return p.text }

func (p Param) MarshalJSON() ([]byte, error) {
	switch p.Kind {
	case ParamNumber, ParamBool:
		return []byte(p.text), nil
	}
	return json.Marshal(p.text)
}

func (p *Param) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty parameter value")
	}
	switch c := data[0]; {
	case c == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = StringParam(s)
	case c == 't' || c == 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*p = BoolParam(b)
	case c == '-' || ('0' <= c && c <= '9'):
		f, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return fmt.Errorf("parameter value %s: %w", data, err)
		}
		*p = NumberParam(f)
	default:
		return fmt.Errorf("parameter value %s is not a string, number or boolean", data)
	}
	return nil
}
