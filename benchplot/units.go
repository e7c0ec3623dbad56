// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchplot

import (
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/plot"
)

// tidyMetric converts statistics named after pre-scaled units into
// base units, so "ns/op" is plotted as "sec/op" and "MB/s" as "B/s".
// It returns the axis label, the factor to multiply values by, and
// whether the unit counts bytes and should use binary prefixes.
func tidyMetric(metric string) (label string, factor float64, binary bool) {
	switch metric {
	case "ns/op":
		return "sec/op", 1e-9, false
	case "ns":
		return "sec", 1e-9, false
	case "MB/s":
		return "B/s", 1e6, false
	}
	num, _, _ := strings.Cut(metric, "/")
	binary = num == "B" || num == "bytes" || strings.HasSuffix(num, "-B")
	return metric, 1, binary
}

// A prefixer scales values and labels them with an SI or binary
// prefix.
type prefixer struct {
	factor float64
	prefix string
}

var siPrefixes = mkPrefixes(1000, 4, []string{"T", "G", "M", "k", "", "m", "µ", "n", "p"})
var iecPrefixes = mkPrefixes(1024, 4, []string{"Ti", "Gi", "Mi", "Ki", ""})

// mkPrefixes returns the prefixes named by names, from base^top down.
func mkPrefixes(base float64, top int, names []string) []prefixer {
	ps := make([]prefixer, len(names))
	exp := top
	for i, name := range names {
		ps[i] = prefixer{math.Pow(base, float64(exp)), name}
		exp--
	}
	return ps
}

// commonPrefix returns the largest prefix that keeps the largest
// magnitude in vals at or above 1.
func commonPrefix(vals []float64, binary bool) prefixer {
	var max float64
	for _, v := range vals {
		max = math.Max(max, math.Abs(v))
	}
	ps := siPrefixes
	if binary {
		ps = iecPrefixes
	}
	if max == 0 {
		return prefixer{1, ""}
	}
	for _, p := range ps {
		if max >= p.factor {
			return p
		}
	}
	return ps[len(ps)-1]
}

func (p prefixer) format(v float64) string {
	return strconv.FormatFloat(v/p.factor, 'g', 4, 64) + p.prefix
}

// unitTicks places ticks like plot.DefaultTicks and labels them with a
// common unit prefix.
type unitTicks struct {
	binary bool
}

func (u unitTicks) Ticks(min, max float64) []plot.Tick {
	ticks := plot.DefaultTicks{}.Ticks(min, max)
	var major []float64
	for _, t := range ticks {
		if t.Label != "" {
			major = append(major, t.Value)
		}
	}
	p := commonPrefix(major, u.binary)
	for i := range ticks {
		if ticks[i].Label != "" {
			ticks[i].Label = p.format(ticks[i].Value)
		}
	}
	return ticks
}
