// Copyright (c) 2020 Siemens AG
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies of
// the Software, and to permit persons to whom the Software is furnished to do so,
// subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY, FITNESS
// FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR
// COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
// IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
// CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
//
// Author(s): Jonas Plum

package signalstore

import (
	"strings"
	"time"

	"github.com/pkg/errors"
)

// IntervalLayout is the time format accepted by ParseInterval.
const IntervalLayout = "2006-01-02T15:04:05"

// Interval restricts retrieval by sent time. A zero Min or Max means the
// interval is unbounded on that side. Bounds are inclusive.
type Interval struct {
	Min time.Time
	Max time.Time
}

// ParseInterval parses "min,max" where either side may be empty.
func ParseInterval(s string, loc *time.Location) (Interval, error) {
	if loc == nil {
		loc = time.Local
	}
	minStr, maxStr, ok := strings.Cut(s, ",")
	if !ok {
		return Interval{}, errors.Errorf("missing ',' in interval %q", s)
	}

	var iv Interval
	var err error
	if minStr != "" {
		iv.Min, err = time.ParseInLocation(IntervalLayout, minStr, loc)
		if err != nil {
			return Interval{}, errors.Wrapf(err, "invalid time %q", minStr)
		}
	}
	if maxStr != "" {
		iv.Max, err = time.ParseInLocation(IntervalLayout, maxStr, loc)
		if err != nil {
			return Interval{}, errors.Wrapf(err, "invalid time %q", maxStr)
		}
	}
	if !iv.Min.IsZero() && !iv.Max.IsZero() && iv.Min.After(iv.Max) {
		return Interval{}, errors.Errorf("invalid interval %q: min is after max", s)
	}
	return iv, nil
}

// Bounded reports whether at least one side is set.
func (iv Interval) Bounded() bool {
	return !iv.Min.IsZero() || !iv.Max.IsZero()
}

// Contains reports whether the millisecond timestamp ms is inside iv.
func (iv Interval) Contains(ms int64) bool {
	if !iv.Min.IsZero() && ms < iv.Min.UnixMilli() {
		return false
	}
	if !iv.Max.IsZero() && ms > iv.Max.UnixMilli() {
		return false
	}
	return true
}

// where returns one of the four conditions on column and its arguments.
func (iv Interval) where(column string) (string, []interface{}) {
	switch {
	case iv.Min.IsZero() && iv.Max.IsZero():
		return "", nil
	case iv.Max.IsZero():
		return column + " >= ?", []interface{}{iv.Min.UnixMilli()}
	case iv.Min.IsZero():
		return column + " <= ?", []interface{}{iv.Max.UnixMilli()}
	default:
		return column + " BETWEEN ? AND ?", []interface{}{iv.Min.UnixMilli(), iv.Max.UnixMilli()}
	}
}
