// SPDX-License-Identifier: MIT

// Package frame implements a small columnar table used to carry survey
// extracts through the harmonization pipeline. Columns are nullable and
// typed: raw text, integers, floats, or ordered categoricals.
package frame

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind identifies the value type of a Series.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindFloat
	KindCategory
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindCategory:
		return "category"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Series is a named column of equal-length nullable values.
type Series interface {
	Name() string
	Len() int
	Kind() Kind
	// NA reports whether the value at row i is missing.
	NA(i int) bool
	// Text renders the value at row i for CSV output; missing values
	// render as the empty string.
	Text(i int) string

	withName(name string) Series
	take(idx []int) Series
	concat(other Series) (Series, error)
}

// StringSeries holds raw text values. The empty string marks a missing value.
type StringSeries struct {
	name string
	vals []string
}

// Strings builds a StringSeries; empty elements are treated as missing.
func Strings(name string, vals []string) *StringSeries {
	return &StringSeries{name: name, vals: append([]string(nil), vals...)}
}

func (s *StringSeries) Name() string  { return s.name }
func (s *StringSeries) Len() int      { return len(s.vals) }
func (s *StringSeries) Kind() Kind    { return KindString }
func (s *StringSeries) NA(i int) bool { return s.vals[i] == "" }

func (s *StringSeries) Text(i int) string { return s.vals[i] }

// Value returns the text at row i and whether it is present.
func (s *StringSeries) Value(i int) (string, bool) {
	return s.vals[i], s.vals[i] != ""
}

func (s *StringSeries) withName(name string) Series {
	return &StringSeries{name: name, vals: s.vals}
}

func (s *StringSeries) take(idx []int) Series {
	vals := make([]string, len(idx))
	for n, i := range idx {
		vals[n] = s.vals[i]
	}
	return &StringSeries{name: s.name, vals: vals}
}

func (s *StringSeries) concat(other Series) (Series, error) {
	o, ok := other.(*StringSeries)
	if !ok {
		return nil, fmt.Errorf("concat %q: kind mismatch (%s vs %s)", s.name, s.Kind(), other.Kind())
	}
	return &StringSeries{name: s.name, vals: append(append([]string(nil), s.vals...), o.vals...)}, nil
}

// IntSeries holds nullable 64-bit integers.
type IntSeries struct {
	name  string
	vals  []int64
	valid []bool
}

// Ints builds an IntSeries from values and a validity mask. A nil mask means
// every value is present.
func Ints(name string, vals []int64, valid []bool) *IntSeries {
	s := &IntSeries{name: name, vals: append([]int64(nil), vals...)}
	if valid == nil {
		valid = make([]bool, len(vals))
		for i := range valid {
			valid[i] = true
		}
	} else {
		valid = append([]bool(nil), valid...)
	}
	s.valid = valid
	return s
}

func (s *IntSeries) Name() string  { return s.name }
func (s *IntSeries) Len() int      { return len(s.vals) }
func (s *IntSeries) Kind() Kind    { return KindInt }
func (s *IntSeries) NA(i int) bool { return !s.valid[i] }

func (s *IntSeries) Text(i int) string {
	if !s.valid[i] {
		return ""
	}
	return strconv.FormatInt(s.vals[i], 10)
}

// Value returns the integer at row i and whether it is present.
func (s *IntSeries) Value(i int) (int64, bool) {
	return s.vals[i], s.valid[i]
}

func (s *IntSeries) withName(name string) Series {
	return &IntSeries{name: name, vals: s.vals, valid: s.valid}
}

func (s *IntSeries) take(idx []int) Series {
	vals := make([]int64, len(idx))
	valid := make([]bool, len(idx))
	for n, i := range idx {
		vals[n] = s.vals[i]
		valid[n] = s.valid[i]
	}
	return &IntSeries{name: s.name, vals: vals, valid: valid}
}

func (s *IntSeries) concat(other Series) (Series, error) {
	o, ok := other.(*IntSeries)
	if !ok {
		return nil, fmt.Errorf("concat %q: kind mismatch (%s vs %s)", s.name, s.Kind(), other.Kind())
	}
	return &IntSeries{
		name:  s.name,
		vals:  append(append([]int64(nil), s.vals...), o.vals...),
		valid: append(append([]bool(nil), s.valid...), o.valid...),
	}, nil
}

// FloatSeries holds nullable 64-bit floats.
type FloatSeries struct {
	name  string
	vals  []float64
	valid []bool
}

// Floats builds a FloatSeries from values and a validity mask. A nil mask
// means every value is present.
func Floats(name string, vals []float64, valid []bool) *FloatSeries {
	s := &FloatSeries{name: name, vals: append([]float64(nil), vals...)}
	if valid == nil {
		valid = make([]bool, len(vals))
		for i := range valid {
			valid[i] = true
		}
	} else {
		valid = append([]bool(nil), valid...)
	}
	s.valid = valid
	return s
}

func (s *FloatSeries) Name() string  { return s.name }
func (s *FloatSeries) Len() int      { return len(s.vals) }
func (s *FloatSeries) Kind() Kind    { return KindFloat }
func (s *FloatSeries) NA(i int) bool { return !s.valid[i] }

func (s *FloatSeries) Text(i int) string {
	if !s.valid[i] {
		return ""
	}
	return strconv.FormatFloat(s.vals[i], 'g', -1, 64)
}

// Value returns the float at row i and whether it is present.
func (s *FloatSeries) Value(i int) (float64, bool) {
	return s.vals[i], s.valid[i]
}

func (s *FloatSeries) withName(name string) Series {
	return &FloatSeries{name: name, vals: s.vals, valid: s.valid}
}

func (s *FloatSeries) take(idx []int) Series {
	vals := make([]float64, len(idx))
	valid := make([]bool, len(idx))
	for n, i := range idx {
		vals[n] = s.vals[i]
		valid[n] = s.valid[i]
	}
	return &FloatSeries{name: s.name, vals: vals, valid: valid}
}

func (s *FloatSeries) concat(other Series) (Series, error) {
	o, ok := other.(*FloatSeries)
	if !ok {
		return nil, fmt.Errorf("concat %q: kind mismatch (%s vs %s)", s.name, s.Kind(), other.Kind())
	}
	return &FloatSeries{
		name:  s.name,
		vals:  append(append([]float64(nil), s.vals...), o.vals...),
		valid: append(append([]bool(nil), s.valid...), o.valid...),
	}, nil
}

// CategorySeries holds values drawn from an ordered set of levels. Codes
// index into the level list; -1 marks a missing value.
type CategorySeries struct {
	name   string
	levels []string
	codes  []int
}

// Categories builds a CategorySeries. Codes outside [0, len(levels)) are
// normalized to -1 (missing).
func Categories(name string, levels []string, codes []int) *CategorySeries {
	cs := &CategorySeries{
		name:   name,
		levels: append([]string(nil), levels...),
		codes:  append([]int(nil), codes...),
	}
	for i, c := range cs.codes {
		if c < 0 || c >= len(cs.levels) {
			cs.codes[i] = -1
		}
	}
	return cs
}

func (s *CategorySeries) Name() string  { return s.name }
func (s *CategorySeries) Len() int      { return len(s.codes) }
func (s *CategorySeries) Kind() Kind    { return KindCategory }
func (s *CategorySeries) NA(i int) bool { return s.codes[i] < 0 }

// Levels returns the ordered level labels.
func (s *CategorySeries) Levels() []string {
	return append([]string(nil), s.levels...)
}

// Code returns the level index at row i, or -1 when missing.
func (s *CategorySeries) Code(i int) int { return s.codes[i] }

func (s *CategorySeries) Text(i int) string {
	if s.codes[i] < 0 {
		return ""
	}
	return s.levels[s.codes[i]]
}

func (s *CategorySeries) withName(name string) Series {
	return &CategorySeries{name: name, levels: s.levels, codes: s.codes}
}

func (s *CategorySeries) take(idx []int) Series {
	codes := make([]int, len(idx))
	for n, i := range idx {
		codes[n] = s.codes[i]
	}
	return &CategorySeries{name: s.name, levels: s.levels, codes: codes}
}

func (s *CategorySeries) concat(other Series) (Series, error) {
	o, ok := other.(*CategorySeries)
	if !ok {
		return nil, fmt.Errorf("concat %q: kind mismatch (%s vs %s)", s.name, s.Kind(), other.Kind())
	}
	if strings.Join(s.levels, "\x00") != strings.Join(o.levels, "\x00") {
		return nil, fmt.Errorf("concat %q: category levels differ", s.name)
	}
	return &CategorySeries{
		name:   s.name,
		levels: s.levels,
		codes:  append(append([]int(nil), s.codes...), o.codes...),
	}, nil
}

// ToInt parses a string series into integers. Missing and empty cells stay
// missing; any other unparseable cell is an error.
func ToInt(s *StringSeries) (*IntSeries, error) {
	vals := make([]int64, s.Len())
	valid := make([]bool, s.Len())
	for i := 0; i < s.Len(); i++ {
		raw, ok := s.Value(i)
		if !ok {
			continue
		}
		v, err := parseInt(raw)
		if err != nil {
			return nil, fmt.Errorf("column %q row %d: %w", s.Name(), i, err)
		}
		vals[i] = v
		valid[i] = true
	}
	return Ints(s.Name(), vals, valid), nil
}

// ToFloat parses a string series into floats. Missing and empty cells stay
// missing; any other unparseable cell is an error.
func ToFloat(s *StringSeries) (*FloatSeries, error) {
	vals := make([]float64, s.Len())
	valid := make([]bool, s.Len())
	for i := 0; i < s.Len(); i++ {
		raw, ok := s.Value(i)
		if !ok {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("column %q row %d: parse float %q: %w", s.Name(), i, raw, err)
		}
		vals[i] = v
		valid[i] = true
	}
	return Floats(s.Name(), vals, valid), nil
}

// parseInt accepts plain integers and float renderings of whole numbers
// ("12", "12.0"). Survey extracts frequently store IDs as floats.
func parseInt(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("parse int %q: %w", raw, err)
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("parse int %q: fractional value", raw)
	}
	return int64(f), nil
}
