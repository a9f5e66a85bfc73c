// SPDX-License-Identifier: MIT

package frame

import (
	"fmt"
	"sort"
)

// Frame is an ordered collection of equal-length Series with unique names.
type Frame struct {
	cols   []Series
	byName map[string]int
}

// New builds a frame from the given columns.
func New(cols ...Series) (*Frame, error) {
	f := &Frame{byName: make(map[string]int, len(cols))}
	for _, c := range cols {
		if err := f.Add(c); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// Copy returns a shallow copy: new column layout, shared column data.
// Renames on the copy do not touch the original.
func (f *Frame) Copy() *Frame {
	out := &Frame{
		cols:   append([]Series(nil), f.cols...),
		byName: make(map[string]int, len(f.byName)),
	}
	for k, v := range f.byName {
		out.byName[k] = v
	}
	return out
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	if len(f.cols) == 0 {
		return 0
	}
	return f.cols[0].Len()
}

// Names returns the column names in order.
func (f *Frame) Names() []string {
	out := make([]string, len(f.cols))
	for i, c := range f.cols {
		out[i] = c.Name()
	}
	return out
}

// Column returns the named column.
func (f *Frame) Column(name string) (Series, bool) {
	i, ok := f.byName[name]
	if !ok {
		return nil, false
	}
	return f.cols[i], true
}

// Has reports whether the frame contains the named column.
func (f *Frame) Has(name string) bool {
	_, ok := f.byName[name]
	return ok
}

// Add appends a column. Length and name uniqueness are enforced.
func (f *Frame) Add(s Series) error {
	if s == nil {
		return fmt.Errorf("add column: nil series")
	}
	if _, dup := f.byName[s.Name()]; dup {
		return fmt.Errorf("add column: duplicate name %q", s.Name())
	}
	if len(f.cols) > 0 && s.Len() != f.Len() {
		return fmt.Errorf("add column %q: length %d, frame has %d rows", s.Name(), s.Len(), f.Len())
	}
	f.byName[s.Name()] = len(f.cols)
	f.cols = append(f.cols, s)
	return nil
}

// Set replaces a column with the same name, or appends it when absent.
func (f *Frame) Set(s Series) error {
	if s == nil {
		return fmt.Errorf("set column: nil series")
	}
	if i, ok := f.byName[s.Name()]; ok {
		if len(f.cols) > 1 && s.Len() != f.Len() {
			return fmt.Errorf("set column %q: length %d, frame has %d rows", s.Name(), s.Len(), f.Len())
		}
		f.cols[i] = s
		return nil
	}
	return f.Add(s)
}

// Rename changes a column name in place.
func (f *Frame) Rename(old, new string) error {
	i, ok := f.byName[old]
	if !ok {
		return fmt.Errorf("rename: no column %q", old)
	}
	if old == new {
		return nil
	}
	if _, dup := f.byName[new]; dup {
		return fmt.Errorf("rename %q: column %q already exists", old, new)
	}
	f.cols[i] = f.cols[i].withName(new)
	delete(f.byName, old)
	f.byName[new] = i
	return nil
}

// Select returns a new frame containing only the named columns, in the
// given order.
func (f *Frame) Select(names ...string) (*Frame, error) {
	out := &Frame{byName: make(map[string]int, len(names))}
	for _, name := range names {
		c, ok := f.Column(name)
		if !ok {
			return nil, fmt.Errorf("select: no column %q", name)
		}
		if err := out.Add(c); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Take returns a new frame with rows at the given indices, in order.
// Indices may repeat.
func (f *Frame) Take(idx []int) *Frame {
	out := &Frame{byName: make(map[string]int, len(f.cols))}
	for _, c := range f.cols {
		// Add cannot fail here: names were unique and lengths agree.
		_ = out.Add(c.take(idx))
	}
	return out
}

// Filter returns a new frame keeping rows for which keep returns true.
func (f *Frame) Filter(keep func(row int) bool) *Frame {
	idx := make([]int, 0, f.Len())
	for i := 0; i < f.Len(); i++ {
		if keep(i) {
			idx = append(idx, i)
		}
	}
	return f.Take(idx)
}

// Append concatenates another frame with an identical schema (same column
// names, order and kinds).
func (f *Frame) Append(other *Frame) (*Frame, error) {
	if len(f.cols) != len(other.cols) {
		return nil, fmt.Errorf("append: column count mismatch (%d vs %d)", len(f.cols), len(other.cols))
	}
	out := &Frame{byName: make(map[string]int, len(f.cols))}
	for i, c := range f.cols {
		oc := other.cols[i]
		if c.Name() != oc.Name() {
			return nil, fmt.Errorf("append: column %d name mismatch (%q vs %q)", i, c.Name(), oc.Name())
		}
		joined, err := c.concat(oc)
		if err != nil {
			return nil, fmt.Errorf("append: %w", err)
		}
		if err := out.Add(joined); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// SortByInts returns a new frame sorted ascending by the named integer
// columns. Missing keys sort last.
func (f *Frame) SortByInts(names ...string) (*Frame, error) {
	keys := make([]*IntSeries, 0, len(names))
	for _, name := range names {
		c, ok := f.Column(name)
		if !ok {
			return nil, fmt.Errorf("sort: no column %q", name)
		}
		ic, ok := c.(*IntSeries)
		if !ok {
			return nil, fmt.Errorf("sort: column %q is %s, want int", name, c.Kind())
		}
		keys = append(keys, ic)
	}

	idx := make([]int, f.Len())
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ra, rb := idx[a], idx[b]
		for _, k := range keys {
			va, oka := k.Value(ra)
			vb, okb := k.Value(rb)
			switch {
			case !oka && !okb:
				continue
			case !oka:
				return false
			case !okb:
				return true
			case va != vb:
				return va < vb
			}
		}
		return false
	})
	return f.Take(idx), nil
}
