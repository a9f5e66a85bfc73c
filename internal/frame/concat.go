// SPDX-License-Identifier: MIT

package frame

import "fmt"

// Concat stacks frames row-wise, aligning columns by name. The result
// carries the union of all columns in first-seen order; rows from frames
// lacking a column are filled with missing values. Column kinds (and
// category levels) must agree across frames.
func Concat(frames ...*Frame) (*Frame, error) {
	if len(frames) == 0 {
		return New()
	}

	var order []string
	protos := make(map[string]Series)
	for _, f := range frames {
		for _, name := range f.Names() {
			c, _ := f.Column(name)
			proto, seen := protos[name]
			if !seen {
				order = append(order, name)
				protos[name] = c
				continue
			}
			if proto.Kind() != c.Kind() {
				return nil, fmt.Errorf("concat: column %q kind mismatch (%s vs %s)", name, proto.Kind(), c.Kind())
			}
		}
	}

	out := &Frame{byName: make(map[string]int, len(order))}
	for _, name := range order {
		proto := protos[name]
		var joined Series
		for _, f := range frames {
			part, ok := f.Column(name)
			if !ok {
				part = nullLike(proto, name, f.Len())
			}
			if joined == nil {
				joined = part
				continue
			}
			next, err := joined.concat(part)
			if err != nil {
				return nil, fmt.Errorf("concat: %w", err)
			}
			joined = next
		}
		if err := out.Add(joined); err != nil {
			return nil, fmt.Errorf("concat: %w", err)
		}
	}
	return out, nil
}

// nullLike builds an all-missing series of the prototype's kind.
func nullLike(proto Series, name string, n int) Series {
	switch p := proto.(type) {
	case *IntSeries:
		return Ints(name, make([]int64, n), make([]bool, n))
	case *FloatSeries:
		return Floats(name, make([]float64, n), make([]bool, n))
	case *CategorySeries:
		codes := make([]int, n)
		for i := range codes {
			codes[i] = -1
		}
		return Categories(name, p.levels, codes)
	default:
		return Strings(name, make([]string, n))
	}
}
