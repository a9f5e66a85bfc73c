// SPDX-License-Identifier: MIT

// Package merge joins cleaned panel frames on their (childid, year) key.
package merge

import (
	"context"
	"fmt"

	"github.com/panelkit/harmon/internal/clean"
	"github.com/panelkit/harmon/internal/frame"
	"github.com/panelkit/harmon/internal/log"
)

// Options controls the panel merge.
type Options struct {
	// AgeMin/AgeMax restrict the merged panel to an inclusive age window.
	AgeMin int
	AgeMax int
	// Suffixes applied to overlapping column names, left and right side.
	LeftSuffix  string
	RightSuffix string
}

// DefaultOptions restricts to ages 5-13, the window both surveys observe.
func DefaultOptions() Options {
	return Options{AgeMin: 5, AgeMax: 13, LeftSuffix: "_chs", RightSuffix: "_nlsy"}
}

// Panels inner-joins two cleaned frames on (childid, year). Overlapping
// non-key column names get side suffixes before the join; the result is
// restricted to the configured age window.
func Panels(ctx context.Context, left, right *frame.Frame, opts Options) (*frame.Frame, error) {
	logger := log.WithComponentFromContext(ctx, "merge")

	left, right, err := suffixOverlap(left, right, opts)
	if err != nil {
		return nil, err
	}

	lID, lYr, err := keyColumns(left, "left")
	if err != nil {
		return nil, err
	}
	rID, rYr, err := keyColumns(right, "right")
	if err != nil {
		return nil, err
	}

	type key struct{ id, yr int64 }
	rightRows := make(map[key]int, right.Len())
	for i := 0; i < right.Len(); i++ {
		id, okID := rID.Value(i)
		yr, okYr := rYr.Value(i)
		if !okID || !okYr {
			continue
		}
		rightRows[key{id, yr}] = i
	}

	var leftIdx, rightIdx []int
	for i := 0; i < left.Len(); i++ {
		id, okID := lID.Value(i)
		yr, okYr := lYr.Value(i)
		if !okID || !okYr {
			continue
		}
		if j, ok := rightRows[key{id, yr}]; ok {
			leftIdx = append(leftIdx, i)
			rightIdx = append(rightIdx, j)
		}
	}

	merged := left.Take(leftIdx)
	rightPart := right.Take(rightIdx)
	for _, name := range rightPart.Names() {
		if name == clean.ColChildID || name == clean.ColYear {
			continue
		}
		col, _ := rightPart.Column(name)
		if err := merged.Add(col); err != nil {
			return nil, fmt.Errorf("merge: %w", err)
		}
	}

	restricted, err := restrictAge(merged, opts)
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("event", "merge.panels").
		Int("matched", merged.Len()).
		Int("rows", restricted.Len()).
		Msg("panels merged")
	return restricted, nil
}

// suffixOverlap renames overlapping non-key columns on both sides. The
// inputs are copied first; callers keep their original column names.
func suffixOverlap(left, right *frame.Frame, opts Options) (*frame.Frame, *frame.Frame, error) {
	left, right = left.Copy(), right.Copy()
	overlap := make(map[string]bool)
	for _, name := range left.Names() {
		if name == clean.ColChildID || name == clean.ColYear {
			continue
		}
		if right.Has(name) {
			overlap[name] = true
		}
	}
	for name := range overlap {
		if err := left.Rename(name, name+opts.LeftSuffix); err != nil {
			return nil, nil, fmt.Errorf("merge: %w", err)
		}
		if err := right.Rename(name, name+opts.RightSuffix); err != nil {
			return nil, nil, fmt.Errorf("merge: %w", err)
		}
	}
	return left, right, nil
}

func keyColumns(f *frame.Frame, side string) (*frame.IntSeries, *frame.IntSeries, error) {
	idCol, ok := f.Column(clean.ColChildID)
	if !ok {
		return nil, nil, fmt.Errorf("merge: %s frame has no %q column", side, clean.ColChildID)
	}
	yrCol, ok := f.Column(clean.ColYear)
	if !ok {
		return nil, nil, fmt.Errorf("merge: %s frame has no %q column", side, clean.ColYear)
	}
	id, ok := idCol.(*frame.IntSeries)
	if !ok {
		return nil, nil, fmt.Errorf("merge: %s frame %q is %s, want int", side, clean.ColChildID, idCol.Kind())
	}
	yr, ok := yrCol.(*frame.IntSeries)
	if !ok {
		return nil, nil, fmt.Errorf("merge: %s frame %q is %s, want int", side, clean.ColYear, yrCol.Kind())
	}
	return id, yr, nil
}

// restrictAge keeps rows inside the configured age window. The age column
// may carry the left suffix when both sides observed it.
func restrictAge(f *frame.Frame, opts Options) (*frame.Frame, error) {
	ageName := clean.ColAge
	if !f.Has(ageName) {
		ageName = clean.ColAge + opts.LeftSuffix
	}
	ageCol, ok := f.Column(ageName)
	if !ok {
		return nil, fmt.Errorf("merge: no age column in merged panel")
	}
	age, ok := ageCol.(*frame.IntSeries)
	if !ok {
		return nil, fmt.Errorf("merge: column %q is %s, want int", ageName, ageCol.Kind())
	}

	return f.Filter(func(row int) bool {
		v, present := age.Value(row)
		return present && v >= int64(opts.AgeMin) && v <= int64(opts.AgeMax)
	}), nil
}
