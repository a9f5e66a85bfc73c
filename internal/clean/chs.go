// SPDX-License-Identifier: MIT

package clean

import (
	"context"
	"fmt"

	"github.com/panelkit/harmon/internal/frame"
	"github.com/panelkit/harmon/internal/log"
	"github.com/panelkit/harmon/internal/meta"
)

// CHS cleans the CHS comparison extract: score items renamed through the
// mapping, special missing values dropped, key columns typed, and the frame
// restricted to key, demographic and score columns.
func CHS(ctx context.Context, raw *frame.Frame, m *meta.Mapping, opts Options) (*frame.Frame, error) {
	logger := log.WithComponentFromContext(ctx, "clean")

	out, err := frame.New()
	if err != nil {
		return nil, err
	}

	for _, key := range []string{ColChildID, ColYear, ColMomID, ColAge} {
		col, ok := raw.Column(key)
		if !ok {
			return nil, fmt.Errorf("chs: missing column %q", key)
		}
		sc, ok := col.(*frame.StringSeries)
		if !ok {
			return nil, fmt.Errorf("chs: column %q is %s, want raw text", key, col.Kind())
		}
		ints, err := frame.ToInt(sc)
		if err != nil {
			return nil, fmt.Errorf("chs: %w", err)
		}
		if err := out.Add(ints); err != nil {
			return nil, err
		}
	}

	for _, pair := range m.Pairs() {
		col, ok := raw.Column(pair.RawName)
		if !ok {
			return nil, fmt.Errorf("chs: mapped column %q not in extract", pair.RawName)
		}
		sc, ok := col.(*frame.StringSeries)
		if !ok {
			return nil, fmt.Errorf("chs: column %q is %s, want raw text", pair.RawName, col.Kind())
		}
		floats, err := frame.ToFloat(sc)
		if err != nil {
			return nil, fmt.Errorf("chs: %w", err)
		}
		if err := out.Add(dropMissingNumeric(pair.CleanName, floats, opts)); err != nil {
			return nil, err
		}
	}

	if err := checkUniqueKeys(out); err != nil {
		return nil, fmt.Errorf("chs: %w", err)
	}

	sorted, err := out.SortByInts(ColChildID, ColYear)
	if err != nil {
		return nil, fmt.Errorf("chs: %w", err)
	}

	logger.Info().
		Str("event", "clean.chs").
		Int("rows", sorted.Len()).
		Int("score_columns", len(m.Pairs())).
		Msg("chs extract cleaned")
	return sorted, nil
}

// dropMissingNumeric blanks values that encode missingness (negative
// special values or configured codes) and renames the column.
func dropMissingNumeric(name string, s *frame.FloatSeries, opts Options) *frame.FloatSeries {
	vals := make([]float64, s.Len())
	valid := make([]bool, s.Len())
	for i := 0; i < s.Len(); i++ {
		v, ok := s.Value(i)
		if !ok || opts.missingNumeric(v) {
			continue
		}
		vals[i] = v
		valid[i] = true
	}
	return frame.Floats(name, vals, valid)
}

// checkUniqueKeys enforces the panel invariant: one row per (childid, year).
func checkUniqueKeys(f *frame.Frame) error {
	idCol, ok := f.Column(ColChildID)
	if !ok {
		return fmt.Errorf("missing column %q", ColChildID)
	}
	yrCol, ok := f.Column(ColYear)
	if !ok {
		return fmt.Errorf("missing column %q", ColYear)
	}
	ids, ok := idCol.(*frame.IntSeries)
	if !ok {
		return fmt.Errorf("column %q is %s, want int", ColChildID, idCol.Kind())
	}
	yrs, ok := yrCol.(*frame.IntSeries)
	if !ok {
		return fmt.Errorf("column %q is %s, want int", ColYear, yrCol.Kind())
	}

	type key struct{ id, yr int64 }
	seen := make(map[key]bool, f.Len())
	for i := 0; i < f.Len(); i++ {
		id, okID := ids.Value(i)
		yr, okYr := yrs.Value(i)
		if !okID || !okYr {
			return fmt.Errorf("row %d: missing panel key", i)
		}
		k := key{id, yr}
		if seen[k] {
			return fmt.Errorf("duplicate panel key (childid=%d, year=%d)", id, yr)
		}
		seen[k] = true
	}
	return nil
}
