// SPDX-License-Identifier: MIT

package clean

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/panelkit/harmon/internal/frame"
	"github.com/panelkit/harmon/internal/log"
	"github.com/panelkit/harmon/internal/meta"
	"github.com/panelkit/harmon/internal/metrics"
)

// ErrNoWaveMetadata marks a survey year the dictionary does not cover.
var ErrNoWaveMetadata = errors.New("no dictionary rows for wave")

// Wave cleans one NLSY survey year: subset to dictionary columns present in
// the extract, rename, normalize item answers into ordered categoricals, and
// derive per-subscale mean scores from 0/1 item scoring.
func Wave(ctx context.Context, raw *frame.Frame, year int, dict *meta.Dictionary, opts Options) (*frame.Frame, error) {
	items := dict.ForWave(year)
	if len(items) == 0 {
		return nil, fmt.Errorf("wave %d: %w", year, ErrNoWaveMetadata)
	}

	out, err := frame.New()
	if err != nil {
		return nil, err
	}

	// Identifier columns apply to every wave. Absent raw columns are
	// tolerated; childid is checked below.
	for _, e := range dict.Invariants() {
		col, ok := raw.Column(e.RawName)
		if !ok {
			continue
		}
		sc, ok := col.(*frame.StringSeries)
		if !ok {
			return nil, fmt.Errorf("wave %d: column %q is %s, want raw text", year, e.RawName, col.Kind())
		}
		cleaned, err := invariantSeries(e.CleanName, sc)
		if err != nil {
			return nil, fmt.Errorf("wave %d: %w", year, err)
		}
		if err := out.Add(cleaned); err != nil {
			return nil, fmt.Errorf("wave %d: %w", year, err)
		}
	}

	if !out.Has(ColChildID) {
		return nil, fmt.Errorf("wave %d: extract has no column for %q (check the variable dictionary)", year, ColChildID)
	}

	rows := out.Len()
	yearVals := make([]int64, rows)
	for i := range yearVals {
		yearVals[i] = int64(year)
	}
	if err := out.Add(frame.Ints(ColYear, yearVals, nil)); err != nil {
		return nil, fmt.Errorf("wave %d: %w", year, err)
	}

	// Item columns: ordered categoricals plus 0/1 scoring grouped into
	// subscale means.
	scoreSums := make(map[string][]float64)
	scoreCounts := make(map[string][]int)
	for _, e := range items {
		col, ok := raw.Column(e.RawName)
		if !ok {
			continue // extract does not carry this item
		}
		sc, ok := col.(*frame.StringSeries)
		if !ok {
			return nil, fmt.Errorf("wave %d: column %q is %s, want raw text", year, e.RawName, col.Kind())
		}

		codes := make([]int, sc.Len())
		for i := 0; i < sc.Len(); i++ {
			codes[i] = opts.normalizeAnswer(sc.Text(i))
		}
		if err := out.Add(frame.Categories(e.CleanName, AnswerLevels, codes)); err != nil {
			return nil, fmt.Errorf("wave %d: %w", year, err)
		}

		sub := e.Subscale()
		if scoreSums[sub] == nil {
			scoreSums[sub] = make([]float64, sc.Len())
			scoreCounts[sub] = make([]int, sc.Len())
		}
		for i, code := range codes {
			if v, ok := binaryScore(code); ok {
				scoreSums[sub][i] += v
				scoreCounts[sub][i]++
			}
		}
	}

	subscales := make([]string, 0, len(scoreSums))
	for sub := range scoreSums {
		subscales = append(subscales, sub)
	}
	sort.Strings(subscales)
	for _, sub := range subscales {
		sums, counts := scoreSums[sub], scoreCounts[sub]
		vals := make([]float64, len(sums))
		valid := make([]bool, len(sums))
		for i := range sums {
			if counts[i] == 0 {
				continue
			}
			vals[i] = sums[i] / float64(counts[i])
			valid[i] = true
		}
		if err := out.Add(frame.Floats(ScorePrefix+sub, vals, valid)); err != nil {
			return nil, fmt.Errorf("wave %d: %w", year, err)
		}
	}

	return out, nil
}

// invariantSeries types an identifier column: integer identifiers are
// parsed, everything else stays raw text.
func invariantSeries(cleanName string, s *frame.StringSeries) (frame.Series, error) {
	switch cleanName {
	case ColChildID, ColMomID, ColBirthOrder, ColAge:
		return frame.ToInt(frame.Strings(cleanName, rawValues(s)))
	default:
		return frame.Strings(cleanName, rawValues(s)), nil
	}
}

func rawValues(s *frame.StringSeries) []string {
	vals := make([]string, s.Len())
	for i := range vals {
		vals[i] = s.Text(i)
	}
	return vals
}

// NLSY cleans every covered wave concurrently and concatenates the results
// into one long panel sorted by (childid, year). Waves without dictionary
// coverage are skipped with a warning.
func NLSY(ctx context.Context, raw *frame.Frame, dict *meta.Dictionary, waves []int, opts Options) (*frame.Frame, error) {
	logger := log.WithComponentFromContext(ctx, "clean")

	results := make([]*frame.Frame, len(waves))
	g, gctx := errgroup.WithContext(ctx)
	for i, year := range waves {
		i, year := i, year
		g.Go(func() error {
			wf, err := Wave(gctx, raw, year, dict, opts)
			if errors.Is(err, ErrNoWaveMetadata) {
				metrics.RecordWaveSkipped()
				logger.Warn().
					Str("event", "clean.wave_skipped").
					Int("wave", year).
					Msg("dictionary does not cover wave")
				return nil
			}
			if err != nil {
				return err
			}
			results[i] = wf
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("nlsy: %w", err)
	}

	parts := make([]*frame.Frame, 0, len(results))
	for _, wf := range results {
		if wf != nil {
			parts = append(parts, wf)
		}
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("nlsy: dictionary covers none of the configured waves")
	}
	long, err := frame.Concat(parts...)
	if err != nil {
		return nil, fmt.Errorf("nlsy: %w", err)
	}

	if err := checkUniqueKeys(long); err != nil {
		return nil, fmt.Errorf("nlsy: %w", err)
	}

	sorted, err := long.SortByInts(ColChildID, ColYear)
	if err != nil {
		return nil, fmt.Errorf("nlsy: %w", err)
	}

	logger.Info().
		Str("event", "clean.nlsy").
		Int("waves", len(parts)).
		Int("rows", sorted.Len()).
		Msg("nlsy extract cleaned")
	return sorted, nil
}

// WaveYears expands an inclusive survey year range into the even-year waves
// the NLSY child survey was fielded in.
func WaveYears(start, end int) []int {
	var out []int
	for y := start; y <= end; y += 2 {
		out = append(out, y)
	}
	return out
}
