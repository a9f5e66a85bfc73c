// SPDX-License-Identifier: MIT

// Package plot renders subscale comparison charts: NLSY scores against CHS
// scores, one facet per age, with an OLS trendline per facet.
package plot

import (
	"context"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/panelkit/harmon/internal/clean"
	"github.com/panelkit/harmon/internal/frame"
	"github.com/panelkit/harmon/internal/log"
)

// Point is one observation in a facet.
type Point struct {
	X float64 // NLSY score
	Y float64 // CHS score
}

// Facet holds the observations for one age and the fitted trendline.
type Facet struct {
	Age    int64
	Points []Point
	Alpha  float64 // trendline intercept
	Beta   float64 // trendline slope
	Fitted bool    // false when too few points for a fit
}

// Chart is a faceted comparison plot for one subscale.
type Chart struct {
	Subscale string
	XLabel   string
	YLabel   string
	Facets   []Facet
}

// Scores builds the comparison chart for one subscale from the merged
// panel. Rows missing either score or the age are dropped.
func Scores(ctx context.Context, merged *frame.Frame, subscale string) (*Chart, error) {
	logger := log.WithComponentFromContext(ctx, "plot")

	xName := clean.ScorePrefix + subscale
	yName := clean.ScorePrefix + subscale + "_chs"

	x, err := floatColumn(merged, xName)
	if err != nil {
		return nil, err
	}
	y, err := floatColumn(merged, yName)
	if err != nil {
		return nil, err
	}
	age, err := ageColumn(merged)
	if err != nil {
		return nil, err
	}

	byAge := make(map[int64][]Point)
	for i := 0; i < merged.Len(); i++ {
		xv, okX := x.Value(i)
		yv, okY := y.Value(i)
		av, okA := age.Value(i)
		if !okX || !okY || !okA {
			continue
		}
		byAge[av] = append(byAge[av], Point{X: xv, Y: yv})
	}

	ages := make([]int64, 0, len(byAge))
	for a := range byAge {
		ages = append(ages, a)
	}
	sort.Slice(ages, func(i, j int) bool { return ages[i] < ages[j] })

	chart := &Chart{
		Subscale: subscale,
		XLabel:   "NLSY " + subscale,
		YLabel:   "CHS " + subscale,
	}
	for _, a := range ages {
		pts := byAge[a]
		f := Facet{Age: a, Points: pts}
		if xs, ys := split(pts); distinct(xs) >= 2 {
			f.Alpha, f.Beta = stat.LinearRegression(xs, ys, nil, false)
			f.Fitted = !math.IsNaN(f.Alpha) && !math.IsNaN(f.Beta)
		}
		chart.Facets = append(chart.Facets, f)
	}

	logger.Debug().
		Str("event", "plot.chart").
		Str("subscale", subscale).
		Int("facets", len(chart.Facets)).
		Msg("chart assembled")
	return chart, nil
}

func floatColumn(f *frame.Frame, name string) (*frame.FloatSeries, error) {
	col, ok := f.Column(name)
	if !ok {
		return nil, fmt.Errorf("plot: column %q missing from merged panel", name)
	}
	fs, ok := col.(*frame.FloatSeries)
	if !ok {
		return nil, fmt.Errorf("plot: column %q is %s, want float", name, col.Kind())
	}
	return fs, nil
}

func ageColumn(f *frame.Frame) (*frame.IntSeries, error) {
	for _, name := range []string{clean.ColAge, clean.ColAge + "_chs"} {
		col, ok := f.Column(name)
		if !ok {
			continue
		}
		is, ok := col.(*frame.IntSeries)
		if !ok {
			return nil, fmt.Errorf("plot: column %q is %s, want int", name, col.Kind())
		}
		return is, nil
	}
	return nil, fmt.Errorf("plot: no age column in merged panel")
}

func split(pts []Point) ([]float64, []float64) {
	xs := make([]float64, len(pts))
	ys := make([]float64, len(pts))
	for i, p := range pts {
		xs[i] = p.X
		ys[i] = p.Y
	}
	return xs, ys
}

func distinct(vals []float64) int {
	seen := make(map[float64]bool, len(vals))
	for _, v := range vals {
		seen[v] = true
	}
	return len(seen)
}
