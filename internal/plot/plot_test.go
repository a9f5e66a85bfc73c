// SPDX-License-Identifier: MIT
package plot

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panelkit/harmon/internal/frame"
)

func mergedPanel(t *testing.T) *frame.Frame {
	t.Helper()
	f, err := frame.New(
		frame.Ints("childid", []int64{1, 2, 3, 4, 5}, nil),
		frame.Ints("year", []int64{1990, 1990, 1990, 1992, 1992}, nil),
		frame.Ints("age", []int64{6, 6, 6, 7, 7}, nil),
		frame.Floats("bpi_anxiety", []float64{0, 0.5, 1, 0.25, 0}, []bool{true, true, true, true, false}),
		frame.Floats("bpi_anxiety_chs", []float64{0.1, 0.6, 1.1, 0.3, 0.9}, nil),
	)
	require.NoError(t, err)
	return f
}

func TestScores(t *testing.T) {
	chart, err := Scores(context.Background(), mergedPanel(t), "anxiety")
	require.NoError(t, err)

	require.Len(t, chart.Facets, 2)
	assert.Equal(t, int64(6), chart.Facets[0].Age)
	assert.Equal(t, int64(7), chart.Facets[1].Age)

	// age 6 has three points on a perfect line y = x + 0.1
	f := chart.Facets[0]
	require.Len(t, f.Points, 3)
	require.True(t, f.Fitted)
	assert.InDelta(t, 0.1, f.Alpha, 1e-9)
	assert.InDelta(t, 1.0, f.Beta, 1e-9)

	// age 7 keeps only the row with both scores present; one distinct x
	// is not enough for a fit
	f = chart.Facets[1]
	assert.Len(t, f.Points, 1)
	assert.False(t, f.Fitted)
}

func TestScoresMissingColumn(t *testing.T) {
	f, err := frame.New(
		frame.Ints("age", []int64{6}, nil),
		frame.Floats("bpi_anxiety", []float64{0.5}, nil),
	)
	require.NoError(t, err)

	_, err = Scores(context.Background(), f, "anxiety")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bpi_anxiety_chs")
}

func TestScoresSuffixedAge(t *testing.T) {
	f, err := frame.New(
		frame.Ints("age_chs", []int64{6}, nil),
		frame.Floats("bpi_peer", []float64{0.5}, nil),
		frame.Floats("bpi_peer_chs", []float64{0.4}, nil),
	)
	require.NoError(t, err)

	chart, err := Scores(context.Background(), f, "peer")
	require.NoError(t, err)
	require.Len(t, chart.Facets, 1)
}

func TestRenderSVG(t *testing.T) {
	chart, err := Scores(context.Background(), mergedPanel(t), "anxiety")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, chart.RenderSVG(&buf))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "<svg "))
	assert.Contains(t, out, "</svg>")
	assert.Contains(t, out, "NLSY vs CHS Anxiety score by age")
	assert.Contains(t, out, "age 6 (n=3)")
	// one trendline for the fitted facet
	assert.Equal(t, 1, strings.Count(out, "<line "))
	// four plotted points across both facets
	assert.Equal(t, 4, strings.Count(out, "<circle "))
}

func TestRenderSVGEmptyChart(t *testing.T) {
	chart := &Chart{Subscale: "peer", XLabel: "x", YLabel: "y"}
	var buf bytes.Buffer
	require.NoError(t, chart.RenderSVG(&buf))
	assert.Contains(t, buf.String(), "</svg>")
}
