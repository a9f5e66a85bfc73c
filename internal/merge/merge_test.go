// SPDX-License-Identifier: MIT
package merge

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panelkit/harmon/internal/frame"
)

// records renders a frame as header plus text rows for whole-frame diffs.
func records(t *testing.T, f *frame.Frame) [][]string {
	t.Helper()
	out := [][]string{f.Names()}
	for i := 0; i < f.Len(); i++ {
		row := make([]string, 0, len(f.Names()))
		for _, name := range f.Names() {
			col, ok := f.Column(name)
			require.True(t, ok)
			row = append(row, col.Text(i))
		}
		out = append(out, row)
	}
	return out
}

func chsFrame(t *testing.T) *frame.Frame {
	t.Helper()
	f, err := frame.New(
		frame.Ints("childid", []int64{1, 2, 3}, nil),
		frame.Ints("year", []int64{1990, 1990, 1990}, nil),
		frame.Ints("age", []int64{6, 15, 8}, nil),
		frame.Ints("momid", []int64{10, 20, 30}, nil),
		frame.Floats("bpi_anxiety_chs", []float64{0.1, 0.2, 0.3}, nil),
	)
	require.NoError(t, err)
	return f
}

func nlsyFrame(t *testing.T) *frame.Frame {
	t.Helper()
	f, err := frame.New(
		frame.Ints("childid", []int64{1, 2, 4}, nil),
		frame.Ints("year", []int64{1990, 1990, 1990}, nil),
		frame.Ints("momid", []int64{10, 20, 40}, nil),
		frame.Floats("bpi_anxiety", []float64{0.5, 0.6, 0.7}, nil),
	)
	require.NoError(t, err)
	return f
}

func TestPanels(t *testing.T) {
	left, right := chsFrame(t), nlsyFrame(t)

	out, err := Panels(context.Background(), left, right, DefaultOptions())
	require.NoError(t, err)

	// child 3 has no NLSY row, child 4 no CHS row, child 2 is out of the
	// age window: only child 1 survives. Overlapping momid gets side
	// suffixes, score columns keep their names.
	want := [][]string{
		{"childid", "year", "age", "momid_chs", "bpi_anxiety_chs", "momid_nlsy", "bpi_anxiety"},
		{"1", "1990", "6", "10", "0.1", "10", "0.5"},
	}
	if diff := cmp.Diff(want, records(t, out)); diff != "" {
		t.Errorf("merged frame mismatch (-want +got):\n%s", diff)
	}
	assert.False(t, out.Has("momid"))

	// inputs were not renamed in place
	assert.True(t, left.Has("momid"))
	assert.True(t, right.Has("momid"))
}

func TestPanelsAgeWindow(t *testing.T) {
	opts := DefaultOptions()
	opts.AgeMin, opts.AgeMax = 5, 15

	out, err := Panels(context.Background(), chsFrame(t), nlsyFrame(t), opts)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Len())
}

func TestPanelsMissingKey(t *testing.T) {
	noKey, err := frame.New(frame.Ints("childid", []int64{1}, nil))
	require.NoError(t, err)

	_, err = Panels(context.Background(), noKey, nlsyFrame(t), DefaultOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "year")
}

func TestPanelsNoAgeColumn(t *testing.T) {
	left, err := frame.New(
		frame.Ints("childid", []int64{1}, nil),
		frame.Ints("year", []int64{1990}, nil),
	)
	require.NoError(t, err)
	right, err := frame.New(
		frame.Ints("childid", []int64{1}, nil),
		frame.Ints("year", []int64{1990}, nil),
	)
	require.NoError(t, err)

	_, err = Panels(context.Background(), left, right, DefaultOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "age")
}

func TestPanelsSuffixedAge(t *testing.T) {
	// age observed by both sides gets suffixed; the window still applies
	// through the left side's age.
	left, err := frame.New(
		frame.Ints("childid", []int64{1}, nil),
		frame.Ints("year", []int64{1990}, nil),
		frame.Ints("age", []int64{6}, nil),
	)
	require.NoError(t, err)
	right, err := frame.New(
		frame.Ints("childid", []int64{1}, nil),
		frame.Ints("year", []int64{1990}, nil),
		frame.Ints("age", []int64{7}, nil),
	)
	require.NoError(t, err)

	out, err := Panels(context.Background(), left, right, DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, 1, out.Len())
	assert.True(t, out.Has("age_chs"))
	assert.True(t, out.Has("age_nlsy"))
}

func TestPanelsEmptyResult(t *testing.T) {
	left, err := frame.New(
		frame.Ints("childid", []int64{1}, nil),
		frame.Ints("year", []int64{1986}, nil),
		frame.Ints("age", []int64{6}, nil),
	)
	require.NoError(t, err)
	right, err := frame.New(
		frame.Ints("childid", []int64{2}, nil),
		frame.Ints("year", []int64{1986}, nil),
	)
	require.NoError(t, err)

	out, err := Panels(context.Background(), left, right, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 0, out.Len())
}
