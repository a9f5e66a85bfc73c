// SPDX-License-Identifier: MIT
package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsLengthMismatch(t *testing.T) {
	_, err := New(
		Strings("a", []string{"1", "2"}),
		Strings("b", []string{"1"}),
	)
	require.Error(t, err)
}

func TestNewRejectsDuplicateNames(t *testing.T) {
	_, err := New(
		Strings("a", []string{"1"}),
		Strings("a", []string{"2"}),
	)
	require.Error(t, err)
}

func TestRename(t *testing.T) {
	f, err := New(Strings("raw", []string{"x", "y"}))
	require.NoError(t, err)

	require.NoError(t, f.Rename("raw", "clean"))
	assert.False(t, f.Has("raw"))

	c, ok := f.Column("clean")
	require.True(t, ok)
	assert.Equal(t, "x", c.Text(0))

	assert.Error(t, f.Rename("missing", "other"))
}

func TestRenameCollision(t *testing.T) {
	f, err := New(
		Strings("a", []string{"1"}),
		Strings("b", []string{"2"}),
	)
	require.NoError(t, err)
	assert.Error(t, f.Rename("a", "b"))
}

func TestSelectAndTake(t *testing.T) {
	f, err := New(
		Strings("id", []string{"1", "2", "3"}),
		Strings("v", []string{"a", "b", "c"}),
	)
	require.NoError(t, err)

	sel, err := f.Select("v")
	require.NoError(t, err)
	assert.Equal(t, []string{"v"}, sel.Names())

	sub := f.Take([]int{2, 0})
	require.Equal(t, 2, sub.Len())
	c, _ := sub.Column("id")
	assert.Equal(t, "3", c.Text(0))
	assert.Equal(t, "1", c.Text(1))
}

func TestFilter(t *testing.T) {
	f, err := New(Ints("n", []int64{1, 2, 3, 4}, nil))
	require.NoError(t, err)

	even := f.Filter(func(row int) bool {
		c, _ := f.Column("n")
		v, ok := c.(*IntSeries).Value(row)
		return ok && v%2 == 0
	})
	require.Equal(t, 2, even.Len())
}

func TestAppend(t *testing.T) {
	a, err := New(Ints("n", []int64{1}, nil), Strings("s", []string{"x"}))
	require.NoError(t, err)
	b, err := New(Ints("n", []int64{2}, nil), Strings("s", []string{"y"}))
	require.NoError(t, err)

	joined, err := a.Append(b)
	require.NoError(t, err)
	require.Equal(t, 2, joined.Len())

	c, _ := joined.Column("n")
	v, ok := c.(*IntSeries).Value(1)
	require.True(t, ok)
	assert.Equal(t, int64(2), v)
}

func TestAppendSchemaMismatch(t *testing.T) {
	a, err := New(Ints("n", []int64{1}, nil))
	require.NoError(t, err)
	b, err := New(Strings("n", []string{"2"}))
	require.NoError(t, err)

	_, err = a.Append(b)
	assert.Error(t, err)
}

func TestSortByInts(t *testing.T) {
	f, err := New(
		Ints("childid", []int64{2, 1, 2, 0}, []bool{true, true, true, false}),
		Ints("year", []int64{1988, 1990, 1986, 1986}, nil),
	)
	require.NoError(t, err)

	sorted, err := f.SortByInts("childid", "year")
	require.NoError(t, err)

	id, _ := sorted.Column("childid")
	yr, _ := sorted.Column("year")

	// (1,1990), (2,1986), (2,1988), then the missing key last.
	v, _ := id.(*IntSeries).Value(0)
	assert.Equal(t, int64(1), v)
	y, _ := yr.(*IntSeries).Value(1)
	assert.Equal(t, int64(1986), y)
	y, _ = yr.(*IntSeries).Value(2)
	assert.Equal(t, int64(1988), y)
	assert.True(t, id.NA(3))
}

func TestToIntAcceptsFloatRenderings(t *testing.T) {
	s := Strings("id", []string{"12", "13.0", "", " 7 "})
	ints, err := ToInt(s)
	require.NoError(t, err)

	v, ok := ints.Value(0)
	require.True(t, ok)
	assert.Equal(t, int64(12), v)

	v, ok = ints.Value(1)
	require.True(t, ok)
	assert.Equal(t, int64(13), v)

	_, ok = ints.Value(2)
	assert.False(t, ok)

	v, ok = ints.Value(3)
	require.True(t, ok)
	assert.Equal(t, int64(7), v)
}

func TestToIntRejectsFractions(t *testing.T) {
	_, err := ToInt(Strings("id", []string{"1.5"}))
	assert.Error(t, err)

	_, err = ToInt(Strings("id", []string{"abc"}))
	assert.Error(t, err)
}

func TestToFloat(t *testing.T) {
	s := Strings("v", []string{"1.25", "", "-7"})
	fs, err := ToFloat(s)
	require.NoError(t, err)

	v, ok := fs.Value(0)
	require.True(t, ok)
	assert.Equal(t, 1.25, v)
	assert.True(t, fs.NA(1))

	v, ok = fs.Value(2)
	require.True(t, ok)
	assert.Equal(t, -7.0, v)
}

func TestCategories(t *testing.T) {
	levels := []string{"not true", "sometimes true", "often true"}
	s := Categories("item", levels, []int{0, 2, -1, 9})

	assert.Equal(t, "not true", s.Text(0))
	assert.Equal(t, "often true", s.Text(1))
	assert.True(t, s.NA(2))
	// out-of-range codes normalize to missing
	assert.True(t, s.NA(3))
	assert.Equal(t, levels, s.Levels())
}

func TestCategoryConcatLevelMismatch(t *testing.T) {
	a := Categories("item", []string{"x", "y"}, []int{0})
	b := Categories("item", []string{"x"}, []int{0})
	_, err := a.concat(b)
	assert.Error(t, err)
}
