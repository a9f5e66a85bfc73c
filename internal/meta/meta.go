// SPDX-License-Identifier: MIT

// Package meta loads the variable dictionaries that drive harmonization.
// Raw extract variable names never appear in code; every rename comes from
// a dictionary row.
package meta

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/panelkit/harmon/internal/frame"
)

// WaveInvariant marks dictionary rows that apply to every survey wave
// (identifiers, demographics).
const WaveInvariant = "invariant"

// Entry is one dictionary row: a raw extract variable and its harmonized name.
type Entry struct {
	RawName   string
	CleanName string
	Wave      int  // survey year, 0 when invariant
	Invariant bool // applies to every wave
}

// Subscale returns the subscale an item belongs to, derived from the
// harmonized name prefix: "anxiety_mood" -> "anxiety".
func (e Entry) Subscale() string {
	name, _, _ := strings.Cut(e.CleanName, "_")
	return name
}

// Dictionary holds wave-aware variable metadata for a survey extract.
type Dictionary struct {
	entries []Entry
	byWave  map[int][]Entry
	inv     []Entry
}

// ParseDictionary reads dictionary rows from a CSV document with columns
// nlsy_name, readable_name and survey_year (a year or "invariant").
func ParseDictionary(r io.Reader) (*Dictionary, error) {
	f, err := frame.ReadCSV(r)
	if err != nil {
		return nil, fmt.Errorf("dictionary: %w", err)
	}
	return dictionaryFromFrame(f)
}

// LoadDictionary reads a dictionary CSV file.
func LoadDictionary(path string) (*Dictionary, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dictionary: open %s: %w", path, err)
	}
	defer fh.Close()
	d, err := ParseDictionary(fh)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

func dictionaryFromFrame(f *frame.Frame) (*Dictionary, error) {
	for _, col := range []string{"nlsy_name", "readable_name", "survey_year"} {
		if !f.Has(col) {
			return nil, fmt.Errorf("dictionary: missing column %q", col)
		}
	}

	rawCol, _ := f.Column("nlsy_name")
	cleanCol, _ := f.Column("readable_name")
	waveCol, _ := f.Column("survey_year")

	d := &Dictionary{byWave: make(map[int][]Entry)}
	seen := make(map[string]bool) // wave + raw name

	for i := 0; i < f.Len(); i++ {
		raw := strings.TrimSpace(rawCol.Text(i))
		clean := strings.TrimSpace(cleanCol.Text(i))
		wave := strings.TrimSpace(waveCol.Text(i))

		if raw == "" || clean == "" {
			return nil, fmt.Errorf("dictionary row %d: empty variable name", i+1)
		}

		e := Entry{RawName: raw, CleanName: clean}
		if strings.EqualFold(wave, WaveInvariant) {
			e.Invariant = true
		} else {
			year, err := strconv.Atoi(wave)
			if err != nil {
				return nil, fmt.Errorf("dictionary row %d: survey_year %q is neither a year nor %q", i+1, wave, WaveInvariant)
			}
			e.Wave = year
		}

		key := wave + "\x00" + raw
		if seen[key] {
			return nil, fmt.Errorf("dictionary row %d: duplicate raw name %q for wave %s", i+1, raw, wave)
		}
		seen[key] = true

		d.entries = append(d.entries, e)
		if e.Invariant {
			d.inv = append(d.inv, e)
		} else {
			d.byWave[e.Wave] = append(d.byWave[e.Wave], e)
		}
	}

	if err := d.validate(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Dictionary) validate() error {
	hasChildID := false
	for _, e := range d.inv {
		if e.CleanName == "childid" {
			hasChildID = true
			break
		}
	}
	if !hasChildID {
		return fmt.Errorf("dictionary: no invariant row maps to childid")
	}
	return nil
}

// Len returns the number of dictionary rows.
func (d *Dictionary) Len() int { return len(d.entries) }

// Invariants returns the rows that apply to every wave.
func (d *Dictionary) Invariants() []Entry {
	return append([]Entry(nil), d.inv...)
}

// ForWave returns the item rows for one survey year. The result is empty
// when the dictionary does not cover the wave.
func (d *Dictionary) ForWave(year int) []Entry {
	return append([]Entry(nil), d.byWave[year]...)
}

// Waves returns the covered survey years in ascending order.
func (d *Dictionary) Waves() []int {
	out := make([]int, 0, len(d.byWave))
	for y := range d.byWave {
		out = append(out, y)
	}
	sort.Ints(out)
	return out
}

// Subscales returns the distinct subscales across all item rows, sorted.
func (d *Dictionary) Subscales() []string {
	set := make(map[string]bool)
	for _, e := range d.entries {
		if e.Invariant {
			continue
		}
		set[e.Subscale()] = true
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Mapping is a flat rename table for extracts without wave structure.
type Mapping struct {
	pairs []Entry
}

// ParseMapping reads rename rows from a CSV document with columns raw_name
// and readable_name.
func ParseMapping(r io.Reader) (*Mapping, error) {
	f, err := frame.ReadCSV(r)
	if err != nil {
		return nil, fmt.Errorf("mapping: %w", err)
	}
	for _, col := range []string{"raw_name", "readable_name"} {
		if !f.Has(col) {
			return nil, fmt.Errorf("mapping: missing column %q", col)
		}
	}

	rawCol, _ := f.Column("raw_name")
	cleanCol, _ := f.Column("readable_name")

	m := &Mapping{}
	seen := make(map[string]bool)
	for i := 0; i < f.Len(); i++ {
		raw := strings.TrimSpace(rawCol.Text(i))
		clean := strings.TrimSpace(cleanCol.Text(i))
		if raw == "" || clean == "" {
			return nil, fmt.Errorf("mapping row %d: empty variable name", i+1)
		}
		if seen[raw] {
			return nil, fmt.Errorf("mapping row %d: duplicate raw name %q", i+1, raw)
		}
		seen[raw] = true
		m.pairs = append(m.pairs, Entry{RawName: raw, CleanName: clean})
	}
	if len(m.pairs) == 0 {
		return nil, fmt.Errorf("mapping: no rows")
	}
	return m, nil
}

// LoadMapping reads a mapping CSV file.
func LoadMapping(path string) (*Mapping, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mapping: open %s: %w", path, err)
	}
	defer fh.Close()
	m, err := ParseMapping(fh)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Pairs returns the rename rows in file order.
func (m *Mapping) Pairs() []Entry {
	return append([]Entry(nil), m.pairs...)
}
