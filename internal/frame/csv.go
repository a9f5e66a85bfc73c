// SPDX-License-Identifier: MIT

package frame

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// ReadCSV reads a headered CSV document into a frame of string columns.
// Empty cells become missing values; header names are trimmed.
func ReadCSV(r io.Reader) (*Frame, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("read csv: empty document")
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	names := make([]string, len(header))
	for i, h := range header {
		names[i] = strings.TrimSpace(h)
	}

	cols := make([][]string, len(names))
	row := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row %d: %w", row, err)
		}
		for i := range names {
			cols[i] = append(cols[i], strings.TrimSpace(rec[i]))
		}
		row++
	}

	f := &Frame{byName: make(map[string]int, len(names))}
	for i, name := range names {
		if err := f.Add(Strings(name, cols[i])); err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
	}
	return f, nil
}

// ReadCSVFile reads a CSV file into a frame.
func ReadCSVFile(path string) (*Frame, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer fh.Close()
	f, err := ReadCSV(fh)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// WriteCSV writes the frame as a headered CSV document. Missing values
// render as empty fields.
func (f *Frame) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(f.Names()); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	rec := make([]string, len(f.cols))
	for i := 0; i < f.Len(); i++ {
		for c, col := range f.cols {
			rec[c] = col.Text(i)
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write csv row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
