// Copyright Senckenberg - Leibniz Institution for Biodiversity and Earth System Research.
// SPDX-License-Identifier: Apache-2.0

// Package dataset loads tabular biodiversity data and writes annotated
// copies back out. CSV is the only wire format currently supported.
package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
)

// Dataset is an in-memory table: a header row and the data rows beneath it.
// Column order is preserved from the source file.
type Dataset struct {
	Columns []string
	Rows    [][]string
}

// Clone returns an independent deep copy.
func (d *Dataset) Clone() *Dataset {
	clone := &Dataset{
		Columns: append([]string{}, d.Columns...),
		Rows:    make([][]string, len(d.Rows)),
	}
	for i, row := range d.Rows {
		clone.Rows[i] = append([]string{}, row...)
	}
	return clone
}

// ColumnIndex returns the position of the named column, or -1.
func (d *Dataset) ColumnIndex(name string) int {
	for i, col := range d.Columns {
		if col == name {
			return i
		}
	}
	return -1
}

// Cells returns every non-empty value of the named columns, deduplicated and
// sorted. Columns absent from the dataset are skipped.
func (d *Dataset) Cells(columns []string) []string {
	seen := make(map[string]struct{})
	for _, name := range columns {
		idx := d.ColumnIndex(name)
		if idx < 0 {
			continue
		}
		for _, row := range d.Rows {
			if idx >= len(row) {
				continue
			}
			if value := row[idx]; value != "" {
				seen[value] = struct{}{}
			}
		}
	}
	cells := make([]string, 0, len(seen))
	for value := range seen {
		cells = append(cells, value)
	}
	sort.Strings(cells)
	return cells
}

// Provider loads a dataset from some backing store.
type Provider interface {
	Load() (*Dataset, error)
}

// CSVProvider reads a dataset from a CSV file. MaxRows limits how many data
// rows are kept; zero means unlimited.
type CSVProvider struct {
	Path    string
	MaxRows int
}

// Load reads and parses the CSV file. The first record is the header.
func (p *CSVProvider) Load() (*Dataset, error) {
	f, err := os.Open(p.Path)
	if err != nil {
		return nil, fmt.Errorf("opening dataset %s: %w", p.Path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing dataset %s: %w", p.Path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("dataset %s is empty", p.Path)
	}

	ds := &Dataset{Columns: records[0], Rows: records[1:]}
	if p.MaxRows > 0 && len(ds.Rows) > p.MaxRows {
		ds.Rows = ds.Rows[:p.MaxRows]
	}
	return ds, nil
}

// ExportCSV writes the dataset to path, header first.
func ExportCSV(ds *Dataset, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output %s: %w", path, err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	if err := writer.Write(ds.Columns); err != nil {
		return fmt.Errorf("writing header to %s: %w", path, err)
	}
	for _, row := range ds.Rows {
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("writing row to %s: %w", path, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flushing output %s: %w", path, err)
	}
	return nil
}
