// Copyright Senckenberg - Leibniz Institution for Biodiversity and Earth System Research.
// SPDX-License-Identifier: Apache-2.0

// Package validate checks that annotation is reversible: stripping every
// marker from the annotated dataset must reproduce the original dataset
// exactly. Findings are data-quality results, not process failures.
package validate

import (
	"fmt"
	"strings"

	"github.com/Senckenberg-DCBiodivIT/BITS/internal/annotate"
	"github.com/Senckenberg-DCBiodivIT/BITS/internal/dataset"
	"github.com/Senckenberg-DCBiodivIT/BITS/internal/match"
	"github.com/Senckenberg-DCBiodivIT/BITS/internal/observability"
	"github.com/Senckenberg-DCBiodivIT/BITS/internal/stats"
)

// Finding is one cell that failed reconstruction.
type Finding struct {
	Row      int
	Column   string
	Original string
	Restored string
}

// Report summarizes a validation pass.
type Report struct {
	RowCountMismatch bool
	Findings         []Finding
}

// OK reports whether the annotated dataset is fully reversible.
func (r *Report) OK() bool {
	return !r.RowCountMismatch && len(r.Findings) == 0
}

// Validator reverses markers produced from the given match results.
type Validator struct {
	results  match.Map
	stats    *stats.Collector
	observer *observability.StandardObserver
}

// New creates a validator over the results the annotator used.
func New(results match.Map, collector *stats.Collector, observer *observability.StandardObserver) *Validator {
	return &Validator{results: results, stats: collector, observer: observer}
}

// RestoreCell strips every known marker from an annotated cell.
func (v *Validator) RestoreCell(cell string) (string, error) {
	// Longest phrase first mirrors annotation order; the matching marker
	// text is unique either way because markers embed the full phrase.
	for _, phrase := range annotate.SortKeys(v.results) {
		results := v.results[phrase]
		if len(results) == 0 {
			continue
		}
		marker, err := annotate.Marker(phrase, results)
		if err != nil {
			return "", err
		}
		cell = strings.ReplaceAll(cell, marker, phrase)
	}
	return cell, nil
}

// Validate compares the annotated dataset against the original. Every
// discrepancy becomes a finding and is recorded with the statistics
// collector.
func (v *Validator) Validate(original, annotated *dataset.Dataset, columns []string) (*Report, error) {
	var finishTiming func(bool, map[string]interface{})
	if v.observer != nil {
		finishTiming = v.observer.StartTiming("validate", "bijective_validation", "")
	}

	report := &Report{}
	if len(original.Rows) != len(annotated.Rows) {
		report.RowCountMismatch = true
		if v.stats != nil {
			v.stats.ValidationFinding("different_length",
				fmt.Sprintf("original has %d rows, annotated has %d", len(original.Rows), len(annotated.Rows)))
		}
	}

	rows := len(original.Rows)
	if len(annotated.Rows) < rows {
		rows = len(annotated.Rows)
	}

	for _, name := range columns {
		origIdx := original.ColumnIndex(name)
		annIdx := annotated.ColumnIndex(name)
		if origIdx < 0 || annIdx < 0 {
			continue
		}
		for row := 0; row < rows; row++ {
			if origIdx >= len(original.Rows[row]) || annIdx >= len(annotated.Rows[row]) {
				continue
			}
			originalCell := original.Rows[row][origIdx]
			restored, err := v.RestoreCell(annotated.Rows[row][annIdx])
			if err != nil {
				if finishTiming != nil {
					finishTiming(false, map[string]interface{}{"error": err.Error()})
				}
				return nil, err
			}
			if restored != originalCell {
				report.Findings = append(report.Findings, Finding{
					Row:      row,
					Column:   name,
					Original: originalCell,
					Restored: restored,
				})
				if v.stats != nil {
					v.stats.ValidationFinding(originalCell, restored)
				}
			}
		}
	}

	if finishTiming != nil {
		finishTiming(true, map[string]interface{}{
			"finding_count": len(report.Findings),
			"row_mismatch":  report.RowCountMismatch,
		})
	}
	return report, nil
}
