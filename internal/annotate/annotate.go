// Copyright Senckenberg - Leibniz Institution for Biodiversity and Earth System Research.
// SPDX-License-Identifier: Apache-2.0

// Package annotate rewrites dataset cells, replacing matched phrases with
// inline JSON markers. Replacement is longest-phrase-first and never touches
// text inside an existing marker, so nested partial matches cannot corrupt
// earlier annotations.
package annotate

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/Senckenberg-DCBiodivIT/BITS/internal/dataset"
	"github.com/Senckenberg-DCBiodivIT/BITS/internal/match"
	"github.com/Senckenberg-DCBiodivIT/BITS/internal/observability"
)

// Marker renders the inline annotation for a phrase. json.Marshal sorts map
// keys, so the encoding is deterministic and DecodeMarker inverts it exactly.
func Marker(phrase string, results map[string]match.Result) (string, error) {
	payload := map[string]map[string]match.Result{phrase: results}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encoding marker for %q: %w", phrase, err)
	}
	return string(data), nil
}

// DecodeMarker parses a marker back into its phrase and results. Exactly one
// phrase key is expected.
func DecodeMarker(marker string) (string, map[string]match.Result, error) {
	var payload map[string]map[string]match.Result
	if err := json.Unmarshal([]byte(marker), &payload); err != nil {
		return "", nil, fmt.Errorf("decoding marker: %w", err)
	}
	if len(payload) != 1 {
		return "", nil, fmt.Errorf("marker holds %d phrases, want 1", len(payload))
	}
	for phrase, results := range payload {
		return phrase, results, nil
	}
	return "", nil, nil
}

// Segment is a run of cell text that is either plain or a complete marker.
type Segment struct {
	Text   string
	Marker bool
}

// SplitSegments partitions a cell into plain and marker segments. Braces
// nest: a marker segment runs from an opening brace to the brace that
// returns the depth to zero. An unbalanced trailing brace run is treated as
// plain text.
func SplitSegments(cell string) []Segment {
	var segments []Segment
	var plain strings.Builder

	runes := []rune(cell)
	for i := 0; i < len(runes); i++ {
		if runes[i] != '{' {
			plain.WriteRune(runes[i])
			continue
		}

		depth := 0
		end := -1
		for j := i; j < len(runes); j++ {
			switch runes[j] {
			case '{':
				depth++
			case '}':
				depth--
			}
			if depth == 0 {
				end = j
				break
			}
		}
		if end < 0 {
			plain.WriteString(string(runes[i:]))
			break
		}

		if plain.Len() > 0 {
			segments = append(segments, Segment{Text: plain.String()})
			plain.Reset()
		}
		segments = append(segments, Segment{Text: string(runes[i : end+1]), Marker: true})
		i = end
	}
	if plain.Len() > 0 {
		segments = append(segments, Segment{Text: plain.String()})
	}
	return segments
}

// replaceOutsideMarkers substitutes old with new in the plain segments only.
func replaceOutsideMarkers(cell, old, new string) string {
	segments := SplitSegments(cell)
	var out strings.Builder
	for _, segment := range segments {
		if segment.Marker {
			out.WriteString(segment.Text)
			continue
		}
		out.WriteString(strings.ReplaceAll(segment.Text, old, new))
	}
	return out.String()
}

// SortKeys orders phrases longest first so that a long match is annotated
// before any phrase it contains. Equal lengths tie-break lexicographically
// to keep runs deterministic.
func SortKeys(results match.Map) []string {
	keys := make([]string, 0, len(results))
	for key := range results {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}

// Annotator applies match results to dataset cells.
type Annotator struct {
	results  match.Map
	observer *observability.StandardObserver
}

// New creates an annotator over the given results.
func New(results match.Map, observer *observability.StandardObserver) *Annotator {
	return &Annotator{results: results, observer: observer}
}

// AnnotateCell rewrites one cell. Phrases without any accepted result leave
// the cell untouched.
func (a *Annotator) AnnotateCell(cell string) (string, error) {
	for _, phrase := range SortKeys(a.results) {
		results := a.results[phrase]
		if len(results) == 0 {
			continue
		}
		marker, err := Marker(phrase, results)
		if err != nil {
			return "", err
		}
		cell = replaceOutsideMarkers(cell, phrase, marker)
	}
	return cell, nil
}

// AnnotateDataset rewrites the named columns of every row in place.
func (a *Annotator) AnnotateDataset(ds *dataset.Dataset, columns []string) error {
	var finishTiming func(bool, map[string]interface{})
	if a.observer != nil {
		finishTiming = a.observer.StartTiming("annotate", "annotate_dataset", "")
	}

	annotated := 0
	for _, name := range columns {
		idx := ds.ColumnIndex(name)
		if idx < 0 {
			continue
		}
		for _, row := range ds.Rows {
			if idx >= len(row) || row[idx] == "" {
				continue
			}
			cell, err := a.AnnotateCell(row[idx])
			if err != nil {
				if finishTiming != nil {
					finishTiming(false, map[string]interface{}{"error": err.Error()})
				}
				return err
			}
			if cell != row[idx] {
				annotated++
			}
			row[idx] = cell
		}
	}

	if finishTiming != nil {
		finishTiming(true, map[string]interface{}{
			"phrase_count":    len(a.results),
			"annotated_cells": annotated,
		})
	}
	return nil
}
