// Copyright Senckenberg - Leibniz Institution for Biodiversity and Earth System Research.
// SPDX-License-Identifier: Apache-2.0

package annotate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Senckenberg-DCBiodivIT/BITS/internal/dataset"
	"github.com/Senckenberg-DCBiodivIT/BITS/internal/match"
)

func metalResults() match.Map {
	return match.Map{
		"metal oxide": {
			"chebi": {ID: "CHEBI_133331", IRI: "http://purl.obolibrary.org/obo/CHEBI_133331", OriginalLabel: "metal oxide", Similarity: 1.0},
		},
		"metal": {
			"chebi": {ID: "CHEBI_33521", IRI: "http://purl.obolibrary.org/obo/CHEBI_33521", OriginalLabel: "metal", Similarity: 1.0},
		},
	}
}

func TestMarkerRoundTrip(t *testing.T) {
	results := metalResults()["metal oxide"]

	marker, err := Marker("metal oxide", results)
	require.NoError(t, err)

	phrase, decoded, err := DecodeMarker(marker)
	require.NoError(t, err)
	assert.Equal(t, "metal oxide", phrase)
	assert.Equal(t, results, decoded)
}

func TestMarkerDeterministic(t *testing.T) {
	results := map[string]match.Result{
		"b_source": {ID: "2"},
		"a_source": {ID: "1"},
	}
	first, err := Marker("soil", results)
	require.NoError(t, err)
	second, err := Marker("soil", results)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSortKeysLongestFirst(t *testing.T) {
	keys := SortKeys(match.Map{
		"metal":       {},
		"metal oxide": {},
		"water":       {},
		"soil":        {},
	})
	assert.Equal(t, []string{"metal oxide", "metal", "water", "soil"}, keys)
}

func TestSplitSegments(t *testing.T) {
	segments := SplitSegments(`before {"a":{"x":1}} after`)
	require.Len(t, segments, 3)
	assert.Equal(t, "before ", segments[0].Text)
	assert.False(t, segments[0].Marker)
	assert.Equal(t, `{"a":{"x":1}}`, segments[1].Text)
	assert.True(t, segments[1].Marker)
	assert.Equal(t, " after", segments[2].Text)
}

func TestSplitSegmentsNested(t *testing.T) {
	cell := `x {"metal oxide":{"chebi":{"id":"1"}}} y`
	segments := SplitSegments(cell)
	require.Len(t, segments, 3)
	assert.True(t, segments[1].Marker)
	assert.Equal(t, `{"metal oxide":{"chebi":{"id":"1"}}}`, segments[1].Text)
}

func TestSplitSegmentsUnbalanced(t *testing.T) {
	segments := SplitSegments("broken { marker")
	require.Len(t, segments, 1)
	assert.False(t, segments[0].Marker)
	assert.Equal(t, "broken { marker", segments[0].Text)
}

func TestAnnotateCellLongestFirst(t *testing.T) {
	a := New(metalResults(), nil)
	annotated, err := a.AnnotateCell("metal oxide and metal probes")
	require.NoError(t, err)

	oxideMarker, err := Marker("metal oxide", metalResults()["metal oxide"])
	require.NoError(t, err)
	metalMarker, err := Marker("metal", metalResults()["metal"])
	require.NoError(t, err)

	// "metal oxide" is annotated as a whole; the "metal" inside its marker
	// stays untouched while the free-standing "metal" is annotated.
	assert.Equal(t, oxideMarker+" and "+metalMarker+" probes", annotated)
}

func TestAnnotateCellNoMatchesUntouched(t *testing.T) {
	a := New(match.Map{"metal": {}}, nil)
	annotated, err := a.AnnotateCell("metal probes")
	require.NoError(t, err)
	assert.Equal(t, "metal probes", annotated)
}

func TestAnnotateCellIdempotentMarkers(t *testing.T) {
	a := New(metalResults(), nil)
	once, err := a.AnnotateCell("metal oxide")
	require.NoError(t, err)
	twice, err := a.AnnotateCell(once)
	require.NoError(t, err)
	assert.Equal(t, once, twice)
}

func TestAnnotateDataset(t *testing.T) {
	ds := &dataset.Dataset{
		Columns: []string{"sample", "material", "note"},
		Rows: [][]string{
			{"s1", "metal oxide", "keep"},
			{"s2", "", "keep"},
			{"s3", "granite", "metal"},
		},
	}

	a := New(metalResults(), nil)
	require.NoError(t, a.AnnotateDataset(ds, []string{"material"}))

	oxideMarker, err := Marker("metal oxide", metalResults()["metal oxide"])
	require.NoError(t, err)

	assert.Equal(t, oxideMarker, ds.Rows[0][1])
	assert.Equal(t, "", ds.Rows[1][1])
	assert.Equal(t, "granite", ds.Rows[2][1])
	// Columns outside the relevant set stay untouched.
	assert.Equal(t, "metal", ds.Rows[2][2])
}
