// Copyright Senckenberg - Leibniz Institution for Biodiversity and Earth System Research.
// SPDX-License-Identifier: Apache-2.0

package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindValid(t *testing.T) {
	assert.True(t, KindTerminology.Valid())
	assert.True(t, KindCollection.Valid())
	assert.True(t, KindAll.Valid())
	assert.False(t, Kind("everything").Valid())
	assert.False(t, Kind("").Valid())
}

func TestMergeKeepsHigherSimilarity(t *testing.T) {
	m := make(Map)
	m.Merge("soil", map[string]Result{"envo": {ID: "ENVO_1", Similarity: 0.92}})
	m.Merge("soil", map[string]Result{"envo": {ID: "ENVO_2", Similarity: 0.95}})
	m.Merge("soil", map[string]Result{"envo": {ID: "ENVO_3", Similarity: 0.91}})

	assert.Equal(t, "ENVO_2", m["soil"]["envo"].ID)
}

func TestMergeEmptyRecordsMiss(t *testing.T) {
	m := make(Map)
	m.Merge("granite", map[string]Result{})

	results, ok := m["granite"]
	assert.True(t, ok)
	assert.Empty(t, results)
}
