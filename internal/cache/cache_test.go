// Copyright Senckenberg - Leibniz Institution for Biodiversity and Earth System Research.
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Senckenberg-DCBiodivIT/BITS/internal/match"
)

func sampleResults() map[string]match.Result {
	return map[string]match.Result{
		"envo": {ID: "ENVO_001", IRI: "http://purl.obolibrary.org/obo/ENVO_001", OriginalLabel: "soil", Similarity: 1.0},
	}
}

func TestPutAndGet(t *testing.T) {
	c := New(Options{Enabled: true, TTL: time.Hour}, nil)
	c.Put(match.KindTerminology, "envo", "soil", sampleResults())

	entry, ok := c.Get(match.KindTerminology, "envo", "soil")
	require.True(t, ok)
	assert.Equal(t, "ENVO_001", entry.Results["envo"].ID)
	assert.NotZero(t, entry.CacheTime)

	// A different kind or source misses.
	_, ok = c.Get(match.KindCollection, "envo", "soil")
	assert.False(t, ok)
	_, ok = c.Get(match.KindTerminology, "chebi", "soil")
	assert.False(t, ok)
}

func TestGetDisabled(t *testing.T) {
	c := New(Options{Enabled: false}, nil)
	c.Put(match.KindAll, "*", "soil", sampleResults())
	_, ok := c.Get(match.KindAll, "*", "soil")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestFirstWriteWins(t *testing.T) {
	c := New(Options{Enabled: true, TTL: time.Hour}, nil)
	c.Put(match.KindAll, "*", "soil", sampleResults())

	replacement := map[string]match.Result{
		"envo": {ID: "ENVO_999", Similarity: 0.95},
	}
	c.Put(match.KindAll, "*", "soil", replacement)

	entry, ok := c.Get(match.KindAll, "*", "soil")
	require.True(t, ok)
	assert.Equal(t, "ENVO_001", entry.Results["envo"].ID)
}

func TestEmptyResultsAreCached(t *testing.T) {
	c := New(Options{Enabled: true, TTL: time.Hour}, nil)
	c.Put(match.KindAll, "*", "asdfgh", map[string]match.Result{})

	entry, ok := c.Get(match.KindAll, "*", "asdfgh")
	require.True(t, ok)
	assert.Empty(t, entry.Results)
}

func TestExpiry(t *testing.T) {
	c := New(Options{Enabled: true, TTL: time.Hour}, nil)
	current := time.Now()
	c.now = func() time.Time { return current }

	c.Put(match.KindAll, "*", "soil", sampleResults())

	// Inside the TTL the entry is served.
	current = current.Add(30 * time.Minute)
	_, ok := c.Get(match.KindAll, "*", "soil")
	assert.True(t, ok)

	// Past the TTL it is treated as absent.
	current = current.Add(31 * time.Minute)
	_, ok = c.Get(match.KindAll, "*", "soil")
	assert.False(t, ok)

	// Sweep drops the stale phrase bucket entirely.
	c.Sweep()
	assert.Equal(t, 0, c.Len())
}

func TestPersistAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "query_cache.json")

	c := New(Options{Enabled: true, Path: path, TTL: time.Hour}, nil)
	c.Put(match.KindTerminology, "envo", "soil", sampleResults())
	c.Put(match.KindAll, "*", "water", map[string]match.Result{})
	require.NoError(t, c.Persist())

	reloaded := New(Options{Enabled: true, Path: path, TTL: time.Hour}, nil)
	entry, ok := reloaded.Get(match.KindTerminology, "envo", "soil")
	require.True(t, ok)
	assert.Equal(t, "soil", entry.Results["envo"].OriginalLabel)

	_, ok = reloaded.Get(match.KindAll, "*", "water")
	assert.True(t, ok)
}

func TestLoadMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.json")
	c := New(Options{Enabled: true, Path: path, TTL: time.Hour}, nil)
	assert.Equal(t, 0, c.Len())
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "query_cache.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	c := New(Options{Enabled: true, Path: path, TTL: time.Hour}, nil)
	assert.Equal(t, 0, c.Len())

	// The cache stays usable after a failed load.
	c.Put(match.KindAll, "*", "soil", sampleResults())
	_, ok := c.Get(match.KindAll, "*", "soil")
	assert.True(t, ok)
}
