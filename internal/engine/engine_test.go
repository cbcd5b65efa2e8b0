// Copyright Senckenberg - Leibniz Institution for Biodiversity and Earth System Research.
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Senckenberg-DCBiodivIT/BITS/internal/config"
	"github.com/Senckenberg-DCBiodivIT/BITS/internal/dataset"
	"github.com/Senckenberg-DCBiodivIT/BITS/internal/match"
	"github.com/Senckenberg-DCBiodivIT/BITS/internal/recognizer"
	"github.com/Senckenberg-DCBiodivIT/BITS/internal/stats"
)

// knownPhrases resolves a fixed phrase list and misses everything else.
type knownPhrases map[string]map[string]match.Result

func (k knownPhrases) MatchPhrase(_ context.Context, phrase string) (map[string]match.Result, error) {
	if results, ok := k[phrase]; ok {
		return results, nil
	}
	return map[string]match.Result{}, nil
}

func testConfig(t *testing.T, input, output string) *config.Config {
	t.Helper()
	cfg, err := config.LoadConfig("")
	require.NoError(t, err)
	cfg.Data.InputFile = input
	cfg.Data.OutputFile = output
	cfg.Annotation.RelevantFields = []string{"material"}
	cfg.Statistics.Persist = false
	cfg.Cache.Enabled = false
	cfg.Cache.Persist = false
	cfg.Workers = 2
	return cfg
}

func TestRunEndToEnd(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "input.csv")
	output := filepath.Join(dir, "output.csv")
	content := "sample,material\ns1,metal oxide\ns2,granite\ns3,metal oxide\n"
	require.NoError(t, os.WriteFile(input, []byte(content), 0600))

	cfg := testConfig(t, input, output)

	matcher := knownPhrases{
		"metal oxide": {
			"chebi": {ID: "CHEBI_133331", IRI: "http://x/CHEBI_133331", OriginalLabel: "metal oxide", Similarity: 1.0},
		},
	}
	collector := stats.NewCollector()
	phraseCollector := recognizer.NewCollector([]recognizer.Source{recognizer.NewChunkSource()}, nil, collector, nil)

	coordinator := New(cfg, &dataset.CSVProvider{Path: input}, phraseCollector, matcher, nil, collector, nil)
	result, err := coordinator.Run(context.Background())
	require.NoError(t, err)

	// Both "metal oxide" cells are annotated, "granite" is untouched.
	assert.Contains(t, result.Annotated.Rows[0][1], "CHEBI_133331")
	assert.Equal(t, "granite", result.Annotated.Rows[1][1])
	assert.Equal(t, result.Annotated.Rows[0][1], result.Annotated.Rows[2][1])

	// The original copy is preserved for validation.
	assert.Equal(t, "metal oxide", result.Original.Rows[0][1])

	// The run is reversible.
	require.NotNil(t, result.Validation)
	assert.True(t, result.Validation.OK())

	assert.Equal(t, 1, result.AnnotatedPhrases)
	assert.GreaterOrEqual(t, result.Phrases, 2)

	// The export holds the annotated cells.
	exported, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Contains(t, string(exported), "CHEBI_133331")
	assert.True(t, strings.HasPrefix(string(exported), "sample,material"))
}

func TestRunMissingInput(t *testing.T) {
	cfg := testConfig(t, "/nonexistent/input.csv", filepath.Join(t.TempDir(), "out.csv"))

	collector := stats.NewCollector()
	phraseCollector := recognizer.NewCollector(nil, nil, collector, nil)
	coordinator := New(cfg, &dataset.CSVProvider{Path: cfg.Data.InputFile}, phraseCollector, knownPhrases{}, nil, collector, nil)

	_, err := coordinator.Run(context.Background())
	assert.Error(t, err)
}

func TestRunWithoutExportOrValidation(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "input.csv")
	output := filepath.Join(dir, "output.csv")
	require.NoError(t, os.WriteFile(input, []byte("sample,material\ns1,granite\n"), 0600))

	cfg := testConfig(t, input, output)
	cfg.Annotation.PerformExport = false
	cfg.Annotation.PerformValidation = false

	collector := stats.NewCollector()
	phraseCollector := recognizer.NewCollector([]recognizer.Source{recognizer.NewChunkSource()}, nil, collector, nil)
	coordinator := New(cfg, &dataset.CSVProvider{Path: input}, phraseCollector, knownPhrases{}, nil, collector, nil)

	result, err := coordinator.Run(context.Background())
	require.NoError(t, err)
	assert.Nil(t, result.Validation)

	_, statErr := os.Stat(output)
	assert.True(t, os.IsNotExist(statErr))
}
