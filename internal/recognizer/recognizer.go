// Copyright Senckenberg - Leibniz Institution for Biodiversity and Earth System Research.
// SPDX-License-Identifier: Apache-2.0

// Package recognizer extracts candidate terminology phrases from raw cell
// values. A local chunker always runs; remote language-model sources can be
// layered on top, and the union of all sources forms the phrase collection.
package recognizer

import (
	"context"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/Senckenberg-DCBiodivIT/BITS/internal/observability"
)

// Phrases shorter than this never make it into the collection.
const minPhraseLength = 2

// splitSigns break a cell into smaller fragments before chunking.
var splitSigns = []string{":", ",", ".", "(", ")", "[", "]", "="}

// ErrorSink receives recognition failures without aborting the run.
type ErrorSink interface {
	ServiceError(source, cell, raw string)
}

// Source produces candidate phrases for one cell value.
type Source interface {
	Name() string
	Recognize(ctx context.Context, cell string) ([]string, error)
}

// Collector gathers cells, runs every source over them and merges the
// results into one deduplicated phrase set.
type Collector struct {
	sources  []Source
	ignore   map[string]struct{}
	observer *observability.StandardObserver
	errors   ErrorSink

	mu    sync.Mutex
	cells []string
	seen  map[string]struct{}
}

// NewCollector builds a collector over the given sources. Cells listed in
// ignore are dropped at collection time.
func NewCollector(sources []Source, ignore []string, errors ErrorSink, observer *observability.StandardObserver) *Collector {
	ignoreSet := make(map[string]struct{}, len(ignore))
	for _, value := range ignore {
		ignoreSet[value] = struct{}{}
	}
	return &Collector{
		sources:  sources,
		ignore:   ignoreSet,
		observer: observer,
		errors:   errors,
		seen:     make(map[string]struct{}),
	}
}

// Collect stores a cell for later recognition. Ignored and duplicate cells
// are skipped.
func (c *Collector) Collect(cell string) {
	if _, skip := c.ignore[cell]; skip {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, dup := c.seen[cell]; dup {
		return
	}
	c.seen[cell] = struct{}{}
	c.cells = append(c.cells, cell)
}

// Cells returns the collected cells in collection order.
func (c *Collector) Cells() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string{}, c.cells...)
}

// Recognize runs all sources over the collected cells. Sources run
// concurrently with each other; failures are reported to the error sink and
// do not stop the other sources. The returned phrases are deduplicated and
// sorted, with purely numeric tokens stripped and too-short phrases dropped.
func (c *Collector) Recognize(ctx context.Context) []string {
	var finishTiming func(bool, map[string]interface{})
	if c.observer != nil {
		finishTiming = c.observer.StartTiming("recognizer", "recognize", "")
	}

	cells := c.Cells()
	merged := make(map[string]struct{})
	var mergedMu sync.Mutex

	var wg sync.WaitGroup
	for _, source := range c.sources {
		wg.Add(1)
		go func(src Source) {
			defer wg.Done()
			for _, cell := range cells {
				phrases, err := src.Recognize(ctx, cell)
				if err != nil {
					if c.errors != nil {
						c.errors.ServiceError(src.Name(), cell, err.Error())
					}
					if c.observer != nil {
						c.observer.LogError("recognizer", src.Name(), cell, err)
					}
					continue
				}
				mergedMu.Lock()
				for _, phrase := range phrases {
					if cleaned := CleanPhrase(phrase); cleaned != "" {
						merged[cleaned] = struct{}{}
					}
				}
				mergedMu.Unlock()
			}
		}(source)
	}
	wg.Wait()

	result := make([]string, 0, len(merged))
	for phrase := range merged {
		result = append(result, phrase)
	}
	sort.Strings(result)

	if finishTiming != nil {
		finishTiming(true, map[string]interface{}{
			"cell_count":   len(cells),
			"phrase_count": len(result),
			"source_count": len(c.sources),
		})
	}
	return result
}

// ChunkSource is the local fallback recognizer. It splits cells on
// punctuation signs and emits the cleaned fragments together with their
// stopword-free sub-chunks.
type ChunkSource struct {
	stopwords map[string]struct{}
}

// defaultStopwords separate noun chunks inside a fragment. The list covers
// English and German function words seen in biodiversity datasets.
var defaultStopwords = []string{
	"a", "an", "the", "and", "or", "of", "in", "on", "at", "to", "for",
	"with", "by", "from", "is", "are", "was", "were",
	"der", "die", "das", "ein", "eine", "und", "oder", "von", "im", "mit",
}

// NewChunkSource creates the local chunker with the default stopword list.
func NewChunkSource() *ChunkSource {
	stopwords := make(map[string]struct{}, len(defaultStopwords))
	for _, word := range defaultStopwords {
		stopwords[word] = struct{}{}
	}
	return &ChunkSource{stopwords: stopwords}
}

// Name implements Source.
func (s *ChunkSource) Name() string { return "chunker" }

// Recognize implements Source. It never fails.
func (s *ChunkSource) Recognize(_ context.Context, cell string) ([]string, error) {
	prepared := cell
	for _, sign := range splitSigns {
		prepared = strings.ReplaceAll(prepared, sign, " . ")
	}

	var phrases []string
	for _, fragment := range strings.Split(prepared, ".") {
		fragment = strings.Join(strings.Fields(fragment), " ")
		if fragment == "" {
			continue
		}
		phrases = append(phrases, fragment)
		phrases = append(phrases, s.chunks(fragment)...)
	}
	return phrases, nil
}

// chunks splits a fragment at stopwords and numeric tokens, yielding the
// runs of content words between them.
func (s *ChunkSource) chunks(fragment string) []string {
	var result []string
	var current []string

	flush := func() {
		if len(current) > 0 {
			chunk := strings.Join(current, " ")
			if chunk != fragment {
				result = append(result, chunk)
			}
			current = current[:0]
		}
	}

	for _, token := range strings.Fields(fragment) {
		if _, stop := s.stopwords[strings.ToLower(token)]; stop || isNumeric(token) {
			flush()
			continue
		}
		current = append(current, token)
	}
	flush()
	return result
}

// CleanPhrase strips purely numeric tokens from a candidate phrase. A phrase
// that reduces to nothing or falls below the minimum length yields "".
func CleanPhrase(phrase string) string {
	var kept []string
	for _, token := range strings.Fields(phrase) {
		if isNumeric(token) {
			continue
		}
		kept = append(kept, token)
	}
	cleaned := strings.Join(kept, " ")
	if len([]rune(cleaned)) < minPhraseLength {
		return ""
	}
	return cleaned
}

func isNumeric(token string) bool {
	for _, r := range token {
		if !unicode.IsDigit(r) && r != '.' && r != ',' && r != '-' {
			return false
		}
	}
	return token != ""
}
