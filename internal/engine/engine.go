// Copyright Senckenberg - Leibniz Institution for Biodiversity and Earth System Research.
// SPDX-License-Identifier: Apache-2.0

// Package engine coordinates a full annotation run: load the dataset,
// collect phrases, match them against the terminology service, annotate,
// validate and persist the artifacts.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/Senckenberg-DCBiodivIT/BITS/internal/annotate"
	"github.com/Senckenberg-DCBiodivIT/BITS/internal/cache"
	"github.com/Senckenberg-DCBiodivIT/BITS/internal/config"
	"github.com/Senckenberg-DCBiodivIT/BITS/internal/dataset"
	"github.com/Senckenberg-DCBiodivIT/BITS/internal/match"
	"github.com/Senckenberg-DCBiodivIT/BITS/internal/observability"
	"github.com/Senckenberg-DCBiodivIT/BITS/internal/parallel"
	"github.com/Senckenberg-DCBiodivIT/BITS/internal/recognizer"
	"github.com/Senckenberg-DCBiodivIT/BITS/internal/stats"
	"github.com/Senckenberg-DCBiodivIT/BITS/internal/validate"
)

// Coordinator owns one annotation run. All collaborators are injected so
// tests can stub the remote services.
type Coordinator struct {
	cfg       *config.Config
	provider  dataset.Provider
	collector *recognizer.Collector
	matcher   parallel.PhraseMatcher
	cache     *cache.MatchCache
	stats     *stats.Collector
	observer  *observability.StandardObserver
}

// New wires a coordinator.
func New(cfg *config.Config, provider dataset.Provider, collector *recognizer.Collector, matcher parallel.PhraseMatcher, matchCache *cache.MatchCache, collectorStats *stats.Collector, observer *observability.StandardObserver) *Coordinator {
	return &Coordinator{
		cfg:       cfg,
		provider:  provider,
		collector: collector,
		matcher:   matcher,
		cache:     matchCache,
		stats:     collectorStats,
		observer:  observer,
	}
}

// RunResult carries the artifacts of a completed run.
type RunResult struct {
	Original   *dataset.Dataset
	Annotated  *dataset.Dataset
	Results    match.Map
	Validation *validate.Report
	// Phrases is the size of the recognized phrase collection.
	Phrases int
	// AnnotatedPhrases counts phrases with at least one accepted match.
	AnnotatedPhrases int
	Duration         time.Duration
}

// Run executes the full pipeline. Individual phrase failures are recorded in
// the statistics; only structural problems (unreadable input, broken export)
// abort the run.
func (c *Coordinator) Run(ctx context.Context) (*RunResult, error) {
	start := time.Now()

	var finishTiming func(bool, map[string]interface{})
	if c.observer != nil {
		finishTiming = c.observer.StartTiming("engine", "run", c.cfg.Data.InputFile)
	}

	ds, err := c.provider.Load()
	if err != nil {
		if finishTiming != nil {
			finishTiming(false, map[string]interface{}{"error": err.Error()})
		}
		return nil, err
	}
	original := ds.Clone()

	// Phrase collection over the relevant columns.
	for _, cell := range ds.Cells(c.cfg.Annotation.RelevantFields) {
		c.collector.Collect(cell)
	}
	phrases := c.collector.Recognize(ctx)

	// Terminology matching across the worker pool.
	results := c.matchPhrases(ctx, phrases)

	// Annotation.
	annotator := annotate.New(results, c.observer)
	if err := annotator.AnnotateDataset(ds, c.cfg.Annotation.RelevantFields); err != nil {
		if finishTiming != nil {
			finishTiming(false, map[string]interface{}{"error": err.Error()})
		}
		return nil, err
	}

	// Export.
	if c.cfg.Annotation.PerformExport {
		if err := dataset.ExportCSV(ds, c.cfg.Data.OutputFile); err != nil {
			if finishTiming != nil {
				finishTiming(false, map[string]interface{}{"error": err.Error()})
			}
			return nil, err
		}
	}

	// Reversibility validation.
	var validation *validate.Report
	if c.cfg.Annotation.PerformValidation {
		validator := validate.New(results, c.stats, c.observer)
		validation, err = validator.Validate(original, ds, c.cfg.Annotation.RelevantFields)
		if err != nil {
			if finishTiming != nil {
				finishTiming(false, map[string]interface{}{"error": err.Error()})
			}
			return nil, err
		}
	}

	// Persist statistics and cache. Failures here are reported but do not
	// invalidate the annotated output.
	if c.cfg.Statistics.Persist && c.stats != nil {
		if err := c.stats.WriteReport(c.cfg.Statistics.Path); err != nil && c.observer != nil {
			c.observer.LogError("engine", "persist_statistics", c.cfg.Statistics.Path, err)
		}
	}
	if c.cfg.Cache.Persist && c.cache != nil {
		if err := c.cache.Persist(); err != nil && c.observer != nil {
			c.observer.LogError("engine", "persist_cache", c.cfg.Cache.Path, err)
		}
	}

	annotatedPhrases := 0
	for _, sources := range results {
		if len(sources) > 0 {
			annotatedPhrases++
		}
	}

	if finishTiming != nil {
		finishTiming(true, map[string]interface{}{
			"phrase_count":      len(phrases),
			"annotated_phrases": annotatedPhrases,
			"rows":              len(ds.Rows),
		})
	}

	return &RunResult{
		Original:         original,
		Annotated:        ds,
		Results:          results,
		Validation:       validation,
		Phrases:          len(phrases),
		AnnotatedPhrases: annotatedPhrases,
		Duration:         time.Since(start),
	}, nil
}

// matchPhrases fans the phrase lookups out over the worker pool and folds
// the per-phrase results into one map. The pool context derives from the
// run context, so cancelling the run stops in-flight lookups.
func (c *Coordinator) matchPhrases(ctx context.Context, phrases []string) match.Map {
	results := make(match.Map, len(phrases))
	if len(phrases) == 0 {
		return results
	}

	pool := parallel.NewWorkerPool(ctx, c.cfg.Workers, c.matcher, c.observer)
	pool.Start()

	go func() {
		for i, phrase := range phrases {
			pool.Submit(&parallel.Job{
				JobID:  fmt.Sprintf("phrase-%d", i),
				Phrase: phrase,
			})
		}
		pool.Close()
		pool.Stop()
	}()

	for result := range pool.Results() {
		if result.Error != nil {
			if c.stats != nil {
				c.stats.ServiceError("matcher", result.Phrase, result.Error.Error())
			}
			if c.observer != nil {
				c.observer.LogError("engine", "match_phrase", result.Phrase, result.Error)
			}
			continue
		}
		results.Merge(result.Phrase, result.Matches)
	}
	return results
}
