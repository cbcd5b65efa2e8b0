// Copyright Senckenberg - Leibniz Institution for Biodiversity and Earth System Research.
// SPDX-License-Identifier: Apache-2.0

// Package stats collects cross-cutting counters for a single annotation run:
// identified phrases and their outcomes, cache hit/miss logs, recognition
// service errors, and validation findings. A fresh collector is created per
// run and written to a JSON report at the end.
package stats

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/Senckenberg-DCBiodivIT/BITS/internal/match"
)

// PhraseRecord tracks one identified phrase through the run.
type PhraseRecord struct {
	Normalized  string                  `json:"normalized"`
	Annotation  map[string]match.Result `json:"annotation,omitempty"`
	Translation string                  `json:"translation,omitempty"`
}

// AccessLog records the last time a cache key was hit or missed.
type AccessLog struct {
	LastAccess int64 `json:"last_access"`
	Count      int   `json:"count"`
}

// ServiceError captures a recognition-source failure: the cell that was being
// processed and the raw output that could not be handled.
type ServiceError struct {
	Source string `json:"source"`
	Cell   string `json:"cell"`
	Raw    string `json:"raw_output"`
}

// Report is the JSON document persisted at the end of a run.
type Report struct {
	Phrases struct {
		Identified     map[string]PhraseRecord `json:"identified"`
		MissedDeclined []string                `json:"missed_declined_annotations"`
	} `json:"phrases"`
	Cache struct {
		Hit  map[string]AccessLog `json:"hit"`
		Miss map[string]AccessLog `json:"miss"`
	} `json:"cache"`
	Service struct {
		Errors []ServiceError `json:"errors"`
	} `json:"service"`
	Validation map[string]string `json:"validation"`
}

// Collector accumulates run statistics. All methods are safe for concurrent
// use; recognition sources and matcher workers feed it from many goroutines.
type Collector struct {
	mu     sync.Mutex
	report Report
	now    func() time.Time
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	c := &Collector{now: time.Now}
	c.report.Phrases.Identified = make(map[string]PhraseRecord)
	c.report.Phrases.MissedDeclined = []string{}
	c.report.Cache.Hit = make(map[string]AccessLog)
	c.report.Cache.Miss = make(map[string]AccessLog)
	c.report.Service.Errors = []ServiceError{}
	c.report.Validation = make(map[string]string)
	return c
}

// SetPhrase registers an identified phrase with its normalized form.
func (c *Collector) SetPhrase(phrase, normalized string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	record := c.report.Phrases.Identified[phrase]
	record.Normalized = normalized
	c.report.Phrases.Identified[phrase] = record
}

// SetTranslation records the translated form used for similarity scoring.
func (c *Collector) SetTranslation(phrase, translation string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	record := c.report.Phrases.Identified[phrase]
	record.Translation = translation
	c.report.Phrases.Identified[phrase] = record
}

// SetAnnotation records the accepted per-source results for a phrase.
func (c *Collector) SetAnnotation(phrase string, results map[string]match.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	record := c.report.Phrases.Identified[phrase]
	record.Annotation = results
	c.report.Phrases.Identified[phrase] = record
}

// SetMissed records a phrase that was searched but not annotated. A phrase
// is listed once no matter how often it misses.
func (c *Collector) SetMissed(phrase string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, existing := range c.report.Phrases.MissedDeclined {
		if existing == phrase {
			return
		}
	}
	c.report.Phrases.MissedDeclined = append(c.report.Phrases.MissedDeclined, phrase)
}

// CacheHit logs a cache hit for the given key.
func (c *Collector) CacheHit(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	log := c.report.Cache.Hit[key]
	log.LastAccess = c.now().Unix()
	log.Count++
	c.report.Cache.Hit[key] = log
}

// CacheMiss logs a cache miss for the given key.
func (c *Collector) CacheMiss(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	log := c.report.Cache.Miss[key]
	log.LastAccess = c.now().Unix()
	log.Count++
	c.report.Cache.Miss[key] = log
}

// ServiceError records a recognition or search service failure for a cell.
func (c *Collector) ServiceError(source, cell, raw string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.report.Service.Errors = append(c.report.Service.Errors, ServiceError{
		Source: source,
		Cell:   cell,
		Raw:    raw,
	})
}

// ValidationFinding records a reversibility validation finding. Findings are
// data-quality results, never process failures.
func (c *Collector) ValidationFinding(key, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.report.Validation[key] = message
}

// Counts returns summary totals: identified, annotated, missed phrases,
// cache hits and misses, service errors, and validation findings.
func (c *Collector) Counts() (identified, annotated, missed, hits, misses, errors, findings int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	identified = len(c.report.Phrases.Identified)
	for _, record := range c.report.Phrases.Identified {
		if len(record.Annotation) > 0 {
			annotated++
		}
	}
	missed = len(c.report.Phrases.MissedDeclined)
	hits = len(c.report.Cache.Hit)
	misses = len(c.report.Cache.Miss)
	errors = len(c.report.Service.Errors)
	findings = len(c.report.Validation)
	return
}

// Snapshot returns a deep copy of the current report.
func (c *Collector) Snapshot() Report {
	c.mu.Lock()
	defer c.mu.Unlock()

	snapshot := Report{Validation: make(map[string]string, len(c.report.Validation))}
	snapshot.Phrases.Identified = make(map[string]PhraseRecord, len(c.report.Phrases.Identified))
	for phrase, record := range c.report.Phrases.Identified {
		copied := record
		if record.Annotation != nil {
			copied.Annotation = make(map[string]match.Result, len(record.Annotation))
			for source, result := range record.Annotation {
				copied.Annotation[source] = result
			}
		}
		snapshot.Phrases.Identified[phrase] = copied
	}
	snapshot.Phrases.MissedDeclined = append([]string{}, c.report.Phrases.MissedDeclined...)
	snapshot.Cache.Hit = make(map[string]AccessLog, len(c.report.Cache.Hit))
	for key, log := range c.report.Cache.Hit {
		snapshot.Cache.Hit[key] = log
	}
	snapshot.Cache.Miss = make(map[string]AccessLog, len(c.report.Cache.Miss))
	for key, log := range c.report.Cache.Miss {
		snapshot.Cache.Miss[key] = log
	}
	snapshot.Service.Errors = append([]ServiceError{}, c.report.Service.Errors...)
	for key, message := range c.report.Validation {
		snapshot.Validation[key] = message
	}
	return snapshot
}

// WriteReport persists the statistics document to path.
func (c *Collector) WriteReport(path string) error {
	snapshot := c.Snapshot()

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding statistics report: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing statistics report %s: %w", path, err)
	}
	return nil
}
