// Copyright Senckenberg - Leibniz Institution for Biodiversity and Earth System Research.
// SPDX-License-Identifier: Apache-2.0

package terminology

import (
	"context"
	"fmt"
	"strings"

	"github.com/Senckenberg-DCBiodivIT/BITS/internal/cache"
	"github.com/Senckenberg-DCBiodivIT/BITS/internal/match"
	"github.com/Senckenberg-DCBiodivIT/BITS/internal/observability"
	"github.com/Senckenberg-DCBiodivIT/BITS/internal/similarity"
	"github.com/Senckenberg-DCBiodivIT/BITS/internal/stats"
)

// allSourcesKey is the cache source name for searches spanning every
// terminology.
const allSourcesKey = "*"

// Translator supplies the fallback translation used as a second similarity
// candidate against terminology labels.
type Translator interface {
	Translate(ctx context.Context, text string) (string, error)
}

// MatcherOptions selects the search mode and acceptance threshold.
type MatcherOptions struct {
	Kind match.Kind
	// Terminologies is consulted for KindTerminology.
	Terminologies []string
	// Collections is consulted for KindCollection.
	Collections []string
	// Threshold is the inclusive similarity acceptance bound.
	Threshold float64
}

// Matcher resolves phrases to terminology entries: consult the cache, query
// the service on a miss, score every hit and keep the best match per
// terminology at or above the threshold.
type Matcher struct {
	opts       MatcherOptions
	client     *Client
	cache      *cache.MatchCache
	translator Translator
	stats      *stats.Collector
	observer   *observability.StandardObserver
}

// NewMatcher wires a matcher. translator may be nil to disable the
// translation fallback.
func NewMatcher(opts MatcherOptions, client *Client, matchCache *cache.MatchCache, translator Translator, collector *stats.Collector, observer *observability.StandardObserver) (*Matcher, error) {
	if !opts.Kind.Valid() {
		return nil, fmt.Errorf("invalid match kind %q", opts.Kind)
	}
	if opts.Kind == match.KindTerminology && len(opts.Terminologies) == 0 {
		return nil, fmt.Errorf("match kind %q requires at least one terminology", opts.Kind)
	}
	if opts.Kind == match.KindCollection && len(opts.Collections) == 0 {
		return nil, fmt.Errorf("match kind %q requires at least one collection", opts.Kind)
	}
	return &Matcher{
		opts:       opts,
		client:     client,
		cache:      matchCache,
		translator: translator,
		stats:      collector,
		observer:   observer,
	}, nil
}

// MatchPhrase resolves one phrase. Service failures for individual queries
// are recorded as statistics and skipped; the phrase keeps whatever results
// the remaining queries produced.
func (m *Matcher) MatchPhrase(ctx context.Context, phrase string) (map[string]match.Result, error) {
	normalized := strings.ToLower(strings.TrimSpace(phrase))
	if m.stats != nil {
		m.stats.SetPhrase(phrase, normalized)
	}

	translated := m.translatePhrase(ctx, phrase, normalized)

	results := make(map[string]match.Result)
	switch m.opts.Kind {
	case match.KindTerminology:
		for _, name := range m.opts.Terminologies {
			m.matchSource(ctx, phrase, normalized, translated, name, results, func() ([]Doc, error) {
				return m.client.SearchOntology(ctx, normalized, name)
			}, name)
		}
	case match.KindCollection:
		for _, name := range m.opts.Collections {
			m.matchSource(ctx, phrase, normalized, translated, name, results, func() ([]Doc, error) {
				return m.client.SearchCollection(ctx, normalized, name)
			}, "")
		}
	case match.KindAll:
		m.matchSource(ctx, phrase, normalized, translated, allSourcesKey, results, func() ([]Doc, error) {
			return m.client.SearchAll(ctx, normalized)
		}, "")
	}

	if m.stats != nil {
		if len(results) == 0 {
			m.stats.SetMissed(phrase)
		} else {
			m.stats.SetAnnotation(phrase, results)
		}
	}
	return results, nil
}

// matchSource handles one cache-or-query unit. fixedName pins every hit to a
// single terminology name; when empty, hits are grouped by the ontology each
// doc belongs to.
func (m *Matcher) matchSource(ctx context.Context, phrase, normalized, translated, source string, results map[string]match.Result, query func() ([]Doc, error), fixedName string) {
	cacheKey := string(m.opts.Kind) + "/" + source + "/" + normalized

	if m.cache != nil {
		if entry, ok := m.cache.Get(m.opts.Kind, source, normalized); ok {
			if m.stats != nil {
				m.stats.CacheHit(cacheKey)
			}
			mergeBest(results, entry.Results)
			return
		}
	}
	if m.stats != nil {
		m.stats.CacheMiss(cacheKey)
	}

	docs, err := query()
	if err != nil {
		if m.stats != nil {
			m.stats.ServiceError("terminology", phrase, err.Error())
		}
		if m.observer != nil {
			m.observer.LogError("terminology", "search", normalized, err)
		}
		return
	}

	fresh := m.scoreDocs(docs, normalized, translated, fixedName)
	if m.cache != nil {
		// An empty result set is cached too: the query happened and need
		// not be repeated until the entry expires.
		m.cache.Put(m.opts.Kind, source, normalized, fresh)
	}
	mergeBest(results, fresh)
}

// scoreDocs keeps the best hit per terminology name at or above the
// threshold. The threshold is inclusive.
func (m *Matcher) scoreDocs(docs []Doc, normalized, translated, fixedName string) map[string]match.Result {
	accepted := make(map[string]match.Result)
	for _, doc := range docs {
		if doc.Label == "" {
			continue
		}
		label := strings.ToLower(doc.Label)
		score := similarity.Ratio(normalized, label)
		if translated != "" {
			if translatedScore := similarity.Ratio(translated, label); translatedScore > score {
				score = translatedScore
			}
		}
		if score < m.opts.Threshold {
			continue
		}

		name := fixedName
		if name == "" {
			name = doc.OntologyName
		}
		if name == "" {
			continue
		}
		if existing, ok := accepted[name]; ok && existing.Similarity >= score {
			continue
		}
		accepted[name] = match.Result{
			ID:            doc.Identifier(),
			IRI:           doc.IRI,
			OriginalLabel: doc.Label,
			Similarity:    score,
		}
	}
	return accepted
}

func (m *Matcher) translatePhrase(ctx context.Context, phrase, normalized string) string {
	if m.translator == nil {
		return ""
	}
	translated, err := m.translator.Translate(ctx, normalized)
	if err != nil {
		if m.stats != nil {
			m.stats.ServiceError("translation", phrase, err.Error())
		}
		if m.observer != nil {
			m.observer.LogError("terminology", "translate", normalized, err)
		}
		return ""
	}
	translated = strings.ToLower(strings.TrimSpace(translated))
	if m.stats != nil && translated != "" {
		m.stats.SetTranslation(phrase, translated)
	}
	return translated
}

// mergeBest folds src into dst keeping the higher similarity per name.
func mergeBest(dst map[string]match.Result, src map[string]match.Result) {
	for name, result := range src {
		if existing, ok := dst[name]; ok && existing.Similarity >= result.Similarity {
			continue
		}
		dst[name] = result
	}
}
