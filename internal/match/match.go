// Copyright Senckenberg - Leibniz Institution for Biodiversity and Earth System Research.
// SPDX-License-Identifier: Apache-2.0

package match

// Kind identifies the scoping mode of a terminology query.
type Kind string

const (
	// KindTerminology searches an explicit list of terminologies.
	KindTerminology Kind = "terminology"
	// KindCollection searches named terminology collections.
	KindCollection Kind = "collection"
	// KindAll searches across all available terminologies.
	KindAll Kind = "all_terminologies"
)

// Valid reports whether k is one of the known match kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindTerminology, KindCollection, KindAll:
		return true
	}
	return false
}

// Result is one accepted terminology match for a phrase. ID carries the
// service identifier (taken from either the "id" or "short_form" response
// field, whichever is present).
type Result struct {
	ID            string  `json:"id"`
	IRI           string  `json:"iri"`
	OriginalLabel string  `json:"original_label"`
	Similarity    float64 `json:"similarity"`
}

// Map associates each searched phrase with its accepted results, keyed by
// terminology source name. A phrase mapping to an empty inner map was
// searched but yielded no acceptable result ("missed").
type Map map[string]map[string]Result

// Merge copies the results for phrase from src into m, keeping the
// higher-similarity result when both sides carry the same source.
func (m Map) Merge(phrase string, src map[string]Result) {
	if m[phrase] == nil {
		m[phrase] = make(map[string]Result, len(src))
	}
	for source, result := range src {
		if existing, ok := m[phrase][source]; !ok || result.Similarity > existing.Similarity {
			m[phrase][source] = result
		}
	}
}
