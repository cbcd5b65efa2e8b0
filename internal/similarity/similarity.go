// Copyright Senckenberg - Leibniz Institution for Biodiversity and Earth System Research.
// SPDX-License-Identifier: Apache-2.0

// Package similarity scores candidate terminology labels against search
// phrases. The metric is a normalized edit-distance ratio, deliberately not a
// semantic/embedding similarity: it keeps matching deterministic and fast.
package similarity

import (
	"strings"
	"unicode"
)

// Normalize prepares a string for comparison: lowercase, drop everything
// except letters, digits and spaces, and collapse whitespace runs.
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// Ratio returns the similarity of a and b in [0.0, 1.0] based on the
// Levenshtein distance over their normalized forms. Identical strings score
// 1.0; strings with nothing in common score 0.0.
func Ratio(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	if na == nb {
		return 1.0
	}
	maxLen := max(len([]rune(na)), len([]rune(nb)))
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(editDistance(na, nb))/float64(maxLen)
}

// editDistance calculates the Levenshtein distance between two strings
func editDistance(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	r1, r2 := []rune(s1), []rune(s2)

	// Two-row dynamic programming over rune slices
	prev := make([]int, len(r2)+1)
	curr := make([]int, len(r2)+1)

	for j := 0; j <= len(r2); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(r1); i++ {
		curr[0] = i
		for j := 1; j <= len(r2); j++ {
			cost := 0
			if r1[i-1] != r2[j-1] {
				cost = 1
			}

			curr[j] = min3(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[len(r2)]
}

func min3(a, b, c int) int {
	if a <= b && a <= c {
		return a
	}
	if b <= c {
		return b
	}
	return c
}
