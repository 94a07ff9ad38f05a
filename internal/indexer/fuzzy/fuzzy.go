// Package fuzzy maps misspelled query tokens onto the closest term of the
// index vocabulary by Levenshtein distance.
//
// Every lookup that misses the vocabulary compares the token against all
// terms, which is O(|V| * len^2). That is fine for menus with tens of
// documents; larger corpora need an n-gram or bounded-prefix index instead.
package fuzzy

import (
	"sort"

	"github.com/agnivade/levenshtein"
)

// DefaultMaxDistance is the largest edit distance still treated as a typo.
const DefaultMaxDistance = 1

// Matcher resolves tokens against a fixed vocabulary.
type Matcher struct {
	vocabulary  []string
	known       map[string]struct{}
	maxDistance int
}

// NewMatcher builds a matcher. The vocabulary is copied and sorted so that
// ties resolve to the lexicographically first term.
func NewMatcher(vocabulary []string, maxDistance int) *Matcher {
	if maxDistance < 0 {
		maxDistance = DefaultMaxDistance
	}
	sorted := make([]string, len(vocabulary))
	copy(sorted, vocabulary)
	sort.Strings(sorted)
	known := make(map[string]struct{}, len(sorted))
	for _, term := range sorted {
		known[term] = struct{}{}
	}
	return &Matcher{
		vocabulary:  sorted,
		known:       known,
		maxDistance: maxDistance,
	}
}

// Match returns the vocabulary term token maps to and its edit distance.
// Tokens with no term within the maximum distance come back unchanged,
// with the best distance found (or -1 for an empty vocabulary).
func (m *Matcher) Match(token string) (string, int) {
	if _, ok := m.known[token]; ok {
		return token, 0
	}
	if len(m.vocabulary) == 0 {
		return token, -1
	}
	best := ""
	bestDistance := -1
	for _, term := range m.vocabulary {
		d := levenshtein.ComputeDistance(token, term)
		if bestDistance < 0 || d < bestDistance {
			best = term
			bestDistance = d
		}
	}
	if bestDistance <= m.maxDistance {
		return best, bestDistance
	}
	return token, bestDistance
}

// Distance exposes the edit distance used by the matcher.
func Distance(a, b string) int {
	return levenshtein.ComputeDistance(a, b)
}
