// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package resolve maps free-text indicator names to canonical indicator ids.
// Resolution cascades through three tiers: exact match, normalized match
// (lowercased, whitespace collapsed), then fuzzy similarity. Names that no
// tier accepts are reported as unresolved, never guessed.
package resolve

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/pdiddy/indicator-engine/pkg/types"
)

// DefaultFuzzyThreshold is the minimum similarity ratio the fuzzy tier
// accepts.
const DefaultFuzzyThreshold = 0.85

// Tier records which cascade stage produced a match.
type Tier string

const (
	TierExact      Tier = "exact"
	TierNormalized Tier = "normalized"
	TierFuzzy      Tier = "fuzzy"
)

// Match is one successful resolution.
type Match struct {
	Name  string // canonical indicator name
	ID    int
	Tier  Tier
	Ratio float64 // similarity ratio, 1.0 for the non-fuzzy tiers
}

type entry struct {
	name string
	norm string
	id   int
}

// Resolver holds the canonical name index. Entries keep their insertion
// order; fuzzy ties at the same ratio resolve to the earliest entry.
type Resolver struct {
	threshold float64
	entries   []entry
	exact     map[string]int // canonical name -> entries index
	norm      map[string]int // normalized name -> first entries index
}

// NewResolver builds an empty resolver with the configured threshold.
func NewResolver(cfg types.ResolverConfig) *Resolver {
	threshold := cfg.FuzzyThreshold
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultFuzzyThreshold
	}
	return &Resolver{
		threshold: threshold,
		exact:     make(map[string]int),
		norm:      make(map[string]int),
	}
}

// Add registers a canonical indicator name. The first registration of a
// name wins; duplicates are ignored.
func (r *Resolver) Add(name string, id int) {
	if name == "" {
		return
	}
	if _, ok := r.exact[name]; ok {
		return
	}
	idx := len(r.entries)
	r.entries = append(r.entries, entry{name: name, norm: normalize(name), id: id})
	r.exact[name] = idx
	if _, ok := r.norm[r.entries[idx].norm]; !ok {
		r.norm[r.entries[idx].norm] = idx
	}
}

// Len returns the number of registered canonical names.
func (r *Resolver) Len() int { return len(r.entries) }

// Resolve runs the cascade for one name.
func (r *Resolver) Resolve(name string) (Match, bool) {
	if idx, ok := r.exact[name]; ok {
		e := r.entries[idx]
		return Match{Name: e.name, ID: e.id, Tier: TierExact, Ratio: 1}, true
	}

	target := normalize(name)
	if target == "" {
		return Match{}, false
	}
	if idx, ok := r.norm[target]; ok {
		e := r.entries[idx]
		return Match{Name: e.name, ID: e.id, Tier: TierNormalized, Ratio: 1}, true
	}

	best := -1
	bestRatio := 0.0
	targetChars := chars(target)
	for i, e := range r.entries {
		ratio := difflib.NewMatcher(targetChars, chars(e.norm)).Ratio()
		// Strict greater-than keeps the first entry on a tie.
		if ratio > bestRatio {
			best, bestRatio = i, ratio
		}
	}
	if best < 0 || bestRatio < r.threshold {
		return Match{}, false
	}
	e := r.entries[best]
	return Match{Name: e.name, ID: e.id, Tier: TierFuzzy, Ratio: bestRatio}, true
}

// ResolveAll resolves a batch of names, partitioning them into resolved
// indicator ids (deduplicated, input order) and unresolved names.
func (r *Resolver) ResolveAll(names []string) (ids []int, unresolved []string) {
	seen := make(map[int]bool)
	for _, name := range names {
		m, ok := r.Resolve(name)
		if !ok {
			unresolved = append(unresolved, name)
			continue
		}
		if !seen[m.ID] {
			seen[m.ID] = true
			ids = append(ids, m.ID)
		}
	}
	return ids, unresolved
}

// normalize lowercases and collapses all whitespace runs to single spaces.
func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// chars splits a string into per-rune elements for character-level
// sequence matching.
func chars(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
