// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package citation parses free-text bibliographic references and DOI strings
// into structured, canonical form, and optionally enriches them from external
// metadata services.
package citation

import (
	"regexp"
	"strings"

	"github.com/pdiddy/indicator-engine/pkg/types"
)

// doiResolverBase is the canonical DOI resolver. Declared as a var so tests
// can substitute a different base.
var doiResolverBase = "https://doi.org/"

var (
	// doiRe matches a DOI anywhere in a string: "10." followed by a
	// registrant of at least four digits, a slash, and a suffix. The
	// suffix may contain parentheses and brackets, since some publishers
	// use them (e.g. 10.1016/0011-7471(64)90001-4), so only whitespace
	// and angle brackets terminate it.
	doiRe = regexp.MustCompile(`10\.\d{4,}/[^\s<>]+`)

	// doiLabelRe matches an optional case-insensitive DOI label prefix:
	// "doi:", "DOI ", "https://doi.org/", "http://dx.doi.org/".
	doiLabelRe = regexp.MustCompile(`(?i)^\s*(?:doi\s*:?\s*|https?://(?:dx\.)?doi\.org/)`)

	// doiAnnotationRe matches bracketed "doi: ..." annotations embedded
	// in free citation text, e.g. "(doi: 10.1234/abc)" or "[DOI:10.1/x]".
	doiAnnotationRe = regexp.MustCompile(`(?i)[(\[]\s*doi\s*:?\s*[^)\]]*[)\]]`)

	// doiInlineLabelRe matches an unbracketed "doi:" label so the label
	// itself is removed from cleaned citation text.
	doiInlineLabelRe = regexp.MustCompile(`(?i)\bdoi\s*:\s*`)

	// resolverURLRe matches bare resolver URLs left behind after the DOI
	// itself has been stripped from citation text.
	resolverURLRe = regexp.MustCompile(`(?i)https?://(?:dx\.)?doi\.org/?`)

	spaceRe = regexp.MustCompile(`\s+`)
)

// NormalizeDOI extracts and canonicalizes a DOI from raw. It strips an
// optional label prefix, searches for the DOI pattern, lowercases the match,
// and removes trailing punctuation. It returns "" when no valid DOI is
// present; a registrant prefix shorter than four digits is rejected rather
// than truncated. Malformed input never panics. The function is idempotent:
// NormalizeDOI(NormalizeDOI(x)) == NormalizeDOI(x).
func NormalizeDOI(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}

	s = doiLabelRe.ReplaceAllString(s, "")

	m := doiRe.FindString(s)
	if m == "" {
		return ""
	}

	m = strings.ToLower(m)
	for {
		trimmed := strings.TrimRight(m, ".,;:")
		trimmed = trimUnbalanced(trimmed, '(', ')')
		trimmed = trimUnbalanced(trimmed, '[', ']')
		if trimmed == m {
			break
		}
		m = trimmed
	}
	return m
}

// trimUnbalanced strips a trailing closer when the match has more closers
// than openers, so a DOI captured from inside "(doi: 10.1234/abc)" loses the
// stray ")" while suffixes with balanced parentheses, like
// 10.1016/0011-7471(64)90001-4, are left intact.
func trimUnbalanced(s string, open, close byte) string {
	for strings.HasSuffix(s, string(close)) &&
		strings.Count(s, string(open)) < strings.Count(s, string(close)) {
		s = s[:len(s)-1]
	}
	return s
}

// ResolverURL returns the canonical resolver URL for a normalized DOI, or
// "" for an empty DOI.
func ResolverURL(doi string) string {
	if doi == "" {
		return ""
	}
	return doiResolverBase + doi
}

// Normalize builds a Citation from a raw citation string and a raw DOI
// string. When the dedicated DOI field yields nothing, it searches for a DOI
// embedded inside the free-text citation. Any DOI substring and bracketed
// "doi: ..." annotations are removed from the free text to produce the
// cleaned Text. Malformed input degrades to an empty DOI, never an error.
func Normalize(rawText, rawDOI string) types.Citation {
	c := types.Citation{RawText: rawText}

	c.DOI = NormalizeDOI(rawDOI)
	if c.DOI == "" {
		c.DOI = NormalizeDOI(rawText)
	}
	c.URL = ResolverURL(c.DOI)
	c.Text = CleanText(rawText)

	return c
}

// CleanText strips DOI substrings, resolver URLs, and bracketed DOI
// annotations from a free-text citation and normalizes whitespace.
func CleanText(raw string) string {
	s := doiAnnotationRe.ReplaceAllString(raw, "")
	s = doiRe.ReplaceAllString(s, "")
	s = resolverURLRe.ReplaceAllString(s, "")
	s = doiInlineLabelRe.ReplaceAllString(s, "")
	s = spaceRe.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	s = strings.TrimRight(s, ",;")
	return strings.TrimSpace(s)
}
