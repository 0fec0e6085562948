// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Citation is a single bibliographic reference attached to a measurement
// method. It is created once per raw citation cell during ingestion and is
// immutable afterwards, except for the enrichment fields which are populated
// at most once per DOI per enrichment pass.
type Citation struct {
	// RawText is the unmodified source string from the workbook cell.
	RawText string `json:"raw_text" yaml:"raw_text"`

	// Text is the cleaned bibliographic text with DOI patterns and
	// bracketed "doi: ..." annotations stripped.
	Text string `json:"text" yaml:"text"`

	// DOI is the normalized lowercase DOI ("10.<registrant>/<suffix>"),
	// or empty when no valid DOI was found. It never carries surrounding
	// whitespace, a label prefix, or trailing punctuation.
	DOI string `json:"doi,omitempty" yaml:"doi,omitempty"`

	// URL is the canonical resolver URL derived from DOI, or empty.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`

	// Enrichment fields, populated from external metadata services.
	Title    string   `json:"title,omitempty" yaml:"title,omitempty"`
	Authors  []string `json:"authors,omitempty" yaml:"authors,omitempty"`
	Journal  string   `json:"journal,omitempty" yaml:"journal,omitempty"`
	Year     int      `json:"year,omitempty" yaml:"year,omitempty"`
	Abstract string   `json:"abstract,omitempty" yaml:"abstract,omitempty"`

	// OpenAccess holds the OA lookup result, nil when not enriched.
	OpenAccess *OpenAccessStatus `json:"open_access,omitempty" yaml:"open_access,omitempty"`
}

// HasDOI reports whether the citation carries a normalized DOI.
func (c Citation) HasDOI() bool { return c.DOI != "" }

// IsOpenAccess reports whether the cited work is known to be freely readable.
func (c Citation) IsOpenAccess() bool {
	return c.OpenAccess != nil && c.OpenAccess.IsOA
}

// OpenAccessStatus describes whether and how a cited work is freely readable.
type OpenAccessStatus struct {
	// IsOA reports whether any free-to-read copy is known.
	IsOA bool `json:"is_oa" yaml:"is_oa"`

	// Status is the OA route: gold, green, bronze, hybrid, or closed.
	Status string `json:"status,omitempty" yaml:"status,omitempty"`

	// License is the license of the best OA location (e.g. "cc-by").
	License string `json:"license,omitempty" yaml:"license,omitempty"`

	// BestURL is the URL of the best full-text location.
	BestURL string `json:"best_url,omitempty" yaml:"best_url,omitempty"`
}
