// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// SchemaVersion identifies the document schema written to the vector store.
// Bump on any change to document text composition or metadata keys so stale
// collections can be detected and re-ingested.
const SchemaVersion = "2.1"

// Collection names in the vector store.
const (
	CollectionIndicators = "indicators"
	CollectionMethods    = "methods"
	CollectionUseCases   = "usecases"
)

// KnowledgeVersion is attached to every stored document for staleness checks.
type KnowledgeVersion struct {
	// Schema is the document schema version (SchemaVersion at write time).
	Schema string `json:"schema" yaml:"schema"`

	// IngestedAt is the UTC timestamp of the ingestion run.
	IngestedAt time.Time `json:"ingested_at" yaml:"ingested_at"`
}

// CoverageFlag is a tri-state flag for principle/criteria coverage cells:
// full ("x"), partial ("(x)"), or none (blank).
type CoverageFlag string

const (
	CoverageNone    CoverageFlag = ""
	CoveragePartial CoverageFlag = "partial"
	CoverageFull    CoverageFlag = "full"
)

// Covers reports whether the flag indicates any coverage.
func (f CoverageFlag) Covers() bool { return f != CoverageNone }

// IndicatorDocument is the canonical per-indicator record. ID is unique and
// stable across re-ingestion runs.
type IndicatorDocument struct {
	// ID is the integer indicator id from the Indicators sheet.
	ID int `json:"id" yaml:"id"`

	// Name is the indicator display name.
	Name string `json:"name" yaml:"name"`

	// Category and Class group indicators thematically.
	Category string `json:"category" yaml:"category"`
	Class    string `json:"class" yaml:"class"`

	// Unit is the measurement unit, if any.
	Unit string `json:"unit" yaml:"unit"`

	// MethodFlags marks which measurement approaches apply
	// (e.g. "field_measurement", "remote_sensing", "survey").
	MethodFlags map[string]bool `json:"method_flags" yaml:"method_flags"`

	// Coverage maps principle/criteria labels to tri-state flags.
	Coverage map[string]CoverageFlag `json:"coverage" yaml:"coverage"`

	// EmbeddingText is the semantic rendering submitted for embedding.
	// DisplayText is the user-facing rendering with URLs and badges.
	EmbeddingText string `json:"embedding_text" yaml:"embedding_text"`
	DisplayText   string `json:"display_text" yaml:"display_text"`

	Version KnowledgeVersion `json:"version" yaml:"version"`
}

// MethodEntry is one measurement-method row for an indicator.
type MethodEntry struct {
	// Technique is the measurement technique name.
	Technique string `json:"technique" yaml:"technique"`

	// Notes carries free-text guidance from the Methods sheet.
	Notes string `json:"notes,omitempty" yaml:"notes,omitempty"`

	// Qualitative ratings: e.g. "high", "medium", "low". Blank when the
	// sheet left the cell empty.
	Accuracy string `json:"accuracy,omitempty" yaml:"accuracy,omitempty"`
	Ease     string `json:"ease,omitempty" yaml:"ease,omitempty"`
	Cost     string `json:"cost,omitempty" yaml:"cost,omitempty"`

	// Citations lists the bibliographic references backing this method.
	Citations []Citation `json:"citations,omitempty" yaml:"citations,omitempty"`
}

// MethodGroupDocument aggregates all measurement-method rows for one
// indicator. An indicator with zero methods still produces a group document
// with an empty Methods list.
type MethodGroupDocument struct {
	// IndicatorID links the group to its IndicatorDocument.
	IndicatorID int `json:"indicator_id" yaml:"indicator_id"`

	// IndicatorName duplicates the indicator name for display.
	IndicatorName string `json:"indicator_name" yaml:"indicator_name"`

	// Methods lists the method entries in sheet order.
	Methods []MethodEntry `json:"methods" yaml:"methods"`

	// Derived aggregates for metadata filtering.
	MethodCount     int  `json:"method_count" yaml:"method_count"`
	CitationCount   int  `json:"citation_count" yaml:"citation_count"`
	DOICount        int  `json:"doi_count" yaml:"doi_count"`
	HasHighAccuracy bool `json:"has_high_accuracy" yaml:"has_high_accuracy"`
	HasLowCost      bool `json:"has_low_cost" yaml:"has_low_cost"`
	HasOACitations  bool `json:"has_oa_citations" yaml:"has_oa_citations"`

	EmbeddingText string `json:"embedding_text" yaml:"embedding_text"`
	DisplayText   string `json:"display_text" yaml:"display_text"`

	Version KnowledgeVersion `json:"version" yaml:"version"`
}

// UseCaseOverviewDocument is the project-level narrative summary.
type UseCaseOverviewDocument struct {
	// Slug is the filesystem-safe project identifier.
	Slug string `json:"slug" yaml:"slug"`

	// Name is the project display name.
	Name string `json:"name" yaml:"name"`

	// Narrative is the summary text (first N characters of the source
	// document, per IngestConfig.NarrativeMaxChars).
	Narrative string `json:"narrative" yaml:"narrative"`

	// OutcomeCount is the number of outcome rows in the project workbook.
	OutcomeCount int `json:"outcome_count" yaml:"outcome_count"`

	EmbeddingText string `json:"embedding_text" yaml:"embedding_text"`
	DisplayText   string `json:"display_text" yaml:"display_text"`

	Version KnowledgeVersion `json:"version" yaml:"version"`
}

// UseCaseOutcomeDocument is one project outcome with its indicator mapping.
type UseCaseOutcomeDocument struct {
	Slug      string `json:"slug" yaml:"slug"`
	OutcomeID string `json:"outcome_id" yaml:"outcome_id"`

	// Text is the outcome statement from the project workbook.
	Text string `json:"text" yaml:"text"`

	// IndicatorIDs lists resolved indicator ids.
	IndicatorIDs []int `json:"indicator_ids" yaml:"indicator_ids"`

	// UnresolvedNames lists indicator names that failed resolution.
	// They are reported, never guessed.
	UnresolvedNames []string `json:"unresolved_names,omitempty" yaml:"unresolved_names,omitempty"`

	EmbeddingText string `json:"embedding_text" yaml:"embedding_text"`
	DisplayText   string `json:"display_text" yaml:"display_text"`

	Version KnowledgeVersion `json:"version" yaml:"version"`
}
