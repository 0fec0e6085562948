// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package docbuild assembles canonical per-entity documents from normalized
// source rows: a semantic rendering for embedding, a display rendering for
// user-facing output, and a metadata map for query-time filtering. Document
// ids are deterministic so re-ingestion replaces rather than duplicates.
package docbuild

import (
	"fmt"

	"github.com/pdiddy/indicator-engine/internal/source"
	"github.com/pdiddy/indicator-engine/pkg/types"
)

// Deterministic id scheme. Stable across re-ingestion runs.
func IndicatorID(id int) string          { return fmt.Sprintf("indicator:%d", id) }
func MethodGroupID(id int) string        { return fmt.Sprintf("methods_for_indicator:%d", id) }
func UseCaseOverviewID(slug string) string { return fmt.Sprintf("usecase:%s:overview", slug) }
func UseCaseOutcomeID(slug, outcomeID string) string {
	return fmt.Sprintf("usecase:%s:outcome:%s", slug, outcomeID)
}

// Document is the storage envelope handed to the vector store gateway: one
// deterministic id, the two text renderings, and flat filterable metadata.
type Document struct {
	ID            string
	Collection    string
	EmbeddingText string
	DisplayText   string
	Metadata      map[string]any
}

// Builder stamps every built document with one KnowledgeVersion, so a whole
// ingestion run shares a schema version and timestamp.
type Builder struct {
	version types.KnowledgeVersion
}

// NewBuilder creates a Builder for one ingestion run.
func NewBuilder(version types.KnowledgeVersion) *Builder {
	return &Builder{version: version}
}

// Indicator builds the canonical document for one indicator row.
func (b *Builder) Indicator(row source.IndicatorRow) types.IndicatorDocument {
	doc := types.IndicatorDocument{
		ID:          row.ID,
		Name:        row.Name,
		Category:    row.Category,
		Class:       row.Class,
		Unit:        row.Unit,
		MethodFlags: row.MethodFlags,
		Coverage:    row.Coverage,
		Version:     b.version,
	}
	doc.EmbeddingText = renderIndicatorEmbedding(doc)
	doc.DisplayText = renderIndicatorDisplay(doc)
	return doc
}

// MethodGroup aggregates all method rows for one indicator. An indicator
// with zero methods still yields a group document with an empty method list.
func (b *Builder) MethodGroup(ind source.IndicatorRow, rows []source.MethodRow) types.MethodGroupDocument {
	doc := types.MethodGroupDocument{
		IndicatorID:   ind.ID,
		IndicatorName: ind.Name,
		Methods:       []types.MethodEntry{},
		Version:       b.version,
	}

	seenDOIs := make(map[string]bool)
	for _, r := range rows {
		entry := types.MethodEntry{
			Technique: r.Technique,
			Notes:     r.Notes,
			Accuracy:  r.Accuracy,
			Ease:      r.Ease,
			Cost:      r.Cost,
			Citations: r.Citations,
		}
		doc.Methods = append(doc.Methods, entry)

		doc.CitationCount += len(r.Citations)
		for _, c := range r.Citations {
			if c.HasDOI() && !seenDOIs[c.DOI] {
				seenDOIs[c.DOI] = true
			}
			if c.IsOpenAccess() {
				doc.HasOACitations = true
			}
		}
		if r.Accuracy == "high" {
			doc.HasHighAccuracy = true
		}
		if r.Cost == "low" {
			doc.HasLowCost = true
		}
	}

	doc.MethodCount = len(doc.Methods)
	doc.DOICount = len(seenDOIs)
	doc.EmbeddingText = renderMethodGroupEmbedding(doc)
	doc.DisplayText = renderMethodGroupDisplay(doc)
	return doc
}

// UseCaseOverview builds the project-level narrative document.
func (b *Builder) UseCaseOverview(uc *source.UseCaseSource) types.UseCaseOverviewDocument {
	doc := types.UseCaseOverviewDocument{
		Slug:         uc.Slug,
		Name:         uc.Name,
		Narrative:    uc.Narrative,
		OutcomeCount: len(uc.Outcomes),
		Version:      b.version,
	}
	doc.EmbeddingText = renderOverviewEmbedding(doc)
	doc.DisplayText = renderOverviewDisplay(doc)
	return doc
}

// UseCaseOutcome builds one outcome document with its resolved indicator ids
// and any names that failed resolution.
func (b *Builder) UseCaseOutcome(slug string, outcome source.OutcomeRow, indicatorIDs []int, unresolved []string) types.UseCaseOutcomeDocument {
	doc := types.UseCaseOutcomeDocument{
		Slug:            slug,
		OutcomeID:       outcome.OutcomeID,
		Text:            outcome.Text,
		IndicatorIDs:    indicatorIDs,
		UnresolvedNames: unresolved,
		Version:         b.version,
	}
	doc.EmbeddingText = renderOutcomeEmbedding(doc)
	doc.DisplayText = renderOutcomeDisplay(doc)
	return doc
}

// IndicatorEnvelope wraps an IndicatorDocument for storage.
func (b *Builder) IndicatorEnvelope(doc types.IndicatorDocument) Document {
	meta := b.baseMetadata("indicator")
	meta["indicator_id"] = doc.ID
	meta["name"] = doc.Name
	meta["category"] = doc.Category
	meta["class"] = doc.Class
	meta["unit"] = doc.Unit
	for key, on := range doc.MethodFlags {
		meta["can_"+key] = on
	}
	full, partial := 0, 0
	for _, f := range doc.Coverage {
		switch f {
		case types.CoverageFull:
			full++
		case types.CoveragePartial:
			partial++
		}
	}
	meta["coverage_full"] = full
	meta["coverage_partial"] = partial

	return Document{
		ID:            IndicatorID(doc.ID),
		Collection:    types.CollectionIndicators,
		EmbeddingText: doc.EmbeddingText,
		DisplayText:   doc.DisplayText,
		Metadata:      meta,
	}
}

// MethodGroupEnvelope wraps a MethodGroupDocument for storage.
func (b *Builder) MethodGroupEnvelope(doc types.MethodGroupDocument) Document {
	meta := b.baseMetadata("method_group")
	meta["indicator_id"] = doc.IndicatorID
	meta["indicator_name"] = doc.IndicatorName
	meta["method_count"] = doc.MethodCount
	meta["citation_count"] = doc.CitationCount
	meta["doi_count"] = doc.DOICount
	meta["has_high_accuracy"] = doc.HasHighAccuracy
	meta["has_low_cost"] = doc.HasLowCost
	meta["has_oa_citations"] = doc.HasOACitations

	return Document{
		ID:            MethodGroupID(doc.IndicatorID),
		Collection:    types.CollectionMethods,
		EmbeddingText: doc.EmbeddingText,
		DisplayText:   doc.DisplayText,
		Metadata:      meta,
	}
}

// OverviewEnvelope wraps a UseCaseOverviewDocument for storage.
func (b *Builder) OverviewEnvelope(doc types.UseCaseOverviewDocument) Document {
	meta := b.baseMetadata("usecase_overview")
	meta["slug"] = doc.Slug
	meta["name"] = doc.Name
	meta["outcome_count"] = doc.OutcomeCount

	return Document{
		ID:            UseCaseOverviewID(doc.Slug),
		Collection:    types.CollectionUseCases,
		EmbeddingText: doc.EmbeddingText,
		DisplayText:   doc.DisplayText,
		Metadata:      meta,
	}
}

// OutcomeEnvelope wraps a UseCaseOutcomeDocument for storage.
func (b *Builder) OutcomeEnvelope(doc types.UseCaseOutcomeDocument) Document {
	meta := b.baseMetadata("usecase_outcome")
	meta["slug"] = doc.Slug
	meta["outcome_id"] = doc.OutcomeID
	meta["indicator_count"] = len(doc.IndicatorIDs)
	meta["unresolved_count"] = len(doc.UnresolvedNames)

	return Document{
		ID:            UseCaseOutcomeID(doc.Slug, doc.OutcomeID),
		Collection:    types.CollectionUseCases,
		EmbeddingText: doc.EmbeddingText,
		DisplayText:   doc.DisplayText,
		Metadata:      meta,
	}
}

func (b *Builder) baseMetadata(docType string) map[string]any {
	return map[string]any{
		"type":        docType,
		"schema":      b.version.Schema,
		"ingested_at": b.version.IngestedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}
