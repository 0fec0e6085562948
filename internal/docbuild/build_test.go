// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package docbuild

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/indicator-engine/internal/citation"
	"github.com/pdiddy/indicator-engine/internal/source"
	"github.com/pdiddy/indicator-engine/pkg/types"
)

func testBuilder() *Builder {
	return NewBuilder(types.KnowledgeVersion{
		Schema:     types.SchemaVersion,
		IngestedAt: time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC),
	})
}

func socRow() source.IndicatorRow {
	return source.IndicatorRow{
		ID:       1,
		Name:     "Soil organic carbon",
		Category: "Soil",
		Class:    "Chemical",
		Unit:     "g/kg",
		MethodFlags: map[string]bool{
			"field_measurement": true,
			"remote_sensing":    false,
		},
		Coverage: map[string]types.CoverageFlag{
			"Soil health":  types.CoverageFull,
			"Biodiversity": types.CoveragePartial,
		},
	}
}

func TestDeterministicIDs(t *testing.T) {
	assert.Equal(t, "indicator:12", IndicatorID(12))
	assert.Equal(t, "methods_for_indicator:12", MethodGroupID(12))
	assert.Equal(t, "usecase:valley-farm:overview", UseCaseOverviewID("valley-farm"))
	assert.Equal(t, "usecase:valley-farm:outcome:O1", UseCaseOutcomeID("valley-farm", "O1"))
}

func TestIndicatorRenderings(t *testing.T) {
	doc := testBuilder().Indicator(socRow())

	assert.Contains(t, doc.EmbeddingText, "Indicator: Soil organic carbon")
	assert.Contains(t, doc.EmbeddingText, "Category: Soil / Chemical")
	assert.Contains(t, doc.EmbeddingText, "Unit: g/kg")
	assert.Contains(t, doc.EmbeddingText, "Measurable by: field measurement")
	assert.NotContains(t, doc.EmbeddingText, "remote sensing")
	assert.Contains(t, doc.EmbeddingText, "Biodiversity (partial)")
	assert.Contains(t, doc.EmbeddingText, "Soil health (full)")

	assert.Contains(t, doc.DisplayText, "[indicator:1]")
}

func TestMethodGroupAggregates(t *testing.T) {
	withDOI := citation.Normalize("Nelson & Sommers 1996", "10.2136/sssabookser5.3.c34")
	withoutDOI := citation.Normalize("Heiri et al. 2001, J. Paleolimnology", "")

	rows := []source.MethodRow{
		{IndicatorID: 1, Technique: "Dry combustion", Accuracy: "high", Cost: "high",
			Citations: []types.Citation{withDOI}},
		{IndicatorID: 1, Technique: "Loss on ignition", Accuracy: "medium", Cost: "low",
			Citations: []types.Citation{withoutDOI}},
	}

	doc := testBuilder().MethodGroup(socRow(), rows)

	assert.Equal(t, 2, doc.MethodCount)
	assert.Equal(t, 2, doc.CitationCount)
	assert.Equal(t, 1, doc.DOICount)
	assert.True(t, doc.HasHighAccuracy)
	assert.True(t, doc.HasLowCost)
	assert.False(t, doc.HasOACitations)
}

func TestMethodGroupDOIsDeduplicated(t *testing.T) {
	same := citation.Normalize("Nelson 1996", "10.2136/abc")
	rows := []source.MethodRow{
		{IndicatorID: 1, Technique: "A", Citations: []types.Citation{same}},
		{IndicatorID: 1, Technique: "B", Citations: []types.Citation{same}},
	}

	doc := testBuilder().MethodGroup(socRow(), rows)
	assert.Equal(t, 2, doc.CitationCount)
	assert.Equal(t, 1, doc.DOICount)
}

func TestZeroMethodIndicatorStillProducesGroup(t *testing.T) {
	doc := testBuilder().MethodGroup(socRow(), nil)

	require.NotNil(t, doc.Methods)
	assert.Empty(t, doc.Methods)
	assert.Zero(t, doc.MethodCount)
	assert.Contains(t, doc.EmbeddingText, "No documented methods")

	env := testBuilder().MethodGroupEnvelope(doc)
	assert.Equal(t, "methods_for_indicator:1", env.ID)
	assert.Equal(t, 0, env.Metadata["method_count"])
}

func TestEmbeddingTextExcludesIdentifiers(t *testing.T) {
	c := citation.Normalize("Nelson & Sommers 1996. Total carbon.", "10.2136/sssabookser5.3.c34")
	c.OpenAccess = &types.OpenAccessStatus{IsOA: true, License: "cc-by"}

	rows := []source.MethodRow{
		{IndicatorID: 1, Technique: "Dry combustion", Citations: []types.Citation{c}},
	}
	doc := testBuilder().MethodGroup(socRow(), rows)

	// Semantic rendering: citation text only, no DOI, URL, or badge.
	assert.Contains(t, doc.EmbeddingText, "Nelson & Sommers 1996. Total carbon.")
	assert.NotContains(t, doc.EmbeddingText, "10.2136")
	assert.NotContains(t, doc.EmbeddingText, "doi.org")
	assert.NotContains(t, doc.EmbeddingText, "[OA")

	// Display rendering carries the resolver URL and the OA badge.
	assert.Contains(t, doc.DisplayText, "https://doi.org/10.2136/sssabookser5.3.c34")
	assert.Contains(t, doc.DisplayText, "[OA: cc-by]")
}

func TestUseCaseDocuments(t *testing.T) {
	uc := &source.UseCaseSource{
		Slug:      "valley-farm",
		Name:      "valley-farm",
		Narrative: "The project restores hedgerows on lowland dairy farms.",
		Outcomes: []source.OutcomeRow{
			{OutcomeID: "O1", Text: "Improved soil health", IndicatorNames: []string{"Soil organic carbon", "Mystery metric"}},
		},
	}

	b := testBuilder()
	overview := b.UseCaseOverview(uc)
	assert.Equal(t, 1, overview.OutcomeCount)
	assert.Contains(t, overview.EmbeddingText, "restores hedgerows")

	outcome := b.UseCaseOutcome(uc.Slug, uc.Outcomes[0], []int{1}, []string{"Mystery metric"})
	assert.Equal(t, []int{1}, outcome.IndicatorIDs)
	assert.Equal(t, []string{"Mystery metric"}, outcome.UnresolvedNames)
	assert.Contains(t, outcome.DisplayText, "Unresolved: Mystery metric")

	env := b.OutcomeEnvelope(outcome)
	assert.Equal(t, "usecase:valley-farm:outcome:O1", env.ID)
	assert.Equal(t, types.CollectionUseCases, env.Collection)
	assert.Equal(t, 1, env.Metadata["indicator_count"])
	assert.Equal(t, 1, env.Metadata["unresolved_count"])
}

func TestEnvelopeMetadata(t *testing.T) {
	b := testBuilder()
	doc := b.Indicator(socRow())
	env := b.IndicatorEnvelope(doc)

	assert.Equal(t, "indicator:1", env.ID)
	assert.Equal(t, types.CollectionIndicators, env.Collection)
	assert.Equal(t, "indicator", env.Metadata["type"])
	assert.Equal(t, types.SchemaVersion, env.Metadata["schema"])
	assert.Equal(t, "2026-01-15T12:00:00Z", env.Metadata["ingested_at"])
	assert.Equal(t, true, env.Metadata["can_field_measurement"])
	assert.Equal(t, false, env.Metadata["can_remote_sensing"])
	assert.Equal(t, 1, env.Metadata["coverage_full"])
	assert.Equal(t, 1, env.Metadata["coverage_partial"])
}
