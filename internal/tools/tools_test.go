// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/indicator-engine/internal/docbuild"
	"github.com/pdiddy/indicator-engine/internal/embed"
	"github.com/pdiddy/indicator-engine/internal/resolve"
	"github.com/pdiddy/indicator-engine/internal/vecstore"
	"github.com/pdiddy/indicator-engine/pkg/types"
)

// fixture wires a toolbox to a fake embedding server and a temp store.
type fixture struct {
	tb         *Toolbox
	store      *vecstore.Gateway
	embedCalls *atomic.Int64
}

// newFixture starts an embedding server that always answers {1, 0, 0, 0}.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var req struct {
			Input []string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		resp := struct {
			Embeddings [][]float32 `json:"embeddings"`
		}{}
		for range req.Input {
			resp.Embeddings = append(resp.Embeddings, []float32{1, 0, 0, 0})
		}
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)

	embedder := embed.NewClient(types.EmbeddingConfig{
		BaseURL:       srv.URL,
		Model:         "test-model",
		MinInterval:   time.Millisecond,
		MinDimensions: 4,
	}, nil)

	store := vecstore.NewGateway(types.StoreConfig{
		Path:           filepath.Join(t.TempDir(), "vectors.db"),
		RetryBaseDelay: time.Millisecond,
	}, nil)
	t.Cleanup(func() { store.Close() })

	resolver := resolve.NewResolver(types.ResolverConfig{})
	resolver.Add("Soil organic carbon", 1)
	resolver.Add("Earthworm abundance", 2)

	tb := NewToolbox(types.ToolsConfig{CallTimeout: 5 * time.Second}, embedder, store, resolver, nil)
	t.Cleanup(tb.Close)

	return &fixture{tb: tb, store: store, embedCalls: &calls}
}

func (f *fixture) seed(t *testing.T, collection, id string, vector []float32, display string, meta map[string]any) {
	t.Helper()
	require.NoError(t, f.store.Upsert(context.Background(), vecstore.Record{
		ID:          id,
		Collection:  collection,
		Vector:      vector,
		EmbedText:   display,
		DisplayText: display,
		Metadata:    meta,
	}))
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Tool{
		Name: "echo",
		Run: func(ctx context.Context, params map[string]any) (string, error) {
			return params["text"].(string), nil
		},
	}))

	assert.Error(t, r.Register(Tool{Name: "echo"}))
	assert.Error(t, r.Register(Tool{}))

	out, err := r.Call(context.Background(), "echo", map[string]any{"text": "hello"})
	require.NoError(t, err)
	assert.Equal(t, "hello", out)

	_, err = r.Call(context.Background(), "missing", nil)
	assert.Error(t, err)

	assert.Len(t, r.List(), 1)
}

func TestToolboxRegistryNames(t *testing.T) {
	f := newFixture(t)
	names := []string{}
	for _, tool := range f.tb.Registry().List() {
		names = append(names, tool.Name)
	}
	assert.Equal(t, []string{"semantic_search", "compare_indicators", "export_markdown"}, names)
}

func TestSemanticSearchRanksAndScores(t *testing.T) {
	f := newFixture(t)
	f.seed(t, types.CollectionIndicators, "indicator:1", []float32{1, 0, 0, 0}, "Indicator: Soil organic carbon", nil)
	f.seed(t, types.CollectionIndicators, "indicator:2", []float32{0, 1, 0, 0}, "Indicator: Earthworm abundance", nil)

	out, err := f.tb.SemanticSearch(context.Background(), "carbon in soil", types.CollectionIndicators, 2, nil)
	require.NoError(t, err)

	assert.Contains(t, out, "1. [indicator:1] similarity 100.0%")
	assert.Contains(t, out, "2. [indicator:2] similarity 0.0%")
	assert.Contains(t, out, "Indicator: Soil organic carbon")
}

func TestSemanticSearchEmptyCollectionIsMessage(t *testing.T) {
	f := newFixture(t)
	out, err := f.tb.SemanticSearch(context.Background(), "anything", types.CollectionMethods, 5, nil)
	require.NoError(t, err)
	assert.Contains(t, out, "No matching documents found")
}

func TestSemanticSearchValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.tb.SemanticSearch(context.Background(), "   ", types.CollectionIndicators, 5, nil)
	assert.Error(t, err)

	_, err = f.tb.SemanticSearch(context.Background(), "q", "nonsense", 5, nil)
	assert.Error(t, err)
}

func TestSemanticSearchCachesResponses(t *testing.T) {
	f := newFixture(t)
	f.seed(t, types.CollectionIndicators, "indicator:1", []float32{1, 0, 0, 0}, "doc", nil)

	first, err := f.tb.SemanticSearch(context.Background(), "query", types.CollectionIndicators, 3, nil)
	require.NoError(t, err)
	calls := f.embedCalls.Load()

	second, err := f.tb.SemanticSearch(context.Background(), "query", types.CollectionIndicators, 3, nil)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, calls, f.embedCalls.Load())
}

func TestClampN(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, 5, f.tb.clampN(0))
	assert.Equal(t, 1, f.tb.clampN(-3))
	assert.Equal(t, 25, f.tb.clampN(100))
	assert.Equal(t, 7, f.tb.clampN(7))
}

func TestSimilarityPercentClamps(t *testing.T) {
	assert.Equal(t, 100.0, similarityPercent(-0.2))
	assert.Equal(t, 0.0, similarityPercent(1.5))
	assert.InDelta(t, 75.0, similarityPercent(0.25), 1e-9)
}

func TestCompareIndicators(t *testing.T) {
	f := newFixture(t)
	f.seed(t, types.CollectionMethods, docbuild.MethodGroupID(1), []float32{1, 0, 0, 0}, "methods", map[string]any{
		"method_count": 2, "citation_count": 2, "doi_count": 1,
		"has_high_accuracy": true, "has_low_cost": true, "has_oa_citations": false,
	})

	out, err := f.tb.CompareIndicators(context.Background(), []string{
		"soil organic carbon", // resolves via normalization
		"Earthworm abundance", // resolves but has no stored group
		"Mystery metric",      // does not resolve
	})
	require.NoError(t, err)

	assert.Contains(t, out, "Unresolved indicator name(s): Mystery metric")
	assert.Contains(t, out, "| Soil organic carbon | 2 | 2 | 1 | yes | yes | no |")
	assert.Contains(t, out, "No stored method data for: Earthworm abundance")
}

func TestCompareIndicatorsNothingResolves(t *testing.T) {
	f := newFixture(t)
	out, err := f.tb.CompareIndicators(context.Background(), []string{"Unknown thing"})
	require.NoError(t, err)
	assert.Contains(t, out, "None of the given names resolved")
}

func TestCompareIndicatorsValidation(t *testing.T) {
	f := newFixture(t)
	_, err := f.tb.CompareIndicators(context.Background(), nil)
	assert.Error(t, err)
}

func TestExportMarkdown(t *testing.T) {
	f := newFixture(t)
	f.seed(t, types.CollectionIndicators, "indicator:1", []float32{1, 0, 0, 0}, "Indicator one", nil)
	f.seed(t, types.CollectionIndicators, "indicator:2", []float32{0, 1, 0, 0}, "Indicator two", nil)

	out, err := f.tb.ExportMarkdown(context.Background(), types.CollectionIndicators)
	require.NoError(t, err)

	assert.Contains(t, out, "# Export: indicators")
	assert.Contains(t, out, "## indicator:1")
	assert.Contains(t, out, "## indicator:2")
	assert.Contains(t, out, "Indicator one")
}

func TestExportMarkdownEmptyCollection(t *testing.T) {
	f := newFixture(t)
	out, err := f.tb.ExportMarkdown(context.Background(), types.CollectionUseCases)
	require.NoError(t, err)
	assert.Contains(t, out, "is empty")
}

func TestExportYAML(t *testing.T) {
	f := newFixture(t)
	f.seed(t, types.CollectionIndicators, "indicator:1", []float32{1, 0, 0, 0}, "Indicator one",
		map[string]any{"category": "Soil"})

	out, err := f.tb.ExportYAML(context.Background(), types.CollectionIndicators)
	require.NoError(t, err)

	var entries []ExportEntry
	require.NoError(t, yaml.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "indicator:1", entries[0].ID)
	assert.Equal(t, "Indicator one", entries[0].Text)
	assert.Equal(t, "Soil", entries[0].Metadata["category"])
}

func TestExportTruncation(t *testing.T) {
	long := strings.Repeat("x", 1000)
	out := truncate(long, 100)
	assert.LessOrEqual(t, len(out), 100)
	assert.True(t, strings.HasSuffix(out, TruncationMarker))

	short := "short text"
	assert.Equal(t, short, truncate(short, 100))
}
