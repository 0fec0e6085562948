// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package tools exposes retrieval operations over the knowledge store as a
// registry of named, schema-described tools. Tool runs return user-facing
// text; conditions like "nothing matched" or "name did not resolve" are
// part of that text, not errors. Errors are reserved for infrastructure
// failures.
package tools

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/indicator-engine/internal/cache"
	"github.com/pdiddy/indicator-engine/internal/embed"
	"github.com/pdiddy/indicator-engine/internal/faults"
	"github.com/pdiddy/indicator-engine/internal/resolve"
	"github.com/pdiddy/indicator-engine/internal/vecstore"
	"github.com/pdiddy/indicator-engine/internal/workpool"
	"github.com/pdiddy/indicator-engine/pkg/types"
)

// Tool is one named retrieval operation.
type Tool struct {
	Name        string
	Description string
	ParamSchema map[string]string // parameter name -> description
	Run         func(ctx context.Context, params map[string]any) (string, error)
}

// Registry holds tools by name, preserving registration order for listing.
type Registry struct {
	order []string
	tools map[string]Tool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Registering a duplicate or unnamed tool fails.
func (r *Registry) Register(t Tool) error {
	if t.Name == "" {
		return faults.Validation("tool requires a name")
	}
	if _, ok := r.tools[t.Name]; ok {
		return faults.Validation("tool %q is already registered", t.Name)
	}
	r.order = append(r.order, t.Name)
	r.tools[t.Name] = t
	return nil
}

// Get looks up a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// List returns all tools in registration order.
func (r *Registry) List() []Tool {
	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Call runs a registered tool by name.
func (r *Registry) Call(ctx context.Context, name string, params map[string]any) (string, error) {
	t, ok := r.tools[name]
	if !ok {
		return "", faults.Validation("unknown tool %q", name)
	}
	return t.Run(ctx, params)
}

// Toolbox wires the retrieval tools to the embedding client, vector store,
// and resolver. Embedding and store calls run through a bounded worker pool
// so a wedged backend cannot hang a tool call past its deadline, and search
// responses are cached briefly to absorb repeated identical queries.
type Toolbox struct {
	cfg       types.ToolsConfig
	embedder  *embed.Client
	store     *vecstore.Gateway
	resolver  *resolve.Resolver
	pool      *workpool.Pool
	responses *cache.Cache[string, string]
	log       *zap.Logger
}

// NewToolbox builds a Toolbox with its own worker pool.
func NewToolbox(cfg types.ToolsConfig, embedder *embed.Client, store *vecstore.Gateway, resolver *resolve.Resolver, log *zap.Logger) *Toolbox {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 5
	}
	if cfg.MaxExportBytes <= 0 {
		cfg.MaxExportBytes = 256 * 1024
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 30 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Toolbox{
		cfg:      cfg,
		embedder: embedder,
		store:    store,
		resolver: resolver,
		pool: workpool.New(workpool.Options{
			CallTimeout: cfg.CallTimeout,
			Logger:      log,
		}),
		responses: cache.New[string, string](256, 5*time.Minute),
		log:       log,
	}
}

// Close releases the worker pool.
func (tb *Toolbox) Close() { tb.pool.Close() }

// Registry returns all toolbox tools registered under their public names.
func (tb *Toolbox) Registry() *Registry {
	r := NewRegistry()
	r.Register(Tool{
		Name:        "semantic_search",
		Description: "Search indicators, methods, and use cases by meaning.",
		ParamSchema: map[string]string{
			"query":      "free-text search query",
			"collection": "collection to search: indicators, methods, or usecases",
			"n":          "maximum number of results",
		},
		Run: func(ctx context.Context, params map[string]any) (string, error) {
			query, _ := params["query"].(string)
			collection, _ := params["collection"].(string)
			return tb.SemanticSearch(ctx, query, collection, intParam(params, "n"), nil)
		},
	})
	r.Register(Tool{
		Name:        "compare_indicators",
		Description: "Compare measurement method coverage across indicators.",
		ParamSchema: map[string]string{
			"names": "indicator names to compare",
		},
		Run: func(ctx context.Context, params map[string]any) (string, error) {
			return tb.CompareIndicators(ctx, stringListParam(params, "names"))
		},
	})
	r.Register(Tool{
		Name:        "export_markdown",
		Description: "Export a collection as a Markdown document.",
		ParamSchema: map[string]string{
			"collection": "collection to export: indicators, methods, or usecases",
		},
		Run: func(ctx context.Context, params map[string]any) (string, error) {
			collection, _ := params["collection"].(string)
			return tb.ExportMarkdown(ctx, collection)
		},
	})
	return r
}

// similarityPercent converts cosine distance to a display percentage,
// clamped to [0, 100].
func similarityPercent(distance float64) float64 {
	pct := (1 - distance) * 100
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// clampN bounds a requested result count to [1, 25], defaulting to the
// configured maximum when unset.
func (tb *Toolbox) clampN(n int) int {
	if n <= 0 {
		n = tb.cfg.MaxResults
	}
	if n < 1 {
		n = 1
	}
	if n > 25 {
		n = 25
	}
	return n
}

func intParam(params map[string]any, key string) int {
	switch v := params[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

func stringListParam(params map[string]any, key string) []string {
	switch v := params[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// sortedKeys returns map keys in a stable order for cache-key building.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func cacheKey(query, collection string, n int, filter map[string]any) string {
	key := fmt.Sprintf("search|%s|%s|%d", collection, query, n)
	for _, k := range sortedKeys(filter) {
		key += fmt.Sprintf("|%s=%v", k, filter[k])
	}
	return key
}
