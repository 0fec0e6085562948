// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tools

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/indicator-engine/internal/faults"
	"github.com/pdiddy/indicator-engine/internal/vecstore"
	"github.com/pdiddy/indicator-engine/pkg/types"
)

var collections = map[string]bool{
	types.CollectionIndicators: true,
	types.CollectionMethods:    true,
	types.CollectionUseCases:   true,
}

// SemanticSearch embeds the query, ranks the collection by cosine distance,
// and renders the top hits with similarity percentages. An empty result set
// is a message, not an error.
func (tb *Toolbox) SemanticSearch(ctx context.Context, query, collection string, n int, filter map[string]any) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", faults.Validation("search query is empty")
	}
	if collection == "" {
		collection = types.CollectionIndicators
	}
	if !collections[collection] {
		return "", faults.Validation("unknown collection %q", collection)
	}
	n = tb.clampN(n)

	key := cacheKey(query, collection, n, filter)
	if cached, ok := tb.responses.Get(key); ok {
		tb.log.Debug("search cache hit", zap.String("collection", collection))
		return cached, nil
	}

	value, err := tb.pool.Run(ctx, func(ctx context.Context) (any, error) {
		vector, err := tb.embedder.EmbedOne(ctx, query)
		if err != nil {
			return nil, err
		}
		return tb.store.Query(ctx, collection, vector, n, filter)
	})
	if err != nil {
		return "", err
	}
	results := value.([]vecstore.Result)

	if len(results) == 0 {
		return fmt.Sprintf("No matching documents found in %s.", collection), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Top %d result(s) in %s for %q:\n", len(results), collection, query)
	for i, res := range results {
		fmt.Fprintf(&b, "\n%d. [%s] similarity %.1f%%\n%s\n",
			i+1, res.ID, similarityPercent(res.Distance), res.DisplayText)
	}

	rendered := strings.TrimRight(b.String(), "\n")
	tb.responses.Put(key, rendered)
	return rendered, nil
}
