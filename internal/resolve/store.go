// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolve

import (
	"context"

	"github.com/pdiddy/indicator-engine/internal/vecstore"
	"github.com/pdiddy/indicator-engine/pkg/types"
)

// FromStore rebuilds a resolver from the indicator documents already in the
// vector store, so retrieval commands can resolve names without re-reading
// the source workbook. Gateway listing is id-ordered, which makes the
// fuzzy tie-break stable across processes.
func FromStore(ctx context.Context, cfg types.ResolverConfig, g *vecstore.Gateway) (*Resolver, error) {
	records, err := g.List(ctx, types.CollectionIndicators)
	if err != nil {
		return nil, err
	}

	r := NewResolver(cfg)
	for _, rec := range records {
		name, _ := rec.Metadata["name"].(string)
		id, ok := rec.Metadata["indicator_id"].(float64)
		if name == "" || !ok {
			continue
		}
		r.Add(name, int(id))
	}
	return r, nil
}
