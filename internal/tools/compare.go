// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/pdiddy/indicator-engine/internal/docbuild"
	"github.com/pdiddy/indicator-engine/internal/faults"
	"github.com/pdiddy/indicator-engine/internal/vecstore"
	"github.com/pdiddy/indicator-engine/pkg/types"
)

// CompareIndicators resolves the given names and renders a side-by-side
// method coverage table. Names that fail resolution or have no stored
// method group are reported in the output rather than failing the call.
func (tb *Toolbox) CompareIndicators(ctx context.Context, names []string) (string, error) {
	if len(names) == 0 {
		return "", faults.Validation("no indicator names given")
	}

	type row struct {
		name string
		id   int
	}
	var rows []row
	var unresolved []string
	for _, name := range names {
		m, ok := tb.resolver.Resolve(name)
		if !ok {
			unresolved = append(unresolved, name)
			continue
		}
		rows = append(rows, row{name: m.Name, id: m.ID})
	}

	var b strings.Builder
	if len(unresolved) > 0 {
		fmt.Fprintf(&b, "Unresolved indicator name(s): %s\n\n", strings.Join(unresolved, ", "))
	}
	if len(rows) == 0 {
		b.WriteString("None of the given names resolved to a known indicator.")
		return b.String(), nil
	}

	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = docbuild.MethodGroupID(r.id)
	}

	value, err := tb.pool.Run(ctx, func(ctx context.Context) (any, error) {
		return tb.store.Get(ctx, types.CollectionMethods, ids)
	})
	if err != nil {
		return "", err
	}
	records := value.([]vecstore.Record)

	byID := make(map[string]vecstore.Record, len(records))
	for _, rec := range records {
		byID[rec.ID] = rec
	}

	b.WriteString("| Indicator | Methods | Citations | DOIs | High accuracy | Low cost | OA sources |\n")
	b.WriteString("|---|---|---|---|---|---|---|\n")
	var missing []string
	for i, r := range rows {
		rec, ok := byID[ids[i]]
		if !ok {
			missing = append(missing, r.name)
			continue
		}
		fmt.Fprintf(&b, "| %s | %d | %d | %d | %s | %s | %s |\n",
			r.name,
			metaInt(rec.Metadata, "method_count"),
			metaInt(rec.Metadata, "citation_count"),
			metaInt(rec.Metadata, "doi_count"),
			yesNo(metaBool(rec.Metadata, "has_high_accuracy")),
			yesNo(metaBool(rec.Metadata, "has_low_cost")),
			yesNo(metaBool(rec.Metadata, "has_oa_citations")),
		)
	}
	if len(missing) > 0 {
		fmt.Fprintf(&b, "\nNo stored method data for: %s", strings.Join(missing, ", "))
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// metaInt reads a numeric metadata value. JSON round-tripping turns ints
// into float64.
func metaInt(meta map[string]any, key string) int {
	switch v := meta[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

func metaBool(meta map[string]any, key string) bool {
	b, _ := meta[key].(bool)
	return b
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
