// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package vecstore

import (
	"context"
	"database/sql"
	"math"
	"sort"

	"github.com/pdiddy/indicator-engine/internal/faults"
)

// Result is one ranked query hit. Distance is cosine distance: 0 is an
// identical direction, 1 is orthogonal.
type Result struct {
	Record
	Distance float64
}

// Query returns the n nearest records to vector within a collection,
// optionally restricted by exact-match metadata filters. Candidates are
// narrowed in SQL via json_extract; ranking is brute-force cosine distance
// over the survivors, ascending, ties broken by id for determinism.
func (g *Gateway) Query(ctx context.Context, collection string, vector []float32, n int, filter map[string]any) ([]Result, error) {
	if len(vector) == 0 {
		return nil, faults.Validation("query vector is empty")
	}
	if n <= 0 {
		return nil, faults.Validation("result count must be positive, got %d", n)
	}

	query := `SELECT id, vector, embed_text, display_text, metadata
	 FROM documents WHERE collection = ?`
	args := []any{collection}

	// Stable clause order so identical filters build identical SQL.
	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		query += ` AND json_extract(metadata, '$."` + k + `"') = ?`
		args = append(args, filterArg(filter[k]))
	}

	var results []Result
	err := g.withRetry(ctx, "querying "+collection, func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		results = results[:0]
		for rows.Next() {
			rec, err := scanRecord(rows, collection)
			if err != nil {
				return err
			}
			results = append(results, Result{
				Record:   rec,
				Distance: CosineDistance(vector, rec.Vector),
			})
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		return results[i].ID < results[j].ID
	})
	if len(results) > n {
		results = results[:n]
	}
	return results, nil
}

// filterArg converts a filter value to its sqlite json_extract form.
// Booleans surface from json_extract as 0/1.
func filterArg(v any) any {
	if b, ok := v.(bool); ok {
		if b {
			return 1
		}
		return 0
	}
	return v
}

// CosineDistance returns 1 - cosine similarity. Mismatched lengths and
// zero-norm vectors yield the maximum distance rather than an error.
func CosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 1
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}
