// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tools

import (
	"context"
	"fmt"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/indicator-engine/internal/faults"
	"github.com/pdiddy/indicator-engine/internal/vecstore"
)

// TruncationMarker terminates an export that hit the size budget.
const TruncationMarker = "\n\n[truncated]"

// ExportMarkdown renders every document in a collection as one Markdown
// file, truncating at the configured byte budget with an explicit marker.
func (tb *Toolbox) ExportMarkdown(ctx context.Context, collection string) (string, error) {
	if !collections[collection] {
		return "", faults.Validation("unknown collection %q", collection)
	}

	value, err := tb.pool.Run(ctx, func(ctx context.Context) (any, error) {
		return tb.store.List(ctx, collection)
	})
	if err != nil {
		return "", err
	}
	records := value.([]vecstore.Record)

	if len(records) == 0 {
		return fmt.Sprintf("Collection %s is empty.", collection), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Export: %s\n\n%d document(s).\n", collection, len(records))
	for _, rec := range records {
		fmt.Fprintf(&b, "\n## %s\n\n%s\n", rec.ID, rec.DisplayText)
	}

	out := strings.TrimRight(b.String(), "\n")
	return truncate(out, tb.cfg.MaxExportBytes), nil
}

// ExportEntry is one document in a structured export.
type ExportEntry struct {
	ID       string         `yaml:"id"`
	Text     string         `yaml:"text"`
	Metadata map[string]any `yaml:"metadata,omitempty"`
}

// ExportYAML renders every document in a collection as a YAML list of
// entries with their filterable metadata. The same size budget and
// truncation marker apply as for Markdown.
func (tb *Toolbox) ExportYAML(ctx context.Context, collection string) (string, error) {
	if !collections[collection] {
		return "", faults.Validation("unknown collection %q", collection)
	}

	value, err := tb.pool.Run(ctx, func(ctx context.Context) (any, error) {
		return tb.store.List(ctx, collection)
	})
	if err != nil {
		return "", err
	}
	records := value.([]vecstore.Record)

	entries := make([]ExportEntry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, ExportEntry{
			ID:       rec.ID,
			Text:     rec.DisplayText,
			Metadata: rec.Metadata,
		})
	}

	data, err := yaml.Marshal(entries)
	if err != nil {
		return "", faults.Permanent(err, "marshaling %s export", collection)
	}
	return truncate(strings.TrimRight(string(data), "\n"), tb.cfg.MaxExportBytes), nil
}

// truncate caps text at max bytes, cutting on a rune boundary and
// appending the truncation marker.
func truncate(text string, max int) string {
	if len(text) <= max {
		return text
	}
	cut := max - len(TruncationMarker)
	if cut < 0 {
		cut = 0
	}
	for cut > 0 && !utf8Start(text[cut]) {
		cut--
	}
	return text[:cut] + TruncationMarker
}

// utf8Start reports whether b begins a UTF-8 rune.
func utf8Start(b byte) bool { return b&0xC0 != 0x80 }
