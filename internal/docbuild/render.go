// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package docbuild

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pdiddy/indicator-engine/pkg/types"
)

// The embedding rendering carries semantic content only: technique names,
// notes, ratings, and bare citation text. DOIs and resolver URLs are
// excluded so vector similarity is not polluted by non-semantic tokens.
// The display rendering is the same content plus URLs and OA badges.

func renderIndicatorEmbedding(doc types.IndicatorDocument) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Indicator: %s\n", doc.Name)
	if doc.Category != "" || doc.Class != "" {
		fmt.Fprintf(&b, "Category: %s", doc.Category)
		if doc.Class != "" {
			fmt.Fprintf(&b, " / %s", doc.Class)
		}
		b.WriteString("\n")
	}
	if doc.Unit != "" {
		fmt.Fprintf(&b, "Unit: %s\n", doc.Unit)
	}
	if flags := onFlags(doc.MethodFlags); len(flags) > 0 {
		fmt.Fprintf(&b, "Measurable by: %s\n", strings.Join(flags, ", "))
	}
	if cov := coverageList(doc.Coverage); len(cov) > 0 {
		fmt.Fprintf(&b, "Covers: %s\n", strings.Join(cov, ", "))
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderIndicatorDisplay(doc types.IndicatorDocument) string {
	return fmt.Sprintf("[%s]\n%s", IndicatorID(doc.ID), renderIndicatorEmbedding(doc))
}

func renderMethodGroupEmbedding(doc types.MethodGroupDocument) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Measurement methods for %s:\n", doc.IndicatorName)
	if len(doc.Methods) == 0 {
		b.WriteString("No documented methods.\n")
	}
	for _, m := range doc.Methods {
		fmt.Fprintf(&b, "- %s", m.Technique)
		if m.Notes != "" {
			fmt.Fprintf(&b, ". %s", m.Notes)
		}
		if r := ratings(m); r != "" {
			fmt.Fprintf(&b, " (%s)", r)
		}
		b.WriteString("\n")
		for _, c := range m.Citations {
			if text := citationText(c); text != "" {
				fmt.Fprintf(&b, "  Source: %s\n", text)
			}
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderMethodGroupDisplay(doc types.MethodGroupDocument) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s]\n", MethodGroupID(doc.IndicatorID))
	fmt.Fprintf(&b, "Measurement methods for %s (%d method(s), %d citation(s), %d DOI(s)):\n",
		doc.IndicatorName, doc.MethodCount, doc.CitationCount, doc.DOICount)
	if len(doc.Methods) == 0 {
		b.WriteString("No documented methods.\n")
	}
	for _, m := range doc.Methods {
		fmt.Fprintf(&b, "- %s", m.Technique)
		if m.Notes != "" {
			fmt.Fprintf(&b, ". %s", m.Notes)
		}
		if r := ratings(m); r != "" {
			fmt.Fprintf(&b, " (%s)", r)
		}
		b.WriteString("\n")
		for _, c := range m.Citations {
			text := citationText(c)
			if text == "" && c.URL == "" {
				continue
			}
			fmt.Fprintf(&b, "  Source: %s", text)
			if c.URL != "" {
				fmt.Fprintf(&b, " <%s>", c.URL)
			}
			if c.IsOpenAccess() {
				b.WriteString(" [OA")
				if c.OpenAccess.License != "" {
					fmt.Fprintf(&b, ": %s", c.OpenAccess.License)
				}
				b.WriteString("]")
			}
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderOverviewEmbedding(doc types.UseCaseOverviewDocument) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Use case: %s\n", doc.Name)
	if doc.Narrative != "" {
		fmt.Fprintf(&b, "%s\n", doc.Narrative)
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderOverviewDisplay(doc types.UseCaseOverviewDocument) string {
	return fmt.Sprintf("[%s]\n%s\nOutcomes: %d",
		UseCaseOverviewID(doc.Slug), renderOverviewEmbedding(doc), doc.OutcomeCount)
}

func renderOutcomeEmbedding(doc types.UseCaseOutcomeDocument) string {
	return fmt.Sprintf("Outcome %s: %s", doc.OutcomeID, doc.Text)
}

func renderOutcomeDisplay(doc types.UseCaseOutcomeDocument) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s]\n%s\n", UseCaseOutcomeID(doc.Slug, doc.OutcomeID), renderOutcomeEmbedding(doc))
	if len(doc.IndicatorIDs) > 0 {
		ids := make([]string, len(doc.IndicatorIDs))
		for i, id := range doc.IndicatorIDs {
			ids[i] = IndicatorID(id)
		}
		fmt.Fprintf(&b, "Indicators: %s\n", strings.Join(ids, ", "))
	}
	if len(doc.UnresolvedNames) > 0 {
		fmt.Fprintf(&b, "Unresolved: %s\n", strings.Join(doc.UnresolvedNames, ", "))
	}
	return strings.TrimRight(b.String(), "\n")
}

// citationText prefers the enriched title over the cleaned citation text.
// It never returns a DOI or URL.
func citationText(c types.Citation) string {
	if c.Title != "" {
		return c.Title
	}
	return c.Text
}

func ratings(m types.MethodEntry) string {
	var parts []string
	if m.Accuracy != "" {
		parts = append(parts, "accuracy: "+m.Accuracy)
	}
	if m.Ease != "" {
		parts = append(parts, "ease: "+m.Ease)
	}
	if m.Cost != "" {
		parts = append(parts, "cost: "+m.Cost)
	}
	return strings.Join(parts, ", ")
}

// onFlags returns the sorted names of set method flags, humanized for text
// rendering ("field_measurement" becomes "field measurement").
func onFlags(flags map[string]bool) []string {
	var on []string
	for key, set := range flags {
		if set {
			on = append(on, strings.ReplaceAll(key, "_", " "))
		}
	}
	sort.Strings(on)
	return on
}

// coverageList returns sorted "label (full|partial)" entries for covered
// principles/criteria.
func coverageList(coverage map[string]types.CoverageFlag) []string {
	var out []string
	for label, flag := range coverage {
		switch flag {
		case types.CoverageFull:
			out = append(out, label+" (full)")
		case types.CoveragePartial:
			out = append(out, label+" (partial)")
		}
	}
	sort.Strings(out)
	return out
}
