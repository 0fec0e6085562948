// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ingest

import (
	"context"
	"fmt"
	"io"

	"github.com/pdiddy/indicator-engine/internal/faults"
	"github.com/pdiddy/indicator-engine/internal/source"
)

// PreviewCitations loads the workbook and reports every normalized citation
// without embedding or writing anything. Useful for checking DOI extraction
// before a run.
func (p *Pipeline) PreviewCitations(sourcePath string, w io.Writer) error {
	wb, err := source.LoadWorkbook(sourcePath)
	if err != nil {
		return err
	}

	total, withDOI := 0, 0
	for _, m := range wb.Methods {
		if len(m.Citations) == 0 {
			continue
		}
		fmt.Fprintf(w, "indicator %d, %s:\n", m.IndicatorID, m.Technique)
		for _, c := range m.Citations {
			total++
			if c.HasDOI() {
				withDOI++
				fmt.Fprintf(w, "  %s\n    doi: %s\n", c.Text, c.DOI)
			} else {
				fmt.Fprintf(w, "  %s\n    doi: (none)\n", c.Text)
			}
		}
	}
	fmt.Fprintf(w, "\n%d citation(s), %d with a DOI\n", total, withDOI)
	return nil
}

// PreviewOA enriches every DOI-bearing citation and reports open-access
// status, without embedding or writing anything.
func (p *Pipeline) PreviewOA(ctx context.Context, sourcePath string, w io.Writer) error {
	if p.enricher == nil {
		return faults.Validation("open-access preview requires enrichment configuration")
	}

	wb, err := source.LoadWorkbook(sourcePath)
	if err != nil {
		return err
	}

	checked, open := 0, 0
	for mi := range wb.Methods {
		for ci := range wb.Methods[mi].Citations {
			c := &wb.Methods[mi].Citations[ci]
			if !c.HasDOI() {
				continue
			}
			checked++
			if err := p.enricher.Enrich(ctx, c); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				fmt.Fprintf(w, "%s: lookup failed: %v\n", c.DOI, err)
				continue
			}
			switch {
			case c.IsOpenAccess():
				open++
				license := c.OpenAccess.License
				if license == "" {
					license = "unknown license"
				}
				fmt.Fprintf(w, "%s: open access (%s)\n", c.DOI, license)
			case c.OpenAccess != nil:
				fmt.Fprintf(w, "%s: closed\n", c.DOI)
			default:
				fmt.Fprintf(w, "%s: no open-access record\n", c.DOI)
			}
		}
	}
	fmt.Fprintf(w, "\n%d DOI(s) checked, %d open access\n", checked, open)
	return nil
}
