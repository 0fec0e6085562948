// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ingest orchestrates one ingestion run: load workbooks, normalize
// citations, build documents, embed them, and upsert into the vector store.
// Document ids are deterministic, so re-running ingestion over the same
// sources replaces documents instead of duplicating them.
package ingest

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/indicator-engine/internal/citation"
	"github.com/pdiddy/indicator-engine/internal/docbuild"
	"github.com/pdiddy/indicator-engine/internal/embed"
	"github.com/pdiddy/indicator-engine/internal/faults"
	"github.com/pdiddy/indicator-engine/internal/resolve"
	"github.com/pdiddy/indicator-engine/internal/source"
	"github.com/pdiddy/indicator-engine/internal/vecstore"
	"github.com/pdiddy/indicator-engine/pkg/types"
)

// Options selects the sources and behavior of one run.
type Options struct {
	// SourcePath is the indicator workbook (xlsx).
	SourcePath string

	// UseCasePaths are per-project use-case workbooks. For each workbook a
	// sibling .md file with the same stem is read as the project narrative
	// when present.
	UseCasePaths []string

	// Clear empties all collections before writing.
	Clear bool

	// DryRun builds and reports documents without embedding or writing.
	DryRun bool

	// Enrich runs Crossref/Unpaywall lookups over citations before building.
	Enrich bool
}

// Summary counts the outcome of one run.
type Summary struct {
	Indicators   int
	MethodGroups int
	Overviews    int
	Outcomes     int

	Written    int
	Skipped    int
	FailedIDs  []string
	Unresolved int
	Orphans    int
	Enriched   int
}

// Total returns the number of documents built.
func (s Summary) Total() int {
	return s.Indicators + s.MethodGroups + s.Overviews + s.Outcomes
}

// Pipeline wires the ingestion stages together.
type Pipeline struct {
	cfg      types.PipelineConfig
	embedder *embed.Client
	store    *vecstore.Gateway
	enricher *citation.Enricher // nil when enrichment is not configured
	log      *zap.Logger
}

// New builds a Pipeline. enricher may be nil.
func New(cfg types.PipelineConfig, embedder *embed.Client, store *vecstore.Gateway, enricher *citation.Enricher, log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{cfg: cfg, embedder: embedder, store: store, enricher: enricher, log: log}
}

// Run executes one ingestion. Progress lines go to w; the structured log
// carries the same events for machines.
func (p *Pipeline) Run(ctx context.Context, opts Options, w io.Writer) (Summary, error) {
	var summary Summary

	wb, err := source.LoadWorkbook(opts.SourcePath)
	if err != nil {
		return summary, err
	}
	summary.Orphans = wb.OrphanMethodRows
	fmt.Fprintf(w, "loaded %d indicator(s), %d method row(s) from %s\n",
		len(wb.Indicators), len(wb.Methods), opts.SourcePath)
	if wb.OrphanMethodRows > 0 {
		fmt.Fprintf(w, "warning: %d method row(s) reference unknown indicator ids\n", wb.OrphanMethodRows)
	}

	if opts.Enrich {
		n, err := p.enrichWorkbook(ctx, wb, w)
		if err != nil {
			return summary, err
		}
		summary.Enriched = n
	}

	resolver := resolve.NewResolver(p.cfg.Resolver)
	for _, ind := range wb.Indicators {
		resolver.Add(ind.Name, ind.ID)
	}

	docs, err := p.buildDocuments(wb, opts.UseCasePaths, resolver, &summary, w)
	if err != nil {
		return summary, err
	}

	if opts.DryRun {
		for _, doc := range docs {
			fmt.Fprintf(w, "would write %s\n", doc.ID)
		}
		fmt.Fprintf(w, "\ndry run: %d document(s) built, none written\n", len(docs))
		return summary, nil
	}

	if opts.Clear {
		for _, c := range []string{types.CollectionIndicators, types.CollectionMethods, types.CollectionUseCases} {
			if err := p.store.Clear(ctx, c); err != nil {
				return summary, err
			}
		}
		fmt.Fprintln(w, "cleared all collections")
	}

	if err := p.write(ctx, docs, &summary, w); err != nil {
		return summary, err
	}

	fmt.Fprintf(w, "\nwritten: %d, skipped: %d, unresolved name(s): %d\n",
		summary.Written, summary.Skipped, summary.Unresolved)
	for _, id := range summary.FailedIDs {
		fmt.Fprintf(w, "failed  %s\n", id)
	}
	p.log.Info("ingestion finished",
		zap.Int("written", summary.Written),
		zap.Int("skipped", summary.Skipped),
		zap.Int("unresolved", summary.Unresolved))
	return summary, nil
}

// enrichWorkbook runs metadata and OA lookups over every citation that
// carries a DOI. Lookup failures degrade to the normalized citation.
func (p *Pipeline) enrichWorkbook(ctx context.Context, wb *source.Workbook, w io.Writer) (int, error) {
	if p.enricher == nil {
		return 0, faults.Validation("enrichment requested but not configured")
	}
	enriched := 0
	for mi := range wb.Methods {
		for ci := range wb.Methods[mi].Citations {
			c := &wb.Methods[mi].Citations[ci]
			if !c.HasDOI() {
				continue
			}
			if err := p.enricher.Enrich(ctx, c); err != nil {
				if ctx.Err() != nil {
					return enriched, ctx.Err()
				}
				fmt.Fprintf(w, "warning: enrichment failed for %s: %v\n", c.DOI, err)
				continue
			}
			enriched++
		}
	}
	// The per-indicator groups hold copies of the method rows; rebuild them
	// so enrichment is visible downstream.
	wb.MethodsByIndicator = make(map[int][]source.MethodRow)
	for _, m := range wb.Methods {
		wb.MethodsByIndicator[m.IndicatorID] = append(wb.MethodsByIndicator[m.IndicatorID], m)
	}
	fmt.Fprintf(w, "enriched %d citation(s)\n", enriched)
	return enriched, nil
}

// buildDocuments turns normalized rows into storage envelopes.
func (p *Pipeline) buildDocuments(wb *source.Workbook, useCasePaths []string, resolver *resolve.Resolver, summary *Summary, w io.Writer) ([]docbuild.Document, error) {
	builder := docbuild.NewBuilder(types.KnowledgeVersion{
		Schema:     types.SchemaVersion,
		IngestedAt: time.Now().UTC(),
	})

	var docs []docbuild.Document
	for _, ind := range wb.Indicators {
		docs = append(docs, builder.IndicatorEnvelope(builder.Indicator(ind)))
		docs = append(docs, builder.MethodGroupEnvelope(
			builder.MethodGroup(ind, wb.MethodsByIndicator[ind.ID])))
		summary.Indicators++
		summary.MethodGroups++
	}

	for _, path := range useCasePaths {
		uc, err := source.LoadUseCase(path)
		if err != nil {
			return nil, err
		}
		narrative, err := source.LoadNarrative(narrativePath(path), p.cfg.Ingest.NarrativeMaxChars)
		if err != nil {
			return nil, err
		}
		uc.Narrative = narrative

		docs = append(docs, builder.OverviewEnvelope(builder.UseCaseOverview(uc)))
		summary.Overviews++

		for _, outcome := range uc.Outcomes {
			ids, unresolved := resolver.ResolveAll(outcome.IndicatorNames)
			summary.Unresolved += len(unresolved)
			for _, name := range unresolved {
				fmt.Fprintf(w, "unresolved indicator name in %s/%s: %q\n", uc.Slug, outcome.OutcomeID, name)
			}
			docs = append(docs, builder.OutcomeEnvelope(
				builder.UseCaseOutcome(uc.Slug, outcome, ids, unresolved)))
			summary.Outcomes++
		}
	}
	return docs, nil
}

// write embeds and upserts the documents. Strict mode aborts on the first
// failure; skip mode records the failing ids and continues.
func (p *Pipeline) write(ctx context.Context, docs []docbuild.Document, summary *Summary, w io.Writer) error {
	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.EmbeddingText
	}

	strict := p.cfg.Ingest.Mode != types.ModeSkip

	var vectors [][]float32
	var errs []error
	if strict {
		v, err := p.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("embedding aborted: %w", err)
		}
		vectors = v
	} else {
		vectors, errs = p.embedder.EmbedResilient(ctx, texts)
	}

	for i, doc := range docs {
		if !strict && errs[i] != nil {
			fmt.Fprintf(w, "skipped %s: %v\n", doc.ID, errs[i])
			summary.Skipped++
			summary.FailedIDs = append(summary.FailedIDs, doc.ID)
			continue
		}

		err := p.store.Upsert(ctx, vecstore.Record{
			ID:          doc.ID,
			Collection:  doc.Collection,
			Vector:      vectors[i],
			EmbedText:   doc.EmbeddingText,
			DisplayText: doc.DisplayText,
			Metadata:    doc.Metadata,
		})
		if err != nil {
			if strict {
				return err
			}
			fmt.Fprintf(w, "skipped %s: %v\n", doc.ID, err)
			summary.Skipped++
			summary.FailedIDs = append(summary.FailedIDs, doc.ID)
			continue
		}
		fmt.Fprintf(w, "written %s\n", doc.ID)
		summary.Written++
	}
	return nil
}

// narrativePath maps a use-case workbook path to its sibling narrative
// document: project.xlsx -> project.md.
func narrativePath(workbookPath string) string {
	ext := len(workbookPath) - len(".xlsx")
	if ext > 0 && workbookPath[ext:] == ".xlsx" {
		return workbookPath[:ext] + ".md"
	}
	return workbookPath + ".md"
}
