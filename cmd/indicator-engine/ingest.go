// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/indicator-engine/internal/citation"
	"github.com/pdiddy/indicator-engine/internal/embed"
	"github.com/pdiddy/indicator-engine/internal/ingest"
	"github.com/pdiddy/indicator-engine/internal/vecstore"
	"github.com/pdiddy/indicator-engine/pkg/types"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest indicator and use-case workbooks into the vector store",
	Long: `Ingest loads the indicator workbook (and any use-case workbooks), builds
embedded documents with deterministic ids, and upserts them into the local
vector store. Running ingest again over the same sources replaces documents
in place.

Preview flags report on the sources without writing anything.`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().String("source", "", "indicator workbook (xlsx)")
	ingestCmd.Flags().StringSlice("usecase", nil, "use-case workbook(s); a sibling .md file is read as the project narrative")
	ingestCmd.Flags().Bool("clear", false, "clear all collections before writing")
	ingestCmd.Flags().Bool("dry-run", false, "build and report documents without embedding or writing")
	ingestCmd.Flags().Bool("enrich", false, "look up citation metadata and open-access status before building")
	ingestCmd.Flags().Bool("preview-citations", false, "report normalized citations and exit")
	ingestCmd.Flags().Bool("preview-oa", false, "report open-access status of cited DOIs and exit")
	ingestCmd.Flags().String("mode", "", "embedding-failure policy: strict or skip (default from config)")

	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	sourcePath, _ := cmd.Flags().GetString("source")
	if sourcePath == "" {
		return fmt.Errorf("provide the indicator workbook with --source")
	}

	cfg := pipelineConfig()
	if mode, _ := cmd.Flags().GetString("mode"); mode != "" {
		switch types.IngestMode(mode) {
		case types.ModeStrict, types.ModeSkip:
			cfg.Ingest.Mode = types.IngestMode(mode)
		default:
			return fmt.Errorf("unknown mode %q: use strict or skip", mode)
		}
	}

	log := newLogger(cmd)
	defer log.Sync()

	var enricher *citation.Enricher
	enrich, _ := cmd.Flags().GetBool("enrich")
	previewOA, _ := cmd.Flags().GetBool("preview-oa")
	if enrich || previewOA {
		enricher = newEnricher(cfg.Enrich)
	}

	store := vecstore.NewGateway(cfg.Store, log)
	defer store.Close()

	embedder := embed.NewClient(cfg.Embedding, log)
	pipeline := ingest.New(cfg, embedder, store, enricher, log)

	if preview, _ := cmd.Flags().GetBool("preview-citations"); preview {
		return pipeline.PreviewCitations(sourcePath, os.Stdout)
	}
	if previewOA {
		return pipeline.PreviewOA(context.Background(), sourcePath, os.Stdout)
	}

	useCases, _ := cmd.Flags().GetStringSlice("usecase")
	clear, _ := cmd.Flags().GetBool("clear")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	summary, err := pipeline.Run(context.Background(), ingest.Options{
		SourcePath:   sourcePath,
		UseCasePaths: useCases,
		Clear:        clear,
		DryRun:       dryRun,
		Enrich:       enrich,
	}, os.Stdout)
	if err != nil {
		return err
	}
	if summary.Skipped > 0 {
		return fmt.Errorf("%d document(s) skipped", summary.Skipped)
	}
	return nil
}
