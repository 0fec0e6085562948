// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a collection as a Markdown document",
	Long: `Export renders every document in a collection as Markdown, truncating at
the configured size budget with an explicit marker. Output goes to stdout
unless --out is given.`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().String("collection", "indicators", "collection to export: indicators, methods, or usecases")
	exportCmd.Flags().String("format", "markdown", "export format: markdown or yaml")
	exportCmd.Flags().String("out", "", "write output to a file instead of stdout")

	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	collection, _ := cmd.Flags().GetString("collection")
	outPath, _ := cmd.Flags().GetString("out")

	log := newLogger(cmd)
	defer log.Sync()

	tb, store, err := newToolbox(context.Background(), pipelineConfig(), log)
	if err != nil {
		return err
	}
	defer store.Close()
	defer tb.Close()

	format, _ := cmd.Flags().GetString("format")
	var out string
	switch format {
	case "markdown", "":
		out, err = tb.ExportMarkdown(context.Background(), collection)
	case "yaml":
		out, err = tb.ExportYAML(context.Background(), collection)
	default:
		return fmt.Errorf("unsupported format %q: use markdown or yaml", format)
	}
	if err != nil {
		return err
	}

	if outPath == "" {
		fmt.Println(out)
		return nil
	}
	if err := os.WriteFile(outPath, []byte(out+"\n"), 0o644); err != nil {
		return fmt.Errorf("writing export to %s: %w", outPath, err)
	}
	fmt.Fprintf(os.Stderr, "Exported %s to %s\n", collection, outPath)
	return nil
}
