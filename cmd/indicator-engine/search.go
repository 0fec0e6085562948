// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search [query...]",
	Short: "Search the knowledge store by meaning",
	Long: `Search embeds the query and ranks stored documents by vector similarity.
Use --collection to search indicators (default), methods, or usecases, and
--filter key=value pairs to restrict on document metadata.`,
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().String("collection", "indicators", "collection to search: indicators, methods, or usecases")
	searchCmd.Flags().Int("limit", 0, "maximum results (0 = default)")
	searchCmd.Flags().StringSlice("filter", nil, "metadata filters as key=value pairs")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	if query == "" {
		return fmt.Errorf("provide a search query")
	}

	collection, _ := cmd.Flags().GetString("collection")
	limit, _ := cmd.Flags().GetInt("limit")
	filterPairs, _ := cmd.Flags().GetStringSlice("filter")
	filter, err := parseFilters(filterPairs)
	if err != nil {
		return err
	}

	log := newLogger(cmd)
	defer log.Sync()

	tb, store, err := newToolbox(context.Background(), pipelineConfig(), log)
	if err != nil {
		return err
	}
	defer store.Close()
	defer tb.Close()

	out, err := tb.SemanticSearch(context.Background(), query, collection, limit, filter)
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}

// parseFilters turns key=value pairs into a metadata filter, interpreting
// true/false as booleans.
func parseFilters(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	filter := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid filter %q: expected key=value", pair)
		}
		switch value {
		case "true":
			filter[key] = true
		case "false":
			filter[key] = false
		default:
			filter[key] = value
		}
	}
	return filter, nil
}
