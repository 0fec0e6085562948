// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/indicator-engine/internal/resolve"
	"github.com/pdiddy/indicator-engine/internal/vecstore"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve [names...]",
	Short: "Resolve free-text indicator names to canonical ids",
	Long: `Resolve maps each given name to a canonical indicator through exact,
normalized, then fuzzy matching. Names below the similarity threshold are
reported as unresolved rather than guessed.`,
	RunE: runResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("provide one or more indicator names")
	}

	cfg := pipelineConfig()
	log := newLogger(cmd)
	defer log.Sync()

	store := vecstore.NewGateway(cfg.Store, log)
	defer store.Close()

	resolver, err := resolve.FromStore(context.Background(), cfg.Resolver, store)
	if err != nil {
		return err
	}
	if resolver.Len() == 0 {
		return fmt.Errorf("no indicators in the store: run ingest first")
	}

	unresolved := 0
	for _, name := range args {
		m, ok := resolver.Resolve(name)
		if !ok {
			fmt.Printf("%-40s  unresolved\n", name)
			unresolved++
			continue
		}
		fmt.Printf("%-40s  indicator:%d  %s (%s, %.2f)\n", name, m.ID, m.Name, m.Tier, m.Ratio)
	}
	if unresolved > 0 {
		return fmt.Errorf("%d name(s) unresolved", unresolved)
	}
	return nil
}
