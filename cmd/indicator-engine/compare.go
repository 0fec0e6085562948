// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var compareCmd = &cobra.Command{
	Use:   "compare [names...]",
	Short: "Compare measurement method coverage across indicators",
	Long: `Compare resolves the given indicator names and renders a side-by-side
table of method counts, citation coverage, and open-access availability.`,
	RunE: runCompare,
}

func init() {
	rootCmd.AddCommand(compareCmd)
}

func runCompare(cmd *cobra.Command, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("provide at least two indicator names to compare")
	}

	log := newLogger(cmd)
	defer log.Sync()

	tb, store, err := newToolbox(context.Background(), pipelineConfig(), log)
	if err != nil {
		return err
	}
	defer store.Close()
	defer tb.Close()

	out, err := tb.CompareIndicators(context.Background(), args)
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}
