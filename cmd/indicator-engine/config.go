// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/indicator-engine/internal/citation"
	"github.com/pdiddy/indicator-engine/internal/embed"
	"github.com/pdiddy/indicator-engine/internal/resolve"
	"github.com/pdiddy/indicator-engine/internal/secrets"
	"github.com/pdiddy/indicator-engine/internal/tools"
	"github.com/pdiddy/indicator-engine/internal/vecstore"
	"github.com/pdiddy/indicator-engine/pkg/types"
)

const defaultUserAgent = "indicator-engine/0.1"

func init() {
	viper.SetDefault("embedding.base_url", embed.DefaultBaseURL)
	viper.SetDefault("embedding.model", embed.DefaultModel)
	viper.SetDefault("store.path", "knowledge/index/indicators.db")
	viper.SetDefault("ingest.mode", string(types.ModeSkip))
	viper.SetDefault("ingest.narrative_max_chars", 4000)
	viper.SetDefault("resolver.fuzzy_threshold", resolve.DefaultFuzzyThreshold)
}

// pipelineConfig assembles the stage configuration from viper (config file
// plus INDICATOR_ENGINE_* environment overrides). Unset values fall back to
// the per-stage defaults.
func pipelineConfig() types.PipelineConfig {
	return types.PipelineConfig{
		Embedding: types.EmbeddingConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:    viper.GetDuration("embedding.timeout"),
				UserAgent:  defaultUserAgent,
				MaxRetries: viper.GetInt("embedding.max_retries"),
			},
			BaseURL:       viper.GetString("embedding.base_url"),
			Model:         viper.GetString("embedding.model"),
			BatchSize:     viper.GetInt("embedding.batch_size"),
			BatchTimeout:  viper.GetDuration("embedding.batch_timeout"),
			MinInterval:   viper.GetDuration("embedding.min_interval"),
			MaxBackoff:    viper.GetDuration("embedding.max_backoff"),
			MinDimensions: viper.GetInt("embedding.min_dimensions"),
			MaxChars:      viper.GetInt("embedding.max_chars"),
		},
		Store: types.StoreConfig{
			Path:           viper.GetString("store.path"),
			MaxRetries:     viper.GetInt("store.max_retries"),
			RetryBaseDelay: viper.GetDuration("store.retry_base_delay"),
		},
		Ingest: types.IngestConfig{
			Mode:              types.IngestMode(viper.GetString("ingest.mode")),
			NarrativeMaxChars: viper.GetInt("ingest.narrative_max_chars"),
		},
		Resolver: types.ResolverConfig{
			FuzzyThreshold: viper.GetFloat64("resolver.fuzzy_threshold"),
		},
		Enrich: types.EnrichConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:    viper.GetDuration("enrich.timeout"),
				UserAgent:  defaultUserAgent,
				MaxRetries: viper.GetInt("enrich.max_retries"),
			},
			Email:     viper.GetString("enrich.email"),
			CacheSize: viper.GetInt("enrich.cache_size"),
			CacheTTL:  viper.GetDuration("enrich.cache_ttl"),
		},
		Tools: types.ToolsConfig{
			MaxResults:     viper.GetInt("tools.max_results"),
			MaxExportBytes: viper.GetInt("tools.max_export_bytes"),
			CallTimeout:    viper.GetDuration("tools.call_timeout"),
		},
	}
}

// newLogger builds the process logger. Verbose mode enables debug output.
func newLogger(cmd *cobra.Command) *zap.Logger {
	verbose, _ := cmd.Flags().GetBool("verbose")
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	log, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return log
}

// newEnricher builds the Crossref/Unpaywall enricher, filling the contact
// email from .secrets/ when the config leaves it unset.
func newEnricher(cfg types.EnrichConfig) *citation.Enricher {
	if cfg.Email == "" {
		cfg.Email = secrets.ContactEmail(loadedSecrets)
	}
	return citation.NewEnricher(cfg)
}

// newToolbox wires the retrieval tools against the stored indicator index.
func newToolbox(ctx context.Context, cfg types.PipelineConfig, log *zap.Logger) (*tools.Toolbox, *vecstore.Gateway, error) {
	store := vecstore.NewGateway(cfg.Store, log)
	resolver, err := resolve.FromStore(ctx, cfg.Resolver, store)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	embedder := embed.NewClient(cfg.Embedding, log)
	return tools.NewToolbox(cfg.Tools, embedder, store, resolver, log), store, nil
}
