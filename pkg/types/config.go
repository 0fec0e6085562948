package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "indicator-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`

	// MaxRetries is the retry budget for transient failures (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// EmbeddingConfig holds settings for the embedding client.
type EmbeddingConfig struct {
	HTTPConfig `yaml:",inline"`

	// BaseURL is the embedding service base URL (default http://localhost:11434).
	BaseURL string `json:"base_url" yaml:"base_url"`

	// Model is the embedding model name (default "nomic-embed-text").
	Model string `json:"model" yaml:"model"`

	// BatchSize is the maximum number of texts per batch call (default 16).
	BatchSize int `json:"batch_size" yaml:"batch_size"`

	// BatchTimeout is the HTTP timeout for batch calls; zero falls back
	// to Timeout.
	BatchTimeout time.Duration `json:"batch_timeout" yaml:"batch_timeout"`

	// MinInterval is the minimum spacing between service calls (default 100ms).
	MinInterval time.Duration `json:"min_interval" yaml:"min_interval"`

	// MaxBackoff caps the exponential retry delay (default 30s).
	MaxBackoff time.Duration `json:"max_backoff" yaml:"max_backoff"`

	// MinDimensions is the smallest acceptable vector length (default 64).
	MinDimensions int `json:"min_dimensions" yaml:"min_dimensions"`

	// MaxChars truncates submitted text to this many characters (default 8000).
	MaxChars int `json:"max_chars" yaml:"max_chars"`
}

// StoreConfig holds settings for the vector store gateway.
type StoreConfig struct {
	// Path is the SQLite database file (default "knowledge/index/indicators.db").
	Path string `json:"path" yaml:"path"`

	// MaxRetries is the retry budget for transient storage errors (default 4).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// RetryBaseDelay is the starting backoff delay (default 50ms).
	RetryBaseDelay time.Duration `json:"retry_base_delay" yaml:"retry_base_delay"`
}

// IngestMode selects the embedding-failure policy during ingestion.
type IngestMode string

const (
	// ModeStrict aborts the whole run on the first embedding failure.
	ModeStrict IngestMode = "strict"

	// ModeSkip records failing document ids, omits them from the upsert,
	// and reports them in the final summary.
	ModeSkip IngestMode = "skip"
)

// IngestConfig holds settings for the ingestion pipeline.
type IngestConfig struct {
	// Mode is the embedding-failure policy (default skip).
	Mode IngestMode `json:"mode" yaml:"mode"`

	// NarrativeMaxChars caps the narrative summary extracted from a
	// project document (default 4000).
	NarrativeMaxChars int `json:"narrative_max_chars" yaml:"narrative_max_chars"`
}

// ResolverConfig holds settings for entity name resolution.
type ResolverConfig struct {
	// FuzzyThreshold is the minimum similarity ratio for a fuzzy match
	// to be accepted (default 0.85).
	FuzzyThreshold float64 `json:"fuzzy_threshold" yaml:"fuzzy_threshold"`
}

// EnrichConfig holds settings for DOI metadata enrichment.
type EnrichConfig struct {
	HTTPConfig `yaml:",inline"`

	// Email is sent to the metadata services for polite pool access.
	Email string `json:"email,omitempty" yaml:"email,omitempty"`

	// CacheSize bounds the enrichment response cache (default 512 entries).
	CacheSize int `json:"cache_size" yaml:"cache_size"`

	// CacheTTL expires cached responses (default 12h).
	CacheTTL time.Duration `json:"cache_ttl" yaml:"cache_ttl"`
}

// ToolsConfig holds settings for the retrieval tools.
type ToolsConfig struct {
	// MaxResults is the result count used when a caller does not ask for
	// a specific number (default 5). Requests are clamped to [1, 25].
	MaxResults int `json:"max_results" yaml:"max_results"`

	// MaxExportBytes caps formatted export output; longer output is
	// truncated with an explicit marker (default 60000).
	MaxExportBytes int `json:"max_export_bytes" yaml:"max_export_bytes"`

	// CallTimeout bounds the wall-clock time of a single tool call when
	// run through the worker pool (default 30s).
	CallTimeout time.Duration `json:"call_timeout" yaml:"call_timeout"`
}

// PipelineConfig groups all stage configurations.
type PipelineConfig struct {
	Embedding EmbeddingConfig `json:"embedding" yaml:"embedding"`
	Store     StoreConfig     `json:"store" yaml:"store"`
	Ingest    IngestConfig    `json:"ingest" yaml:"ingest"`
	Resolver  ResolverConfig  `json:"resolver" yaml:"resolver"`
	Enrich    EnrichConfig    `json:"enrich" yaml:"enrich"`
	Tools     ToolsConfig     `json:"tools" yaml:"tools"`
}
