// Package config provides the configuration schema, loader, and provider registry
// for the Elefante memory engine.
package config

// Config is the root configuration structure for Elefante.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader],
// then adjusted from environment variables via [ApplyEnvOverrides].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
	Providers ProvidersConfig `yaml:"providers"`
	Lock      LockConfig      `yaml:"lock"`
	Dedup     DedupConfig     `yaml:"dedup"`
	Decay     DecayConfig     `yaml:"decay"`
	Dispatch  DispatchConfig  `yaml:"dispatch"`
}

// LogLevel is the slog verbosity level name used throughout the ambient
// logging stack.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// IsValid reports whether l is one of the recognised level names.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true
	default:
		return false
	}
}

// ServerConfig holds process-level logging settings.
type ServerConfig struct {
	// LogLevel controls verbosity. Valid values: "debug", "info", "warn", "error".
	LogLevel LogLevel `yaml:"log_level"`

	// OwnerUserID is the entity id auto-linked to first-person memories
	// ("I prefer...", "my favorite...") via RELATES_TO, per spec.md §4.6.
	OwnerUserID string `yaml:"owner_user_id"`
}

// StoreConfig locates the on-disk vector and graph stores. Both default to
// subdirectories of DataDir when left empty.
type StoreConfig struct {
	// DataDir is the root directory for all local state: the sqvect
	// database, the nornicdb graph file, and the dashboard snapshot.
	DataDir string `yaml:"data_dir"`

	// VectorPath overrides the sqvect database file path.
	VectorPath string `yaml:"vector_path"`

	// GraphPath overrides the nornicdb graph file path.
	GraphPath string `yaml:"graph_path"`

	// AllowTestMemories disables the test-namespace ingestion guard
	// (spec.md §4.6 P-series invariant on NamespaceTest quarantine),
	// mirroring the ELEFANTE_ALLOW_TEST_MEMORIES environment variable.
	AllowTestMemories bool `yaml:"allow_test_memories"`
}

// ProvidersConfig declares which provider implementation to use for
// embeddings. Unlike the teacher's multi-stage pipeline, Elefante's only
// external provider dependency is the embedding model.
type ProvidersConfig struct {
	Embeddings ProviderEntry `yaml:"embeddings"`

	// EmbeddingsFallback optionally names a second embeddings provider tried
	// whenever a call to Embeddings fails or its circuit breaker is open
	// (e.g. ollama backing up openai).
	// Left empty, the primary is used with no fallback chain.
	EmbeddingsFallback ProviderEntry `yaml:"embeddings_fallback"`
}

// ProviderEntry is the common configuration block shared by all provider types.
// The Name field is used to look up the constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered provider implementation (e.g., "openai", "ollama").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	// Leave empty to use the provider's built-in default.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider (e.g., "text-embedding-3-small").
	Model string `yaml:"model"`

	// Dimensions is the embedding vector width. Must match the sqvect
	// collection's configured dimension.
	Dimensions int `yaml:"dimensions"`

	// Options holds provider-specific configuration values not covered by the
	// standard fields above. Values may be strings, numbers, booleans, or nested maps.
	Options map[string]any `yaml:"options"`
}

// LockConfig tunes the single-writer file lock of internal/lock, per
// spec.md §5.
type LockConfig struct {
	// TimeoutMS bounds how long Acquire waits for a contended lock before
	// returning a busy error.
	TimeoutMS int `yaml:"timeout_ms"`

	// StaleAfterMS is the age at which a lock file is considered abandoned
	// by a crashed holder and safe to steal.
	StaleAfterMS int `yaml:"stale_after_ms"`
}

// DedupConfig tunes the near-duplicate and canonical-identity thresholds
// used during ingestion (spec.md §4.6) and the refinery (§4.8).
type DedupConfig struct {
	// NearDuplicateThreshold is the minimum cosine similarity at which two
	// memories are linked as SIMILAR_TO candidates instead of independent.
	NearDuplicateThreshold float64 `yaml:"near_duplicate_threshold"`

	// ExactDuplicateThreshold is the minimum cosine similarity at which an
	// incoming memory is suppressed outright as a duplicate.
	ExactDuplicateThreshold float64 `yaml:"exact_duplicate_threshold"`
}

// DecayConfig tunes the temporal decay and conversation half-life scoring
// applied during retrieval (spec.md §4.7).
type DecayConfig struct {
	// HalfLifeHours is the time after which a memory's recency contribution
	// to ranking is halved.
	HalfLifeHours float64 `yaml:"half_life_hours"`

	// MinWeight floors the decay multiplier so very old memories are
	// down-ranked, never erased, from hybrid retrieval.
	MinWeight float64 `yaml:"min_weight"`
}

// DispatchConfig tunes the MCP tool dispatcher of internal/dispatcher, per
// spec.md §4.10.
type DispatchConfig struct {
	// SnapshotPath overrides where elefanteDashboardOpen writes the
	// dashboard snapshot document (spec.md §6.3).
	SnapshotPath string `yaml:"snapshot_path"`
}
