package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"embeddings": {"openai", "ollama"},
}

// defaults mirror the zero-config behavior documented in spec.md §6.2's
// environment variable table.
const (
	defaultLockTimeoutMS           = 10000
	defaultLockStaleAfterMS        = 30000
	defaultNearDuplicateThreshold  = 0.85
	defaultExactDuplicateThreshold = 0.95
	defaultHalfLifeHours           = 168 // one week
	defaultMinWeight               = 0.1
)

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults, and
// validates the result. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills zero-valued tunables with the defaults described in
// spec.md, so a minimal or absent config file still produces a workable
// engine — the ELEFANTE_* environment variables documented in spec.md §6.2
// layer on top of this via [ApplyEnvOverrides].
func applyDefaults(cfg *Config) {
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogLevelInfo
	}
	if cfg.Store.DataDir == "" {
		cfg.Store.DataDir = "./elefante-data"
	}
	if cfg.Lock.TimeoutMS <= 0 {
		cfg.Lock.TimeoutMS = defaultLockTimeoutMS
	}
	if cfg.Lock.StaleAfterMS <= 0 {
		cfg.Lock.StaleAfterMS = defaultLockStaleAfterMS
	}
	if cfg.Dedup.NearDuplicateThreshold <= 0 {
		cfg.Dedup.NearDuplicateThreshold = defaultNearDuplicateThreshold
	}
	if cfg.Dedup.ExactDuplicateThreshold <= 0 {
		cfg.Dedup.ExactDuplicateThreshold = defaultExactDuplicateThreshold
	}
	if cfg.Decay.HalfLifeHours <= 0 {
		cfg.Decay.HalfLifeHours = defaultHalfLifeHours
	}
	if cfg.Decay.MinWeight <= 0 {
		cfg.Decay.MinWeight = defaultMinWeight
	}
}

// ApplyEnvOverrides layers the ELEFANTE_* environment variables documented
// in spec.md §6.2 on top of an already-loaded config, giving operators a way
// to override the data directory and log level without editing YAML.
func ApplyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ELEFANTE_DATA_DIR"); v != "" {
		cfg.Store.DataDir = v
	}
	if v := os.Getenv("ELEFANTE_LOG_LEVEL"); v != "" {
		cfg.Server.LogLevel = LogLevel(v)
	}
	if v := os.Getenv("ELEFANTE_ALLOW_TEST_MEMORIES"); v == "1" || v == "true" {
		cfg.Store.AllowTestMemories = true
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	validateProviderName("embeddings", cfg.Providers.Embeddings.Name)

	if cfg.Providers.Embeddings.Name == "" {
		slog.Warn("no embeddings provider configured; ingestion and search will fail until one is set")
	}
	if cfg.Providers.Embeddings.Dimensions < 0 {
		errs = append(errs, fmt.Errorf("providers.embeddings.dimensions must be non-negative"))
	}

	if cfg.Dedup.NearDuplicateThreshold < 0 || cfg.Dedup.NearDuplicateThreshold > 1 {
		errs = append(errs, fmt.Errorf("dedup.near_duplicate_threshold %.2f is out of range [0, 1]", cfg.Dedup.NearDuplicateThreshold))
	}
	if cfg.Dedup.ExactDuplicateThreshold < 0 || cfg.Dedup.ExactDuplicateThreshold > 1 {
		errs = append(errs, fmt.Errorf("dedup.exact_duplicate_threshold %.2f is out of range [0, 1]", cfg.Dedup.ExactDuplicateThreshold))
	}
	if cfg.Dedup.ExactDuplicateThreshold < cfg.Dedup.NearDuplicateThreshold {
		errs = append(errs, fmt.Errorf("dedup.exact_duplicate_threshold must be >= dedup.near_duplicate_threshold"))
	}

	if cfg.Decay.MinWeight < 0 || cfg.Decay.MinWeight > 1 {
		errs = append(errs, fmt.Errorf("decay.min_weight %.2f is out of range [0, 1]", cfg.Decay.MinWeight))
	}
	if cfg.Lock.TimeoutMS < 0 {
		errs = append(errs, fmt.Errorf("lock.timeout_ms must be non-negative"))
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
