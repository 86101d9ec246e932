package config_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jsubiabreIBM/Elefante-sub000/internal/config"
	"github.com/jsubiabreIBM/Elefante-sub000/pkg/provider/embeddings"
)

func TestLoadFromReader_ValidConfig(t *testing.T) {
	yamlInput := `
server:
  log_level: debug
  owner_user_id: jane
store:
  data_dir: /var/lib/elefante
providers:
  embeddings:
    name: openai
    model: text-embedding-3-small
    dimensions: 1536
dedup:
  near_duplicate_threshold: 0.8
  exact_duplicate_threshold: 0.95
`
	cfg, err := config.LoadFromReader(strings.NewReader(yamlInput))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Server.LogLevel != config.LogLevelDebug {
		t.Errorf("log_level: got %q, want debug", cfg.Server.LogLevel)
	}
	if cfg.Store.DataDir != "/var/lib/elefante" {
		t.Errorf("data_dir: got %q", cfg.Store.DataDir)
	}
	if cfg.Providers.Embeddings.Dimensions != 1536 {
		t.Errorf("dimensions: got %d, want 1536", cfg.Providers.Embeddings.Dimensions)
	}
}

func TestLoadFromReader_DefaultsApplied(t *testing.T) {
	cfg, err := config.LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Server.LogLevel != config.LogLevelInfo {
		t.Errorf("expected default log_level=info, got %q", cfg.Server.LogLevel)
	}
	if cfg.Lock.TimeoutMS == 0 {
		t.Error("expected a non-zero default lock.timeout_ms")
	}
	if cfg.Dedup.ExactDuplicateThreshold <= cfg.Dedup.NearDuplicateThreshold {
		t.Error("expected exact threshold default to exceed near threshold default")
	}
}

func TestLoadFromReader_UnknownField(t *testing.T) {
	_, err := config.LoadFromReader(strings.NewReader("server:\n  bogus_field: 1\n"))
	if err == nil {
		t.Fatal("expected an error for an unknown field")
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	_, err := config.LoadFromReader(strings.NewReader("server:\n  log_level: verbose\n"))
	if err == nil {
		t.Fatal("expected validation error for invalid log_level")
	}
}

func TestValidate_DedupThresholdOrdering(t *testing.T) {
	yamlInput := `
dedup:
  near_duplicate_threshold: 0.9
  exact_duplicate_threshold: 0.5
`
	_, err := config.LoadFromReader(strings.NewReader(yamlInput))
	if err == nil {
		t.Fatal("expected validation error when exact threshold < near threshold")
	}
}

func TestValidate_DedupThresholdOutOfRange(t *testing.T) {
	yamlInput := `
dedup:
  near_duplicate_threshold: 1.5
`
	_, err := config.LoadFromReader(strings.NewReader(yamlInput))
	if err == nil {
		t.Fatal("expected validation error for out-of-range threshold")
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("ELEFANTE_DATA_DIR", "/tmp/elefante-override")
	t.Setenv("ELEFANTE_LOG_LEVEL", "warn")
	t.Setenv("ELEFANTE_ALLOW_TEST_MEMORIES", "true")

	cfg, err := config.LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	config.ApplyEnvOverrides(cfg)

	if cfg.Store.DataDir != "/tmp/elefante-override" {
		t.Errorf("data_dir: got %q", cfg.Store.DataDir)
	}
	if cfg.Server.LogLevel != "warn" {
		t.Errorf("log_level: got %q", cfg.Server.LogLevel)
	}
	if !cfg.Store.AllowTestMemories {
		t.Error("expected AllowTestMemories=true")
	}
}

func TestRegistry_UnknownEmbeddings(t *testing.T) {
	reg := config.NewRegistry()
	_, err := reg.CreateEmbeddings(config.ProviderEntry{Name: "nonexistent"})
	if !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Fatalf("expected ErrProviderNotRegistered, got %v", err)
	}
}

func TestRegistry_RegisteredEmbeddings(t *testing.T) {
	reg := config.NewRegistry()
	want := &stubEmbeddings{}
	reg.RegisterEmbeddings("stub", func(e config.ProviderEntry) (embeddings.Provider, error) {
		return want, nil
	})
	got, err := reg.CreateEmbeddings(config.ProviderEntry{Name: "stub"})
	if err != nil {
		t.Fatalf("CreateEmbeddings: %v", err)
	}
	if got != want {
		t.Error("expected the registered factory's instance to be returned")
	}
}

// stubEmbeddings implements embeddings.Provider.
type stubEmbeddings struct{}

func (s *stubEmbeddings) Embed(_ context.Context, _ string) ([]float32, error) { return nil, nil }
func (s *stubEmbeddings) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	return make([][]float32, len(texts)), nil
}
func (s *stubEmbeddings) Dimensions() int  { return 0 }
func (s *stubEmbeddings) ModelID() string { return "stub" }
