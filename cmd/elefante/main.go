// Command elefante is the main entry point for the Elefante local memory
// engine's MCP server (spec.md §6.1).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	nornicdb "github.com/orneryd/nornicdb/pkg/nornicdb"

	"github.com/jsubiabreIBM/Elefante-sub000/internal/config"
	"github.com/jsubiabreIBM/Elefante-sub000/internal/dispatcher"
	"github.com/jsubiabreIBM/Elefante-sub000/internal/embedding"
	"github.com/jsubiabreIBM/Elefante-sub000/internal/graphstore/nornic"
	"github.com/jsubiabreIBM/Elefante-sub000/internal/health"
	"github.com/jsubiabreIBM/Elefante-sub000/internal/lock"
	"github.com/jsubiabreIBM/Elefante-sub000/internal/observe"
	"github.com/jsubiabreIBM/Elefante-sub000/internal/orchestrator"
	"github.com/jsubiabreIBM/Elefante-sub000/internal/resilience"
	"github.com/jsubiabreIBM/Elefante-sub000/internal/snapshot"
	"github.com/jsubiabreIBM/Elefante-sub000/internal/vectorstore/sqvect"
	"github.com/jsubiabreIBM/Elefante-sub000/pkg/provider/embeddings"
	"github.com/jsubiabreIBM/Elefante-sub000/pkg/provider/embeddings/ollama"
	"github.com/jsubiabreIBM/Elefante-sub000/pkg/provider/embeddings/openai"
)

const healthcheckTimeout = 5 * time.Second

// version is reported in telemetry resource attributes; overridden at build
// time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", envOr("ELEFANTE_CONFIG_PATH", "elefante.yaml"), "path to the YAML configuration file")
	healthcheck := flag.Bool("healthcheck", false, "run store readiness checks and exit (for container HEALTHCHECK probes)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "elefante: config file %q not found\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "elefante: %v\n", err)
		}
		return 1
	}
	config.ApplyEnvOverrides(cfg)

	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("elefante starting", "config", *configPath, "data_dir", cfg.Store.DataDir, "log_level", cfg.Server.LogLevel)

	shutdownObserve, err := observe.InitProvider(context.Background(), observe.ProviderConfig{ServiceName: "elefante", ServiceVersion: version})
	if err != nil {
		slog.Error("failed to initialize observability providers", "err", err)
		return 1
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), healthcheckTimeout)
		defer cancel()
		if err := shutdownObserve(ctx); err != nil {
			slog.Error("failed to shut down observability providers", "err", err)
		}
	}()

	vectorPath := cfg.Store.VectorPath
	if vectorPath == "" {
		vectorPath = filepath.Join(cfg.Store.DataDir, "vectors.db")
	}
	graphPath := cfg.Store.GraphPath
	if graphPath == "" {
		graphPath = filepath.Join(cfg.Store.DataDir, "graph")
	}

	embedProvider, err := buildEmbeddingsProvider(cfg)
	if err != nil {
		slog.Error("failed to build embeddings provider", "err", err)
		return 1
	}
	if cfg.Providers.EmbeddingsFallback.Name != "" {
		fallback, err := buildEmbeddingsProviderFrom(cfg.Providers.EmbeddingsFallback)
		if err != nil {
			slog.Error("failed to build fallback embeddings provider", "err", err)
			return 1
		}
		embedProvider = embedding.NewFallbackProvider(embedProvider, cfg.Providers.Embeddings.Name,
			resilience.FallbackConfig{CircuitBreaker: resilience.CircuitBreakerConfig{MaxFailures: 3, ResetTimeout: 30 * time.Second}},
			embedding.NamedProvider(cfg.Providers.EmbeddingsFallback.Name, fallback))
		slog.Info("embeddings fallback chain configured", "primary", cfg.Providers.Embeddings.Name, "fallback", cfg.Providers.EmbeddingsFallback.Name)
	}

	dimensions := cfg.Providers.Embeddings.Dimensions
	if dimensions <= 0 {
		dimensions = embedProvider.Dimensions()
	}

	vectorStore, err := sqvect.Open(vectorPath, dimensions)
	if err != nil {
		slog.Error("failed to open vector store", "err", err, "path", vectorPath)
		return 1
	}

	graphStore, err := nornic.Open(graphPath, nornicdb.DefaultConfig())
	if err != nil {
		slog.Error("failed to open graph store", "err", err, "path", graphPath)
		return 1
	}

	if err := graphStore.InitSchema(context.Background()); err != nil {
		slog.Error("failed to initialize graph schema", "err", err)
		return 1
	}

	guardedVector := orchestrator.NewGuardedVectorStore(vectorStore, resilience.CircuitBreakerConfig{Name: "vector_store"})
	guardedGraph := orchestrator.NewGuardedGraphStore(graphStore, resilience.CircuitBreakerConfig{Name: "graph_store"})

	healthChecker := health.New(
		health.Checker{Name: "vector_store", Check: func(ctx context.Context) error {
			_, err := vectorStore.Stats(ctx)
			return err
		}},
		health.Checker{Name: "graph_store", Check: func(ctx context.Context) error {
			_, err := graphStore.Stats(ctx)
			return err
		}},
	)

	if *healthcheck {
		return runHealthcheck(healthChecker)
	}

	embedFacade := embedding.New(embedProvider, embedding.DefaultCacheSize)
	lockManager := lock.New(filepath.Join(cfg.Store.DataDir, "elefante.lock"), lockStaleThreshold(cfg), logger)

	orcCfg := orchestrator.NewConfig()
	orcCfg.OwnerUserID = cfg.Server.OwnerUserID
	orcCfg.AllowTestMemories = cfg.Store.AllowTestMemories
	orcCfg.DedupThreshold = cfg.Dedup.NearDuplicateThreshold
	orcCfg.ReinforceThreshold = cfg.Dedup.ExactDuplicateThreshold
	orcCfg.LockTimeout = time.Duration(cfg.Lock.TimeoutMS) * time.Millisecond
	orcCfg.StaleThreshold = lockStaleThreshold(cfg)

	orc := orchestrator.New(guardedVector, guardedGraph, embedFacade, lockManager, orcCfg, logger)

	snapshotPath := cfg.Dispatch.SnapshotPath
	if snapshotPath == "" {
		snapshotPath = filepath.Join(cfg.Store.DataDir, "dashboard", "snapshot.json")
	}
	snap := snapshot.New(guardedGraph, guardedVector, snapshotPath)

	disp := dispatcher.New(orc, snap, logger)
	server := disp.NewServer()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("elefante ready — serving MCP over stdio")
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("mcp server error", "err", err)
		return 1
	}

	slog.Info("goodbye")
	return 0
}

// runHealthcheck runs every registered health check synchronously and
// reports the aggregate readiness as a process exit code, for use in
// container HEALTHCHECK directives (internal/health.Handler serves the
// same checks over HTTP for orchestrators that prefer polling).
func runHealthcheck(h *health.Handler) int {
	ctx, cancel := context.WithTimeout(context.Background(), healthcheckTimeout)
	defer cancel()
	if err := h.CheckAll(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "elefante: unhealthy: %v\n", err)
		return 1
	}
	fmt.Println("elefante: healthy")
	return 0
}

func buildEmbeddingsProvider(cfg *config.Config) (embeddings.Provider, error) {
	return buildEmbeddingsProviderFrom(cfg.Providers.Embeddings)
}

func buildEmbeddingsProviderFrom(entry config.ProviderEntry) (embeddings.Provider, error) {
	switch entry.Name {
	case "openai":
		return openai.New(entry.APIKey, entry.Model)
	case "ollama":
		return ollama.New(entry.BaseURL, entry.Model)
	default:
		return nil, fmt.Errorf("elefante: unsupported embeddings provider %q (configure providers.embeddings.name)", entry.Name)
	}
}

func lockStaleThreshold(cfg *config.Config) time.Duration {
	return time.Duration(cfg.Lock.StaleAfterMS) * time.Millisecond
}

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogLevelDebug:
		lvl = slog.LevelDebug
	case config.LogLevelWarn:
		lvl = slog.LevelWarn
	case config.LogLevelError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
