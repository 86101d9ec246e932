// Package orchestrator implements the memory engine's core workflows: the
// ingestion pipeline (spec.md §4.6), hybrid retrieval (§4.7), the
// deterministic refinery (§4.8), and the agent-driven ETL loop (§4.9). It is
// the sole caller of elefante.VectorStore and elefante.GraphStore — no other
// package reaches the adapters directly.
package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jsubiabreIBM/Elefante-sub000/internal/embedding"
	"github.com/jsubiabreIBM/Elefante-sub000/internal/lock"
	"github.com/jsubiabreIBM/Elefante-sub000/internal/observe"
	"github.com/jsubiabreIBM/Elefante-sub000/pkg/elefante"
)

// Config holds the orchestrator's tunable parameters, all of which have
// spec-mandated defaults (see NewConfig).
type Config struct {
	// OwnerUserID identifies the configured user entity that first-person
	// content auto-links to (spec.md §4.6 step 8).
	OwnerUserID string

	// AllowTestMemories mirrors the ELEFANTE_ALLOW_TEST_MEMORIES environment
	// flag: when false, namespace=test memories are quarantined (AddMemory
	// returns a KindCapabilityDisabled error) rather than persisted.
	AllowTestMemories bool

	// ReinforceThreshold and RelatedThreshold are the dedup-probe cutoffs
	// from spec.md §4.6 step 5 (0.95 and 0.80 respectively).
	ReinforceThreshold float64
	RelatedThreshold   float64

	// DedupThreshold is the cosine-similarity cutoff used by the hybrid
	// retrieval deduplication pass (spec.md §4.7.2, default 0.95).
	DedupThreshold float64

	// ConversationWindow bounds how many recent conversation memories the
	// conversation collector considers (spec.md §4.7.1, default 50).
	ConversationWindow int

	// LockTimeout and StaleThreshold parameterize the write lock acquired
	// around every mutating operation (spec.md §5).
	LockTimeout    time.Duration
	StaleThreshold time.Duration

	// ETLMaxRetries bounds how many times etl_classify may fail validation
	// for a given memory before it is promoted to processing_status=failed
	// instead of being handed back for another attempt (spec.md §4.9).
	ETLMaxRetries int
}

// NewConfig returns a Config populated with spec.md's documented defaults.
func NewConfig() Config {
	return Config{
		ReinforceThreshold: 0.95,
		RelatedThreshold:   0.80,
		DedupThreshold:     0.95,
		ConversationWindow: 50,
		LockTimeout:        lock.DefaultLockTimeout,
		StaleThreshold:     lock.DefaultStaleThreshold,
		ETLMaxRetries:      3,
	}
}

// Orchestrator wires the Vector Store Adapter, the Graph Store Adapter, the
// Embedding Facade, and the Lock Manager into the workflows described by
// spec.md §4.6–§4.9. A single Orchestrator is shared by every tool
// dispatcher call within a process.
type Orchestrator struct {
	vector  elefante.VectorStore
	graph   elefante.GraphStore
	embed   *embedding.Facade
	locks   *lock.Manager
	logger  *slog.Logger
	cfg     Config
	metrics *observe.Metrics
}

// New constructs an Orchestrator. logger defaults to slog.Default() when nil.
// Metrics are recorded against observe.DefaultMetrics(), the package-level
// instrument set bound to whichever MeterProvider observe.InitProvider (or
// the OTel default no-op) has registered globally.
func New(vector elefante.VectorStore, graph elefante.GraphStore, embed *embedding.Facade, locks *lock.Manager, cfg Config, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{vector: vector, graph: graph, embed: embed, locks: locks, cfg: cfg, logger: logger, metrics: observe.DefaultMetrics()}
}

// withWriteLock acquires the write lock for the duration of fn, translating
// a lock timeout into a retryable elefante.KindBusy error (spec.md §4.10).
// The time spent waiting to acquire the lock is recorded to
// Metrics.LockWaitDuration; a timeout additionally increments Metrics.LockBusy.
func (o *Orchestrator) withWriteLock(ctx context.Context, fn func(ctx context.Context) error) error {
	waitStart := time.Now()
	l, err := o.locks.Acquire(ctx, o.cfg.LockTimeout)
	o.metrics.LockWaitDuration.Record(ctx, time.Since(waitStart).Seconds())
	if err != nil {
		if err == lock.ErrBusy {
			o.metrics.LockBusy.Add(ctx, 1)
			return elefante.NewError(elefante.KindBusy, "write lock not acquired within %s", o.cfg.LockTimeout).WithRetry()
		}
		return elefante.Wrap(elefante.KindStoreUnavailable, err, "acquire write lock")
	}
	defer func() {
		if relErr := l.Release(); relErr != nil {
			o.logger.Error("orchestrator: failed to release write lock", "error", relErr)
		}
	}()
	return fn(ctx)
}

func newMemoryID() string {
	return uuid.NewString()
}
