package orchestrator

import (
	"context"
	"errors"

	"github.com/jsubiabreIBM/Elefante-sub000/internal/observe"
	"github.com/jsubiabreIBM/Elefante-sub000/internal/resilience"
	"github.com/jsubiabreIBM/Elefante-sub000/pkg/elefante"
)

// guard runs fn through cb, translating a tripped breaker into a retryable
// elefante.KindStoreUnavailable error, so a flapping store degrades into a
// retry the way a busy lock (KindBusy from withWriteLock) does.
// Every non-nil outcome — breaker-open or a genuine backend failure — is
// counted against Metrics.StoreErrors, keyed by which store tripped it.
func guard(store string, cb *resilience.CircuitBreaker, fn func() error) error {
	err := cb.Execute(fn)
	if err == nil {
		return nil
	}
	if errors.Is(err, resilience.ErrCircuitOpen) {
		observe.DefaultMetrics().RecordStoreError(context.Background(), store, "circuit_open")
		return elefante.NewError(elefante.KindStoreUnavailable, "store circuit breaker open").WithRetry()
	}
	observe.DefaultMetrics().RecordStoreError(context.Background(), store, "store_unavailable")
	return err
}

// GuardedVectorStore wraps an elefante.VectorStore so that repeated
// failures trip a circuit breaker (internal/resilience), shedding load onto
// a fast KindStoreUnavailable response instead of letting every caller hang
// against a failing backend.
type GuardedVectorStore struct {
	inner elefante.VectorStore
	cb    *resilience.CircuitBreaker
}

// NewGuardedVectorStore wraps inner with a circuit breaker named for logging.
func NewGuardedVectorStore(inner elefante.VectorStore, cfg resilience.CircuitBreakerConfig) *GuardedVectorStore {
	if cfg.Name == "" {
		cfg.Name = "vector_store"
	}
	return &GuardedVectorStore{inner: inner, cb: resilience.NewCircuitBreaker(cfg)}
}

func (g *GuardedVectorStore) Add(ctx context.Context, mem *elefante.Memory) error {
	return guard("vector", g.cb, func() error { return g.inner.Add(ctx, mem) })
}

func (g *GuardedVectorStore) Get(ctx context.Context, id string) (*elefante.Memory, error) {
	var mem *elefante.Memory
	err := guard("vector", g.cb, func() error {
		var innerErr error
		mem, innerErr = g.inner.Get(ctx, id)
		return innerErr
	})
	return mem, err
}

func (g *GuardedVectorStore) Search(ctx context.Context, queryEmbedding []float32, opts elefante.SearchOptions) ([]elefante.ScoredMemory, error) {
	var results []elefante.ScoredMemory
	err := guard("vector", g.cb, func() error {
		var innerErr error
		results, innerErr = g.inner.Search(ctx, queryEmbedding, opts)
		return innerErr
	})
	return results, err
}

func (g *GuardedVectorStore) Update(ctx context.Context, id string, patch elefante.MemoryPatch) error {
	return guard("vector", g.cb, func() error { return g.inner.Update(ctx, id, patch) })
}

func (g *GuardedVectorStore) Replace(ctx context.Context, mem *elefante.Memory) error {
	return guard("vector", g.cb, func() error { return g.inner.Replace(ctx, mem) })
}

func (g *GuardedVectorStore) Delete(ctx context.Context, id string) (bool, error) {
	var ok bool
	err := guard("vector", g.cb, func() error {
		var innerErr error
		ok, innerErr = g.inner.Delete(ctx, id)
		return innerErr
	})
	return ok, err
}

func (g *GuardedVectorStore) GetAll(ctx context.Context, limit, offset int, filters elefante.MemoryFilter) ([]*elefante.Memory, error) {
	var mems []*elefante.Memory
	err := guard("vector", g.cb, func() error {
		var innerErr error
		mems, innerErr = g.inner.GetAll(ctx, limit, offset, filters)
		return innerErr
	})
	return mems, err
}

func (g *GuardedVectorStore) FindByTitle(ctx context.Context, title string) (*elefante.Memory, error) {
	var mem *elefante.Memory
	err := guard("vector", g.cb, func() error {
		var innerErr error
		mem, innerErr = g.inner.FindByTitle(ctx, title)
		return innerErr
	})
	return mem, err
}

func (g *GuardedVectorStore) Stats(ctx context.Context) (elefante.VectorStats, error) {
	var stats elefante.VectorStats
	err := guard("vector", g.cb, func() error {
		var innerErr error
		stats, innerErr = g.inner.Stats(ctx)
		return innerErr
	})
	return stats, err
}

// GuardedGraphStore is GuardedVectorStore's counterpart for elefante.GraphStore.
type GuardedGraphStore struct {
	inner elefante.GraphStore
	cb    *resilience.CircuitBreaker
}

// NewGuardedGraphStore wraps inner with a circuit breaker named for logging.
func NewGuardedGraphStore(inner elefante.GraphStore, cfg resilience.CircuitBreakerConfig) *GuardedGraphStore {
	if cfg.Name == "" {
		cfg.Name = "graph_store"
	}
	return &GuardedGraphStore{inner: inner, cb: resilience.NewCircuitBreaker(cfg)}
}

func (g *GuardedGraphStore) InitSchema(ctx context.Context) error {
	return guard("graph", g.cb, func() error { return g.inner.InitSchema(ctx) })
}

func (g *GuardedGraphStore) CreateEntity(ctx context.Context, e *elefante.Entity) error {
	return guard("graph", g.cb, func() error { return g.inner.CreateEntity(ctx, e) })
}

func (g *GuardedGraphStore) CreateRelationship(ctx context.Context, rel *elefante.Relationship) error {
	return guard("graph", g.cb, func() error { return g.inner.CreateRelationship(ctx, rel) })
}

func (g *GuardedGraphStore) GetEntity(ctx context.Context, id string) (*elefante.Entity, error) {
	var e *elefante.Entity
	err := guard("graph", g.cb, func() error {
		var innerErr error
		e, innerErr = g.inner.GetEntity(ctx, id)
		return innerErr
	})
	return e, err
}

func (g *GuardedGraphStore) FindEntityByName(ctx context.Context, name string) (*elefante.Entity, error) {
	var e *elefante.Entity
	err := guard("graph", g.cb, func() error {
		var innerErr error
		e, innerErr = g.inner.FindEntityByName(ctx, name)
		return innerErr
	})
	return e, err
}

func (g *GuardedGraphStore) GetNeighbors(ctx context.Context, id string, depth int) ([]*elefante.Entity, []*elefante.Relationship, error) {
	var entities []*elefante.Entity
	var rels []*elefante.Relationship
	err := guard("graph", g.cb, func() error {
		var innerErr error
		entities, rels, innerErr = g.inner.GetNeighbors(ctx, id, depth)
		return innerErr
	})
	return entities, rels, err
}

func (g *GuardedGraphStore) FindPath(ctx context.Context, from, to string, maxDepth int) ([][]string, error) {
	var paths [][]string
	err := guard("graph", g.cb, func() error {
		var innerErr error
		paths, innerErr = g.inner.FindPath(ctx, from, to, maxDepth)
		return innerErr
	})
	return paths, err
}

func (g *GuardedGraphStore) Execute(ctx context.Context, query string, params map[string]any) (elefante.QueryResult, error) {
	var result elefante.QueryResult
	err := guard("graph", g.cb, func() error {
		var innerErr error
		result, innerErr = g.inner.Execute(ctx, query, params)
		return innerErr
	})
	return result, err
}

func (g *GuardedGraphStore) DeleteEntity(ctx context.Context, id string) error {
	return guard("graph", g.cb, func() error { return g.inner.DeleteEntity(ctx, id) })
}

func (g *GuardedGraphStore) Stats(ctx context.Context) (elefante.GraphStats, error) {
	var stats elefante.GraphStats
	err := guard("graph", g.cb, func() error {
		var innerErr error
		stats, innerErr = g.inner.Stats(ctx)
		return innerErr
	})
	return stats, err
}
