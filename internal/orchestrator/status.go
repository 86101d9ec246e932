package orchestrator

import (
	"context"

	"github.com/jsubiabreIBM/Elefante-sub000/internal/lock"
	"github.com/jsubiabreIBM/Elefante-sub000/pkg/elefante"
)

// SystemStatus is the {mode, lock status, store stats} shape returned by
// elefanteSystemStatusGet (spec.md §6.2).
type SystemStatus struct {
	Mode  string
	Lock  lock.Status
	Vector elefante.VectorStats
	Graph  elefante.GraphStats
}

// Status implements elefanteSystemStatusGet. It never acquires the write
// lock: store Stats calls are read-only and lock.Manager.Status inspects the
// lock file without blocking.
func (o *Orchestrator) Status(ctx context.Context) (*SystemStatus, error) {
	vectorStats, err := o.vector.Stats(ctx)
	if err != nil {
		return nil, elefante.Wrap(elefante.KindStoreUnavailable, err, "vector store stats")
	}
	graphStats, err := o.graph.Stats(ctx)
	if err != nil {
		return nil, elefante.Wrap(elefante.KindStoreUnavailable, err, "graph store stats")
	}
	return &SystemStatus{
		Mode:   "active",
		Lock:   o.locks.Status(),
		Vector: vectorStats,
		Graph:  graphStats,
	}, nil
}
