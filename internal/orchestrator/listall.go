package orchestrator

import (
	"context"

	"github.com/jsubiabreIBM/Elefante-sub000/pkg/elefante"
)

// ListMemories implements elefanteMemoryListAll: a lock-free paginated scan
// of the vector store (spec.md §6.2). Reads never take the write lock
// (spec.md §5).
func (o *Orchestrator) ListMemories(ctx context.Context, limit, offset int, filters elefante.MemoryFilter) ([]*elefante.Memory, error) {
	if limit <= 0 {
		limit = 20
	}
	memories, err := o.vector.GetAll(ctx, limit, offset, filters)
	if err != nil {
		return nil, elefante.Wrap(elefante.KindStoreUnavailable, err, "list memories")
	}
	return memories, nil
}
