package orchestrator

import (
	"context"

	"github.com/jsubiabreIBM/Elefante-sub000/pkg/elefante"
)

// ContextResult is the {memories, entities, relationships} shape returned by
// elefanteContextGet (spec.md §6.2).
type ContextResult struct {
	Memories      []*elefante.Memory
	Entities      []*elefante.Entity
	Relationships []*elefante.Relationship
}

// GetContext implements elefanteContextGet: it expands the graph neighborhood
// of the session entity identified by sessionID out to depth hops and
// reconstructs the full Memory for every neighbor of type EntityMemory.
func (o *Orchestrator) GetContext(ctx context.Context, sessionID string, depth int) (*ContextResult, error) {
	if sessionID == "" {
		return nil, elefante.NewError(elefante.KindInvalidInput, "session_id must not be empty")
	}
	if depth <= 0 {
		depth = 1
	}

	session, err := o.graph.GetEntity(ctx, sessionID)
	if err != nil {
		return nil, elefante.Wrap(elefante.KindStoreUnavailable, err, "fetch session entity %s", sessionID)
	}
	if session == nil {
		return &ContextResult{}, nil
	}

	neighbors, rels, err := o.graph.GetNeighbors(ctx, sessionID, depth)
	if err != nil {
		return nil, elefante.Wrap(elefante.KindStoreUnavailable, err, "expand session neighborhood %s", sessionID)
	}

	result := &ContextResult{Entities: neighbors, Relationships: rels}
	for _, n := range neighbors {
		if n.Type != elefante.EntityMemory {
			continue
		}
		mem, err := o.vector.Get(ctx, n.ID)
		if err != nil || mem == nil {
			continue
		}
		result.Memories = append(result.Memories, mem)
	}
	return result, nil
}
