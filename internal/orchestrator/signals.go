package orchestrator

import (
	"context"
	"fmt"

	"github.com/jsubiabreIBM/Elefante-sub000/pkg/elefante"
)

// connectSignalHubs maintains the auxiliary signal:topic:<topic> and
// signal:ring:<ring> hub nodes described in SPEC_FULL.md §12, grounded on
// src/dashboard/graph_service.py and scripts/update_dashboard_data.py in
// original_source/: the external dashboard renders the graph snapshot
// (spec.md §6.3) and needs every memory reachable from some shared node, not
// just the pairs the refinery happens to supersede. Hub nodes are
// EntityCustom entities; membership edges are RelCustom with a "signal"
// properties tag so a reader of the graph (or of dumped Cypher) can tell a
// cohesion edge from an ordinary relationship at a glance.
//
// This is a deterministic side effect of the refinery pass (§4.8), not a
// separate write path: it runs once per scanned memory under the same write
// lock the refinery already holds.
func (o *Orchestrator) connectSignalHubs(ctx context.Context, mem *elefante.Memory) error {
	if mem.Topic != "" {
		hubID := "signal:topic:" + mem.Topic
		if err := o.ensureEntity(ctx, hubID, mem.Topic, elefante.EntityCustom); err != nil {
			return fmt.Errorf("ensure topic hub %q: %w", hubID, err)
		}
		if err := o.linkToHub(ctx, mem.ID, hubID); err != nil {
			return fmt.Errorf("link memory %s to topic hub: %w", mem.ID, err)
		}
	}

	if mem.Ring != "" {
		hubID := "signal:ring:" + string(mem.Ring)
		if err := o.ensureEntity(ctx, hubID, string(mem.Ring), elefante.EntityCustom); err != nil {
			return fmt.Errorf("ensure ring hub %q: %w", hubID, err)
		}
		if err := o.linkToHub(ctx, mem.ID, hubID); err != nil {
			return fmt.Errorf("link memory %s to ring hub: %w", mem.ID, err)
		}
	}

	return nil
}

// linkToHub creates the memory-to-hub cohesion edge unless it already exists.
// The existence check loads the hub's depth-1 neighbors, i.e. every memory
// already linked to that hub.
func (o *Orchestrator) linkToHub(ctx context.Context, memID, hubID string) error {
	neighbors, _, err := o.graph.GetNeighbors(ctx, hubID, 1)
	if err != nil {
		return err
	}
	for _, n := range neighbors {
		if n.ID == memID {
			return nil
		}
	}
	return o.graph.CreateRelationship(ctx, &elefante.Relationship{
		FromEntityID: memID,
		ToEntityID:   hubID,
		Type:         elefante.RelCustom,
		Properties:   map[string]elefante.MetaValue{"signal": elefante.StringValue("cohesion")},
	})
}
