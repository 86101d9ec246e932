package orchestrator

import (
	"context"
	"fmt"

	"github.com/jsubiabreIBM/Elefante-sub000/pkg/elefante"
)

// CreateEntity upserts a graph node under the write lock, implementing
// elefanteGraphEntityCreate (spec.md §6.2).
func (o *Orchestrator) CreateEntity(ctx context.Context, e *elefante.Entity) error {
	if e.ID == "" || e.Name == "" {
		return elefante.NewError(elefante.KindInvalidInput, "entity id and name are required")
	}
	return o.withWriteLock(ctx, func(ctx context.Context) error {
		if err := o.graph.CreateEntity(ctx, e); err != nil {
			return elefante.Wrap(elefante.KindStoreUnavailable, err, "create entity %s", e.ID)
		}
		return nil
	})
}

// CreateRelationship upserts a directed edge under the write lock,
// implementing elefanteGraphRelationshipCreate (spec.md §6.2).
func (o *Orchestrator) CreateRelationship(ctx context.Context, rel *elefante.Relationship) error {
	if rel.FromEntityID == "" || rel.ToEntityID == "" {
		return elefante.NewError(elefante.KindInvalidInput, "relationship from_entity_id and to_entity_id are required")
	}
	return o.withWriteLock(ctx, func(ctx context.Context) error {
		if err := o.graph.CreateRelationship(ctx, rel); err != nil {
			return elefante.Wrap(elefante.KindStoreUnavailable, err, "create relationship %s->%s", rel.FromEntityID, rel.ToEntityID)
		}
		return nil
	})
}

// ConnectEntityInput is one node in a ConnectGraph call. Ref is a
// caller-chosen local identifier (not persisted) that ConnectRelationshipInput
// uses to refer to entities created earlier in the same call, so the caller
// never has to invent ids up front.
type ConnectEntityInput struct {
	Ref  string
	ID   string
	Name string
	Type elefante.EntityType
}

// ConnectRelationshipInput links two entities by Ref (resolved against this
// call's ConnectEntityInput.Ref values) or, if FromID/ToID are set directly,
// by persisted entity id.
type ConnectRelationshipInput struct {
	FromRef string
	ToRef   string
	FromID  string
	ToID    string
	Type    elefante.RelationshipType
}

// ConnectResult reports the entity ids resolved for each input ref, in the
// same order as the request's Entities slice.
type ConnectResult struct {
	EntityIDs []string
}

// ConnectGraph implements elefanteGraphConnect: an atomic (single lock
// window) upsert of a batch of entities followed by the relationships that
// reference them via client-chosen refs (spec.md §6.2).
func (o *Orchestrator) ConnectGraph(ctx context.Context, entities []ConnectEntityInput, relationships []ConnectRelationshipInput) (*ConnectResult, error) {
	result := &ConnectResult{}
	err := o.withWriteLock(ctx, func(ctx context.Context) error {
		refToID := make(map[string]string, len(entities))
		for _, e := range entities {
			if e.ID == "" || e.Name == "" {
				return elefante.NewError(elefante.KindInvalidInput, "entity ref %q missing id or name", e.Ref)
			}
			if err := o.graph.CreateEntity(ctx, &elefante.Entity{ID: e.ID, Name: e.Name, Type: e.Type}); err != nil {
				return elefante.Wrap(elefante.KindStoreUnavailable, err, "create entity ref %q", e.Ref)
			}
			if e.Ref != "" {
				refToID[e.Ref] = e.ID
			}
			result.EntityIDs = append(result.EntityIDs, e.ID)
		}

		resolve := func(ref, id string) (string, error) {
			if id != "" {
				return id, nil
			}
			resolved, ok := refToID[ref]
			if !ok {
				return "", fmt.Errorf("unresolved entity ref %q", ref)
			}
			return resolved, nil
		}

		for _, r := range relationships {
			fromID, err := resolve(r.FromRef, r.FromID)
			if err != nil {
				return elefante.Wrap(elefante.KindInvalidInput, err, "resolve relationship source")
			}
			toID, err := resolve(r.ToRef, r.ToID)
			if err != nil {
				return elefante.Wrap(elefante.KindInvalidInput, err, "resolve relationship target")
			}
			if err := o.graph.CreateRelationship(ctx, &elefante.Relationship{
				FromEntityID: fromID, ToEntityID: toID, Type: r.Type,
			}); err != nil {
				return elefante.Wrap(elefante.KindStoreUnavailable, err, "create relationship %s->%s", fromID, toID)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GraphQuery runs a read-oriented parameterized query against the graph
// store, implementing elefanteGraphQuery. The destructive-keyword safety
// filter lives in the GraphStore adapter itself (spec.md §4.4, P8), so this
// method is a thin, lock-free pass-through.
func (o *Orchestrator) GraphQuery(ctx context.Context, query string, params map[string]any) (elefante.QueryResult, error) {
	result, err := o.graph.Execute(ctx, query, params)
	if err != nil {
		return elefante.QueryResult{}, elefante.Wrap(elefante.KindInvalidInput, err, "graph query")
	}
	return result, nil
}
