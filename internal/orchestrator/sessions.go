package orchestrator

import (
	"context"
	"time"

	"github.com/jsubiabreIBM/Elefante-sub000/pkg/elefante"
)

// ListSessions implements elefanteSessionsList: a paginated scan of
// EntitySession nodes via the graph store's generic read-query path
// (spec.md §6.2). There is no dedicated "list entities of type X" method on
// GraphStore, so this is expressed as a parameterized Execute call rather
// than a new adapter method.
func (o *Orchestrator) ListSessions(ctx context.Context, limit, offset int) ([]elefante.Session, error) {
	if limit <= 0 {
		limit = 20
	}
	result, err := o.graph.Execute(ctx, `
		MATCH (e:Entity {type: $type})
		RETURN e.id AS id, e.created_at AS created_at
		ORDER BY e.created_at DESC
		SKIP $offset LIMIT $limit`, map[string]any{
		"type":   string(elefante.EntitySession),
		"offset": offset,
		"limit":  limit,
	})
	if err != nil {
		return nil, elefante.Wrap(elefante.KindStoreUnavailable, err, "list sessions")
	}

	sessions := make([]elefante.Session, 0, len(result.Rows))
	for _, row := range result.Rows {
		id, _ := row["id"].(string)
		if id == "" {
			continue
		}
		session := elefante.Session{ID: id}
		if ts, ok := row["created_at"].(string); ok {
			if parsed, err := time.Parse(time.RFC3339, ts); err == nil {
				session.LastActive = parsed
			}
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}
