// Package nornic adapts github.com/orneryd/nornicdb's embedded property
// graph to elefante.GraphStore (spec.md §4.4). Every operation is issued as
// a parameterized Cypher statement through db.Cypher rather than nornicdb's
// native CreateNode/Neighbors/DeleteNode helpers, because those convenience
// methods auto-generate internal node ids and drop caller-supplied
// properties that look like embeddings — both of which would break I1
// (vector store id == graph store id).
package nornic

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/orneryd/nornicdb/pkg/nornicdb"

	"github.com/jsubiabreIBM/Elefante-sub000/pkg/elefante"
)

// forbiddenStatement matches DELETE, DROP, or REMOVE anywhere in a query,
// case-insensitively, implementing the P8 safety filter for Execute.
var forbiddenStatement = regexp.MustCompile(`(?i)\b(DELETE|DROP|REMOVE)\b`)

// Adapter implements elefante.GraphStore over a single *nornicdb.DB.
type Adapter struct {
	db *nornicdb.DB
}

// Open starts (or attaches to) a nornicdb database rooted at dataDir.
func Open(dataDir string, cfg *nornicdb.Config) (*Adapter, error) {
	db, err := nornicdb.Open(dataDir, cfg)
	if err != nil {
		return nil, fmt.Errorf("nornic: open: %w", err)
	}
	return &Adapter{db: db}, nil
}

// Close releases the underlying database handle.
func (a *Adapter) Close() error {
	return a.db.Close()
}

// InitSchema idempotently MERGEs a single ElefanteBootstrap node, which
// confirms the database accepts writes. nornicdb's graph is schemaless, so
// no tables or indexes are created here; node/edge "tables" are
// materialized lazily by MERGE.
func (a *Adapter) InitSchema(ctx context.Context) error {
	_, err := a.db.Cypher(ctx, `MERGE (b:ElefanteBootstrap {id: $id}) RETURN b`, map[string]any{
		"id": "elefante-bootstrap",
	})
	if err != nil {
		return elefante.Wrap(elefante.KindStoreUnavailable, err, "graph: init schema")
	}
	return nil
}

// CreateEntity upserts an Entity by id, storing Properties as a
// JSON-encoded string column per spec.md §4.4.
func (a *Adapter) CreateEntity(ctx context.Context, e *elefante.Entity) error {
	props, err := marshalProps(e.Properties)
	if err != nil {
		return elefante.Wrap(elefante.KindInvalidInput, err, "graph: encode entity properties")
	}
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err = a.db.Cypher(ctx, `
		MERGE (e:Entity {id: $id})
		SET e.name = $name,
		    e.type = $type,
		    e.description = $description,
		    e.created_at = $created_at,
		    e.properties = $properties,
		    e.tags = $tags
		RETURN e`, map[string]any{
		"id":          e.ID,
		"name":        e.Name,
		"type":        string(e.Type),
		"description": e.Description,
		"created_at":  createdAt.Format(time.RFC3339),
		"properties":  props,
		"tags":        e.Tags,
	})
	if err != nil {
		return elefante.Wrap(elefante.KindStoreUnavailable, err, "graph: create entity %s", e.ID)
	}
	return nil
}

// CreateRelationship upserts a directed edge between two existing entities.
// rel.Type is stored as the edge's rel_type property; nornicdb's Cypher
// dialect does not require the label to match rel.Type for this adapter's
// purposes since every traversal below filters by rel_type explicitly.
func (a *Adapter) CreateRelationship(ctx context.Context, rel *elefante.Relationship) error {
	props, err := marshalProps(rel.Properties)
	if err != nil {
		return elefante.Wrap(elefante.KindInvalidInput, err, "graph: encode relationship properties")
	}
	relType := rel.Type
	if relType == "" || relType == elefante.RelCustom {
		relType = elefante.RelRelatesTo
	}
	_, err = a.db.Cypher(ctx, `
		MATCH (f:Entity {id: $from_id}), (t:Entity {id: $to_id})
		MERGE (f)-[r:RELATES {rel_type: $rel_type}]->(t)
		SET r.strength = $strength,
		    r.properties = $properties
		RETURN r`, map[string]any{
		"from_id":    rel.FromEntityID,
		"to_id":      rel.ToEntityID,
		"rel_type":   string(relType),
		"strength":   rel.Strength,
		"properties": props,
	})
	if err != nil {
		return elefante.Wrap(elefante.KindStoreUnavailable, err, "graph: create relationship %s->%s", rel.FromEntityID, rel.ToEntityID)
	}
	return nil
}

// GetEntity fetches a single entity by id, or (nil, nil) if absent.
func (a *Adapter) GetEntity(ctx context.Context, id string) (*elefante.Entity, error) {
	rows, err := a.db.Cypher(ctx, `MATCH (e:Entity {id: $id}) RETURN e`, map[string]any{"id": id})
	if err != nil {
		return nil, elefante.Wrap(elefante.KindStoreUnavailable, err, "graph: get entity %s", id)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rowToEntity(rows[0], "e")
}

// FindEntityByName looks up an entity by exact name, used by the
// orchestrator to merge before calling CreateEntity.
func (a *Adapter) FindEntityByName(ctx context.Context, name string) (*elefante.Entity, error) {
	rows, err := a.db.Cypher(ctx, `MATCH (e:Entity {name: $name}) RETURN e LIMIT 1`, map[string]any{"name": name})
	if err != nil {
		return nil, elefante.Wrap(elefante.KindStoreUnavailable, err, "graph: find entity by name %q", name)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rowToEntity(rows[0], "e")
}

// GetNeighbors returns entities reachable within depth hops of id, along
// with the relationships traversed.
func (a *Adapter) GetNeighbors(ctx context.Context, id string, depth int) ([]*elefante.Entity, []*elefante.Relationship, error) {
	if depth <= 0 {
		depth = 1
	}
	query := fmt.Sprintf(`
		MATCH (start:Entity {id: $id})-[r:RELATES*1..%d]-(n:Entity)
		RETURN DISTINCT n, r`, depth)
	rows, err := a.db.Cypher(ctx, query, map[string]any{"id": id})
	if err != nil {
		return nil, nil, elefante.Wrap(elefante.KindStoreUnavailable, err, "graph: get neighbors of %s", id)
	}

	var entities []*elefante.Entity
	var rels []*elefante.Relationship
	for _, row := range rows {
		if n, err := rowToEntity(row, "n"); err == nil && n != nil {
			entities = append(entities, n)
		}
		if rs := rowToRelationships(row, "r"); len(rs) > 0 {
			rels = append(rels, rs...)
		}
	}
	return entities, rels, nil
}

// FindPath returns up to 10 paths of at most maxDepth hops (capped at 3)
// between from and to. Each path is a sequence of entity ids.
func (a *Adapter) FindPath(ctx context.Context, from, to string, maxDepth int) ([][]string, error) {
	if maxDepth <= 0 || maxDepth > 3 {
		maxDepth = 3
	}
	query := fmt.Sprintf(`
		MATCH p = (a:Entity {id: $from})-[:RELATES*1..%d]-(b:Entity {id: $to})
		RETURN p LIMIT 10`, maxDepth)
	rows, err := a.db.Cypher(ctx, query, map[string]any{"from": from, "to": to})
	if err != nil {
		return nil, elefante.Wrap(elefante.KindStoreUnavailable, err, "graph: find path %s->%s", from, to)
	}

	paths := make([][]string, 0, len(rows))
	for _, row := range rows {
		if ids := pathEntityIDs(row["p"]); len(ids) > 0 {
			paths = append(paths, ids)
		}
	}
	return paths, nil
}

// Execute runs a parameterized, read-oriented query, rejecting DELETE,
// DROP, or REMOVE per P8. The sole sanctioned destructive path is
// DeleteEntity, below.
func (a *Adapter) Execute(ctx context.Context, query string, params map[string]any) (elefante.QueryResult, error) {
	if forbiddenStatement.MatchString(query) {
		return elefante.QueryResult{}, elefante.NewError(elefante.KindInvalidInput,
			"graph: query contains a forbidden destructive statement").
			WithHint("removals go through DeleteEntity, not through queries")
	}
	rows, err := a.db.Cypher(ctx, query, params)
	if err != nil {
		return elefante.QueryResult{}, elefante.Wrap(elefante.KindStoreUnavailable, err, "graph: execute query")
	}
	return elefante.QueryResult{Rows: rows}, nil
}

// DeleteEntity detaches and deletes the node with the given id. This is the
// only method permitted to issue DETACH DELETE; it bypasses Execute's
// safety filter entirely since it never accepts caller-supplied Cypher.
func (a *Adapter) DeleteEntity(ctx context.Context, id string) error {
	_, err := a.db.Cypher(ctx, `MATCH (e:Entity {id: $id}) DETACH DELETE e`, map[string]any{"id": id})
	if err != nil {
		return elefante.Wrap(elefante.KindStoreUnavailable, err, "graph: delete entity %s", id)
	}
	return nil
}

// Stats reports entity and relationship counts.
func (a *Adapter) Stats(ctx context.Context) (elefante.GraphStats, error) {
	rows, err := a.db.Cypher(ctx, `MATCH (e:Entity) RETURN count(e) AS n`, nil)
	if err != nil {
		return elefante.GraphStats{}, elefante.Wrap(elefante.KindStoreUnavailable, err, "graph: stats entities")
	}
	entities := asInt64(firstValue(rows, "n"))

	rows, err = a.db.Cypher(ctx, `MATCH ()-[r:RELATES]->() RETURN count(r) AS n`, nil)
	if err != nil {
		return elefante.GraphStats{}, elefante.Wrap(elefante.KindStoreUnavailable, err, "graph: stats relationships")
	}
	rels := asInt64(firstValue(rows, "n"))

	return elefante.GraphStats{Entities: entities, Relationships: rels}, nil
}

func marshalProps(props map[string]elefante.MetaValue) (string, error) {
	if len(props) == 0 {
		return "{}", nil
	}
	flat := make(map[string]string, len(props))
	for k, v := range props {
		flat[k] = v.AsString()
	}
	b, err := json.Marshal(flat)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func unmarshalProps(raw string) map[string]elefante.MetaValue {
	if raw == "" {
		return nil
	}
	var flat map[string]string
	if err := json.Unmarshal([]byte(raw), &flat); err != nil {
		return nil
	}
	out := make(map[string]elefante.MetaValue, len(flat))
	for k, v := range flat {
		out[k] = elefante.StringValue(v)
	}
	return out
}

func rowToEntity(row map[string]any, col string) (*elefante.Entity, error) {
	raw, ok := row[col]
	if !ok || raw == nil {
		return nil, nil
	}
	fields, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("graph: unexpected node shape for column %q", col)
	}

	e := &elefante.Entity{
		ID:          asString(fields["id"]),
		Name:        asString(fields["name"]),
		Type:        elefante.EntityType(asString(fields["type"])),
		Description: asString(fields["description"]),
		Tags:        asStringSlice(fields["tags"]),
		Properties:  unmarshalProps(asString(fields["properties"])),
	}
	if ts := asString(fields["created_at"]); ts != "" {
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			e.CreatedAt = t
		}
	}
	return e, nil
}

func rowToRelationships(row map[string]any, col string) []*elefante.Relationship {
	raw, ok := row[col]
	if !ok || raw == nil {
		return nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]*elefante.Relationship, 0, len(items))
	for _, item := range items {
		fields, ok := item.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, &elefante.Relationship{
			Type:       elefante.RelationshipType(asString(fields["rel_type"])),
			Strength:   asFloat64(fields["strength"]),
			Properties: unmarshalProps(asString(fields["properties"])),
		})
	}
	return out
}

// pathEntityIDs extracts the ordered node ids from a Cypher path result
// value, whose concrete shape depends on the executor's path encoding.
func pathEntityIDs(raw any) []string {
	nodes, ok := raw.([]any)
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(nodes))
	for _, n := range nodes {
		fields, ok := n.(map[string]any)
		if !ok {
			continue
		}
		if id := asString(fields["id"]); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func firstValue(rows []map[string]any, col string) any {
	if len(rows) == 0 {
		return nil
	}
	return rows[0][col]
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}

func asFloat64(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case int:
		return float64(n)
	default:
		return 0
	}
}

func asStringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
