package nornic_test

import (
	"context"
	"testing"

	"github.com/orneryd/nornicdb/pkg/nornicdb"

	"github.com/jsubiabreIBM/Elefante-sub000/internal/graphstore/nornic"
	"github.com/jsubiabreIBM/Elefante-sub000/pkg/elefante"
)

// newTestAdapter opens a nornicdb instance rooted at a fresh temp directory
// with auto-embedding, decay, and auto-linking disabled so entity/edge CRUD
// is deterministic and makes no network calls.
func newTestAdapter(t *testing.T) *nornic.Adapter {
	t.Helper()
	cfg := nornicdb.DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.AutoEmbedEnabled = false
	cfg.DecayEnabled = false
	cfg.AutoLinksEnabled = false
	cfg.ParallelEnabled = false
	cfg.AsyncWritesEnabled = false

	a, err := nornic.Open(cfg.DataDir, cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })

	if err := a.InitSchema(context.Background()); err != nil {
		t.Fatalf("InitSchema: %v", err)
	}
	return a
}

func TestCreateAndGetEntity(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	e := &elefante.Entity{
		ID:          "ent-1",
		Name:        "Elefante",
		Type:        elefante.EntityProject,
		Description: "local memory engine",
		Tags:        []string{"go", "memory"},
		Properties:  map[string]elefante.MetaValue{"stage": elefante.StringValue("alpha")},
	}
	if err := a.CreateEntity(ctx, e); err != nil {
		t.Fatalf("CreateEntity: %v", err)
	}

	got, err := a.GetEntity(ctx, "ent-1")
	if err != nil {
		t.Fatalf("GetEntity: %v", err)
	}
	if got == nil {
		t.Fatal("GetEntity: expected entity, got nil")
	}
	if got.Name != e.Name || got.Type != e.Type {
		t.Fatalf("GetEntity mismatch: got %+v", got)
	}
	if v, ok := got.Properties["stage"]; !ok || v.AsString() != "alpha" {
		t.Fatalf("GetEntity properties mismatch: got %+v", got.Properties)
	}
}

func TestGetEntityMissingReturnsNilNil(t *testing.T) {
	a := newTestAdapter(t)
	got, err := a.GetEntity(context.Background(), "does-not-exist")
	if err != nil {
		t.Fatalf("GetEntity: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil entity, got %+v", got)
	}
}

func TestFindEntityByName(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	if err := a.CreateEntity(ctx, &elefante.Entity{ID: "ent-2", Name: "unique-name", Type: elefante.EntityConcept}); err != nil {
		t.Fatalf("CreateEntity: %v", err)
	}

	got, err := a.FindEntityByName(ctx, "unique-name")
	if err != nil {
		t.Fatalf("FindEntityByName: %v", err)
	}
	if got == nil || got.ID != "ent-2" {
		t.Fatalf("FindEntityByName mismatch: got %+v", got)
	}
}

func TestCreateRelationshipAndNeighbors(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if err := a.CreateEntity(ctx, &elefante.Entity{ID: id, Name: id, Type: elefante.EntityConcept}); err != nil {
			t.Fatalf("CreateEntity %s: %v", id, err)
		}
	}
	if err := a.CreateRelationship(ctx, &elefante.Relationship{FromEntityID: "a", ToEntityID: "b", Type: elefante.RelRelatesTo, Strength: 0.9}); err != nil {
		t.Fatalf("CreateRelationship a->b: %v", err)
	}
	if err := a.CreateRelationship(ctx, &elefante.Relationship{FromEntityID: "b", ToEntityID: "c", Type: elefante.RelDependsOn, Strength: 0.5}); err != nil {
		t.Fatalf("CreateRelationship b->c: %v", err)
	}

	neighbors, _, err := a.GetNeighbors(ctx, "a", 1)
	if err != nil {
		t.Fatalf("GetNeighbors: %v", err)
	}
	if len(neighbors) != 1 || neighbors[0].ID != "b" {
		t.Fatalf("expected single neighbor b, got %+v", neighbors)
	}
}

func TestExecuteRejectsDestructiveStatements(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	for _, q := range []string{
		"MATCH (n) DELETE n",
		"MATCH (n) DETACH delete n",
		"DROP INDEX foo",
		"MATCH (n) REMOVE n.prop",
	} {
		if _, err := a.Execute(ctx, q, nil); err == nil {
			t.Fatalf("Execute(%q): expected rejection, got nil error", q)
		} else if kind, ok := elefante.KindOf(err); !ok || kind != elefante.KindInvalidInput {
			t.Fatalf("Execute(%q): expected KindInvalidInput, got %v", q, err)
		}
	}
}

func TestExecuteAllowsReadQueries(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	if err := a.CreateEntity(ctx, &elefante.Entity{ID: "ent-3", Name: "readable", Type: elefante.EntityConcept}); err != nil {
		t.Fatalf("CreateEntity: %v", err)
	}
	result, err := a.Execute(ctx, `MATCH (e:Entity {id: $id}) RETURN e`, map[string]any{"id": "ent-3"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(result.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(result.Rows))
	}
}

func TestDeleteEntity(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	if err := a.CreateEntity(ctx, &elefante.Entity{ID: "ent-4", Name: "disposable", Type: elefante.EntityConcept}); err != nil {
		t.Fatalf("CreateEntity: %v", err)
	}
	if err := a.DeleteEntity(ctx, "ent-4"); err != nil {
		t.Fatalf("DeleteEntity: %v", err)
	}
	got, err := a.GetEntity(ctx, "ent-4")
	if err != nil {
		t.Fatalf("GetEntity after delete: %v", err)
	}
	if got != nil {
		t.Fatalf("expected entity gone after DeleteEntity, got %+v", got)
	}
}

func TestStatsCountsEntitiesAndRelationships(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	if err := a.CreateEntity(ctx, &elefante.Entity{ID: "s1", Name: "s1", Type: elefante.EntityConcept}); err != nil {
		t.Fatalf("CreateEntity s1: %v", err)
	}
	if err := a.CreateEntity(ctx, &elefante.Entity{ID: "s2", Name: "s2", Type: elefante.EntityConcept}); err != nil {
		t.Fatalf("CreateEntity s2: %v", err)
	}
	if err := a.CreateRelationship(ctx, &elefante.Relationship{FromEntityID: "s1", ToEntityID: "s2", Type: elefante.RelRelatesTo}); err != nil {
		t.Fatalf("CreateRelationship: %v", err)
	}

	stats, err := a.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Entities < 2 {
		t.Fatalf("expected at least 2 entities, got %d", stats.Entities)
	}
	if stats.Relationships < 1 {
		t.Fatalf("expected at least 1 relationship, got %d", stats.Relationships)
	}
}
