package orchestrator_test

import (
	"context"
	"testing"

	"github.com/jsubiabreIBM/Elefante-sub000/internal/orchestrator"
	"github.com/jsubiabreIBM/Elefante-sub000/pkg/elefante"
)

func TestSearchRejectsEmptyQuery(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)
	_, err := o.Search(context.Background(), orchestrator.SearchInput{Query: "  "})
	if err == nil {
		t.Fatal("expected error for empty query")
	}
	if kind, ok := elefante.KindOf(err); !ok || kind != elefante.KindInvalidInput {
		t.Fatalf("expected KindInvalidInput, got %v", err)
	}
}

func TestSearchReturnsVectorHits(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)
	ctx := context.Background()

	added, err := o.AddMemory(ctx, orchestrator.AddMemoryInput{
		Content:    "The write lock polls every 100 milliseconds",
		Layer:      elefante.LayerWorld,
		MemoryType: elefante.MemoryTypeFact,
		Importance: 6,
	})
	if err != nil {
		t.Fatalf("AddMemory: %v", err)
	}

	results, err := o.Search(ctx, orchestrator.SearchInput{
		Query: "The write lock polls every 100 milliseconds",
		Limit: 5,
		Mode:  orchestrator.ModeSemantic,
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected at least one search result")
	}
	found := false
	for _, r := range results {
		if r.Memory.ID == added.Memory.ID {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected added memory %s among results: %+v", added.Memory.ID, results)
	}
}

func TestSearchStructuredModeUsesGraphOnly(t *testing.T) {
	o, _, gs := newTestOrchestrator(t)
	ctx := context.Background()

	if err := gs.CreateEntity(ctx, &elefante.Entity{ID: "svc-1", Name: "billing-service", Type: elefante.EntityConcept}); err != nil {
		t.Fatalf("CreateEntity: %v", err)
	}
	added, err := o.AddMemory(ctx, orchestrator.AddMemoryInput{
		Content:    "billing-service emits invoices nightly",
		Layer:      elefante.LayerWorld,
		MemoryType: elefante.MemoryTypeFact,
		Entities:   []string{"billing-service"},
	})
	if err != nil {
		t.Fatalf("AddMemory: %v", err)
	}

	results, err := o.Search(ctx, orchestrator.SearchInput{
		Query: "billing-service",
		Mode:  orchestrator.ModeStructured,
		Limit: 5,
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	found := false
	for _, r := range results {
		if r.Memory.ID == added.Memory.ID && r.Source == "graph" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected structured-mode search to surface %s via the graph collector: %+v", added.Memory.ID, results)
	}
}
