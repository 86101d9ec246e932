package orchestrator_test

import (
	"context"
	"testing"
	"time"

	"github.com/jsubiabreIBM/Elefante-sub000/internal/orchestrator"
	"github.com/jsubiabreIBM/Elefante-sub000/pkg/elefante"
)

func TestCreateEntityAndRelationship(t *testing.T) {
	o, _, gs := newTestOrchestrator(t)
	ctx := context.Background()

	if err := o.CreateEntity(ctx, &elefante.Entity{ID: "e1", Name: "billing-service", Type: elefante.EntityTechnology}); err != nil {
		t.Fatalf("CreateEntity: %v", err)
	}
	if err := o.CreateEntity(ctx, &elefante.Entity{ID: "e2", Name: "payments-team", Type: elefante.EntityOrganization}); err != nil {
		t.Fatalf("CreateEntity: %v", err)
	}
	if err := o.CreateRelationship(ctx, &elefante.Relationship{FromEntityID: "e1", ToEntityID: "e2", Type: elefante.RelRelatesTo}); err != nil {
		t.Fatalf("CreateRelationship: %v", err)
	}

	got, err := gs.GetEntity(ctx, "e1")
	if err != nil || got == nil {
		t.Fatalf("expected entity e1 to exist, got %v err=%v", got, err)
	}
}

func TestConnectGraphResolvesRefs(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)
	ctx := context.Background()

	result, err := o.ConnectGraph(ctx,
		[]orchestrator.ConnectEntityInput{
			{Ref: "svc", ID: "svc-1", Name: "checkout-service", Type: elefante.EntityTechnology},
			{Ref: "team", ID: "team-1", Name: "checkout-team", Type: elefante.EntityOrganization},
		},
		[]orchestrator.ConnectRelationshipInput{
			{FromRef: "svc", ToRef: "team", Type: elefante.RelRelatesTo},
		},
	)
	if err != nil {
		t.Fatalf("ConnectGraph: %v", err)
	}
	if len(result.EntityIDs) != 2 {
		t.Fatalf("expected 2 entity ids, got %v", result.EntityIDs)
	}
}

func TestConnectGraphRejectsUnresolvedRef(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)
	ctx := context.Background()

	_, err := o.ConnectGraph(ctx,
		[]orchestrator.ConnectEntityInput{{Ref: "a", ID: "a-1", Name: "a", Type: elefante.EntityConcept}},
		[]orchestrator.ConnectRelationshipInput{{FromRef: "a", ToRef: "missing", Type: elefante.RelRelatesTo}},
	)
	if err == nil {
		t.Fatal("expected error for unresolved ref")
	}
	if kind, ok := elefante.KindOf(err); !ok || kind != elefante.KindInvalidInput {
		t.Fatalf("expected KindInvalidInput, got %v", err)
	}
}

func TestGetContextReturnsLinkedMemories(t *testing.T) {
	o, vs, gs := newTestOrchestrator(t)
	ctx := context.Background()

	now := time.Now().UTC()
	if err := gs.CreateEntity(ctx, &elefante.Entity{ID: "sess-1", Name: "sess-1", Type: elefante.EntitySession, CreatedAt: now}); err != nil {
		t.Fatalf("CreateEntity session: %v", err)
	}
	mem := &elefante.Memory{ID: "mem-1", Content: "context memory", CreatedAt: now}
	if err := vs.Add(ctx, mem); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := gs.CreateEntity(ctx, &elefante.Entity{ID: "mem-1", Name: "mem-1", Type: elefante.EntityMemory, CreatedAt: now}); err != nil {
		t.Fatalf("CreateEntity memory node: %v", err)
	}
	if err := gs.CreateRelationship(ctx, &elefante.Relationship{FromEntityID: "sess-1", ToEntityID: "mem-1", Type: elefante.RelCreatedIn}); err != nil {
		t.Fatalf("CreateRelationship: %v", err)
	}

	result, err := o.GetContext(ctx, "sess-1", 1)
	if err != nil {
		t.Fatalf("GetContext: %v", err)
	}
	if len(result.Memories) != 1 || result.Memories[0].ID != "mem-1" {
		t.Fatalf("expected 1 linked memory, got %+v", result.Memories)
	}
}

func TestGetContextUnknownSessionReturnsEmpty(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)
	ctx := context.Background()

	result, err := o.GetContext(ctx, "no-such-session", 1)
	if err != nil {
		t.Fatalf("GetContext: %v", err)
	}
	if len(result.Memories) != 0 || len(result.Entities) != 0 {
		t.Fatalf("expected empty result, got %+v", result)
	}
}

func TestListSessionsReturnsSessionEntities(t *testing.T) {
	o, _, gs := newTestOrchestrator(t)
	ctx := context.Background()

	if err := gs.CreateEntity(ctx, &elefante.Entity{ID: "s1", Name: "s1", Type: elefante.EntitySession, CreatedAt: time.Now().UTC()}); err != nil {
		t.Fatalf("CreateEntity: %v", err)
	}
	if err := gs.CreateEntity(ctx, &elefante.Entity{ID: "not-a-session", Name: "x", Type: elefante.EntityConcept, CreatedAt: time.Now().UTC()}); err != nil {
		t.Fatalf("CreateEntity: %v", err)
	}

	sessions, err := o.ListSessions(ctx, 10, 0)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(sessions) != 1 || sessions[0].ID != "s1" {
		t.Fatalf("expected 1 session s1, got %+v", sessions)
	}
}

func TestListMemoriesPaginates(t *testing.T) {
	o, vs, _ := newTestOrchestrator(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := vs.Add(ctx, &elefante.Memory{ID: string(rune('a' + i)), CreatedAt: time.Now().UTC()}); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	page, err := o.ListMemories(ctx, 2, 0, elefante.MemoryFilter{})
	if err != nil {
		t.Fatalf("ListMemories: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("expected 2 memories on first page, got %d", len(page))
	}
}

func TestSystemStatusReportsStoreStats(t *testing.T) {
	o, vs, _ := newTestOrchestrator(t)
	ctx := context.Background()

	if err := vs.Add(ctx, &elefante.Memory{ID: "m1"}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	status, err := o.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.Vector.Count != 1 {
		t.Fatalf("expected vector count 1, got %+v", status.Vector)
	}
	if status.Lock.Held {
		t.Fatalf("expected lock not held outside a write, got %+v", status.Lock)
	}
}
