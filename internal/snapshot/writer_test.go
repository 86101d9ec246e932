package snapshot_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/jsubiabreIBM/Elefante-sub000/internal/snapshot"
	"github.com/jsubiabreIBM/Elefante-sub000/pkg/elefante"
)

type fakeGraph struct {
	entities []map[string]any
	rels     []map[string]any
}

func (f *fakeGraph) Execute(_ context.Context, query string, _ map[string]any) (elefante.QueryResult, error) {
	if query == "MATCH (e:Entity) RETURN e.id AS id, e.name AS name, e.type AS type, e.properties AS properties" {
		return elefante.QueryResult{Rows: f.entities}, nil
	}
	return elefante.QueryResult{Rows: f.rels}, nil
}

type fakeVector struct {
	memories []*elefante.Memory
}

func (f *fakeVector) GetAll(_ context.Context, _, offset int, _ elefante.MemoryFilter) ([]*elefante.Memory, error) {
	if offset > 0 {
		return nil, nil
	}
	return f.memories, nil
}

func TestBuildAnnotatesMemoryNodes(t *testing.T) {
	graph := &fakeGraph{
		entities: []map[string]any{
			{"id": "mem-1", "name": "mem-1", "type": "memory"},
			{"id": "topic-1", "name": "billing", "type": "custom"},
		},
		rels: []map[string]any{
			{"source": "mem-1", "target": "topic-1", "type": "CUSTOM"},
		},
	}
	vector := &fakeVector{memories: []*elefante.Memory{
		{
			ID: "mem-1", Content: "billing details", Ring: elefante.RingDomain,
			KnowledgeType: elefante.KnowledgeTypeFact, Topic: "billing",
			CanonicalKey: "k1", Namespace: elefante.NamespaceProd,
		},
	}}

	w := snapshot.New(graph, vector, filepath.Join(t.TempDir(), "snapshot.json"))
	doc, err := w.Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(doc.Nodes) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(doc.Nodes))
	}
	if len(doc.Edges) != 1 {
		t.Fatalf("expected 1 edge, got %d", len(doc.Edges))
	}

	var memNode *snapshot.Node
	for i := range doc.Nodes {
		if doc.Nodes[i].ID == "mem-1" {
			memNode = &doc.Nodes[i]
		}
	}
	if memNode == nil {
		t.Fatal("expected mem-1 node to exist")
	}
	if memNode.Properties["topic"] != "billing" {
		t.Errorf("expected topic=billing, got %+v", memNode.Properties)
	}
	if doc.Edges[0].Type != snapshot.EdgeCohesion {
		t.Errorf("expected CUSTOM relationship to classify as cohesion, got %q", doc.Edges[0].Type)
	}
}

func TestBuildDropsEdgesWithUnknownEndpoints(t *testing.T) {
	graph := &fakeGraph{
		entities: []map[string]any{{"id": "a", "name": "a", "type": "concept"}},
		rels:     []map[string]any{{"source": "a", "target": "missing", "type": "RELATES_TO"}},
	}
	w := snapshot.New(graph, &fakeVector{}, filepath.Join(t.TempDir(), "snapshot.json"))

	doc, err := w.Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(doc.Edges) != 0 {
		t.Fatalf("expected dangling edge to be dropped, got %+v", doc.Edges)
	}
}

func TestRefreshWritesValidJSONToDisk(t *testing.T) {
	graph := &fakeGraph{entities: []map[string]any{{"id": "a", "name": "a", "type": "concept"}}}
	path := filepath.Join(t.TempDir(), "nested", "snapshot.json")
	w := snapshot.New(graph, &fakeVector{}, path)

	if _, err := w.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var doc snapshot.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if doc.Stats.NodeCount != 1 {
		t.Errorf("expected node_count=1, got %d", doc.Stats.NodeCount)
	}
}
