package orchestrator_test

import (
	"context"
	"hash/fnv"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/jsubiabreIBM/Elefante-sub000/internal/embedding"
	"github.com/jsubiabreIBM/Elefante-sub000/internal/lock"
	"github.com/jsubiabreIBM/Elefante-sub000/internal/orchestrator"
	"github.com/jsubiabreIBM/Elefante-sub000/pkg/elefante"
	"github.com/jsubiabreIBM/Elefante-sub000/pkg/provider/embeddings"
)

// hashEmbeddingProvider deterministically maps text to a 4-dimensional
// vector so that similar/identical strings produce similar/identical
// embeddings, without depending on a live model. Unlike pkg/provider/
// embeddings/mock.Provider (which always returns one fixed vector), this
// fake varies its output by input text, which the dedup-probe tests below
// require.
type hashEmbeddingProvider struct{}

func (hashEmbeddingProvider) Embed(_ context.Context, text string) ([]float32, error) {
	return textVector(text), nil
}

func (hashEmbeddingProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = textVector(t)
	}
	return out, nil
}

func (hashEmbeddingProvider) Dimensions() int { return 4 }
func (hashEmbeddingProvider) ModelID() string { return "hash-fake-v1" }

var _ embeddings.Provider = hashEmbeddingProvider{}

func textVector(text string) []float32 {
	h := fnv.New32a()
	h.Write([]byte(text))
	seed := h.Sum32()
	vec := make([]float32, 4)
	for i := range vec {
		vec[i] = float32((seed>>uint(i*8))&0xFF) / 255.0
	}
	return vec
}

func newTestOrchestrator(t *testing.T) (*orchestrator.Orchestrator, *fakeVectorStore, *fakeGraphStore) {
	t.Helper()
	vs := newFakeVectorStore()
	gs := newFakeGraphStore()
	facade := embedding.New(hashEmbeddingProvider{}, 0)
	locks := lock.New(filepath.Join(t.TempDir(), "write.lock"), lock.DefaultStaleThreshold, slog.Default())

	cfg := orchestrator.NewConfig()
	cfg.OwnerUserID = "owner-jay"
	cfg.AllowTestMemories = true

	o := orchestrator.New(vs, gs, facade, locks, cfg, slog.Default())
	return o, vs, gs
}

func TestAddMemoryCreatesVectorAndGraphNode(t *testing.T) {
	o, vs, gs := newTestOrchestrator(t)
	ctx := context.Background()

	result, err := o.AddMemory(ctx, orchestrator.AddMemoryInput{
		Content:    "I prefer concise answers without emojis",
		Layer:      elefante.LayerSelf,
		Sublayer:   "preference",
		MemoryType: elefante.MemoryTypePreference,
		Importance: 7,
	})
	if err != nil {
		t.Fatalf("AddMemory: %v", err)
	}
	if result.Status != "new" {
		t.Fatalf("expected status=new, got %q", result.Status)
	}

	stored, err := vs.Get(ctx, result.Memory.ID)
	if err != nil || stored == nil {
		t.Fatalf("expected memory persisted in vector store, got %v, err=%v", stored, err)
	}

	node, err := gs.GetEntity(ctx, result.Memory.ID)
	if err != nil || node == nil {
		t.Fatalf("expected graph node for memory, got %v, err=%v", node, err)
	}
	if node.Type != elefante.EntityMemory {
		t.Fatalf("expected EntityMemory type, got %v", node.Type)
	}

	owner, err := gs.GetEntity(ctx, "owner-jay")
	if err != nil || owner == nil {
		t.Fatal("expected first-person content to auto-link to owner entity")
	}
}

func TestAddMemoryRejectsEmptyContent(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)
	_, err := o.AddMemory(context.Background(), orchestrator.AddMemoryInput{Content: "   "})
	if err == nil {
		t.Fatal("expected error for empty content")
	}
	if kind, ok := elefante.KindOf(err); !ok || kind != elefante.KindInvalidInput {
		t.Fatalf("expected KindInvalidInput, got %v", err)
	}
}

func TestAddMemoryReinforcesNearDuplicate(t *testing.T) {
	o, vs, _ := newTestOrchestrator(t)
	ctx := context.Background()

	const content = "Always run gofmt before committing Go code"
	first, err := o.AddMemory(ctx, orchestrator.AddMemoryInput{Content: content, Layer: elefante.LayerSelf, MemoryType: elefante.MemoryTypeFact, Importance: 5})
	if err != nil {
		t.Fatalf("AddMemory (first): %v", err)
	}

	second, err := o.AddMemory(ctx, orchestrator.AddMemoryInput{Content: content, Layer: elefante.LayerSelf, MemoryType: elefante.MemoryTypeFact, Importance: 5})
	if err != nil {
		t.Fatalf("AddMemory (second): %v", err)
	}
	if second.Status != "reinforced" {
		t.Fatalf("expected reinforced for identical content, got %q", second.Status)
	}
	if second.Memory.ID != first.Memory.ID {
		t.Fatalf("expected reinforced memory to reuse id %s, got %s", first.Memory.ID, second.Memory.ID)
	}

	reinforced, err := vs.Get(ctx, first.Memory.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if reinforced.AccessCount != 1 {
		t.Fatalf("expected access_count=1 after reinforcement, got %d", reinforced.AccessCount)
	}
}

func TestAddMemoryQuarantinesTestNamespaceWhenDisallowed(t *testing.T) {
	vs := newFakeVectorStore()
	gs := newFakeGraphStore()
	facade := embedding.New(hashEmbeddingProvider{}, 0)
	locks := lock.New(filepath.Join(t.TempDir(), "write.lock"), lock.DefaultStaleThreshold, slog.Default())

	cfg := orchestrator.NewConfig()
	cfg.AllowTestMemories = false
	o := orchestrator.New(vs, gs, facade, locks, cfg, slog.Default())

	_, err := o.AddMemory(context.Background(), orchestrator.AddMemoryInput{
		Content: "elefante e2e test memory for namespace quarantine",
	})
	if err == nil {
		t.Fatal("expected quarantine error for test-namespace content")
	}
	if kind, ok := elefante.KindOf(err); !ok || kind != elefante.KindCapabilityDisabled {
		t.Fatalf("expected KindCapabilityDisabled, got %v", err)
	}
}

func TestAddMemoryLinksExplicitEntities(t *testing.T) {
	o, _, gs := newTestOrchestrator(t)
	ctx := context.Background()

	result, err := o.AddMemory(ctx, orchestrator.AddMemoryInput{
		Content:    "The billing-service depends on the auth-service for tokens",
		Layer:      elefante.LayerWorld,
		MemoryType: elefante.MemoryTypeFact,
		Entities:   []string{"billing-service", "auth-service"},
	})
	if err != nil {
		t.Fatalf("AddMemory: %v", err)
	}

	neighbors, _, err := gs.GetNeighbors(ctx, result.Memory.ID, 1)
	if err != nil {
		t.Fatalf("GetNeighbors: %v", err)
	}
	if len(neighbors) != 2 {
		t.Fatalf("expected 2 linked entities, got %d: %+v", len(neighbors), neighbors)
	}
}
