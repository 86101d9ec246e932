package sqvect_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jsubiabreIBM/Elefante-sub000/internal/vectorstore/sqvect"
	"github.com/jsubiabreIBM/Elefante-sub000/pkg/elefante"
)

const testDimension = 4

func newTestAdapter(t *testing.T) *sqvect.Adapter {
	t.Helper()
	path := filepath.Join(t.TempDir(), "memories.db")
	a, err := sqvect.Open(path, testDimension)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func sampleMemory(id string, vec []float32) *elefante.Memory {
	now := time.Now().UTC()
	return &elefante.Memory{
		ID:           id,
		Content:      "remember to write idiomatic Go",
		Embedding:    vec,
		Layer:        elefante.LayerSelf,
		MemoryType:   elefante.MemoryTypeFact,
		Status:       elefante.StatusNew,
		Importance:   7,
		Namespace:    elefante.NamespaceProd,
		CanonicalKey: "sample-" + id,
		CreatedAt:    now,
		LastModified: now,
		LastAccessed: now,
		Tags:         []string{"go", "idiom"},
		CustomMetadata: map[string]elefante.MetaValue{
			"title": elefante.StringValue("Sample memory " + id),
		},
	}
}

func TestAddAndGetRoundTrip(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	mem := sampleMemory("mem-1", []float32{1, 0, 0, 0})
	if err := a.Add(ctx, mem); err != nil {
		t.Fatalf("Add: %v", err)
	}

	got, err := a.Get(ctx, "mem-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil {
		t.Fatal("Get: expected memory, got nil")
	}
	if got.Content != mem.Content || got.Importance != mem.Importance {
		t.Fatalf("Get mismatch: got %+v", got)
	}
	if got.Title() != "Sample memory mem-1" {
		t.Fatalf("Title mismatch: got %q", got.Title())
	}
	if len(got.Tags) != 2 {
		t.Fatalf("expected 2 tags, got %v", got.Tags)
	}
}

func TestGetMissingReturnsNilNil(t *testing.T) {
	a := newTestAdapter(t)
	got, err := a.Get(context.Background(), "does-not-exist")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}
}

func TestSearchAppliesMinSimilarityAndLimit(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	if err := a.Add(ctx, sampleMemory("close", []float32{1, 0, 0, 0})); err != nil {
		t.Fatalf("Add close: %v", err)
	}
	if err := a.Add(ctx, sampleMemory("far", []float32{0, 1, 0, 0})); err != nil {
		t.Fatalf("Add far: %v", err)
	}

	results, err := a.Search(ctx, []float32{1, 0, 0, 0}, elefante.SearchOptions{
		Limit:         5,
		MinSimilarity: 0.5,
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for _, r := range results {
		if r.Memory.ID == "far" {
			t.Fatalf("expected orthogonal vector to be filtered out, got %+v", r)
		}
	}
}

func TestUpdatePatchesFields(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	mem := sampleMemory("mem-2", []float32{0, 0, 1, 0})
	if err := a.Add(ctx, mem); err != nil {
		t.Fatalf("Add: %v", err)
	}

	newImportance := 9
	newStatus := elefante.StatusActive
	if err := a.Update(ctx, "mem-2", elefante.MemoryPatch{
		Importance: &newImportance,
		Status:     &newStatus,
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := a.Get(ctx, "mem-2")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Importance != 9 || got.Status != elefante.StatusActive {
		t.Fatalf("Update did not apply: got %+v", got)
	}
}

func TestDeleteReportsPresence(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	if err := a.Add(ctx, sampleMemory("mem-3", []float32{0, 1, 1, 0})); err != nil {
		t.Fatalf("Add: %v", err)
	}

	ok, err := a.Delete(ctx, "mem-3")
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if !ok {
		t.Fatal("Delete: expected true for existing memory")
	}

	ok, err = a.Delete(ctx, "mem-3")
	if err != nil {
		t.Fatalf("Delete (again): %v", err)
	}
	if ok {
		t.Fatal("Delete: expected false for already-deleted memory")
	}
}

func TestFindByTitle(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	if err := a.Add(ctx, sampleMemory("mem-4", []float32{1, 1, 0, 0})); err != nil {
		t.Fatalf("Add: %v", err)
	}

	got, err := a.FindByTitle(ctx, "Sample memory mem-4")
	if err != nil {
		t.Fatalf("FindByTitle: %v", err)
	}
	if got == nil || got.ID != "mem-4" {
		t.Fatalf("FindByTitle mismatch: got %+v", got)
	}
}

func TestStatsReportsCount(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	if err := a.Add(ctx, sampleMemory("mem-5", []float32{1, 0, 1, 0})); err != nil {
		t.Fatalf("Add: %v", err)
	}

	stats, err := a.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Count < 1 {
		t.Fatalf("expected count >= 1, got %d", stats.Count)
	}
	if stats.Dimension != testDimension {
		t.Fatalf("expected dimension %d, got %d", testDimension, stats.Dimension)
	}
}
