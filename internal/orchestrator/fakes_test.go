package orchestrator_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jsubiabreIBM/Elefante-sub000/pkg/elefante"
)

// fakeVectorStore is a minimal in-memory elefante.VectorStore, modeled on the
// teacher's mutex-guarded in-memory Store fakes: no persistence, no
// approximate search, just enough behavior for the orchestrator's own tests
// to exercise without a real sqvect database.
type fakeVectorStore struct {
	mu   sync.Mutex
	byID map[string]*elefante.Memory
}

var _ elefante.VectorStore = (*fakeVectorStore)(nil)

func newFakeVectorStore() *fakeVectorStore {
	return &fakeVectorStore{byID: make(map[string]*elefante.Memory)}
}

func (f *fakeVectorStore) Add(_ context.Context, mem *elefante.Memory) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *mem
	f.byID[mem.ID] = &cp
	return nil
}

func (f *fakeVectorStore) Get(_ context.Context, id string) (*elefante.Memory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	mem, ok := f.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *mem
	return &cp, nil
}

func (f *fakeVectorStore) Search(_ context.Context, query []float32, opts elefante.SearchOptions) ([]elefante.ScoredMemory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var scored []elefante.ScoredMemory
	for _, mem := range f.byID {
		if opts.Filters.Namespace != "" && mem.Namespace != opts.Filters.Namespace {
			continue
		}
		if opts.Filters.SessionID != "" && mem.SessionID != opts.Filters.SessionID {
			continue
		}
		sim := cosineSimilarity(query, mem.Embedding)
		if sim < opts.MinSimilarity {
			continue
		}
		cp := *mem
		scored = append(scored, elefante.ScoredMemory{Memory: &cp, Similarity: sim})
	}
	sort.Slice(scored, func(i, j int) bool { return scored[i].Similarity > scored[j].Similarity })
	if opts.Limit > 0 && len(scored) > opts.Limit {
		scored = scored[:opts.Limit]
	}
	return scored, nil
}

func (f *fakeVectorStore) Update(_ context.Context, id string, patch elefante.MemoryPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	mem, ok := f.byID[id]
	if !ok {
		return elefante.NewError(elefante.KindNotFound, "memory %s not found", id)
	}
	if patch.Content != nil {
		mem.Content = *patch.Content
	}
	if patch.Embedding != nil {
		mem.Embedding = patch.Embedding
	}
	if patch.Importance != nil {
		mem.Importance = *patch.Importance
	}
	if patch.Tags != nil {
		mem.Tags = patch.Tags
	}
	if patch.Status != nil {
		mem.Status = *patch.Status
	}
	if patch.Deprecated != nil {
		mem.Deprecated = *patch.Deprecated
	}
	if patch.Archived != nil {
		mem.Archived = *patch.Archived
	}
	if patch.RelationshipType != nil {
		mem.RelationshipType = *patch.RelationshipType
	}
	if patch.SupersedesID != nil {
		mem.SupersedesID = *patch.SupersedesID
	}
	if patch.SupersededByID != nil {
		mem.SupersededByID = *patch.SupersededByID
	}
	if patch.CustomMetadata != nil {
		mem.CustomMetadata = patch.CustomMetadata
	}
	if patch.LastAccessed != nil {
		mem.LastAccessed = *patch.LastAccessed
	}
	if patch.LastModified != nil {
		mem.LastModified = *patch.LastModified
	}
	if patch.AccessCount != nil {
		mem.AccessCount = *patch.AccessCount
	}
	return nil
}

func (f *fakeVectorStore) Replace(_ context.Context, mem *elefante.Memory) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *mem
	f.byID[mem.ID] = &cp
	return nil
}

func (f *fakeVectorStore) Delete(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return false, nil
	}
	delete(f.byID, id)
	return true, nil
}

func (f *fakeVectorStore) GetAll(_ context.Context, limit, offset int, filters elefante.MemoryFilter) ([]*elefante.Memory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var all []*elefante.Memory
	for _, mem := range f.byID {
		if filters.Namespace != "" && mem.Namespace != filters.Namespace {
			continue
		}
		if filters.Status != "" && mem.Status != filters.Status {
			continue
		}
		if filters.MemoryType != "" && mem.MemoryType != filters.MemoryType {
			continue
		}
		if filters.SessionID != "" && mem.SessionID != filters.SessionID {
			continue
		}
		cp := *mem
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })

	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (f *fakeVectorStore) FindByTitle(_ context.Context, title string) (*elefante.Memory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, mem := range f.byID {
		if mem.Title() == title {
			cp := *mem
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeVectorStore) Stats(_ context.Context) (elefante.VectorStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return elefante.VectorStats{Count: int64(len(f.byID)), Collection: "fake", Dimension: 4}, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (sqrt(normA) * sqrt(normB))
}

func sqrt(x float64) float64 {
	if x == 0 {
		return 0
	}
	z := x
	for i := 0; i < 32; i++ {
		z -= (z*z - x) / (2 * z)
	}
	return z
}

// fakeGraphStore is a minimal in-memory elefante.GraphStore.
type fakeGraphStore struct {
	mu    sync.Mutex
	nodes map[string]*elefante.Entity
	edges []*elefante.Relationship
}

var _ elefante.GraphStore = (*fakeGraphStore)(nil)

func newFakeGraphStore() *fakeGraphStore {
	return &fakeGraphStore{nodes: make(map[string]*elefante.Entity)}
}

func (f *fakeGraphStore) InitSchema(context.Context) error { return nil }

func (f *fakeGraphStore) CreateEntity(_ context.Context, e *elefante.Entity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *e
	f.nodes[e.ID] = &cp
	return nil
}

func (f *fakeGraphStore) CreateRelationship(_ context.Context, rel *elefante.Relationship) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.nodes[rel.FromEntityID]; !ok {
		return elefante.NewError(elefante.KindNotFound, "entity %s not found", rel.FromEntityID)
	}
	if _, ok := f.nodes[rel.ToEntityID]; !ok {
		return elefante.NewError(elefante.KindNotFound, "entity %s not found", rel.ToEntityID)
	}
	cp := *rel
	f.edges = append(f.edges, &cp)
	return nil
}

func (f *fakeGraphStore) GetEntity(_ context.Context, id string) (*elefante.Entity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.nodes[id]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (f *fakeGraphStore) FindEntityByName(_ context.Context, name string) (*elefante.Entity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.nodes {
		if e.Name == name {
			cp := *e
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeGraphStore) GetNeighbors(_ context.Context, id string, depth int) ([]*elefante.Entity, []*elefante.Relationship, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var neighbors []*elefante.Entity
	var rels []*elefante.Relationship
	for _, rel := range f.edges {
		if rel.FromEntityID == id {
			if e, ok := f.nodes[rel.ToEntityID]; ok {
				cp := *e
				neighbors = append(neighbors, &cp)
				rels = append(rels, rel)
			}
		} else if rel.ToEntityID == id {
			if e, ok := f.nodes[rel.FromEntityID]; ok {
				cp := *e
				neighbors = append(neighbors, &cp)
				rels = append(rels, rel)
			}
		}
	}
	return neighbors, rels, nil
}

func (f *fakeGraphStore) FindPath(context.Context, string, string, int) ([][]string, error) {
	return nil, nil
}

// Execute only understands the one shape ListSessions issues (filter by
// entity type, ordered by created_at desc, sliced by offset/limit) — enough
// to exercise that orchestrator method without a real Cypher engine.
func (f *fakeGraphStore) Execute(_ context.Context, _ string, params map[string]any) (elefante.QueryResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	wantType, _ := params["type"].(string)
	var matched []*elefante.Entity
	for _, e := range f.nodes {
		if wantType != "" && string(e.Type) != wantType {
			continue
		}
		matched = append(matched, e)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	offset, _ := params["offset"].(int)
	limit, _ := params["limit"].(int)
	if offset >= len(matched) {
		matched = nil
	} else {
		matched = matched[offset:]
	}
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}

	rows := make([]map[string]any, 0, len(matched))
	for _, e := range matched {
		rows = append(rows, map[string]any{"id": e.ID, "created_at": e.CreatedAt.Format(time.RFC3339)})
	}
	return elefante.QueryResult{Rows: rows}, nil
}

func (f *fakeGraphStore) DeleteEntity(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.nodes, id)
	kept := f.edges[:0]
	for _, rel := range f.edges {
		if rel.FromEntityID != id && rel.ToEntityID != id {
			kept = append(kept, rel)
		}
	}
	f.edges = kept
	return nil
}

func (f *fakeGraphStore) Stats(context.Context) (elefante.GraphStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return elefante.GraphStats{Entities: int64(len(f.nodes)), Relationships: int64(len(f.edges))}, nil
}
