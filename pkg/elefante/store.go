package elefante

import (
	"context"
	"time"
)

// VectorStore is the typed capability surface the orchestrator relies on
// for the dense-embedding semantic index (spec.md §4.3). Concrete
// implementations flatten structured Memory fields to the index's scalar
// metadata columns and reconstruct full records on read; see
// internal/vectorstore/sqvect for the concrete adapter over
// github.com/liliang-cn/sqvect/v2.
type VectorStore interface {
	// Add inserts (id, embedding, content, flattened metadata) for mem.
	Add(ctx context.Context, mem *Memory) error

	// Get reconstructs a Memory by id, or returns (nil, nil) if absent.
	Get(ctx context.Context, id string) (*Memory, error)

	// Search runs a kNN query and applies the candidate-shaping rules of
	// spec.md §4.3 (oversampling for temporal decay, min-similarity cutoff,
	// optional decay blending). Returns candidates sorted by descending
	// final score, already truncated to opts.Limit.
	Search(ctx context.Context, queryEmbedding []float32, opts SearchOptions) ([]ScoredMemory, error)

	// Update applies a partial patch to the memory with the given id. Non-nil
	// fields of patch are written; Content triggers re-embedding by the
	// caller before Update is invoked (the adapter itself does not embed).
	Update(ctx context.Context, id string, patch MemoryPatch) error

	// Replace performs a full rewrite of the memory identified by mem.ID.
	Replace(ctx context.Context, mem *Memory) error

	// Delete removes the memory with the given id. Returns false if absent.
	Delete(ctx context.Context, id string) (bool, error)

	// GetAll performs a paginated, optionally filtered scan, used by the
	// refinery and by elefanteMemoryListAll.
	GetAll(ctx context.Context, limit, offset int, filters MemoryFilter) ([]*Memory, error)

	// FindByTitle performs an exact metadata lookup on the title field.
	FindByTitle(ctx context.Context, title string) (*Memory, error)

	// Stats reports the current count, collection name, and configured
	// embedding dimension.
	Stats(ctx context.Context) (VectorStats, error)
}

// VectorStats reports point-in-time counters for the vector store.
type VectorStats struct {
	Count      int64
	Collection string
	Dimension  int
}

// SearchOptions parameterizes VectorStore.Search.
type SearchOptions struct {
	Limit              int
	Filters            MemoryFilter
	MinSimilarity      float64
	ApplyTemporalDecay bool
}

// MemoryFilter restricts a scan or search to memories matching the given
// (optional) scalar fields. Zero-valued fields are not applied.
type MemoryFilter struct {
	SessionID  string
	MemoryType MemoryType
	Namespace  Namespace
	Status     Status
}

// MemoryPatch carries the subset of updatable fields listed in spec.md
// §4.3's Update operation. A nil pointer/empty slice means "leave
// unchanged".
type MemoryPatch struct {
	Content          *string
	Embedding        []float32
	Importance       *int
	Tags             []string
	Status           *Status
	Deprecated       *bool
	Archived         *bool
	RelationshipType *RelationshipType
	SupersedesID     *string
	SupersededByID   *string
	CustomMetadata   map[string]MetaValue
	LastAccessed     *time.Time
	LastModified     *time.Time
	AccessCount      *int
}

// ScoredMemory pairs a Memory with its Search-time similarity score,
// mirroring the hybrid retrieval engine's
// SearchCandidate concept (spec.md §4.7).
type ScoredMemory struct {
	Memory     *Memory
	Similarity float64
}

// GraphStore is the typed capability surface over the embedded property
// graph (spec.md §4.4). See internal/graphstore/nornic for the concrete
// adapter over github.com/orneryd/nornicdb.
type GraphStore interface {
	// InitSchema idempotently ensures the node/edge tables exist. Safe to
	// call on every startup; swallows "already exists" errors.
	InitSchema(ctx context.Context) error

	// CreateEntity upserts an Entity by id. Properties are stored as a
	// JSON-encoded string in one column (§4.4).
	CreateEntity(ctx context.Context, e *Entity) error

	// CreateRelationship upserts a directed edge, choosing the edge
	// table/label for rel.Type, defaulting to RelRelatesTo for RelCustom.
	CreateRelationship(ctx context.Context, rel *Relationship) error

	// GetEntity fetches a single entity by id, or (nil, nil) if absent.
	GetEntity(ctx context.Context, id string) (*Entity, error)

	// FindEntityByName looks up an entity by exact name match, used by the
	// orchestrator to merge before calling CreateEntity (§4.4 merging
	// semantics).
	FindEntityByName(ctx context.Context, name string) (*Entity, error)

	// GetNeighbors returns entities reachable within depth hops of id, along
	// with the relationships traversed.
	GetNeighbors(ctx context.Context, id string, depth int) ([]*Entity, []*Relationship, error)

	// FindPath returns up to 10 paths of at most maxDepth hops (capped at 3)
	// between from and to. Each path is a sequence of entity ids.
	FindPath(ctx context.Context, from, to string, maxDepth int) ([][]string, error)

	// Execute runs a parameterized, read-oriented query and rejects any
	// query mentioning DELETE, DROP, or REMOVE (case-insensitive) — P8.
	// This is the entry point behind elefanteGraphQuery.
	Execute(ctx context.Context, query string, params map[string]any) (QueryResult, error)

	// DeleteEntity detaches and deletes the node with the given id. Unlike
	// Execute, this dedicated method is the sole path permitted to issue a
	// destructive Cypher statement (§4.4's precondition exemption).
	DeleteEntity(ctx context.Context, id string) error

	// Stats reports entity and relationship counts.
	Stats(ctx context.Context) (GraphStats, error)
}

// QueryResult is the generic shape returned by GraphStore.Execute: one map
// per result row, keyed by the query's RETURN aliases.
type QueryResult struct {
	Rows []map[string]any
}

// GraphStats reports point-in-time counters for the graph store.
type GraphStats struct {
	Entities      int64
	Relationships int64
}
