// Package sqvect adapts github.com/liliang-cn/sqvect/v2's embedded SQLite
// vector store to elefante.VectorStore (spec.md §4.3), flattening Memory's
// structured fields into the index's map[string]string metadata columns
// plus a lossless JSON blob, and implementing the temporal-decay scoring
// rule of §4.3.1 on top of sqvect's plain kNN search.
package sqvect

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/liliang-cn/sqvect/v2/pkg/core"
	"github.com/liliang-cn/sqvect/v2/pkg/sqvect"

	"github.com/jsubiabreIBM/Elefante-sub000/pkg/elefante"
)

// collection is the single sqvect collection elefante stores memories in.
// Namespace/session/type filtering happens through metadata, not through
// sqvect collections, matching spec.md §3.1's scalar-flattening design.
const collection = "elefante_memories"

// Default temporal decay weights from spec.md §4.3.1. Configurable via
// WithWeights.
const (
	defaultSemanticWeight = 0.7
	defaultTemporalWeight = 0.3
)

// Adapter implements elefante.VectorStore over a *sqvect.DB.
type Adapter struct {
	db        *sqvect.DB
	dimension int
	wSem      float64
	wTmp      float64
}

// Option configures an Adapter at construction time.
type Option func(*Adapter)

// WithWeights overrides the semantic/temporal blend weights used when
// apply_temporal_decay is requested.
func WithWeights(semantic, temporal float64) Option {
	return func(a *Adapter) {
		a.wSem = semantic
		a.wTmp = temporal
	}
}

// Open opens (or creates) a sqvect database file at path with the given
// embedding dimension.
func Open(path string, dimension int, opts ...Option) (*Adapter, error) {
	cfg := sqvect.DefaultConfig(path)
	cfg.Dimensions = dimension
	db, err := sqvect.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("sqvect: open: %w", err)
	}
	a := &Adapter{db: db, dimension: dimension, wSem: defaultSemanticWeight, wTmp: defaultTemporalWeight}
	for _, opt := range opts {
		opt(a)
	}
	if err := a.ensureCollection(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqvect: bootstrap collection: %w", err)
	}
	return a, nil
}

// ensureCollection idempotently creates the elefante_memories collection,
// tolerating a concurrent creator (spec.md §4.4's init_schema idempotency
// applies equally here: swallow "already exists").
func (a *Adapter) ensureCollection(ctx context.Context) error {
	if _, err := a.db.Vector().GetCollection(ctx, collection); err == nil {
		return nil
	}
	_, err := a.db.Vector().CreateCollection(ctx, collection, a.dimension)
	if err != nil && !strings.Contains(strings.ToLower(err.Error()), "already exists") {
		return err
	}
	return nil
}

// Close releases the underlying database handle.
func (a *Adapter) Close() error {
	return a.db.Close()
}

// Add inserts (id, embedding, content, flattened metadata) for mem.
func (a *Adapter) Add(ctx context.Context, mem *elefante.Memory) error {
	emb, err := toEmbedding(mem)
	if err != nil {
		return elefante.Wrap(elefante.KindInvalidInput, err, "vector: encode memory %s", mem.ID)
	}
	if err := a.db.Vector().Upsert(ctx, emb); err != nil {
		return elefante.Wrap(elefante.KindStoreUnavailable, err, "vector: add %s", mem.ID)
	}
	return nil
}

// Get reconstructs a Memory by id, or returns (nil, nil) if absent.
func (a *Adapter) Get(ctx context.Context, id string) (*elefante.Memory, error) {
	sqlStore, ok := a.db.Vector().(*core.SQLiteStore)
	if !ok {
		return nil, elefante.NewError(elefante.KindStoreUnavailable, "vector: store does not support get-by-id")
	}
	emb, err := sqlStore.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, elefante.Wrap(elefante.KindStoreUnavailable, err, "vector: get %s", id)
	}
	return fromEmbedding(emb)
}

// Search runs a kNN query and applies the candidate-shaping rules of
// spec.md §4.3: oversampling for temporal decay, min-similarity cutoff, and
// optional decay blending.
func (a *Adapter) Search(ctx context.Context, queryEmbedding []float32, opts elefante.SearchOptions) ([]elefante.ScoredMemory, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}
	topK := limit
	if opts.ApplyTemporalDecay {
		topK = limit * 2
	}

	results, err := a.db.Vector().Search(ctx, queryEmbedding, core.SearchOptions{
		Collection: collection,
		TopK:       topK,
		Filter:     filterToMetadata(opts.Filters),
	})
	if err != nil {
		return nil, elefante.Wrap(elefante.KindStoreUnavailable, err, "vector: search")
	}

	now := time.Now().UTC()
	scored := make([]elefante.ScoredMemory, 0, len(results))
	for _, r := range results {
		similarity := clamp01(r.Score)
		if similarity < opts.MinSimilarity {
			continue
		}
		mem, err := fromEmbedding(&r.Embedding)
		if err != nil {
			continue
		}

		final := similarity
		if opts.ApplyTemporalDecay {
			temporal := temporalScore(mem, now)
			final = clamp01(a.wSem*similarity + a.wTmp*temporal)
		}
		scored = append(scored, elefante.ScoredMemory{Memory: mem, Similarity: final})
	}

	sortScoredDesc(scored)
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

// temporalScore implements spec.md §4.3.1:
// temporal = base + access_bonus - age_penalty, where
//
//	base = importance / 10
//	access_bonus = min(0.2, log(1 + access_count) * 0.05)
//	age_penalty = clamp(days_since_last_access / 180, 0, 0.3)
func temporalScore(mem *elefante.Memory, now time.Time) float64 {
	base := float64(mem.Importance) / 10.0

	accessBonus := math.Log(1+float64(mem.AccessCount)) * 0.05
	if accessBonus > 0.2 {
		accessBonus = 0.2
	}

	lastAccess := mem.LastAccessed
	if lastAccess.IsZero() {
		lastAccess = mem.CreatedAt
	}
	daysSince := now.Sub(lastAccess).Hours() / 24
	agePenalty := daysSince / 180
	if agePenalty < 0 {
		agePenalty = 0
	}
	if agePenalty > 0.3 {
		agePenalty = 0.3
	}

	return base + accessBonus - agePenalty
}

// Update applies a partial patch. sqvect's Store has no in-place field
// update, so the adapter fetches the current record, applies the patch in
// memory, and re-upserts (delete+re-add semantics sanctioned by spec.md
// §4.3's Update description).
func (a *Adapter) Update(ctx context.Context, id string, patch elefante.MemoryPatch) error {
	mem, err := a.Get(ctx, id)
	if err != nil {
		return err
	}
	if mem == nil {
		return elefante.NewError(elefante.KindNotFound, "vector: update: memory %s not found", id)
	}
	applyPatch(mem, patch)
	return a.Replace(ctx, mem)
}

// Replace performs a full rewrite of the memory identified by mem.ID.
func (a *Adapter) Replace(ctx context.Context, mem *elefante.Memory) error {
	return a.Add(ctx, mem)
}

// Delete removes the memory with the given id. Returns false if absent.
func (a *Adapter) Delete(ctx context.Context, id string) (bool, error) {
	existing, err := a.Get(ctx, id)
	if err != nil {
		return false, err
	}
	if existing == nil {
		return false, nil
	}
	if err := a.db.Vector().Delete(ctx, id); err != nil {
		return false, elefante.Wrap(elefante.KindStoreUnavailable, err, "vector: delete %s", id)
	}
	return true, nil
}

// GetAll performs a paginated, optionally filtered scan, used by the
// refinery and by elefanteMemoryListAll.
func (a *Adapter) GetAll(ctx context.Context, limit, offset int, filters elefante.MemoryFilter) ([]*elefante.Memory, error) {
	filter := core.NewMetadataFilter()
	applied := false
	for k, v := range filterToMetadata(filters) {
		filter = filter.Equal(k, v)
		applied = true
	}

	opts := core.AdvancedSearchOptions{
		SearchOptions: core.SearchOptions{Collection: collection, TopK: limit + offset},
	}
	if applied {
		opts.PreFilter = filter.Build()
	}

	// A zero vector acts as a wildcard query under cosine similarity ranking
	// being irrelevant here; GetAll only cares about the filtered set, not
	// rank order, so a zero-length or zero-valued vector is acceptable as
	// long as the store treats TopK as a scan bound for the filter pass.
	results, err := a.db.Vector().SearchWithAdvancedFilter(ctx, make([]float32, a.dimension), opts)
	if err != nil {
		return nil, elefante.Wrap(elefante.KindStoreUnavailable, err, "vector: get_all")
	}

	if offset >= len(results) {
		return nil, nil
	}
	results = results[offset:]
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	out := make([]*elefante.Memory, 0, len(results))
	for _, r := range results {
		mem, err := fromEmbedding(&r.Embedding)
		if err != nil {
			continue
		}
		out = append(out, mem)
	}
	return out, nil
}

// FindByTitle performs an exact metadata lookup on the title field.
func (a *Adapter) FindByTitle(ctx context.Context, title string) (*elefante.Memory, error) {
	opts := core.AdvancedSearchOptions{
		SearchOptions: core.SearchOptions{Collection: collection, TopK: 1},
		PreFilter:     core.NewMetadataFilter().Equal("title", title).Build(),
	}
	results, err := a.db.Vector().SearchWithAdvancedFilter(ctx, make([]float32, a.dimension), opts)
	if err != nil {
		return nil, elefante.Wrap(elefante.KindStoreUnavailable, err, "vector: find_by_title %q", title)
	}
	if len(results) == 0 {
		return nil, nil
	}
	return fromEmbedding(&results[0].Embedding)
}

// Stats reports the current count, collection name, and configured
// embedding dimension.
func (a *Adapter) Stats(ctx context.Context) (elefante.VectorStats, error) {
	stats, err := a.db.Vector().Stats(ctx)
	if err != nil {
		return elefante.VectorStats{}, elefante.Wrap(elefante.KindStoreUnavailable, err, "vector: stats")
	}
	return elefante.VectorStats{Count: stats.Count, Collection: collection, Dimension: stats.Dimensions}, nil
}

func isNotFound(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "not found")
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func sortScoredDesc(s []elefante.ScoredMemory) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j].Similarity > s[j-1].Similarity; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}

func applyPatch(mem *elefante.Memory, patch elefante.MemoryPatch) {
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
		if mem.CustomMetadata == nil {
			mem.CustomMetadata = map[string]elefante.MetaValue{}
		}
		for k, v := range patch.CustomMetadata {
			mem.CustomMetadata[k] = v
		}
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
}

func filterToMetadata(f elefante.MemoryFilter) map[string]string {
	m := map[string]string{}
	if f.SessionID != "" {
		m["session_id"] = f.SessionID
	}
	if f.MemoryType != "" {
		m["memory_type"] = string(f.MemoryType)
	}
	if f.Namespace != "" {
		m["namespace"] = string(f.Namespace)
	}
	if f.Status != "" {
		m["status"] = string(f.Status)
	}
	return m
}

// toEmbedding flattens mem's structured fields into a core.Embedding,
// storing indexed scalar fields as individual metadata keys and the full
// custom_metadata map as a JSON blob for lossless round-trip (spec.md §4.3).
func toEmbedding(mem *elefante.Memory) (*core.Embedding, error) {
	blob, err := marshalCustomMetadata(mem.CustomMetadata)
	if err != nil {
		return nil, err
	}

	md := map[string]string{
		"layer":                string(mem.Layer),
		"sublayer":             mem.Sublayer,
		"domain":               string(mem.Domain),
		"category":             mem.Category,
		"memory_type":          string(mem.MemoryType),
		"intent":               string(mem.Intent),
		"ring":                 string(mem.Ring),
		"knowledge_type":       string(mem.KnowledgeType),
		"topic":                mem.Topic,
		"summary":              mem.Summary,
		"owner_id":             mem.OwnerID,
		"importance":           strconv.Itoa(mem.Importance),
		"urgency":              strconv.Itoa(mem.Urgency),
		"confidence":           strconv.FormatFloat(mem.Confidence, 'g', -1, 64),
		"status":               string(mem.Status),
		"archived":             strconv.FormatBool(mem.Archived),
		"deprecated":           strconv.FormatBool(mem.Deprecated),
		"processing_status":    string(mem.ProcessingStatus),
		"parent_id":            mem.ParentID,
		"supersedes_id":        mem.SupersedesID,
		"superseded_by_id":     mem.SupersededByID,
		"relationship_type":    string(mem.RelationshipType),
		"canonical_key":        mem.CanonicalKey,
		"namespace":            string(mem.Namespace),
		"source":               string(mem.Source),
		"source_reliability":   strconv.FormatFloat(mem.SourceReliability, 'g', -1, 64),
		"verified":             strconv.FormatBool(mem.Verified),
		"created_at":           formatTime(mem.CreatedAt),
		"last_modified":        formatTime(mem.LastModified),
		"last_accessed":        formatTime(mem.LastAccessed),
		"access_count":         strconv.Itoa(mem.AccessCount),
		"project":              mem.Project,
		"file_path":            mem.FilePath,
		"session_id":           mem.SessionID,
		"tags":                 strings.Join(mem.Tags, ","),
		"keywords":             strings.Join(mem.Keywords, ","),
		"related_memory_ids":   strings.Join(mem.RelatedMemoryIDs, ","),
		"conflict_ids":         strings.Join(mem.ConflictIDs, ","),
		"title":                mem.Title(),
		"custom_metadata_json": blob,
	}

	return &core.Embedding{
		ID:         mem.ID,
		Collection: collection,
		Vector:     mem.Embedding,
		Content:    mem.Content,
		Metadata:   md,
	}, nil
}

// fromEmbedding reconstructs a Memory from its flattened metadata plus the
// embedded JSON blob, inverting toEmbedding.
func fromEmbedding(emb *core.Embedding) (*elefante.Memory, error) {
	md := emb.Metadata
	custom, err := unmarshalCustomMetadata(md["custom_metadata_json"])
	if err != nil {
		custom = map[string]elefante.MetaValue{}
	}
	if custom == nil {
		custom = map[string]elefante.MetaValue{}
	}
	if md["title"] != "" {
		if _, ok := custom["title"]; !ok {
			custom["title"] = elefante.StringValue(md["title"])
		}
	}

	mem := &elefante.Memory{
		ID:                emb.ID,
		Content:            emb.Content,
		Embedding:          emb.Vector,
		Layer:              elefante.Layer(md["layer"]),
		Sublayer:           md["sublayer"],
		Domain:             elefante.Domain(md["domain"]),
		Category:           md["category"],
		MemoryType:         elefante.MemoryType(md["memory_type"]),
		Intent:             elefante.Intent(md["intent"]),
		Ring:               elefante.Ring(md["ring"]),
		KnowledgeType:      elefante.KnowledgeType(md["knowledge_type"]),
		Topic:              md["topic"],
		Summary:            md["summary"],
		OwnerID:            md["owner_id"],
		Importance:         atoi(md["importance"]),
		Urgency:            atoi(md["urgency"]),
		Confidence:         atof(md["confidence"]),
		Status:             elefante.Status(md["status"]),
		Archived:           md["archived"] == "true",
		Deprecated:         md["deprecated"] == "true",
		ProcessingStatus:   elefante.ProcessingStatus(md["processing_status"]),
		ParentID:           md["parent_id"],
		SupersedesID:       md["supersedes_id"],
		SupersededByID:     md["superseded_by_id"],
		RelationshipType:   elefante.RelationshipType(md["relationship_type"]),
		CanonicalKey:       md["canonical_key"],
		Namespace:          elefante.Namespace(md["namespace"]),
		Source:             elefante.Source(md["source"]),
		SourceReliability:  atof(md["source_reliability"]),
		Verified:           md["verified"] == "true",
		CreatedAt:          parseTime(md["created_at"]),
		LastModified:       parseTime(md["last_modified"]),
		LastAccessed:       parseTime(md["last_accessed"]),
		AccessCount:        atoi(md["access_count"]),
		Project:            md["project"],
		FilePath:           md["file_path"],
		SessionID:          md["session_id"],
		Tags:               splitNonEmpty(md["tags"]),
		Keywords:           splitNonEmpty(md["keywords"]),
		RelatedMemoryIDs:   splitNonEmpty(md["related_memory_ids"]),
		ConflictIDs:        splitNonEmpty(md["conflict_ids"]),
		CustomMetadata:     custom,
	}
	return mem, nil
}

func marshalCustomMetadata(m map[string]elefante.MetaValue) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	flat := make(map[string]any, len(m))
	for k, v := range m {
		switch v.Kind {
		case elefante.MetaInt:
			flat[k] = v.Int
		case elefante.MetaFloat:
			flat[k] = v.Flt
		case elefante.MetaBool:
			flat[k] = v.Bool
		default:
			flat[k] = v.Str
		}
	}
	b, err := json.Marshal(flat)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func unmarshalCustomMetadata(raw string) (map[string]elefante.MetaValue, error) {
	if raw == "" {
		return nil, nil
	}
	var flat map[string]any
	if err := json.Unmarshal([]byte(raw), &flat); err != nil {
		return nil, err
	}
	out := make(map[string]elefante.MetaValue, len(flat))
	for k, v := range flat {
		switch val := v.(type) {
		case string:
			out[k] = elefante.StringValue(val)
		case float64:
			if val == math.Trunc(val) {
				out[k] = elefante.IntValue(int64(val))
			} else {
				out[k] = elefante.FloatValue(val)
			}
		case bool:
			out[k] = elefante.BoolValue(val)
		default:
			b, _ := json.Marshal(val)
			out[k] = elefante.StringValue(string(b))
		}
	}
	return out, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func atof(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
