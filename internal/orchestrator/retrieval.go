package orchestrator

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jsubiabreIBM/Elefante-sub000/pkg/elefante"
)

// RetrievalMode narrows Search to a single collector, bypassing weight
// planning entirely (spec.md §4.7).
type RetrievalMode string

const (
	ModeAuto       RetrievalMode = ""
	ModeSemantic   RetrievalMode = "semantic"
	ModeStructured RetrievalMode = "structured"
)

// SearchInput parameterizes the hybrid retrieval engine.
type SearchInput struct {
	Query     string
	Limit     int
	Mode      RetrievalMode
	Filters   elefante.MemoryFilter
	SessionID string

	// MinSimilarity floors the vector collector's candidate set (spec.md
	// §4.7 step 1, P6). Zero means no floor beyond the store's own default.
	MinSimilarity float64

	// IncludeConversation enables the conversation collector of §4.7.1 when
	// SessionID is set. When true and Conversation is empty, the collector
	// fetches its own window from the vector store (see fetchConversationWindow).
	IncludeConversation bool

	// IncludeStored controls whether the vector/graph collectors run
	// alongside the conversation collector. When IncludeConversation is
	// false, stored collectors always run (the common "just search" case).
	// When IncludeConversation is true, IncludeStored must also be set to
	// combine conversation results with stored ones; leaving it false
	// yields a conversation-only search.
	IncludeStored bool

	// Conversation supplies the in-memory conversation turns the
	// conversation collector ranks against Query (spec.md §4.7.1), bypassing
	// the store-backed fetch. Callers that have no live conversation buffer
	// may leave this nil and rely on IncludeConversation + SessionID.
	Conversation []ConversationTurn
}

// conversationMaxWindow is spec.md §4.7.1's max_window: the conversation
// collector fetches at most this many memories from the vector store.
const conversationMaxWindow = 50

// SearchResult is one ranked hit returned by Search, carrying the
// contributing source and its combined score (spec.md §4.7).
type SearchResult struct {
	Memory   *elefante.Memory
	Score    float64
	Source   string // "vector", "graph", "conversation", or "hybrid"
	Metadata map[string]string
}

// identifierTokens trigger the graph-weighted query shape of §4.7.
var identifierTokens = regexp.MustCompile(`(?i)\b(named|called|id|uuid)\b`)

// questionWords trigger the vector-weighted query shape of §4.7.
var questionWords = regexp.MustCompile(`(?i)^\s*(who|what|when|where|why|how)\b`)

// planWeights implements spec.md §4.7's weight-planning table.
func planWeights(mode RetrievalMode, query string) (wVec, wGraph float64) {
	switch mode {
	case ModeSemantic:
		return 1.0, 0.0
	case ModeStructured:
		return 0.0, 1.0
	}

	switch {
	case identifierTokens.MatchString(query):
		return 0.3, 0.7
	case questionWords.MatchString(query):
		return 0.7, 0.3
	default:
		return 0.5, 0.5
	}
}

// Search implements the hybrid retrieval engine of spec.md §4.7: it embeds
// the query, fans out to the vector collector, the graph collector, and
// (when conversation turns are supplied) the conversation collector in
// parallel, merges and deduplicates the results, and returns them sorted by
// descending combined score.
func (o *Orchestrator) Search(ctx context.Context, in SearchInput) ([]SearchResult, error) {
	start := time.Now()
	defer func() { o.metrics.SearchDuration.Record(ctx, time.Since(start).Seconds()) }()

	if strings.TrimSpace(in.Query) == "" {
		return nil, elefante.NewError(elefante.KindInvalidInput, "query must not be empty")
	}
	limit := in.Limit
	if limit <= 0 {
		limit = 10
	}

	wVec, wGraph := planWeights(in.Mode, in.Query)

	// IncludeConversation without IncludeStored means a conversation-only
	// search; otherwise the stored (vector/graph) collectors always run, per
	// SearchInput.IncludeStored's doc comment.
	runStored := !in.IncludeConversation || in.IncludeStored
	runConversation := in.IncludeConversation && in.SessionID != ""

	queryVec, err := o.embed.Embed(ctx, in.Query)
	if err != nil {
		return nil, elefante.Wrap(elefante.KindStoreUnavailable, err, "embed query")
	}

	var vectorHits, graphHits, conversationHits []SearchResult
	g, gctx := errgroup.WithContext(ctx)

	if runStored && wVec > 0 {
		g.Go(func() error {
			hits, err := o.vectorCollector(gctx, queryVec, limit, in.Filters, wVec, in.MinSimilarity)
			if err != nil {
				return err
			}
			vectorHits = hits
			return nil
		})
	}
	if runStored && wGraph > 0 {
		g.Go(func() error {
			hits, err := o.graphCollector(gctx, in.Query, limit, wGraph)
			if err != nil {
				return err
			}
			graphHits = hits
			return nil
		})
	}
	if len(in.Conversation) > 0 {
		g.Go(func() error {
			conversationHits = conversationCollector(in.Query, in.Conversation, limit)
			return nil
		})
	} else if runConversation {
		g.Go(func() error {
			turns, err := o.fetchConversationWindow(gctx, in.SessionID)
			if err != nil {
				return err
			}
			conversationHits = conversationCollector(in.Query, turns, limit)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, elefante.Wrap(elefante.KindStoreUnavailable, err, "hybrid retrieval collector")
	}

	merged := append(append(vectorHits, graphHits...), conversationHits...)
	deduped := dedupeResults(merged, o.cfg.DedupThreshold)

	sort.SliceStable(deduped, func(i, j int) bool { return deduped[i].Score > deduped[j].Score })
	if len(deduped) > limit {
		deduped = deduped[:limit]
	}
	return deduped, nil
}

// vectorCollector runs the dense-embedding kNN search, oversampling by 2x
// per §4.7 step 1, applies minSimilarity as a floor (P6: increasing
// min_similarity never increases the result count), and scales each hit's
// similarity by wVec to produce its contribution to the combined score.
func (o *Orchestrator) vectorCollector(ctx context.Context, queryVec []float32, limit int, filters elefante.MemoryFilter, wVec float64, minSimilarity float64) ([]SearchResult, error) {
	hits, err := o.vector.Search(ctx, queryVec, elefante.SearchOptions{
		Limit:              limit * 2,
		Filters:            filters,
		MinSimilarity:      minSimilarity,
		ApplyTemporalDecay: true,
	})
	if err != nil {
		return nil, err
	}
	results := make([]SearchResult, 0, len(hits))
	for _, h := range hits {
		results = append(results, SearchResult{
			Memory: h.Memory,
			Score:  wVec * h.Similarity,
			Source: "vector",
		})
	}
	return results, nil
}

// graphCollector runs an exact-name lookup against the graph store and
// expands to each matched entity's one-hop neighborhood, surfacing any
// neighbor that is itself a memory node. Each hit's graph_score is
// importance/10 per §4.7's structured collector, scaled by wGraph.
func (o *Orchestrator) graphCollector(ctx context.Context, query string, limit int, wGraph float64) ([]SearchResult, error) {
	entity, err := o.graph.FindEntityByName(ctx, query)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, nil
	}

	neighbors, _, err := o.graph.GetNeighbors(ctx, entity.ID, 1)
	if err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(neighbors))
	for _, n := range neighbors {
		if n.Type != elefante.EntityMemory {
			continue
		}
		mem, err := o.vector.Get(ctx, n.ID)
		if err != nil || mem == nil {
			continue
		}
		graphScore := float64(mem.Importance) / 10
		results = append(results, SearchResult{Memory: mem, Score: wGraph * graphScore, Source: "graph"})
		if len(results) >= limit {
			break
		}
	}
	return results, nil
}
