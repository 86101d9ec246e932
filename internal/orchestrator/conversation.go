package orchestrator

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/jsubiabreIBM/Elefante-sub000/pkg/elefante"
)

// conversationHalfLife is the recency half-life used by the conversation
// collector's exponential decay term (spec.md §4.7.1): one hour.
const conversationHalfLife = time.Hour

// sourceConversation is not one of pkg/elefante/types.go's named Source
// constants, but spec.md §4.7.1 assigns it its own role weight distinct from
// SourceUserInput/SourceAgentGenerated/SourceSystemInferred, so turns sourced
// from a plain conversation log use this literal value.
const sourceConversation = elefante.Source("conversation")

// roleWeights implements spec.md §4.7.1's per-role weighting table.
var roleWeights = map[elefante.Source]float64{
	elefante.SourceUserInput:      1.0,
	elefante.SourceAgentGenerated: 0.7,
	sourceConversation:            0.8,
	elefante.SourceSystemInferred: 0.5,
}

const (
	defaultRoleWeight = 0.6
	weightRecency     = 0.5
	weightKeyword     = 0.3
	weightRole        = 0.2
)

// stopwords are excluded from the keyword-overlap term, matching the small
// fixed list described in spec.md §4.7.1.
var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "is": true, "are": true, "was": true, "were": true,
	"of": true, "to": true, "in": true, "on": true, "for": true, "and": true, "or": true,
	"it": true, "this": true, "that": true, "with": true, "as": true, "at": true, "by": true,
}

// ConversationTurn is one entry in the live conversation window the
// collector ranks against a query (spec.md §4.7.1).
type ConversationTurn struct {
	Content   string
	Source    elefante.Source
	Timestamp time.Time
	MemoryID  string // populated if this turn was already persisted as a Memory
}

func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	})
	out := fields[:0]
	for _, f := range fields {
		if f != "" && !stopwords[f] {
			out = append(out, f)
		}
	}
	return out
}

func roleWeightOf(source elefante.Source) float64 {
	if w, ok := roleWeights[source]; ok {
		return w
	}
	return defaultRoleWeight
}

// conversationCollector implements spec.md §4.7.1: score each turn by a
// weighted blend of recency (1-hour half-life), query-token keyword overlap,
// and role weight, keep the top limit turns by score, and surface only turns
// that reference a persisted Memory.
func conversationCollector(query string, turns []ConversationTurn, limit int) []SearchResult {
	if len(turns) == 0 {
		return nil
	}
	queryTokens := tokenize(query)
	now := time.Now().UTC()

	type scored struct {
		turn  ConversationTurn
		score float64
	}
	var candidates []scored
	for _, t := range turns {
		if t.MemoryID == "" {
			continue
		}
		age := now.Sub(t.Timestamp).Seconds()
		if age < 0 {
			age = 0
		}
		recency := math.Pow(0.5, age/conversationHalfLife.Seconds())
		keyword := keywordOverlap(queryTokens, t.Content)
		role := roleWeightOf(t.Source)
		final := weightRecency*recency + weightKeyword*keyword + weightRole*role
		candidates = append(candidates, scored{turn: t, score: final})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	results := make([]SearchResult, 0, len(candidates))
	for _, c := range candidates {
		results = append(results, SearchResult{
			Memory: &elefante.Memory{ID: c.turn.MemoryID, Content: c.turn.Content},
			Score:  c.score,
			Source: "conversation",
		})
	}
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

// fetchConversationWindow implements §4.7.1's store-backed fetch: up to
// conversationMaxWindow memories from the vector store filtered to
// memory_type == conversation and the given session_id.
func (o *Orchestrator) fetchConversationWindow(ctx context.Context, sessionID string) ([]ConversationTurn, error) {
	memories, err := o.vector.GetAll(ctx, conversationMaxWindow, 0, elefante.MemoryFilter{
		SessionID:  sessionID,
		MemoryType: elefante.MemoryTypeConversation,
	})
	if err != nil {
		return nil, err
	}
	turns := make([]ConversationTurn, 0, len(memories))
	for _, mem := range memories {
		turns = append(turns, ConversationTurn{
			Content:   mem.Content,
			Source:    mem.Source,
			Timestamp: mem.CreatedAt,
			MemoryID:  mem.ID,
		})
	}
	return turns, nil
}

func keywordOverlap(queryTokens []string, content string) float64 {
	if len(queryTokens) == 0 {
		return 0
	}
	lower := strings.ToLower(content)
	overlap := 0
	for _, tok := range queryTokens {
		if strings.Contains(lower, tok) {
			overlap++
		}
	}
	return float64(overlap) / float64(len(queryTokens))
}
