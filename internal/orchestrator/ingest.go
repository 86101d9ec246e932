package orchestrator

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jsubiabreIBM/Elefante-sub000/pkg/elefante"
	"github.com/jsubiabreIBM/Elefante-sub000/pkg/elefante/classifier"
)

// AddMemoryInput holds the caller-supplied fields for AddMemory, mirroring
// spec.md §3.1's Memory shape minus the fields the pipeline itself derives
// (id, embedding, topology, namespace, canonical_key, timestamps).
type AddMemoryInput struct {
	Content           string
	Layer             elefante.Layer
	Sublayer          string
	Domain            elefante.Domain
	Category          string
	MemoryType        elefante.MemoryType
	Intent            elefante.Intent
	Importance        int
	Urgency           int
	Confidence        float64
	Source            elefante.Source
	SourceReliability float64
	Project           string
	FilePath          string
	SessionID         string
	Tags              []string
	Keywords          []string

	// Entities lists names of entities the caller already knows this memory
	// mentions; each gets a RELATES_TO edge in step 8 of §4.6.
	Entities []string

	// ExplicitNamespace, ExplicitCanonicalKey mirror custom_metadata.namespace
	// and custom_metadata.canonical_key, consulted by the classifier before
	// falling back to inference.
	ExplicitNamespace    string
	ExplicitCanonicalKey string

	// ForceNew skips the dedup probe entirely (spec.md §4.6 step 5 / §9's
	// open-question resolution): no reinforce, no "related" linking, and no
	// SIMILAR_TO edge — the memory is always inserted as a fresh record.
	ForceNew bool

	CustomMetadata map[string]elefante.MetaValue
}

// AddResult reports the outcome of AddMemory: whether a new memory was
// created, an existing one was reinforced (near-duplicate), or the call was
// otherwise resolved without a fresh insert.
type AddResult struct {
	Memory    *elefante.Memory
	Status    string // "new", "related", "reinforced"
	RelatedID string // populated for "related"/"reinforced"
}

// firstPersonPattern implements spec.md §4.6.1's heuristic for content that
// refers to the caller themself. Go's regexp has no lookahead, so the
// "I not followed by =" exclusion is applied by looksLikeFirstPerson via
// the optional second group.
var firstPersonPattern = regexp.MustCompile(`(?i)\b(I)\b(\s*=)?|\b(my|me|we|our|mine)\b`)

// codeKeywordPrefixes suppress the first-person heuristic when content looks
// like source code rather than prose (§4.6.1).
var codeKeywordPrefixes = []string{
	"return ", "import ", "def ", "class ", "for ", "if ", "async ", "await ", "try:", "except", "else", "elif",
}

// codeSymbolPattern matches are counted toward the "≥2 code-like symbols" suppression rule.
var codeSymbolPattern = regexp.MustCompile(`[{};=<>]`)

func looksLikeFirstPerson(content string) bool {
	trimmed := strings.TrimSpace(content)
	lower := strings.ToLower(trimmed)
	for _, prefix := range codeKeywordPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return false
		}
	}
	if len(codeSymbolPattern.FindAllString(content, -1)) >= 2 {
		return false
	}
	for _, m := range firstPersonPattern.FindAllStringSubmatchIndex(content, -1) {
		if m[2] >= 0 && m[4] >= 0 {
			continue // "I" followed by "=" reads as an assignment, not prose
		}
		return true
	}
	return false
}

// maxContentLength is spec.md §3.1's upper bound on Memory.Content: 1..10000
// characters, enforced with KindInvalidInput on violation.
const maxContentLength = 10000

// AddMemory implements the ingestion pipeline of spec.md §4.6.
func (o *Orchestrator) AddMemory(ctx context.Context, in AddMemoryInput) (*AddResult, error) {
	start := time.Now()
	defer func() { o.metrics.IngestDuration.Record(ctx, time.Since(start).Seconds()) }()

	if strings.TrimSpace(in.Content) == "" {
		return nil, elefante.NewError(elefante.KindInvalidInput, "content must not be empty")
	}
	if len(in.Content) > maxContentLength {
		return nil, elefante.NewError(elefante.KindInvalidInput,
			"content exceeds maximum length of %d characters", maxContentLength)
	}

	namespace := classifier.ClassifyNamespace(classifier.NamespaceInput{
		ExplicitNamespace: in.ExplicitNamespace,
		Category:          in.Category,
		Tags:              in.Tags,
		Content:           in.Content,
	})

	if namespace == elefante.NamespaceTest && !o.cfg.AllowTestMemories {
		return nil, elefante.NewError(elefante.KindCapabilityDisabled, "test-namespace memories are disabled").
			WithHint("set ELEFANTE_ALLOW_TEST_MEMORIES=1 to allow them")
	}

	canonicalKey := classifier.InferCanonicalKey(classifier.CanonicalKeyInput{
		ExplicitCanonicalKey: in.ExplicitCanonicalKey,
		Content:              in.Content,
		Title:                titleOf(in.CustomMetadata),
		Layer:                in.Layer,
		Sublayer:             in.Sublayer,
	})

	vec, err := o.embed.Embed(ctx, in.Content)
	if err != nil {
		return nil, elefante.Wrap(elefante.KindStoreUnavailable, err, "embed content")
	}

	var result *AddResult
	err = o.withWriteLock(ctx, func(ctx context.Context) error {
		result, err = o.addMemoryLocked(ctx, in, namespace, canonicalKey, vec)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (o *Orchestrator) addMemoryLocked(ctx context.Context, in AddMemoryInput, namespace elefante.Namespace, canonicalKey string, vec []float32) (*AddResult, error) {
	now := time.Now().UTC()

	var candidates []elefante.ScoredMemory
	if !in.ForceNew {
		var err error
		candidates, err = o.vector.Search(ctx, vec, elefante.SearchOptions{
			Limit:         1,
			MinSimilarity: o.cfg.RelatedThreshold,
			Filters:       elefante.MemoryFilter{Namespace: namespace},
		})
		if err != nil {
			return nil, elefante.Wrap(elefante.KindStoreUnavailable, err, "dedup probe search")
		}
	}

	if len(candidates) > 0 && candidates[0].Similarity >= o.cfg.ReinforceThreshold {
		existing := candidates[0].Memory
		accessCount := existing.AccessCount + 1
		importance := existing.Importance
		if in.Importance > importance {
			importance = in.Importance
		}
		tags := unionTags(existing.Tags, in.Tags)
		if err := o.vector.Update(ctx, existing.ID, elefante.MemoryPatch{
			LastAccessed: &now,
			AccessCount:  &accessCount,
			Importance:   &importance,
			Tags:         tags,
			LastModified: &now,
		}); err != nil {
			return nil, elefante.Wrap(elefante.KindStoreUnavailable, err, "reinforce existing memory")
		}
		existing.Importance = importance
		existing.Tags = tags
		existing.LastModified = now
		existing.LastAccessed = now
		existing.AccessCount = accessCount
		o.metrics.RecordDedupOutcome(ctx, "reinforced")
		return &AddResult{Memory: existing, Status: "reinforced", RelatedID: existing.ID}, nil
	}

	var relatedID string
	status := "new"
	if len(candidates) > 0 && candidates[0].Similarity >= o.cfg.RelatedThreshold {
		relatedID = candidates[0].Memory.ID
		status = "related"
	}

	mem := &elefante.Memory{
		ID:                newMemoryID(),
		Content:           in.Content,
		Embedding:         vec,
		Layer:             in.Layer,
		Sublayer:          in.Sublayer,
		Domain:            in.Domain,
		Category:          in.Category,
		MemoryType:        in.MemoryType,
		Intent:            in.Intent,
		Importance:        in.Importance,
		Urgency:           in.Urgency,
		Confidence:        in.Confidence,
		Status:            elefante.StatusNew,
		ProcessingStatus:  elefante.ProcessingRaw,
		CanonicalKey:      canonicalKey,
		Namespace:         namespace,
		Source:            in.Source,
		SourceReliability: in.SourceReliability,
		CreatedAt:         now,
		LastModified:      now,
		LastAccessed:      now,
		AccessCount:       0,
		Project:           in.Project,
		FilePath:          in.FilePath,
		SessionID:         in.SessionID,
		Tags:              in.Tags,
		Keywords:          in.Keywords,
		CustomMetadata:    in.CustomMetadata,
	}
	if status == "related" {
		mem.RelatedMemoryIDs = []string{relatedID}
	}

	if err := o.vector.Add(ctx, mem); err != nil {
		return nil, elefante.Wrap(elefante.KindStoreUnavailable, err, "persist memory to vector store")
	}

	if err := o.writeGraphSideEffects(ctx, in, mem, relatedID, candidates); err != nil {
		// Compensate for the partial write to preserve I1 (spec.md §4.6.2):
		// the memory must exist in both stores or neither.
		if _, delErr := o.vector.Delete(ctx, mem.ID); delErr != nil {
			o.logger.Error("orchestrator: compensating delete failed after graph write error",
				"memory_id", mem.ID, "graph_error", err, "delete_error", delErr)
			return nil, elefante.Wrap(elefante.KindIntegrityViolation, err,
				"graph write failed and compensating vector delete also failed for memory %s", mem.ID)
		}
		return nil, elefante.Wrap(elefante.KindStoreUnavailable, err, "create graph node/edges for memory %s", mem.ID)
	}

	o.metrics.RecordDedupOutcome(ctx, status)
	return &AddResult{Memory: mem, Status: status, RelatedID: relatedID}, nil
}

// writeGraphSideEffects implements spec.md §4.6 steps 7-8: create the memory's
// own graph node, then auto-link it to the owner, the session, any explicit
// entities, and a near-duplicate candidate.
func (o *Orchestrator) writeGraphSideEffects(ctx context.Context, in AddMemoryInput, mem *elefante.Memory, relatedID string, candidates []elefante.ScoredMemory) error {
	if err := o.graph.CreateEntity(ctx, &elefante.Entity{
		ID:          mem.ID,
		Name:        mem.Title(),
		Type:        elefante.EntityMemory,
		Description: summarize(mem.Content),
		CreatedAt:   mem.CreatedAt,
		Tags:        mem.Tags,
	}); err != nil {
		return fmt.Errorf("create memory node: %w", err)
	}

	if looksLikeFirstPerson(in.Content) && o.cfg.OwnerUserID != "" {
		if err := o.ensureEntity(ctx, o.cfg.OwnerUserID, o.cfg.OwnerUserID, elefante.EntityPerson); err != nil {
			return fmt.Errorf("ensure owner entity: %w", err)
		}
		if err := o.graph.CreateRelationship(ctx, &elefante.Relationship{
			FromEntityID: mem.ID, ToEntityID: o.cfg.OwnerUserID, Type: elefante.RelRelatesTo,
		}); err != nil {
			return fmt.Errorf("link memory to owner: %w", err)
		}
	}

	if in.SessionID != "" {
		if err := o.ensureEntity(ctx, in.SessionID, in.SessionID, elefante.EntitySession); err != nil {
			return fmt.Errorf("ensure session entity: %w", err)
		}
		if err := o.graph.CreateRelationship(ctx, &elefante.Relationship{
			FromEntityID: mem.ID, ToEntityID: in.SessionID, Type: elefante.RelCreatedIn,
		}); err != nil {
			return fmt.Errorf("link memory to session: %w", err)
		}
	}

	for _, name := range in.Entities {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		entity, err := o.graph.FindEntityByName(ctx, name)
		if err != nil {
			return fmt.Errorf("look up entity %q: %w", name, err)
		}
		entityID := name
		if entity != nil {
			entityID = entity.ID
		} else if err := o.ensureEntity(ctx, name, name, elefante.EntityConcept); err != nil {
			return fmt.Errorf("ensure entity %q: %w", name, err)
		}
		if err := o.graph.CreateRelationship(ctx, &elefante.Relationship{
			FromEntityID: mem.ID, ToEntityID: entityID, Type: elefante.RelRelatesTo,
		}); err != nil {
			return fmt.Errorf("link memory to entity %q: %w", name, err)
		}
	}

	if relatedID != "" && len(candidates) > 0 {
		if err := o.graph.CreateRelationship(ctx, &elefante.Relationship{
			FromEntityID: mem.ID, ToEntityID: relatedID, Type: elefante.RelSimilarTo,
			Strength:   candidates[0].Similarity,
			Properties: map[string]elefante.MetaValue{"similarity": elefante.FloatValue(candidates[0].Similarity)},
		}); err != nil {
			return fmt.Errorf("link memory to similar candidate: %w", err)
		}
	}

	return nil
}

// ensureEntity creates id/name/kind as a graph entity unless it already
// exists, matching §4.4's merge-before-create semantics. A freshly created
// EntitySession bumps Metrics.ActiveSessions, since this is the only point
// where a session id is known to be newly seen by the orchestrator.
func (o *Orchestrator) ensureEntity(ctx context.Context, id, name string, kind elefante.EntityType) error {
	existing, err := o.graph.GetEntity(ctx, id)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	if err := o.graph.CreateEntity(ctx, &elefante.Entity{ID: id, Name: name, Type: kind, CreatedAt: time.Now().UTC()}); err != nil {
		return err
	}
	if kind == elefante.EntitySession {
		o.metrics.ActiveSessions.Add(ctx, 1)
	}
	return nil
}

func titleOf(md map[string]elefante.MetaValue) string {
	if md == nil {
		return ""
	}
	if v, ok := md["title"]; ok {
		return v.AsString()
	}
	return ""
}

// unionTags merges two tag sets, preserving existing's order and appending
// any new tags not already present, per spec.md §4.6 step 5's reinforce rule.
func unionTags(existing, incoming []string) []string {
	seen := make(map[string]bool, len(existing))
	out := make([]string, 0, len(existing)+len(incoming))
	for _, t := range existing {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	for _, t := range incoming {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

// summarize truncates content to a short description for the memory's graph
// node, avoiding pathologically long Entity.Description values.
func summarize(content string) string {
	content = strings.TrimSpace(content)
	const max = 200
	if len(content) <= max {
		return content
	}
	return content[:max] + "…"
}
