package dispatcher

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jsubiabreIBM/Elefante-sub000/internal/orchestrator"
	"github.com/jsubiabreIBM/Elefante-sub000/pkg/elefante"
)

// memoryView is the JSON-facing projection of an *elefante.Memory returned
// by the search, list, and context tools.
type memoryView struct {
	ID            string `json:"id"`
	Title         string `json:"title,omitempty"`
	Content       string `json:"content"`
	Summary       string `json:"summary,omitempty"`
	Ring          string `json:"ring,omitempty"`
	KnowledgeType string `json:"knowledge_type,omitempty"`
	Topic         string `json:"topic,omitempty"`
	Namespace     string `json:"namespace,omitempty"`
	Status        string `json:"status,omitempty"`
	Importance    int    `json:"importance"`
}

func toMemoryView(mem *elefante.Memory) memoryView {
	return memoryView{
		ID:            mem.ID,
		Title:         mem.Title(),
		Content:       mem.Content,
		Summary:       mem.Summary,
		Ring:          string(mem.Ring),
		KnowledgeType: string(mem.KnowledgeType),
		Topic:         mem.Topic,
		Namespace:     string(mem.Namespace),
		Status:        string(mem.Status),
		Importance:    mem.Importance,
	}
}

// --- elefanteMemoryAdd ---

type memoryAddInput struct {
	Content      string   `json:"content"`
	Category     string   `json:"category,omitempty"`
	MemoryType   string   `json:"memory_type,omitempty"`
	Importance   int      `json:"importance,omitempty"`
	Urgency      int      `json:"urgency,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	Keywords     []string `json:"keywords,omitempty"`
	Entities     []string `json:"entities,omitempty"`
	SessionID    string   `json:"session_id,omitempty"`
	Namespace    string   `json:"namespace,omitempty"`
	CanonicalKey string   `json:"canonical_key,omitempty"`

	// ForceNew skips the dedup probe entirely: no reinforce, no "related"
	// linking, no SIMILAR_TO edge (spec.md §4.6 step 5, §9).
	ForceNew bool `json:"force_new,omitempty"`
}

type memoryAddOutput struct {
	envelope
	MemoryID  string `json:"memory_id,omitempty"`
	Status    string `json:"status,omitempty"`
	RelatedID string `json:"related_id,omitempty"`
}

// --- elefanteMemorySearch ---

type memorySearchInput struct {
	Query               string  `json:"query"`
	Limit               int     `json:"limit,omitempty"`
	Mode                string  `json:"mode,omitempty"`
	SessionID           string  `json:"session_id,omitempty"`
	MinSimilarity       float64 `json:"min_similarity,omitempty"`
	IncludeConversation bool    `json:"include_conversation,omitempty"`
	IncludeStored       bool    `json:"include_stored,omitempty"`
}

type searchHitView struct {
	Memory memoryView `json:"memory"`
	Score  float64    `json:"score"`
	Source string     `json:"source"`
}

type memorySearchOutput struct {
	envelope
	Results []searchHitView `json:"results"`
}

// --- elefanteMemoryListAll ---

type memoryListAllInput struct {
	Limit     int    `json:"limit,omitempty"`
	Offset    int    `json:"offset,omitempty"`
	Namespace string `json:"namespace,omitempty"`
	Status    string `json:"status,omitempty"`
}

type memoryListAllOutput struct {
	envelope
	Memories []memoryView `json:"memories"`
}

// --- elefanteMemoryConsolidate ---

type memoryConsolidateInput struct {
	Apply bool `json:"apply,omitempty"`
}

type supersedeActionView struct {
	WinnerID     string `json:"winner_id"`
	LoserID      string `json:"loser_id"`
	CanonicalKey string `json:"canonical_key"`
}

type memoryConsolidateOutput struct {
	envelope
	GroupsScanned   int                   `json:"groups_scanned"`
	MemoriesScanned int                   `json:"memories_scanned"`
	Applied         bool                  `json:"applied"`
	Superseded      []supersedeActionView `json:"superseded,omitempty"`
	DriftFixed      []string              `json:"drift_fixed,omitempty"`
}

// --- elefanteContextGet ---

type contextGetInput struct {
	SessionID string `json:"session_id"`
	Depth     int    `json:"depth,omitempty"`
}

type contextGetOutput struct {
	envelope
	Memories      []memoryView       `json:"memories"`
	Entities      []entityView       `json:"entities"`
	Relationships []relationshipView `json:"relationships"`
}

// --- elefanteSessionsList ---

type sessionsListInput struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

type sessionView struct {
	ID               string `json:"id"`
	InteractionCount int    `json:"interaction_count"`
	LastActive       string `json:"last_active,omitempty"`
}

type sessionsListOutput struct {
	envelope
	Sessions []sessionView `json:"sessions"`
}

// registerMemoryTools registers the memory-lifecycle tools of spec.md §6.2:
// elefanteMemoryAdd, elefanteMemorySearch, elefanteMemoryListAll,
// elefanteContextGet, elefanteMemoryConsolidate, and elefanteSessionsList.
func (d *Dispatcher) registerMemoryTools(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "elefanteMemoryAdd",
		Description: "Ingest one memory: classifies, deduplicates against near-identical content, and links it into the graph.",
		Annotations: &mcp.ToolAnnotations{Title: "Add Memory", DestructiveHint: boolPtr(false)},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in memoryAddInput) (*mcp.CallToolResult, memoryAddOutput, error) {
		result, err := d.orc.AddMemory(ctx, orchestrator.AddMemoryInput{
			Content:              in.Content,
			Category:             in.Category,
			MemoryType:           elefante.MemoryType(in.MemoryType),
			Importance:           in.Importance,
			Urgency:              in.Urgency,
			Tags:                 in.Tags,
			Keywords:             in.Keywords,
			Entities:             in.Entities,
			SessionID:            in.SessionID,
			ExplicitNamespace:    in.Namespace,
			ExplicitCanonicalKey: in.CanonicalKey,
			ForceNew:             in.ForceNew,
		})
		if err != nil {
			return nil, memoryAddOutput{envelope: fail(err)}, nil
		}
		return nil, memoryAddOutput{
			envelope:  ok(),
			MemoryID:  result.Memory.ID,
			Status:    result.Status,
			RelatedID: result.RelatedID,
		}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "elefanteMemorySearch",
		Description: "Hybrid vector+graph+conversation search over stored memories. Never requires the write lock.",
		Annotations: &mcp.ToolAnnotations{Title: "Search Memories", ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in memorySearchInput) (*mcp.CallToolResult, memorySearchOutput, error) {
		results, err := d.orc.Search(ctx, orchestrator.SearchInput{
			Query:               in.Query,
			Limit:               in.Limit,
			Mode:                orchestrator.RetrievalMode(in.Mode),
			SessionID:           in.SessionID,
			MinSimilarity:       in.MinSimilarity,
			IncludeConversation: in.IncludeConversation,
			IncludeStored:       in.IncludeStored,
		})
		if err != nil {
			return nil, memorySearchOutput{envelope: fail(err)}, nil
		}
		hits := make([]searchHitView, 0, len(results))
		for _, r := range results {
			hits = append(hits, searchHitView{Memory: toMemoryView(r.Memory), Score: r.Score, Source: r.Source})
		}
		return nil, memorySearchOutput{envelope: ok(), Results: hits}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "elefanteMemoryListAll",
		Description: "Paginated scan over every stored memory, optionally filtered by namespace/status.",
		Annotations: &mcp.ToolAnnotations{Title: "List Memories", ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in memoryListAllInput) (*mcp.CallToolResult, memoryListAllOutput, error) {
		memories, err := d.orc.ListMemories(ctx, in.Limit, in.Offset, elefante.MemoryFilter{
			Namespace: elefante.Namespace(in.Namespace),
			Status:    elefante.Status(in.Status),
		})
		if err != nil {
			return nil, memoryListAllOutput{envelope: fail(err)}, nil
		}
		views := make([]memoryView, 0, len(memories))
		for _, mem := range memories {
			views = append(views, toMemoryView(mem))
		}
		return nil, memoryListAllOutput{envelope: ok(), Memories: views}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "elefanteContextGet",
		Description: "Returns the memories, entities, and relationships linked to a session up to a given graph depth.",
		Annotations: &mcp.ToolAnnotations{Title: "Get Context", ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in contextGetInput) (*mcp.CallToolResult, contextGetOutput, error) {
		result, err := d.orc.GetContext(ctx, in.SessionID, in.Depth)
		if err != nil {
			return nil, contextGetOutput{envelope: fail(err)}, nil
		}
		memories := make([]memoryView, 0, len(result.Memories))
		for _, mem := range result.Memories {
			memories = append(memories, toMemoryView(mem))
		}
		entities := make([]entityView, 0, len(result.Entities))
		for _, e := range result.Entities {
			entities = append(entities, toEntityView(e))
		}
		rels := make([]relationshipView, 0, len(result.Relationships))
		for _, r := range result.Relationships {
			rels = append(rels, toRelationshipView(r))
		}
		return nil, contextGetOutput{envelope: ok(), Memories: memories, Entities: entities, Relationships: rels}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "elefanteMemoryConsolidate",
		Description: "Runs the refinery: groups memories by (namespace, canonical_key), supersedes losers. Dry-run unless apply=true.",
		Annotations: &mcp.ToolAnnotations{Title: "Consolidate Memories", DestructiveHint: boolPtr(true)},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in memoryConsolidateInput) (*mcp.CallToolResult, memoryConsolidateOutput, error) {
		report, err := d.orc.Refine(ctx, in.Apply)
		if err != nil {
			return nil, memoryConsolidateOutput{envelope: fail(err)}, nil
		}
		actions := make([]supersedeActionView, 0, len(report.Superseded))
		for _, a := range report.Superseded {
			actions = append(actions, supersedeActionView{WinnerID: a.WinnerID, LoserID: a.LoserID, CanonicalKey: a.CanonicalKey})
		}
		return nil, memoryConsolidateOutput{
			envelope:        ok(),
			GroupsScanned:   report.GroupsScanned,
			MemoriesScanned: report.MemoriesScanned,
			Applied:         report.Applied,
			Superseded:      actions,
			DriftFixed:      report.DriftFixed,
		}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "elefanteSessionsList",
		Description: "Paginated list of session entities known to the graph store.",
		Annotations: &mcp.ToolAnnotations{Title: "List Sessions", ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in sessionsListInput) (*mcp.CallToolResult, sessionsListOutput, error) {
		sessions, err := d.orc.ListSessions(ctx, in.Limit, in.Offset)
		if err != nil {
			return nil, sessionsListOutput{envelope: fail(err)}, nil
		}
		views := make([]sessionView, 0, len(sessions))
		for _, s := range sessions {
			views = append(views, sessionView{ID: s.ID, InteractionCount: s.InteractionCount, LastActive: s.LastActive.Format("2006-01-02T15:04:05Z07:00")})
		}
		return nil, sessionsListOutput{envelope: ok(), Sessions: views}, nil
	})
}
