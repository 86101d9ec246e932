package dispatcher

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jsubiabreIBM/Elefante-sub000/internal/orchestrator"
	"github.com/jsubiabreIBM/Elefante-sub000/pkg/elefante"
)

func boolPtr(b bool) *bool { return &b }

type entityView struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

func toEntityView(e *elefante.Entity) entityView {
	return entityView{ID: e.ID, Name: e.Name, Type: string(e.Type)}
}

type relationshipView struct {
	FromEntityID string  `json:"from_entity_id"`
	ToEntityID   string  `json:"to_entity_id"`
	Type         string  `json:"type"`
	Strength     float64 `json:"strength,omitempty"`
}

func toRelationshipView(r *elefante.Relationship) relationshipView {
	return relationshipView{FromEntityID: r.FromEntityID, ToEntityID: r.ToEntityID, Type: string(r.Type), Strength: r.Strength}
}

// --- elefanteGraphEntityCreate ---

type graphEntityCreateInput struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Type        string   `json:"type,omitempty"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

type graphEntityCreateOutput struct {
	envelope
	EntityID string `json:"entity_id,omitempty"`
}

// --- elefanteGraphRelationshipCreate ---

type graphRelationshipCreateInput struct {
	FromEntityID string  `json:"from_entity_id"`
	ToEntityID   string  `json:"to_entity_id"`
	Type         string  `json:"type"`
	Strength     float64 `json:"strength,omitempty"`
}

type graphRelationshipCreateOutput struct {
	envelope
}

// --- elefanteGraphConnect ---

type connectEntityInput struct {
	Ref  string `json:"ref"`
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
	Type string `json:"type,omitempty"`
}

type connectRelationshipInput struct {
	FromRef string `json:"from_ref,omitempty"`
	ToRef   string `json:"to_ref,omitempty"`
	FromID  string `json:"from_id,omitempty"`
	ToID    string `json:"to_id,omitempty"`
	Type    string `json:"type"`
}

type graphConnectInput struct {
	Entities      []connectEntityInput       `json:"entities,omitempty"`
	Relationships []connectRelationshipInput `json:"relationships,omitempty"`
}

type graphConnectOutput struct {
	envelope
	EntityIDs []string `json:"entity_ids,omitempty"`
}

// --- elefanteGraphQuery ---

type graphQueryInput struct {
	Query  string         `json:"query"`
	Params map[string]any `json:"params,omitempty"`
}

type graphQueryOutput struct {
	envelope
	Rows []map[string]any `json:"rows"`
}

// --- elefanteDashboardOpen ---

type dashboardOpenInput struct {
	Refresh bool `json:"refresh,omitempty"`
}

type dashboardOpenOutput struct {
	envelope
	Path      string `json:"path"`
	NodeCount int    `json:"node_count,omitempty"`
	EdgeCount int    `json:"edge_count,omitempty"`
}

// registerGraphTools registers the graph-surface tools of spec.md §6.2:
// elefanteGraphEntityCreate, elefanteGraphRelationshipCreate,
// elefanteGraphConnect, elefanteGraphQuery, and elefanteDashboardOpen.
func (d *Dispatcher) registerGraphTools(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "elefanteGraphEntityCreate",
		Description: "Upserts a graph entity node.",
		Annotations: &mcp.ToolAnnotations{Title: "Create Entity", DestructiveHint: boolPtr(false), IdempotentHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in graphEntityCreateInput) (*mcp.CallToolResult, graphEntityCreateOutput, error) {
		e := &elefante.Entity{ID: in.ID, Name: in.Name, Type: elefante.EntityType(in.Type), Description: in.Description, Tags: in.Tags}
		if err := d.orc.CreateEntity(ctx, e); err != nil {
			return nil, graphEntityCreateOutput{envelope: fail(err)}, nil
		}
		return nil, graphEntityCreateOutput{envelope: ok(), EntityID: e.ID}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "elefanteGraphRelationshipCreate",
		Description: "Upserts a directed, typed graph edge between two existing entities.",
		Annotations: &mcp.ToolAnnotations{Title: "Create Relationship", DestructiveHint: boolPtr(false), IdempotentHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in graphRelationshipCreateInput) (*mcp.CallToolResult, graphRelationshipCreateOutput, error) {
		rel := &elefante.Relationship{FromEntityID: in.FromEntityID, ToEntityID: in.ToEntityID, Type: elefante.RelationshipType(in.Type), Strength: in.Strength}
		if err := d.orc.CreateRelationship(ctx, rel); err != nil {
			return nil, graphRelationshipCreateOutput{envelope: fail(err)}, nil
		}
		return nil, graphRelationshipCreateOutput{envelope: ok()}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "elefanteGraphConnect",
		Description: "Creates a batch of entities and relationships in one write-locked call, resolving relationships against caller-chosen refs.",
		Annotations: &mcp.ToolAnnotations{Title: "Connect Graph", DestructiveHint: boolPtr(false)},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in graphConnectInput) (*mcp.CallToolResult, graphConnectOutput, error) {
		entities := make([]orchestrator.ConnectEntityInput, 0, len(in.Entities))
		for _, e := range in.Entities {
			entities = append(entities, orchestrator.ConnectEntityInput{Ref: e.Ref, ID: e.ID, Name: e.Name, Type: elefante.EntityType(e.Type)})
		}
		rels := make([]orchestrator.ConnectRelationshipInput, 0, len(in.Relationships))
		for _, r := range in.Relationships {
			rels = append(rels, orchestrator.ConnectRelationshipInput{FromRef: r.FromRef, ToRef: r.ToRef, FromID: r.FromID, ToID: r.ToID, Type: elefante.RelationshipType(r.Type)})
		}
		result, err := d.orc.ConnectGraph(ctx, entities, rels)
		if err != nil {
			return nil, graphConnectOutput{envelope: fail(err)}, nil
		}
		return nil, graphConnectOutput{envelope: ok(), EntityIDs: result.EntityIDs}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "elefanteGraphQuery",
		Description: "Runs a read-only graph query. Never requires the write lock.",
		Annotations: &mcp.ToolAnnotations{Title: "Query Graph", ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in graphQueryInput) (*mcp.CallToolResult, graphQueryOutput, error) {
		result, err := d.orc.GraphQuery(ctx, in.Query, in.Params)
		if err != nil {
			return nil, graphQueryOutput{envelope: fail(err)}, nil
		}
		return nil, graphQueryOutput{envelope: ok(), Rows: result.Rows}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "elefanteDashboardOpen",
		Description: "Returns the path to the dashboard snapshot file, optionally refreshing it first.",
		Annotations: &mcp.ToolAnnotations{Title: "Open Dashboard", DestructiveHint: boolPtr(false)},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in dashboardOpenInput) (*mcp.CallToolResult, dashboardOpenOutput, error) {
		if !in.Refresh {
			return nil, dashboardOpenOutput{envelope: ok(), Path: d.snapshot.Path()}, nil
		}
		doc, err := d.orc.RefreshSnapshot(ctx, d.snapshot)
		if err != nil {
			return nil, dashboardOpenOutput{envelope: fail(err)}, nil
		}
		return nil, dashboardOpenOutput{envelope: ok(), Path: d.snapshot.Path(), NodeCount: doc.Stats.NodeCount, EdgeCount: doc.Stats.EdgeCount}, nil
	})
}
