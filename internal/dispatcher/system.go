package dispatcher

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// enableDisableInput is the (empty) argument shape for the backward-compatible
// elefanteSystemEnable/elefanteSystemDisable no-ops (spec.md §4.10).
type enableDisableInput struct{}

// enableDisableOutput always reports success: these tools exist only so
// that older clients built against a stateful enable/disable model keep
// working against this always-on engine.
type enableDisableOutput struct {
	envelope
	Mode string `json:"mode"`
}

// statusInput is the (empty) argument shape for elefanteSystemStatusGet.
type statusInput struct{}

// lockStatusView is the JSON-facing projection of lock.Status.
type lockStatusView struct {
	Held      bool  `json:"held"`
	HolderPID int   `json:"holder_pid,omitempty"`
	AgeMS     int64 `json:"age_ms,omitempty"`
	Stale     bool  `json:"stale,omitempty"`
}

// statusOutput is the mode/lock/store-stats shape elefanteSystemStatusGet
// returns, per spec.md §6.2.
type statusOutput struct {
	envelope
	Mode          string         `json:"mode,omitempty"`
	Lock          lockStatusView `json:"lock,omitempty"`
	VectorCount   int64          `json:"vector_count,omitempty"`
	GraphEntities int64          `json:"graph_entities,omitempty"`
	GraphEdges    int64          `json:"graph_relationships,omitempty"`
}

// registerSystemTools registers the four tools spec.md §4.10 names as
// "safe" — never requiring the write lock: elefanteSystemEnable,
// elefanteSystemDisable, elefanteSystemStatusGet, and (in graph.go)
// elefanteDashboardOpen's read path.
func (d *Dispatcher) registerSystemTools(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "elefanteSystemEnable",
		Description: "Backward-compatible no-op. Always returns success; Elefante has no disabled mode.",
		Annotations: &mcp.ToolAnnotations{Title: "Enable Elefante", ReadOnlyHint: true, IdempotentHint: true},
	}, func(_ context.Context, _ *mcp.CallToolRequest, _ enableDisableInput) (*mcp.CallToolResult, enableDisableOutput, error) {
		return nil, enableDisableOutput{envelope: ok(), Mode: "active"}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "elefanteSystemDisable",
		Description: "Backward-compatible no-op. Always returns success; Elefante has no disabled mode.",
		Annotations: &mcp.ToolAnnotations{Title: "Disable Elefante", ReadOnlyHint: true, IdempotentHint: true},
	}, func(_ context.Context, _ *mcp.CallToolRequest, _ enableDisableInput) (*mcp.CallToolResult, enableDisableOutput, error) {
		return nil, enableDisableOutput{envelope: ok(), Mode: "active"}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "elefanteSystemStatusGet",
		Description: "Reports the engine mode, write-lock state, and vector/graph store counts. Never blocks.",
		Annotations: &mcp.ToolAnnotations{Title: "Elefante Status", ReadOnlyHint: true, IdempotentHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ statusInput) (*mcp.CallToolResult, statusOutput, error) {
		status, err := d.orc.Status(ctx)
		if err != nil {
			return nil, statusOutput{envelope: fail(err)}, nil
		}
		return nil, statusOutput{
			envelope: ok(),
			Mode:     status.Mode,
			Lock: lockStatusView{
				Held:      status.Lock.Held,
				HolderPID: status.Lock.HolderPID,
				AgeMS:     status.Lock.Age.Milliseconds(),
				Stale:     status.Lock.Stale,
			},
			VectorCount:   status.Vector.Count,
			GraphEntities: status.Graph.Entities,
			GraphEdges:    status.Graph.Relationships,
		}, nil
	})
}
