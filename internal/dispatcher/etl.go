package dispatcher

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jsubiabreIBM/Elefante-sub000/pkg/elefante"
)

// --- elefanteETLProcess ---

type etlProcessInput struct {
	Limit int `json:"limit,omitempty"`
}

type topologySuggestionView struct {
	Ring          string `json:"ring"`
	KnowledgeType string `json:"knowledge_type"`
	Topic         string `json:"topic"`
	Summary       string `json:"summary"`
	OwnerID       string `json:"owner_id"`
}

type etlTaskView struct {
	MemoryID  string                  `json:"memory_id"`
	Title     string                  `json:"title,omitempty"`
	Content   string                  `json:"content"`
	Suggested topologySuggestionView `json:"suggested"`
}

type etlProcessOutput struct {
	envelope
	Tasks []etlTaskView `json:"tasks"`
}

// --- elefanteETLClassify ---

type etlClassifyInput struct {
	MemoryID      string `json:"memory_id"`
	Ring          string `json:"ring"`
	KnowledgeType string `json:"knowledge_type"`
	Topic         string `json:"topic"`
	Summary       string `json:"summary"`
	OwnerID       string `json:"owner_id"`
}

type etlClassifyOutput struct {
	envelope
}

// --- elefanteETLStatus ---

type etlStatusInput struct{}

type etlStatusOutput struct {
	envelope
	Raw        int64 `json:"raw"`
	Processing int64 `json:"processing"`
	Processed  int64 `json:"processed"`
	Failed     int64 `json:"failed"`
}

// registerETLTools registers the agent-driven ETL surface of spec.md §4.9 /
// §6.2: elefanteETLProcess (claims raw memories and proposes topology),
// elefanteETLClassify (the agent's accept-or-override decision, write-locked),
// and elefanteETLStatus (a lock-free processing_status census).
func (d *Dispatcher) registerETLTools(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "elefanteETLProcess",
		Description: "Claims up to limit raw memories and returns each with the deterministic classifier's topology suggestion for the calling agent to confirm or override.",
		Annotations: &mcp.ToolAnnotations{Title: "ETL Process Batch", DestructiveHint: boolPtr(false)},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in etlProcessInput) (*mcp.CallToolResult, etlProcessOutput, error) {
		tasks, err := d.orc.ETLProcess(ctx, in.Limit)
		if err != nil {
			return nil, etlProcessOutput{envelope: fail(err)}, nil
		}
		views := make([]etlTaskView, 0, len(tasks))
		for _, t := range tasks {
			views = append(views, etlTaskView{
				MemoryID: t.MemoryID,
				Title:    t.Title,
				Content:  t.Content,
				Suggested: topologySuggestionView{
					Ring:          string(t.Suggested.Ring),
					KnowledgeType: string(t.Suggested.KnowledgeType),
					Topic:         t.Suggested.Topic,
					Summary:       t.Suggested.Summary,
					OwnerID:       t.Suggested.OwnerID,
				},
			})
		}
		return nil, etlProcessOutput{envelope: ok(), Tasks: views}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "elefanteETLClassify",
		Description: "Records the agent's topology decision for one memory (ring, knowledge_type, topic, summary, owner_id), completing ETL processing for it.",
		Annotations: &mcp.ToolAnnotations{Title: "ETL Classify Memory", DestructiveHint: boolPtr(false)},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in etlClassifyInput) (*mcp.CallToolResult, etlClassifyOutput, error) {
		err := d.orc.ETLClassify(ctx, in.MemoryID, elefante.Ring(in.Ring), elefante.KnowledgeType(in.KnowledgeType), in.Topic, in.Summary, in.OwnerID)
		if err != nil {
			return nil, etlClassifyOutput{envelope: fail(err)}, nil
		}
		return nil, etlClassifyOutput{envelope: ok()}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "elefanteETLStatus",
		Description: "Reports a census of memories by processing_status. Never blocks.",
		Annotations: &mcp.ToolAnnotations{Title: "ETL Status", ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ etlStatusInput) (*mcp.CallToolResult, etlStatusOutput, error) {
		report, err := d.orc.ETLStatus(ctx)
		if err != nil {
			return nil, etlStatusOutput{envelope: fail(err)}, nil
		}
		return nil, etlStatusOutput{
			envelope:   ok(),
			Raw:        report.Raw,
			Processing: report.Processing,
			Processed:  report.Processed,
			Failed:     report.Failed,
		}, nil
	})
}
