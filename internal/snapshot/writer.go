// Package snapshot builds and writes the dashboard graph snapshot described
// in spec.md §6.3: a JSON document the external dashboard consumer polls for
// a rendering of the memory/entity graph. SPEC_FULL.md §12 identifies this
// as a supplemented feature — spec.md describes the wire format but no
// operation produces it — grounded on original_source/scripts/
// curate_dashboard_snapshot.py and scripts/analyze_dashboard_snapshot.py,
// which walk the graph store for nodes/edges and annotate memory nodes with
// title/summary/ring/knowledge_type/topic/canonical_key/namespace.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jsubiabreIBM/Elefante-sub000/pkg/elefante"
)

// EdgeType enumerates the edge type annotations spec.md §6.3 recognizes in
// the snapshot document, distinct from the graph store's own
// elefante.RelationshipType labels.
type EdgeType string

const (
	EdgeSemantic        EdgeType = "semantic"
	EdgeCluster         EdgeType = "cluster"
	EdgeClusterBackbone EdgeType = "cluster_backbone"
	EdgeSignal          EdgeType = "signal"
	EdgeCohesion        EdgeType = "cohesion"
	EdgeSupersession    EdgeType = "supersession"
)

// Node is one element of the snapshot document's nodes array.
type Node struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Label      string         `json:"label"`
	Properties map[string]any `json:"properties,omitempty"`
}

// Edge is one element of the snapshot document's edges array.
type Edge struct {
	Source string   `json:"source"`
	Target string   `json:"target"`
	Label  string   `json:"label"`
	Type   EdgeType `json:"type,omitempty"`
}

// Stats summarizes the snapshot's contents.
type Stats struct {
	NodeCount int `json:"node_count"`
	EdgeCount int `json:"edge_count"`
}

// Document is the full JSON shape written to disk and served to the
// external dashboard, per spec.md §6.3.
type Document struct {
	GeneratedAt string `json:"generated_at"`
	Stats       Stats  `json:"stats"`
	Nodes       []Node `json:"nodes"`
	Edges       []Edge `json:"edges"`
}

// graphSource is the read-only subset of elefante.GraphStore the writer
// needs to walk every entity and relationship.
type graphSource interface {
	Execute(ctx context.Context, query string, params map[string]any) (elefante.QueryResult, error)
}

// vectorSource is the read-only subset of elefante.VectorStore the writer
// needs to annotate memory nodes with their topology fields.
type vectorSource interface {
	GetAll(ctx context.Context, limit, offset int, filters elefante.MemoryFilter) ([]*elefante.Memory, error)
}

// scanPageSize bounds each GetAll page while the writer walks the vector
// store for memory annotations, mirroring internal/orchestrator's
// refineryPageSize.
const scanPageSize = 500

// Writer builds dashboard snapshot documents and writes them to disk.
type Writer struct {
	graph  graphSource
	vector vectorSource
	path   string
	now    func() time.Time
}

// New constructs a Writer that reads entities/relationships from graph and
// memory topology fields from vector, writing the resulting document to
// path.
func New(graph graphSource, vector vectorSource, path string) *Writer {
	return &Writer{graph: graph, vector: vector, path: path, now: time.Now}
}

// Path returns the filesystem location this Writer refreshes, for tools
// that report it back to a caller without triggering a rebuild.
func (w *Writer) Path() string {
	return w.path
}

// allEntitiesQuery and allRelationshipsQuery are Cypher-shaped queries
// issued through graph.Execute, following the same query-as-string
// convention internal/orchestrator's ListSessions uses against
// internal/graphstore/nornic's Execute.
const (
	allEntitiesQuery      = "MATCH (e:Entity) RETURN e.id AS id, e.name AS name, e.type AS type, e.properties AS properties"
	allRelationshipsQuery = "MATCH (a:Entity)-[r:RELATES]->(b:Entity) RETURN a.id AS source, b.id AS target, r.type AS type, r.properties AS properties"
)

// Build assembles a Document by walking every entity and relationship in
// the graph store, then annotating memory-type nodes with the topology
// fields spec.md §6.3 requires (title, summary, ring, knowledge_type,
// topic, canonical_key, namespace).
func (w *Writer) Build(ctx context.Context) (*Document, error) {
	entityRows, err := w.graph.Execute(ctx, allEntitiesQuery, nil)
	if err != nil {
		return nil, fmt.Errorf("snapshot: list entities: %w", err)
	}
	relRows, err := w.graph.Execute(ctx, allRelationshipsQuery, nil)
	if err != nil {
		return nil, fmt.Errorf("snapshot: list relationships: %w", err)
	}

	memoriesByID, err := w.scanMemories(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot: scan memories: %w", err)
	}

	nodes := make([]Node, 0, len(entityRows.Rows))
	seen := make(map[string]bool, len(entityRows.Rows))
	for _, row := range entityRows.Rows {
		id, _ := row["id"].(string)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true

		name, _ := row["name"].(string)
		kind, _ := row["type"].(string)
		node := Node{ID: id, Type: kind, Label: name}

		if kind == string(elefante.EntityMemory) {
			if mem, ok := memoriesByID[id]; ok {
				node.Properties = map[string]any{
					"title":         mem.Title(),
					"summary":       mem.Content,
					"ring":          mem.Ring,
					"knowledge_type": mem.KnowledgeType,
					"topic":         mem.Topic,
					"canonical_key": mem.CanonicalKey,
					"namespace":     mem.Namespace,
				}
			}
		}
		nodes = append(nodes, node)
	}

	edges := make([]Edge, 0, len(relRows.Rows))
	for _, row := range relRows.Rows {
		source, _ := row["source"].(string)
		target, _ := row["target"].(string)
		if source == "" || target == "" || !seen[source] || !seen[target] {
			continue
		}
		relType, _ := row["type"].(string)
		edges = append(edges, Edge{
			Source: source,
			Target: target,
			Label:  relType,
			Type:   classifyEdge(relType),
		})
	}

	return &Document{
		GeneratedAt: w.now().UTC().Format(time.RFC3339),
		Stats:       Stats{NodeCount: len(nodes), EdgeCount: len(edges)},
		Nodes:       nodes,
		Edges:       edges,
	}, nil
}

// classifyEdge maps a raw elefante.RelationshipType label onto the coarser
// snapshot EdgeType taxonomy spec.md §6.3 defines for dashboard rendering.
func classifyEdge(relType string) EdgeType {
	switch elefante.RelationshipType(relType) {
	case elefante.RelSimilarTo:
		return EdgeSemantic
	case elefante.RelSupersedes:
		return EdgeSupersession
	case elefante.RelCustom:
		return EdgeCohesion
	default:
		return ""
	}
}

// Refresh builds a fresh Document and atomically writes it to w.path,
// creating parent directories as needed. The write-then-rename sequence
// avoids a reader ever observing a partially written file.
func (w *Writer) Refresh(ctx context.Context) (*Document, error) {
	doc, err := w.Build(ctx)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
		return nil, fmt.Errorf("snapshot: mkdir: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("snapshot: marshal: %w", err)
	}

	tmp := w.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return nil, fmt.Errorf("snapshot: write temp file: %w", err)
	}
	if err := os.Rename(tmp, w.path); err != nil {
		return nil, fmt.Errorf("snapshot: rename into place: %w", err)
	}

	return doc, nil
}

// scanMemories pages through the entire vector store, indexing memories by
// id for the node-annotation pass in Build.
func (w *Writer) scanMemories(ctx context.Context) (map[string]*elefante.Memory, error) {
	byID := make(map[string]*elefante.Memory)
	offset := 0
	for {
		page, err := w.vector.GetAll(ctx, scanPageSize, offset, elefante.MemoryFilter{})
		if err != nil {
			return nil, err
		}
		for _, mem := range page {
			byID[mem.ID] = mem
		}
		if len(page) < scanPageSize {
			return byID, nil
		}
		offset += scanPageSize
	}
}
