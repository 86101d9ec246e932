// Package dispatcher implements the Tool Dispatcher (spec.md §4.10): it maps
// the fixed JSON-RPC tool surface of §6.2 onto internal/orchestrator calls
// and exposes them over github.com/modelcontextprotocol/go-sdk/mcp as an MCP
// server. Every mutating tool delegates to an orchestrator method that
// already owns its write-lock window (§5); the dispatcher itself never
// acquires the lock directly.
package dispatcher

import (
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jsubiabreIBM/Elefante-sub000/internal/orchestrator"
	"github.com/jsubiabreIBM/Elefante-sub000/internal/snapshot"
)

// serverName and serverVersion identify this process to MCP clients during
// initialize.
const (
	serverName    = "elefante"
	serverVersion = "0.1.0"
)

// Dispatcher wires the orchestrator and the dashboard snapshot writer into
// the MCP tool surface. One Dispatcher is constructed per process.
type Dispatcher struct {
	orc      *orchestrator.Orchestrator
	snapshot *snapshot.Writer
	logger   *slog.Logger
}

// New constructs a Dispatcher. logger defaults to slog.Default() when nil.
func New(orc *orchestrator.Orchestrator, snap *snapshot.Writer, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{orc: orc, snapshot: snap, logger: logger}
}

// NewServer builds an *mcp.Server with every tool in spec.md §6.2
// registered, ready to Run against a transport (stdio in production, an
// in-memory transport in tests).
func (d *Dispatcher) NewServer() *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil)

	d.registerSystemTools(server)
	d.registerMemoryTools(server)
	d.registerGraphTools(server)
	d.registerETLTools(server)

	return server
}
