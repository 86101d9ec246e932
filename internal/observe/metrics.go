// Package observe provides application-wide observability primitives for
// Elefante: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still
// be scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Elefante metrics.
const meterName = "github.com/jsubiabreIBM/Elefante-sub000"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per orchestrator workflow (spec.md §4.6–§4.10) ---

	// IngestDuration tracks elefanteMemoryAdd end-to-end latency: embed,
	// dedup probe, classify, persist, graph-link.
	IngestDuration metric.Float64Histogram

	// SearchDuration tracks elefanteMemorySearch latency across the hybrid
	// vector/graph/conversation retrieval path.
	SearchDuration metric.Float64Histogram

	// RefineDuration tracks elefanteMemoryConsolidate (the refinery) latency,
	// across both dry-run and apply=true passes.
	RefineDuration metric.Float64Histogram

	// ETLClassifyDuration tracks elefanteETLClassify latency.
	ETLClassifyDuration metric.Float64Histogram

	// LockWaitDuration tracks how long a write-locked call spent waiting to
	// acquire the orchestrator's single write lock before it ran.
	LockWaitDuration metric.Float64Histogram

	// ToolExecutionDuration tracks MCP tool execution latency, keyed by tool
	// name via the "tool" attribute.
	ToolExecutionDuration metric.Float64Histogram

	// --- Counters ---

	// ToolCalls counts tool invocations. Use with attributes:
	//   attribute.String("tool", ...), attribute.String("status", ...)
	ToolCalls metric.Int64Counter

	// DedupOutcomes counts the outcome of each ingest dedup probe. Use with
	// attribute.String("outcome", ...) ∈ {"new", "reinforced", "related", "suppressed"}.
	DedupOutcomes metric.Int64Counter

	// SupersedeActions counts refinery supersede decisions (spec.md §4.8).
	SupersedeActions metric.Int64Counter

	// --- Error counters ---

	// StoreErrors counts vector/graph store failures. Use with attributes:
	//   attribute.String("store", ...) ∈ {"vector", "graph"}, attribute.String("kind", ...)
	StoreErrors metric.Int64Counter

	// LockBusy counts write-lock acquisition timeouts (elefante.KindBusy).
	LockBusy metric.Int64Counter

	// --- Gauges ---

	// ActiveSessions tracks the number of distinct session ids seen recently.
	ActiveSessions metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time (the health
	// checker's /healthz and /readyz endpoints). Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds), tuned for
// local single-process store round-trips rather than network calls.
var latencyBuckets = []float64{
	0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.IngestDuration, err = m.Float64Histogram("elefante.ingest.duration",
		metric.WithDescription("Latency of elefanteMemoryAdd: embed, dedup, classify, persist."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SearchDuration, err = m.Float64Histogram("elefante.search.duration",
		metric.WithDescription("Latency of elefanteMemorySearch's hybrid retrieval."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.RefineDuration, err = m.Float64Histogram("elefante.refine.duration",
		metric.WithDescription("Latency of the refinery (elefanteMemoryConsolidate)."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ETLClassifyDuration, err = m.Float64Histogram("elefante.etl_classify.duration",
		metric.WithDescription("Latency of elefanteETLClassify."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.LockWaitDuration, err = m.Float64Histogram("elefante.lock.wait_duration",
		metric.WithDescription("Time a write-locked call spent waiting to acquire the write lock."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ToolExecutionDuration, err = m.Float64Histogram("elefante.tool_execution.duration",
		metric.WithDescription("Latency of MCP tool execution."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	if met.ToolCalls, err = m.Int64Counter("elefante.tool.calls",
		metric.WithDescription("Total tool invocations by tool name and status."),
	); err != nil {
		return nil, err
	}
	if met.DedupOutcomes, err = m.Int64Counter("elefante.dedup.outcomes",
		metric.WithDescription("Total ingest dedup probe outcomes by type."),
	); err != nil {
		return nil, err
	}
	if met.SupersedeActions, err = m.Int64Counter("elefante.refine.supersede_actions",
		metric.WithDescription("Total refinery supersede actions applied."),
	); err != nil {
		return nil, err
	}

	if met.StoreErrors, err = m.Int64Counter("elefante.store.errors",
		metric.WithDescription("Total vector/graph store errors by store and error kind."),
	); err != nil {
		return nil, err
	}
	if met.LockBusy, err = m.Int64Counter("elefante.lock.busy",
		metric.WithDescription("Total write-lock acquisition timeouts."),
	); err != nil {
		return nil, err
	}

	if met.ActiveSessions, err = m.Int64UpDownCounter("elefante.active_sessions",
		metric.WithDescription("Number of distinct session ids seen recently."),
	); err != nil {
		return nil, err
	}

	if met.HTTPRequestDuration, err = m.Float64Histogram("elefante.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordToolCall is a convenience method that records a tool call counter
// increment with the standard attribute set.
func (m *Metrics) RecordToolCall(ctx context.Context, tool, status string) {
	m.ToolCalls.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("tool", tool),
			attribute.String("status", status),
		),
	)
}

// RecordDedupOutcome is a convenience method that records an ingest dedup
// probe outcome.
func (m *Metrics) RecordDedupOutcome(ctx context.Context, outcome string) {
	m.DedupOutcomes.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", outcome)),
	)
}

// RecordStoreError is a convenience method that records a vector/graph store
// error counter increment.
func (m *Metrics) RecordStoreError(ctx context.Context, store, kind string) {
	m.StoreErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("store", store),
			attribute.String("kind", kind),
		),
	)
}
