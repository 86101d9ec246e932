// Package elefante defines the core domain types, error kinds, and storage
// capability interfaces shared by every component of the memory orchestrator.
package elefante

import (
	"strconv"
	"time"
)

// Layer is the top-level classification axis for a Memory.
type Layer string

const (
	LayerSelf   Layer = "self"
	LayerWorld  Layer = "world"
	LayerIntent Layer = "intent"
)

// Domain partitions memories by subject area.
type Domain string

const (
	DomainWork      Domain = "work"
	DomainPersonal  Domain = "personal"
	DomainLearning  Domain = "learning"
	DomainProject   Domain = "project"
	DomainReference Domain = "reference"
	DomainSystem    Domain = "system"
)

// MemoryType enumerates the kind of content a Memory holds.
type MemoryType string

const (
	MemoryTypeConversation MemoryType = "conversation"
	MemoryTypeFact         MemoryType = "fact"
	MemoryTypeInsight      MemoryType = "insight"
	MemoryTypeCode         MemoryType = "code"
	MemoryTypeDecision     MemoryType = "decision"
	MemoryTypeTask         MemoryType = "task"
	MemoryTypeNote         MemoryType = "note"
	MemoryTypePreference   MemoryType = "preference"
	MemoryTypeQuestion     MemoryType = "question"
	MemoryTypeAnswer       MemoryType = "answer"
	MemoryTypeHypothesis   MemoryType = "hypothesis"
	MemoryTypeObservation  MemoryType = "observation"
)

// Intent describes why a memory was recorded.
type Intent string

const (
	IntentReference    Intent = "reference"
	IntentReminder     Intent = "reminder"
	IntentLearning     Intent = "learning"
	IntentDecisionLog  Intent = "decision_log"
)

// Ring is the V5 topology placement, assigned by the ETL loop.
type Ring string

const (
	RingCore   Ring = "core"
	RingDomain Ring = "domain"
	RingTopic  Ring = "topic"
	RingLeaf   Ring = "leaf"
)

// KnowledgeType is the V5 topology category, assigned by the ETL loop.
type KnowledgeType string

const (
	KnowledgeTypeLaw        KnowledgeType = "law"
	KnowledgeTypePrinciple  KnowledgeType = "principle"
	KnowledgeTypeMethod     KnowledgeType = "method"
	KnowledgeTypeDecision   KnowledgeType = "decision"
	KnowledgeTypeInsight    KnowledgeType = "insight"
	KnowledgeTypePreference KnowledgeType = "preference"
	KnowledgeTypeFact       KnowledgeType = "fact"
)

// Status is the lifecycle state of a Memory.
type Status string

const (
	StatusNew        Status = "new"
	StatusActive     Status = "active"
	StatusRedundant  Status = "redundant"
	StatusDeprecated Status = "deprecated"
	StatusArchived   Status = "archived"
)

// ProcessingStatus tracks progress through the agent-driven ETL loop.
type ProcessingStatus string

const (
	ProcessingRaw        ProcessingStatus = "raw"
	ProcessingInProgress ProcessingStatus = "processing"
	ProcessingProcessed  ProcessingStatus = "processed"
	ProcessingFailed     ProcessingStatus = "failed"
)

// Source records the provenance of a Memory.
type Source string

const (
	SourceUserInput      Source = "user_input"
	SourceAgentGenerated Source = "agent_generated"
	SourceSystemInferred Source = "system_inferred"
	SourceExternalAPI    Source = "external_api"
	SourceDocument       Source = "document"
	SourceWebScrape      Source = "web_scrape"
	SourceCodeAnalysis   Source = "code_analysis"
)

// Namespace partitions the deduplication space.
type Namespace string

const (
	NamespaceProd      Namespace = "prod"
	NamespaceTest      Namespace = "test"
	NamespaceEphemeral Namespace = "ephemeral"
)

// RelationshipType enumerates the directed edge labels used in the graph store.
type RelationshipType string

const (
	RelRelatesTo  RelationshipType = "RELATES_TO"
	RelDependsOn  RelationshipType = "DEPENDS_ON"
	RelPartOf     RelationshipType = "PART_OF"
	RelCreatedBy  RelationshipType = "CREATED_BY"
	RelCreatedIn  RelationshipType = "CREATED_IN"
	RelUses       RelationshipType = "USES"
	RelBlocks     RelationshipType = "BLOCKS"
	RelReferences RelationshipType = "REFERENCES"
	RelSimilarTo  RelationshipType = "SIMILAR_TO"
	RelSupersedes RelationshipType = "SUPERSEDES"
	RelParentOf   RelationshipType = "PARENT_OF"
	RelChildOf    RelationshipType = "CHILD_OF"
	RelCustom     RelationshipType = "CUSTOM"
)

// EntityType enumerates the node kinds stored in the graph.
type EntityType string

const (
	EntityPerson       EntityType = "person"
	EntityProject      EntityType = "project"
	EntityFile         EntityType = "file"
	EntityConcept      EntityType = "concept"
	EntityTechnology   EntityType = "technology"
	EntityTask         EntityType = "task"
	EntityOrganization EntityType = "organization"
	EntityLocation     EntityType = "location"
	EntityEvent        EntityType = "event"
	EntitySession      EntityType = "session"
	EntityMemory       EntityType = "memory"
	EntityCustom       EntityType = "custom"
)

// MetaValue is a tagged-union scalar used for custom_metadata entries. Exactly
// one of the typed fields is meaningful, selected by Kind. This models
// §9's "dynamic metadata in a typed world" design note: the vector store
// flattens well-known keys to indexed scalars and serializes the full map as
// one JSON blob for lossless round-trips; MetaValue is the in-memory shape
// that blob decodes into.
type MetaValue struct {
	Kind MetaKind
	Str  string
	Int  int64
	Flt  float64
	Bool bool
}

// MetaKind discriminates the active field of a MetaValue.
type MetaKind int

const (
	MetaString MetaKind = iota
	MetaInt
	MetaFloat
	MetaBool
)

// StringValue wraps a string into a MetaValue.
func StringValue(s string) MetaValue { return MetaValue{Kind: MetaString, Str: s} }

// IntValue wraps an int64 into a MetaValue.
func IntValue(i int64) MetaValue { return MetaValue{Kind: MetaInt, Int: i} }

// FloatValue wraps a float64 into a MetaValue.
func FloatValue(f float64) MetaValue { return MetaValue{Kind: MetaFloat, Flt: f} }

// BoolValue wraps a bool into a MetaValue.
func BoolValue(b bool) MetaValue { return MetaValue{Kind: MetaBool, Bool: b} }

// AsString renders the MetaValue as a string regardless of its Kind, for
// scalar-flattening into the vector store's metadata columns.
func (m MetaValue) AsString() string {
	switch m.Kind {
	case MetaString:
		return m.Str
	case MetaInt:
		return strconv.FormatInt(m.Int, 10)
	case MetaFloat:
		return strconv.FormatFloat(m.Flt, 'g', -1, 64)
	case MetaBool:
		if m.Bool {
			return "true"
		}
		return "false"
	default:
		return ""
	}
}

// Memory is the primary entity of the engine: an immutable-except-through-
// update record identified by a UUID, holding content, an embedding,
// classification, V5 topology, lifecycle/score fields, relationship ids,
// dedup identity, provenance, and context anchoring. See spec.md §3.1.
type Memory struct {
	ID        string
	Content   string
	Embedding []float32

	// Classification
	Layer      Layer
	Sublayer   string
	Domain     Domain
	Category   string
	MemoryType MemoryType
	Intent     Intent

	// V5 topology (set by ETL)
	Ring          Ring
	KnowledgeType KnowledgeType
	Topic         string
	Summary       string
	OwnerID       string

	// Scores and lifecycle
	Importance       int
	Urgency          int
	Confidence       float64
	Status           Status
	Archived         bool
	Deprecated       bool
	ProcessingStatus ProcessingStatus

	// Relationships
	ParentID         string
	SupersedesID     string
	SupersededByID   string
	RelatedMemoryIDs []string
	ConflictIDs      []string
	RelationshipType RelationshipType

	// Identity for dedup
	CanonicalKey string
	Namespace    Namespace

	// Provenance & temporal
	Source             Source
	SourceReliability  float64
	Verified           bool
	CreatedAt          time.Time
	LastModified       time.Time
	LastAccessed       time.Time
	AccessCount        int

	// Context anchoring
	Project   string
	FilePath  string
	SessionID string

	// Tags, keywords
	Tags     []string
	Keywords []string

	// CustomMetadata holds the scalar keys the caller supplied; the display
	// title is read from its "title" key (see Title). Summary, canonical_key,
	// namespace, processing_status and the topology fields are the Memory's
	// own fields above, not keys of this map.
	CustomMetadata map[string]MetaValue
}

// Title returns the memory's display title, stored as a custom_metadata key
// since there is no first-class Title field on Memory.
func (m *Memory) Title() string {
	if v, ok := m.CustomMetadata["title"]; ok {
		return v.AsString()
	}
	return ""
}

// Entity is a graph node: person, project, file, concept, technology, task,
// organization, location, event, session, memory, or custom. A Memory is
// also represented as an Entity of type EntityMemory with the same id (I1).
type Entity struct {
	ID          string
	Name        string
	Type        EntityType
	Description string
	CreatedAt   time.Time
	Properties  map[string]MetaValue
	Tags        []string
}

// Relationship is a directed, typed graph edge with optional strength and
// properties.
type Relationship struct {
	FromEntityID string
	ToEntityID   string
	Type         RelationshipType
	Strength     float64
	Properties   map[string]MetaValue
}

// Session is an Entity of type EntitySession tracking interaction_count and
// last_active; auto-created idempotently on the first memory tagged with
// its session_id.
type Session struct {
	ID               string
	InteractionCount int
	LastActive       time.Time
}
