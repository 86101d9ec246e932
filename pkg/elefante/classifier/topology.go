package classifier

import (
	"regexp"
	"strings"

	"github.com/jsubiabreIBM/Elefante-sub000/pkg/elefante"
)

// OwnerID is the fixed default owner for V5 topology, per spec.md §3.1 and
// confirmed verbatim by original_source/src/core/topology.py's OWNER_ID
// constant.
const OwnerID = "owner-jay"

// knowledgeTypePatterns mirrors original_source/src/core/topology.py's
// KNOWLEDGE_TYPE_PATTERNS table, ported to Go regexp syntax. Order within a
// knowledge type does not matter; ties across types are broken by pattern
// hit-count, highest wins (first type reached during the deterministic
// iteration below on an exact tie).
var knowledgeTypePatterns = []struct {
	kind     elefante.KnowledgeType
	patterns []*regexp.Regexp
}{
	{elefante.KnowledgeTypeLaw, compileAll(
		`\bLAW\s*\d+`,
		`\bNEVER\b.*\b(use|do|allow|say)\b`,
		`\bALWAYS\b.*\bMUST\b`,
		`\bMANDATORY\b`,
		`\bCRITICAL CONSTRAINT\b`,
		`\bDO NOT\b`,
		`\bFORBIDDEN\b`,
		`\bPROHIBITED\b`,
	)},
	{elefante.KnowledgeTypePrinciple, compileAll(
		`\bThe Rule:\b`,
		`\bPRIME DIRECTIVE\b`,
		`\bCORE IDENTITY\b`,
		`\bFOUNDATION\b`,
		`\bAmbiguity is a bug\b`,
		`\bContext First\b`,
		`\bTruth\b.*\bNon-Fabrication\b`,
	)},
	{elefante.KnowledgeTypeMethod, compileAll(
		`\bProtocol\b`,
		`\bWorkflow\b`,
		`\bPhase\s*\d+\b`,
		`\bMeta-loop\b`,
		`\bChecklist\b`,
		`→.*→`,
		`\bRequirements.*Design.*Tasks\b`,
	)},
	{elefante.KnowledgeTypeDecision, compileAll(
		`\bChose\b`,
		`\bDecided\b`,
		`\bWe will\b`,
		`\bSelected\b`,
		`\bprefers?\b.*\bover\b`,
	)},
	{elefante.KnowledgeTypeInsight, compileAll(
		`\bLearned\b`,
		`\bRealized\b`,
		`\bKey takeaway\b`,
		`\bWisdom\b`,
		`\bInception\b`,
	)},
}

// topicKeywords mirrors original_source/src/core/topology.py's TOPIC_KEYWORDS.
var topicKeywords = map[string][]string{
	"coding-standards": {"code", "comment", "formatting", "linter", "black", "test", "security", "sanitize", "emoji"},
	"communication":    {"explain", "concise", "simple", "jargon", "claim", "success", "verification", "ask", "token", "brevity"},
	"workflow":         {"protocol", "phase", "requirements", "design", "tasks", "implement", "verify", "kiro", "spec"},
	"agent-behavior":   {"agent", "context", "memory", "search", "hallucination", "fabrication", "tool"},
	"tools-environment": {"python", "vscode", "ide", "chromadb", "kuzu", "elefante", "mcp"},
	"collaboration":    {"review", "documentation", "bus factor", "team", "constructive"},
}

func compileAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, e := range exprs {
		out = append(out, regexp.MustCompile("(?i)"+e))
	}
	return out
}

// TopologyInput holds the subset of Memory fields classify_topology reads.
type TopologyInput struct {
	Content    string
	Title      string
	MemoryType elefante.MemoryType
	Layer      elefante.Layer
	Sublayer   string
	Importance int
	Tags       []string
}

// Topology is the result of classify_topology: spec.md §3.1's V5 fields.
type Topology struct {
	Ring          elefante.Ring
	KnowledgeType elefante.KnowledgeType
	Topic         string
	Summary       string
	OwnerID       string
}

// ClassifyTopology implements spec.md §4.5's classify_topology over fixed
// pattern tables, producing (ring, knowledge_type, topic, summary, owner_id).
func ClassifyTopology(in TopologyInput) Topology {
	kt := inferKnowledgeType(in)
	topic := inferTopic(in)
	ring := inferRing(in, kt)
	summary := generateSummary(in.Content, in.Title)

	return Topology{
		Ring:          ring,
		KnowledgeType: kt,
		Topic:         topic,
		Summary:       summary,
		OwnerID:       OwnerID,
	}
}

func inferKnowledgeType(in TopologyInput) elefante.KnowledgeType {
	// Existing memory_type hints take priority, matching
	// original_source/src/core/topology.py's infer_knowledge_type.
	switch strings.ToLower(string(in.MemoryType)) {
	case "decision":
		return elefante.KnowledgeTypeDecision
	case "insight":
		return elefante.KnowledgeTypeInsight
	}

	text := strings.ToUpper(in.Content + " " + in.Title)

	best := elefante.KnowledgeType("")
	bestScore := 0
	for _, entry := range knowledgeTypePatterns {
		score := 0
		for _, p := range entry.patterns {
			if p.MatchString(text) {
				score++
			}
		}
		if score > bestScore {
			bestScore = score
			best = entry.kind
		}
	}
	if best != "" {
		return best
	}

	// Fallback based on layer/sublayer, matching the Python fallback chain.
	layerSub := strings.ToLower(string(in.Layer) + "/" + in.Sublayer)
	switch {
	case strings.Contains(layerSub, "constraint"):
		return elefante.KnowledgeTypeLaw
	case strings.Contains(layerSub, "rule"):
		return elefante.KnowledgeTypePreference
	case strings.Contains(layerSub, "method"):
		return elefante.KnowledgeTypeMethod
	case strings.Contains(layerSub, "fact"):
		return elefante.KnowledgeTypeFact
	case strings.Contains(layerSub, "identity"):
		return elefante.KnowledgeTypePrinciple
	case strings.Contains(layerSub, "preference"):
		return elefante.KnowledgeTypePreference
	default:
		return elefante.KnowledgeTypeFact
	}
}

func inferTopic(in TopologyInput) string {
	text := strings.ToLower(in.Content + " " + in.Title + " " + strings.Join(in.Tags, " "))

	best := ""
	bestScore := 0
	// Fixed order so ties resolve deterministically (first listed wins).
	for _, topic := range []string{"coding-standards", "communication", "workflow", "agent-behavior", "tools-environment", "collaboration"} {
		keywords := topicKeywords[topic]
		score := 0
		for _, kw := range keywords {
			if strings.Contains(text, kw) {
				score++
			}
		}
		if score > bestScore {
			bestScore = score
			best = topic
		}
	}
	if best == "" {
		return "general"
	}
	return best
}

func inferRing(in TopologyInput, kt elefante.KnowledgeType) elefante.Ring {
	text := in.Content + in.Title

	if kt == elefante.KnowledgeTypePrinciple {
		return elefante.RingCore
	}
	if strings.Contains(text, "LAW 1") || strings.Contains(text, "LAW 0") {
		return elefante.RingCore
	}
	if in.Importance >= 10 && kt == elefante.KnowledgeTypeLaw {
		for _, marker := range []string{"Context First", "Truth", "Non-Fabrication", "ETIQUETTE"} {
			if strings.Contains(text, marker) {
				return elefante.RingCore
			}
		}
	}

	if strings.HasPrefix(strings.ToLower(string(in.Layer)+"/"+in.Sublayer), "self/preference") {
		return elefante.RingDomain
	}

	if (kt == elefante.KnowledgeTypeLaw || kt == elefante.KnowledgeTypeMethod) && in.Importance >= 9 {
		return elefante.RingTopic
	}

	return elefante.RingLeaf
}

// generateSummary implements original_source/src/core/topology.py's
// generate_summary: prefer a clean first line of sane length, else derive
// from the title.
func generateSummary(content, title string) string {
	lines := strings.SplitN(content, "\n", 2)
	firstLine := strings.TrimSpace(lines[0])
	if len(firstLine) > 10 && len(firstLine) < 150 {
		firstLine = regexp.MustCompile(`^#+\s*`).ReplaceAllString(firstLine, "")
		return firstLine
	}

	summary := regexp.MustCompile(`^(Rule|Self|Memory|E2E|Elefante)-`).ReplaceAllString(title, "")
	summary = strings.ReplaceAll(summary, "-", " ")
	summary = strings.TrimSpace(summary)
	if len(summary) > 150 {
		summary = summary[:150]
	}
	return summary
}
