// Package classifier implements the deterministic, pure-function
// classification rules of spec.md §4.5: namespace assignment, canonical-key
// inference, and V5 topology classification. Every function here is a pure
// function of its arguments — no I/O, no clock reads beyond what callers
// pass in — so that ingestion remains reproducible and testable (§9
// "Deterministic classification first").
package classifier

import (
	"crypto/sha1"
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/jsubiabreIBM/Elefante-sub000/pkg/elefante"
)

// testSentinelPrefixes are content prefixes that mark a memory as
// test-namespace regardless of explicit tags, per spec.md §4.5 step 3.
var testSentinelPrefixes = []string{
	"elefante e2e test memory",
	"hybrid search test memory",
}

// NamespaceInput holds the subset of Memory fields classify_namespace reads.
type NamespaceInput struct {
	ExplicitNamespace string // from custom_metadata.namespace, "" if unset
	Category          string
	Tags              []string
	Content           string
}

// ClassifyNamespace implements spec.md §4.5's classify_namespace:
//  1. An explicit custom_metadata.namespace of prod/test/ephemeral wins.
//  2. category == "test" or a test/e2e tag forces NamespaceTest.
//  3. A known test-sentinel content prefix forces NamespaceTest.
//  4. Otherwise NamespaceProd.
func ClassifyNamespace(in NamespaceInput) elefante.Namespace {
	switch elefante.Namespace(in.ExplicitNamespace) {
	case elefante.NamespaceProd, elefante.NamespaceTest, elefante.NamespaceEphemeral:
		return elefante.Namespace(in.ExplicitNamespace)
	}

	if strings.EqualFold(in.Category, "test") {
		return elefante.NamespaceTest
	}
	for _, t := range in.Tags {
		lt := strings.ToLower(t)
		if lt == "test" || lt == "e2e" {
			return elefante.NamespaceTest
		}
	}

	lowerContent := strings.ToLower(strings.TrimSpace(in.Content))
	for _, prefix := range testSentinelPrefixes {
		if strings.HasPrefix(lowerContent, prefix) {
			return elefante.NamespaceTest
		}
	}

	return elefante.NamespaceProd
}

// canonicalKeyword maps a lowercase content substring to a fixed canonical
// key, per spec.md §4.5 step 2's "small deterministic keyword map".
var canonicalKeywordMap = []struct {
	substr string
	key    string
}{
	{"emojis", "Self-Limit-Emojis"},
	{"emoji", "Self-Limit-Emojis"},
}

var slugNonWord = regexp.MustCompile(`[^a-z0-9]+`)

// CanonicalKeyInput holds the subset of Memory fields infer_canonical_key reads.
type CanonicalKeyInput struct {
	ExplicitCanonicalKey string
	Content              string
	Title                string
	Layer                elefante.Layer
	Sublayer             string
}

// InferCanonicalKey implements spec.md §4.5's infer_canonical_key:
//  1. An explicit custom_metadata.canonical_key wins, with one narrow
//     exception: self-preference memories that are simultaneously "simple"
//     and "concise" are refined to a single legacy key regardless of what
//     was explicitly supplied, matching the source's special case.
//  2. Else a small deterministic keyword map.
//  3. Else slug(title) truncated to 80 runes.
//  4. Else "Content-<sha1(normalized content)[0:12]>".
func InferCanonicalKey(in CanonicalKeyInput) string {
	isSelfPreferenceSimpleConcise := in.Layer == elefante.LayerSelf &&
		strings.Contains(strings.ToLower(in.Sublayer), "preference") &&
		strings.Contains(strings.ToLower(in.Content), "simple") &&
		strings.Contains(strings.ToLower(in.Content), "concise")

	if isSelfPreferenceSimpleConcise {
		return "self-pref-communication-simple-concise"
	}

	if in.ExplicitCanonicalKey != "" {
		return in.ExplicitCanonicalKey
	}

	lowerContent := strings.ToLower(in.Content)
	for _, kw := range canonicalKeywordMap {
		if strings.Contains(lowerContent, kw.substr) {
			return kw.key
		}
	}

	if in.Title != "" {
		s := slug(in.Title)
		if len(s) > 80 {
			s = s[:80]
		}
		return s
	}

	return "Content-" + contentHash(in.Content)[:12]
}

// slug lowercases s and collapses runs of non-alphanumeric characters into a
// single hyphen, trimming leading/trailing hyphens.
func slug(s string) string {
	lower := strings.ToLower(s)
	replaced := slugNonWord.ReplaceAllString(lower, "-")
	return strings.Trim(replaced, "-")
}

// contentHash returns the hex-encoded SHA-1 digest of the normalized
// (trimmed, lowercased) content, used as the canonical-key fallback.
func contentHash(content string) string {
	normalized := strings.ToLower(strings.TrimSpace(content))
	sum := sha1.Sum([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
