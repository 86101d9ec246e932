package embedding

import (
	"context"

	"github.com/jsubiabreIBM/Elefante-sub000/internal/resilience"
	"github.com/jsubiabreIBM/Elefante-sub000/pkg/provider/embeddings"
)

// FallbackProvider adapts a [resilience.FallbackGroup] of embeddings.Provider
// instances into a single embeddings.Provider, so Facade can wrap a
// primary/fallback chain (e.g. openai with ollama as a backup) exactly like
// it wraps any other provider. A fallback serves whenever the primary's call
// fails or its circuit breaker is open. Dimensions and ModelID always report
// the primary's values, since Facade assumes one fixed dimensionality.
type FallbackProvider struct {
	group   *resilience.FallbackGroup[embeddings.Provider]
	primary embeddings.Provider
}

// NewFallbackProvider builds a FallbackProvider trying primary first, then
// each of fallbacks in order, per spec.md §4.2's provider resilience note.
func NewFallbackProvider(primary embeddings.Provider, primaryName string, cfg resilience.FallbackConfig, fallbacks ...namedProvider) *FallbackProvider {
	group := resilience.NewFallbackGroup(primary, primaryName, cfg)
	for _, f := range fallbacks {
		group.AddFallback(f.Name, f.Provider)
	}
	return &FallbackProvider{group: group, primary: primary}
}

// namedProvider pairs a fallback embeddings.Provider with the name its
// circuit breaker is reported under.
type namedProvider struct {
	Name     string
	Provider embeddings.Provider
}

// NamedProvider constructs a fallback entry for NewFallbackProvider.
func NamedProvider(name string, provider embeddings.Provider) namedProvider {
	return namedProvider{Name: name, Provider: provider}
}

func (f *FallbackProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	return resilience.ExecuteWithResult(f.group, func(p embeddings.Provider) ([]float32, error) {
		return p.Embed(ctx, text)
	})
}

func (f *FallbackProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return resilience.ExecuteWithResult(f.group, func(p embeddings.Provider) ([][]float32, error) {
		return p.EmbedBatch(ctx, texts)
	})
}

func (f *FallbackProvider) Dimensions() int { return f.primary.Dimensions() }

func (f *FallbackProvider) ModelID() string { return f.primary.ModelID() }
