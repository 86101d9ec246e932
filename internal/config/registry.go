package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/jsubiabreIBM/Elefante-sub000/pkg/provider/embeddings"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory has
// been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Registry maps provider names to their constructor functions. Elefante only
// has one provider kind — embeddings — but the map-of-factories shape is kept
// from the teacher so adding a second kind (e.g. a reranker) is a small diff.
type Registry struct {
	mu         sync.RWMutex
	embeddings map[string]func(ProviderEntry) (embeddings.Provider, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		embeddings: make(map[string]func(ProviderEntry) (embeddings.Provider, error)),
	}
}

// RegisterEmbeddings registers an embeddings provider factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterEmbeddings(name string, factory func(ProviderEntry) (embeddings.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.embeddings[name] = factory
}

// CreateEmbeddings instantiates an embeddings provider using the factory
// registered under entry.Name.
func (r *Registry) CreateEmbeddings(entry ProviderEntry) (embeddings.Provider, error) {
	r.mu.RLock()
	factory, ok := r.embeddings[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: embeddings/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}
