// Package embedding implements the Embedding Facade of spec.md §4.2: a
// uniform embed(text) -> []float32 capability with a bounded LRU cache keyed
// by a hash of the normalized text, dimension discovery, and a batch path
// for ingestion. The facade wraps any embeddings.Provider (openai/ollama/
// mock) and is itself the only embedding-shaped object the orchestrator
// depends on.
package embedding

import (
	"container/list"
	"context"
	"hash/fnv"
	"strconv"
	"strings"
	"sync"

	"github.com/jsubiabreIBM/Elefante-sub000/pkg/provider/embeddings"
)

// DefaultCacheSize is used when Facade is constructed with maxSize <= 0.
const DefaultCacheSize = 10000

// Facade wraps an embeddings.Provider with an LRU cache keyed by a hash of
// the normalized input text. The underlying Provider is consulted only on
// cache miss. Safe for concurrent use.
type Facade struct {
	provider embeddings.Provider

	mu      sync.RWMutex
	cache   map[string]*list.Element
	lru     *list.List
	maxSize int

	hits   uint64
	misses uint64
}

type cacheEntry struct {
	key       string
	embedding []float32
}

// New wraps provider with an LRU cache of at most maxSize entries (0 selects
// DefaultCacheSize).
func New(provider embeddings.Provider, maxSize int) *Facade {
	if maxSize <= 0 {
		maxSize = DefaultCacheSize
	}
	return &Facade{
		provider: provider,
		cache:    make(map[string]*list.Element, maxSize),
		lru:      list.New(),
		maxSize:  maxSize,
	}
}

// normalize applies the same text normalization used by the cache key and
// by the classifier's content hashing, so that a given logical text always
// maps to the same cache entry.
func normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

func cacheKey(text string) string {
	h := fnv.New64a()
	h.Write([]byte(normalize(text)))
	return strconv.FormatUint(h.Sum64(), 36)
}

// Embed returns the embedding vector for text, consulting the cache first.
func (f *Facade) Embed(ctx context.Context, text string) ([]float32, error) {
	key := cacheKey(text)

	f.mu.RLock()
	if elem, ok := f.cache[key]; ok {
		f.mu.RUnlock()
		f.mu.Lock()
		f.lru.MoveToFront(elem)
		f.hits++
		vec := elem.Value.(*cacheEntry).embedding
		f.mu.Unlock()
		return vec, nil
	}
	f.mu.RUnlock()

	vec, err := f.provider.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.misses++
	if elem, ok := f.cache[key]; ok {
		f.lru.MoveToFront(elem)
		return elem.Value.(*cacheEntry).embedding, nil
	}
	f.insertLocked(key, vec)
	return vec, nil
}

// EmbedBatch returns embeddings for each text in texts, in order, serving
// cache hits directly and batching the remaining misses into a single
// provider call.
func (f *Facade) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	results := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string

	for i, text := range texts {
		key := cacheKey(text)
		f.mu.RLock()
		elem, ok := f.cache[key]
		f.mu.RUnlock()
		if ok {
			f.mu.Lock()
			f.lru.MoveToFront(elem)
			f.hits++
			f.mu.Unlock()
			results[i] = elem.Value.(*cacheEntry).embedding
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}

	if len(missTexts) > 0 {
		vecs, err := f.provider.EmbedBatch(ctx, missTexts)
		if err != nil {
			return nil, err
		}
		f.mu.Lock()
		f.misses += uint64(len(missTexts))
		for j, vec := range vecs {
			i := missIdx[j]
			results[i] = vec
			f.insertLocked(cacheKey(missTexts[j]), vec)
		}
		f.mu.Unlock()
	}

	return results, nil
}

// Dimensions returns the fixed embedding dimension of the wrapped provider.
func (f *Facade) Dimensions() int { return f.provider.Dimensions() }

// ModelID returns the wrapped provider's model identifier.
func (f *Facade) ModelID() string { return f.provider.ModelID() }

// CacheStats reports cache hit/miss counters, useful for the status tool.
type CacheStats struct {
	Size    int
	MaxSize int
	Hits    uint64
	Misses  uint64
}

// Stats returns a snapshot of the cache's performance counters.
func (f *Facade) Stats() CacheStats {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return CacheStats{
		Size:    f.lru.Len(),
		MaxSize: f.maxSize,
		Hits:    f.hits,
		Misses:  f.misses,
	}
}

// insertLocked adds (key, vec) to the cache, evicting the least-recently-used
// entry if at capacity. Callers must hold f.mu for writing.
func (f *Facade) insertLocked(key string, vec []float32) {
	for f.lru.Len() >= f.maxSize {
		oldest := f.lru.Back()
		if oldest == nil {
			break
		}
		delete(f.cache, oldest.Value.(*cacheEntry).key)
		f.lru.Remove(oldest)
	}
	elem := f.lru.PushFront(&cacheEntry{key: key, embedding: vec})
	f.cache[key] = elem
}
