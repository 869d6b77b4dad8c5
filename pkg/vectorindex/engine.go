package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"pdf-qa-be/internal/pkg/logger"
	"pdf-qa-be/pkg/embedding"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const embedConcurrency = 4

// Engine builds, caches and queries per-document indexes.
// At most one build per document id is in flight at any time.
type Engine struct {
	store    Store
	embedder embedding.EmbeddingProvider
	loaded   *cache.Cache
	builds   singleflight.Group
	count    atomic.Int64
	logger   logger.ILogger

	// generations is bumped by Invalidate so a build that started earlier does not persist.
	mu          sync.Mutex
	generations map[uint]uint64
}

func NewEngine(store Store, embedder embedding.EmbeddingProvider, cacheTTL time.Duration, logger logger.ILogger) *Engine {
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Minute
	}
	return &Engine{
		store:       store,
		embedder:    embedder,
		loaded:      cache.New(cacheTTL, 2*cacheTTL),
		logger:      logger,
		generations: make(map[uint]uint64),
	}
}

// BuildCount reports how many indexes this engine has built (not loaded).
func (e *Engine) BuildCount() int64 {
	return e.count.Load()
}

// GetOrBuildIndex returns the index for key, loading a persisted one when it exists.
// chunks are only embedded when no index exists for the key.
func (e *Engine) GetOrBuildIndex(ctx context.Context, key Key, chunks []string) (Index, error) {
	for {
		if idx, ok := e.cached(key); ok {
			return idx, nil
		}

		// A waiter shares the result of the build in flight, which may be for another
		// version of the same document. Loop until the result matches.
		v, err, _ := e.builds.Do(strconv.FormatUint(uint64(key.DocumentID), 10), func() (interface{}, error) {
			if idx, ok := e.cached(key); ok {
				return idx, nil
			}
			return e.loadOrBuild(context.WithoutCancel(ctx), key, chunks)
		})
		if err != nil {
			return nil, err
		}

		idx := v.(Index)
		if idx.Key() == key {
			return idx, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
}

func (e *Engine) cached(key Key) (Index, bool) {
	if v, ok := e.loaded.Get(key.String()); ok {
		return v.(Index), true
	}
	return nil, false
}

func (e *Engine) loadOrBuild(ctx context.Context, key Key, chunks []string) (Index, error) {
	idx, err := e.store.Load(ctx, key)
	if err == nil {
		e.loaded.SetDefault(key.String(), idx)
		return idx, nil
	}
	if !errors.Is(err, ErrIndexNotFound) {
		return nil, fmt.Errorf("load index %s: %w", key, err)
	}

	gen := e.generation(key.DocumentID)
	start := time.Now()
	embedded, err := e.embedChunks(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("embed chunks for %s: %w", key, err)
	}
	e.count.Add(1)

	if e.generation(key.DocumentID) != gen {
		e.logger.Info("VECTOR_INDEX", "Document invalidated during build, not persisting", map[string]interface{}{
			"document_id": key.DocumentID,
			"version":     key.Version,
		})
		return newMemoryIndex(key, embedded), nil
	}

	idx, err = e.store.Save(ctx, key, embedded)
	if err != nil {
		return nil, fmt.Errorf("persist index %s: %w", key, err)
	}

	// Invalidate may have run while saving; its Delete could have gone first.
	if !e.cacheIfCurrent(key, gen, idx) {
		if err := e.store.Delete(ctx, key.DocumentID); err != nil {
			e.logger.Warn("VECTOR_INDEX", "Failed to drop index saved after invalidation", map[string]interface{}{
				"document_id": key.DocumentID,
				"error":       err.Error(),
			})
		}
		return newMemoryIndex(key, embedded), nil
	}

	e.logger.Info("VECTOR_INDEX", "Index built", map[string]interface{}{
		"document_id": key.DocumentID,
		"version":     key.Version,
		"chunks":      len(embedded),
		"duration":    time.Since(start).String(),
	})
	return idx, nil
}

func (e *Engine) embedChunks(ctx context.Context, chunks []string) ([]Chunk, error) {
	out := make([]Chunk, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)
	for i, content := range chunks {
		g.Go(func() error {
			resp, err := e.embedder.Generate(gctx, content, embedding.TaskTypeDocument)
			if err != nil {
				return fmt.Errorf("chunk %d: %w", i, err)
			}
			out[i] = Chunk{Index: i, Content: content, Embedding: resp.Embedding.Values}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Retrieve returns the k chunks most similar to query.
func (e *Engine) Retrieve(ctx context.Context, idx Index, query string, k int) ([]ScoredChunk, error) {
	if idx.Len() == 0 {
		return nil, nil
	}

	resp, err := e.embedder.Generate(ctx, query, embedding.TaskTypeQuery)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	return idx.Search(ctx, resp.Embedding.Values, k)
}

func (e *Engine) generation(documentID uint) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.generations[documentID]
}

// cacheIfCurrent caches idx unless the document was invalidated after gen was read.
func (e *Engine) cacheIfCurrent(key Key, gen uint64, idx Index) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.generations[key.DocumentID] != gen {
		return false
	}
	e.loaded.SetDefault(key.String(), idx)
	return true
}

// Invalidate drops every cached and persisted index of the document. Builds already
// running for it finish but are not persisted.
func (e *Engine) Invalidate(ctx context.Context, documentID uint) error {
	e.mu.Lock()
	e.generations[documentID]++
	e.mu.Unlock()

	prefix := strconv.FormatUint(uint64(documentID), 10) + "@"
	for k := range e.loaded.Items() {
		if strings.HasPrefix(k, prefix) {
			e.loaded.Delete(k)
		}
	}
	e.builds.Forget(strconv.FormatUint(uint64(documentID), 10))

	if err := e.store.Delete(ctx, documentID); err != nil {
		return fmt.Errorf("delete index for document %d: %w", documentID, err)
	}
	return nil
}
