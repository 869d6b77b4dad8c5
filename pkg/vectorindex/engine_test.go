package vectorindex

import (
	"context"
	"errors"
	"hash/fnv"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"pdf-qa-be/internal/pkg/logger"
	"pdf-qa-be/pkg/embedding"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bagOfWords embeds text by hashing words into a fixed number of buckets.
type bagOfWords struct {
	calls atomic.Int64
	delay time.Duration
	fail  error
}

func (b *bagOfWords) Generate(_ context.Context, text string, _ string) (*embedding.EmbeddingResponse, error) {
	b.calls.Add(1)
	if b.delay > 0 {
		time.Sleep(b.delay)
	}
	if b.fail != nil {
		return nil, b.fail
	}
	vec := make([]float32, 256)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(strings.Trim(w, ".,?!")))
		vec[h.Sum32()%256]++
	}
	return &embedding.EmbeddingResponse{Embedding: embedding.EmbeddingResponseEmbedding{Values: vec}}, nil
}

func newTestEngine(t *testing.T, embedder embedding.EmbeddingProvider) (*Engine, string) {
	t.Helper()
	root := t.TempDir()
	store, err := NewFileStore(root)
	require.NoError(t, err)
	return NewEngine(store, embedder, time.Minute, logger.NewNopLogger()), root
}

var sampleChunks = []string{
	"the cat sat on the mat",
	"hello world from the pdf",
	"quarterly revenue grew strongly",
	"dogs chase cats in the park",
}

func TestGetOrBuildIndex_BuildsOnceThenReuses(t *testing.T) {
	embedder := &bagOfWords{}
	engine, _ := newTestEngine(t, embedder)
	ctx := context.Background()
	key := Key{DocumentID: 1, Version: VersionOf(strings.Join(sampleChunks, ""))}

	idx, err := engine.GetOrBuildIndex(ctx, key, sampleChunks)
	require.NoError(t, err)
	assert.Equal(t, 4, idx.Len())

	again, err := engine.GetOrBuildIndex(ctx, key, nil)
	require.NoError(t, err)
	assert.Equal(t, key, again.Key())

	assert.EqualValues(t, 1, engine.BuildCount())
	assert.EqualValues(t, len(sampleChunks), embedder.calls.Load())
}

func TestGetOrBuildIndex_LoadsPersistedIndex(t *testing.T) {
	root := t.TempDir()
	store, err := NewFileStore(root)
	require.NoError(t, err)
	key := Key{DocumentID: 7, Version: "abc"}

	first := NewEngine(store, &bagOfWords{}, time.Minute, logger.NewNopLogger())
	_, err = first.GetOrBuildIndex(context.Background(), key, sampleChunks)
	require.NoError(t, err)

	embedder := &bagOfWords{}
	second := NewEngine(store, embedder, time.Minute, logger.NewNopLogger())
	idx, err := second.GetOrBuildIndex(context.Background(), key, []string{"ignored"})
	require.NoError(t, err)

	assert.Equal(t, len(sampleChunks), idx.Len())
	assert.EqualValues(t, 0, second.BuildCount())
	assert.EqualValues(t, 0, embedder.calls.Load())
}

func TestGetOrBuildIndex_ConcurrentCallersShareOneBuild(t *testing.T) {
	embedder := &bagOfWords{delay: 20 * time.Millisecond}
	engine, _ := newTestEngine(t, embedder)
	key := Key{DocumentID: 3, Version: "v1"}

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			idx, err := engine.GetOrBuildIndex(context.Background(), key, sampleChunks)
			if err == nil && idx.Key() != key {
				err = errors.New("wrong key")
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.EqualValues(t, 1, engine.BuildCount())
	assert.EqualValues(t, len(sampleChunks), embedder.calls.Load())
}

func TestGetOrBuildIndex_NewVersionReplacesOld(t *testing.T) {
	engine, root := newTestEngine(t, &bagOfWords{})
	ctx := context.Background()

	_, err := engine.GetOrBuildIndex(ctx, Key{DocumentID: 5, Version: "old"}, sampleChunks)
	require.NoError(t, err)
	idx, err := engine.GetOrBuildIndex(ctx, Key{DocumentID: 5, Version: "new"}, []string{"fresh text"})
	require.NoError(t, err)

	assert.Equal(t, 1, idx.Len())
	assert.EqualValues(t, 2, engine.BuildCount())

	entries, err := os.ReadDir(filepath.Join(root, "5"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "new.json", entries[0].Name())
}

func TestRetrieve_RanksBySimilarity(t *testing.T) {
	engine, _ := newTestEngine(t, &bagOfWords{})
	ctx := context.Background()

	idx, err := engine.GetOrBuildIndex(ctx, Key{DocumentID: 2, Version: "v"}, sampleChunks)
	require.NoError(t, err)

	results, err := engine.Retrieve(ctx, idx, "hello world", 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "hello world from the pdf", results[0].Content)
	assert.GreaterOrEqual(t, results[0].Similarity, results[1].Similarity)
	assert.GreaterOrEqual(t, results[1].Similarity, results[2].Similarity)
}

func TestRetrieve_EmptyIndex(t *testing.T) {
	engine, _ := newTestEngine(t, &bagOfWords{})
	idx, err := engine.GetOrBuildIndex(context.Background(), Key{DocumentID: 9, Version: "empty"}, nil)
	require.NoError(t, err)

	results, err := engine.Retrieve(context.Background(), idx, "anything", 3)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestInvalidate_ForcesRebuild(t *testing.T) {
	engine, root := newTestEngine(t, &bagOfWords{})
	ctx := context.Background()
	key := Key{DocumentID: 4, Version: "v"}

	_, err := engine.GetOrBuildIndex(ctx, key, sampleChunks)
	require.NoError(t, err)
	require.NoError(t, engine.Invalidate(ctx, 4))

	_, err = os.Stat(filepath.Join(root, "4"))
	assert.True(t, os.IsNotExist(err))

	_, err = engine.GetOrBuildIndex(ctx, key, sampleChunks)
	require.NoError(t, err)
	assert.EqualValues(t, 2, engine.BuildCount())
}

func TestGetOrBuildIndex_EmbedFailureIsNotCached(t *testing.T) {
	embedder := &bagOfWords{fail: errors.New("ollama down")}
	engine, _ := newTestEngine(t, embedder)
	key := Key{DocumentID: 8, Version: "v"}

	_, err := engine.GetOrBuildIndex(context.Background(), key, sampleChunks)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ollama down")

	embedder.fail = nil
	idx, err := engine.GetOrBuildIndex(context.Background(), key, sampleChunks)
	require.NoError(t, err)
	assert.Equal(t, len(sampleChunks), idx.Len())
	assert.EqualValues(t, 1, engine.BuildCount())
}

func TestMemoryIndex_TiesKeepChunkOrder(t *testing.T) {
	idx := newMemoryIndex(Key{}, []Chunk{
		{Index: 0, Content: "a", Embedding: []float32{1, 0}},
		{Index: 1, Content: "b", Embedding: []float32{1, 0}},
		{Index: 2, Content: "c", Embedding: []float32{0, 1}},
	})

	results, err := idx.Search(context.Background(), []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 0, results[0].Index)
	assert.Equal(t, 1, results[1].Index)
}

func TestVersionOf(t *testing.T) {
	assert.Len(t, VersionOf("hello"), 16)
	assert.Equal(t, VersionOf("hello"), VersionOf("hello"))
	assert.NotEqual(t, VersionOf("hello"), VersionOf("hello!"))
}

// gatedEmbedder signals on started and blocks until release is closed.
type gatedEmbedder struct {
	bagOfWords
	once    sync.Once
	started chan struct{}
	release chan struct{}
}

func (g *gatedEmbedder) Generate(ctx context.Context, text string, taskType string) (*embedding.EmbeddingResponse, error) {
	g.once.Do(func() { close(g.started) })
	<-g.release
	return g.bagOfWords.Generate(ctx, text, taskType)
}

func TestInvalidate_DuringBuildLeavesNoArtifact(t *testing.T) {
	embedder := &gatedEmbedder{started: make(chan struct{}), release: make(chan struct{})}
	engine, root := newTestEngine(t, embedder)
	ctx := context.Background()
	key := Key{DocumentID: 11, Version: "v"}

	type result struct {
		idx Index
		err error
	}
	done := make(chan result, 1)
	go func() {
		idx, err := engine.GetOrBuildIndex(ctx, key, sampleChunks)
		done <- result{idx, err}
	}()

	<-embedder.started
	require.NoError(t, engine.Invalidate(ctx, 11))
	close(embedder.release)

	res := <-done
	require.NoError(t, res.err)
	assert.Equal(t, len(sampleChunks), res.idx.Len())

	_, err := os.Stat(filepath.Join(root, "11"))
	assert.True(t, os.IsNotExist(err), "index of an invalidated document must not be persisted")

	_, ok := engine.cached(key)
	assert.False(t, ok)
}
