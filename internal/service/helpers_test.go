package service

import (
	"context"
	"encoding/json"
	"errors"
	"hash/fnv"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"pdf-qa-be/internal/dto"
	"pdf-qa-be/internal/entity"
	"pdf-qa-be/internal/pkg/logger"
	"pdf-qa-be/internal/pkg/testdb"
	"pdf-qa-be/internal/repository/memory"
	"pdf-qa-be/internal/repository/unitofwork"
	"pdf-qa-be/pkg/embedding"
	"pdf-qa-be/pkg/events"
	"pdf-qa-be/pkg/filestore"
	"pdf-qa-be/pkg/llm"
	"pdf-qa-be/pkg/pdfextract"
	"pdf-qa-be/pkg/rag/confidence"
	"pdf-qa-be/pkg/vectorindex"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/require"
)

type hashingEmbedder struct{}

func (hashingEmbedder) Generate(_ context.Context, text string, _ string) (*embedding.EmbeddingResponse, error) {
	vec := make([]float32, 256)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(strings.Trim(w, ".,?!")))
		vec[h.Sum32()%256]++
	}
	return &embedding.EmbeddingResponse{Embedding: embedding.EmbeddingResponseEmbedding{Values: vec}}, nil
}

type fakeLLM struct {
	mu      sync.Mutex
	answer  string
	err     error
	prompts []string
}

func (f *fakeLLM) Chat(ctx context.Context, history []llm.Message, _ ...llm.Option) (string, error) {
	return f.Generate(ctx, history[len(history)-1].Content)
}

func (f *fakeLLM) Generate(_ context.Context, prompt string, _ ...llm.Option) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

func (f *fakeLLM) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}

type fakeExtractor struct {
	text string
	err  error
}

func (f fakeExtractor) Extract(string) (string, error) {
	return f.text, f.err
}

type recordingEvents struct {
	mu  sync.Mutex
	got []events.Event
}

func (r *recordingEvents) Publish(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, e)
	return nil
}

func (r *recordingEvents) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.got))
	for i, e := range r.got {
		out[i] = e.EventType()
	}
	return out
}

func (r *recordingEvents) find(eventType string) events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.got {
		if e.EventType() == eventType {
			return e
		}
	}
	return nil
}

type harness struct {
	documents IDocumentService
	qa        IQAService
	consumer  IConsumerService
	store     *filestore.ContentStore
	engine    *vectorindex.Engine
	llm       *fakeLLM
	events    *recordingEvents
	uploadDir string
	textDir   string
	indexDir  string
}

func newHarness(t *testing.T, extractor pdfextract.Extractor) *harness {
	t.Helper()

	root := t.TempDir()
	h := &harness{
		uploadDir: filepath.Join(root, "uploads"),
		textDir:   filepath.Join(root, "extracted"),
		indexDir:  filepath.Join(root, "vectorstore"),
		llm:       &fakeLLM{answer: "It says hello world."},
		events:    &recordingEvents{},
	}

	var err error
	h.store, err = filestore.NewContentStore(h.uploadDir, h.textDir)
	require.NoError(t, err)

	indexStore, err := vectorindex.NewFileStore(h.indexDir)
	require.NoError(t, err)

	log := logger.NewNopLogger()
	h.engine = vectorindex.NewEngine(indexStore, hashingEmbedder{}, time.Minute, log)

	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, watermill.NopLogger{})
	t.Cleanup(func() { _ = pubSub.Close() })

	uowFactory := unitofwork.NewRepositoryFactory(testdb.New(t))
	h.documents = NewDocumentService(uowFactory, h.store, NewPublisherService("EXTRACT_DOCUMENT", pubSub), h.engine, h.events, log)
	h.consumer = NewConsumerService(pubSub, "EXTRACT_DOCUMENT", 2, h.documents, h.store, extractor, log)
	h.qa = NewQAService(h.documents, h.store, h.engine, h.llm, memory.NewConversationRepository(time.Hour, 100), confidence.MeanSimilarity{}, QAOptions{
		ChunkSize:     1000,
		ChunkOverlap:  200,
		TopK:          3,
		PromptHistory: 3,
		MaxTurns:      10,
	}, log)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, h.consumer.Consume(ctx))
	t.Cleanup(func() {
		cancel()
		h.consumer.Wait()
	})

	return h
}

func (h *harness) waitForStatus(t *testing.T, id uint, status entity.DocumentStatus) *entity.Document {
	t.Helper()
	var document *entity.Document
	require.Eventually(t, func() bool {
		d, err := h.documents.Get(context.Background(), id)
		if err != nil {
			return false
		}
		document = d
		return d.Status == status
	}, 5*time.Second, 10*time.Millisecond, "document %d never reached %s", id, status)
	return document
}

type logEntry struct {
	level   string
	message string
}

type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *recordingLogger) add(level, message string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, message: message})
}

func (l *recordingLogger) Debug(_, message string, _ map[string]interface{}) { l.add("debug", message) }
func (l *recordingLogger) Info(_, message string, _ map[string]interface{})  { l.add("info", message) }
func (l *recordingLogger) Warn(_, message string, _ map[string]interface{})  { l.add("warn", message) }
func (l *recordingLogger) Error(_, message string, _ map[string]interface{}) { l.add("error", message) }
func (l *recordingLogger) Sync() error                                       { return nil }

func (l *recordingLogger) has(level, message string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.level == level && e.message == message {
			return true
		}
	}
	return false
}

// failingPublisher runs before (if set) with the queued document id, then fails.
type failingPublisher struct {
	before func(documentID uint)
}

func (p *failingPublisher) Publish(_ context.Context, payload []byte) error {
	var msg dto.PublishExtractDocumentMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return err
	}
	if p.before != nil {
		p.before(msg.DocumentId)
	}
	return errors.New("broker unavailable")
}

func newDocumentServiceWith(t *testing.T, publisher IPublisherService, log logger.ILogger) IDocumentService {
	t.Helper()
	root := t.TempDir()
	store, err := filestore.NewContentStore(filepath.Join(root, "uploads"), filepath.Join(root, "extracted"))
	require.NoError(t, err)
	indexStore, err := vectorindex.NewFileStore(filepath.Join(root, "vectorstore"))
	require.NoError(t, err)
	engine := vectorindex.NewEngine(indexStore, hashingEmbedder{}, time.Minute, log)
	return NewDocumentService(unitofwork.NewRepositoryFactory(testdb.New(t)), store, publisher, engine, &recordingEvents{}, log)
}
