package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"pdf-qa-be/internal/dto"
	"pdf-qa-be/internal/entity"
	"pdf-qa-be/internal/pkg/logger"
	"pdf-qa-be/internal/repository/contract"
	"pdf-qa-be/pkg/filestore"
	"pdf-qa-be/pkg/llm"
	"pdf-qa-be/pkg/rag/confidence"
	"pdf-qa-be/pkg/rag/prompt"
	"pdf-qa-be/pkg/utils"
	"pdf-qa-be/pkg/vectorindex"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const snippetLength = 200

var tracer = otel.Tracer("pdf-qa-be/internal/service")

type IQAService interface {
	Answer(ctx context.Context, req *dto.QuestionMessage) (*dto.AnswerMessage, error)
}

type QAOptions struct {
	ChunkSize     int
	ChunkOverlap  int
	TopK          int
	PromptHistory int
	MaxTurns      int
}

type qaService struct {
	documentService IDocumentService
	contentStore    *filestore.ContentStore
	engine          *vectorindex.Engine
	llmProvider     llm.LLMProvider
	conversations   contract.ConversationRepository
	scorer          confidence.Scorer
	options         QAOptions
	logger          logger.ILogger
}

func NewQAService(
	documentService IDocumentService,
	contentStore *filestore.ContentStore,
	engine *vectorindex.Engine,
	llmProvider llm.LLMProvider,
	conversations contract.ConversationRepository,
	scorer confidence.Scorer,
	options QAOptions,
	logger logger.ILogger,
) IQAService {
	if scorer == nil {
		scorer = confidence.MeanSimilarity{}
	}
	if options.TopK <= 0 {
		options.TopK = 3
	}
	return &qaService{
		documentService: documentService,
		contentStore:    contentStore,
		engine:          engine,
		llmProvider:     llmProvider,
		conversations:   conversations,
		scorer:          scorer,
		options:         options,
		logger:          logger,
	}
}

func (s *qaService) Answer(ctx context.Context, req *dto.QuestionMessage) (_ *dto.AnswerMessage, err error) {
	ctx, span := tracer.Start(ctx, "QAService.Answer", trace.WithAttributes(
		attribute.Int64("document.id", int64(req.DocumentId)),
		attribute.Bool("conversation.resumed", req.ConversationId != ""),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	document, err := s.documentService.Get(ctx, req.DocumentId)
	if err != nil {
		return nil, err
	}
	if !document.IsProcessed() || document.ExtractedTextPath == nil {
		return nil, fmt.Errorf("%w: status is %s", ErrDocumentNotReady, document.Status)
	}

	text, err := s.contentStore.ReadText(*document.ExtractedTextPath)
	if err != nil {
		return nil, fmt.Errorf("read extracted text: %w", err)
	}

	chunks := utils.SplitText(text, s.options.ChunkSize, s.options.ChunkOverlap)
	key := vectorindex.Key{DocumentID: document.Id, Version: vectorindex.VersionOf(text)}
	index, err := s.engine.GetOrBuildIndex(ctx, key, chunks)
	if err != nil {
		return nil, err
	}

	results, err := s.engine.Retrieve(ctx, index, req.Question, s.options.TopK)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("index.chunks", index.Len()), attribute.Int("retrieval.results", len(results)))

	var history []entity.ConversationTurn
	if req.ConversationId != "" {
		history, err = s.conversations.History(ctx, req.ConversationId)
		if err != nil {
			return nil, err
		}
	}

	excerpts := make([]string, len(results))
	similarities := make([]float64, len(results))
	snippets := make([]string, len(results))
	for i, r := range results {
		excerpts[i] = r.Content
		similarities[i] = r.Similarity
		snippets[i] = truncate(r.Content, snippetLength)
	}

	p := prompt.NewDocumentQABuilder(document.Filename, excerpts, toMessages(history), req.Question, s.options.PromptHistory).Build()
	answer, err := s.llmProvider.Generate(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	conversationId := req.ConversationId
	if conversationId == "" {
		conversationId = uuid.NewString()
	}

	if err := s.conversations.Append(ctx, conversationId, entity.ConversationTurn{
		DocumentId: document.Id,
		Question:   req.Question,
		Answer:     answer,
		CreatedAt:  time.Now().UTC(),
	}, s.options.MaxTurns); err != nil {
		return nil, err
	}

	return &dto.AnswerMessage{
		Answer:         answer,
		Confidence:     s.scorer.Score(similarities),
		Context:        strings.Join(snippets, "\n\n"),
		ConversationId: conversationId,
	}, nil
}

func toMessages(history []entity.ConversationTurn) []llm.Message {
	messages := make([]llm.Message, 0, 2*len(history))
	for _, turn := range history {
		messages = append(messages,
			llm.Message{Role: llm.RoleUser, Content: turn.Question},
			llm.Message{Role: llm.RoleAssistant, Content: turn.Answer},
		)
	}
	return messages
}

// truncate cuts s to n runes and marks the cut with "...".
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
