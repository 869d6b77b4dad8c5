package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"pdf-qa-be/internal/dto"
	"pdf-qa-be/internal/entity"
	"pdf-qa-be/internal/pkg/logger"
	"pdf-qa-be/pkg/filestore"
	"pdf-qa-be/pkg/pdfextract"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

type IConsumerService interface {
	// Consume subscribes to the extraction topic and processes jobs in the background
	// until ctx is cancelled.
	Consume(ctx context.Context) error
	// Wait blocks until every started job has finished after ctx was cancelled.
	Wait()
}

type consumerService struct {
	subscriber      message.Subscriber
	topicName       string
	workers         int
	documentService IDocumentService
	contentStore    *filestore.ContentStore
	extractor       pdfextract.Extractor
	logger          logger.ILogger
	done            chan struct{}
}

func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	workers int,
	documentService IDocumentService,
	contentStore *filestore.ContentStore,
	extractor pdfextract.Extractor,
	logger logger.ILogger,
) IConsumerService {
	if workers <= 0 {
		workers = 1
	}
	return &consumerService{
		subscriber:      subscriber,
		topicName:       topicName,
		workers:         workers,
		documentService: documentService,
		contentStore:    contentStore,
		extractor:       extractor,
		logger:          logger,
		done:            make(chan struct{}),
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		defer close(cs.done)

		var g errgroup.Group
		g.SetLimit(cs.workers)
		for msg := range messages {
			var payload dto.PublishExtractDocumentMessage
			if err := json.Unmarshal(msg.Payload, &payload); err != nil {
				cs.logger.Error("EXTRACTION", "Failed to unmarshal message", map[string]interface{}{"error": err})
				msg.Ack() // Ack invalid messages to prevent infinite retry
				continue
			}
			// The job outcome lives in the document status, not in redelivery.
			msg.Ack()

			g.Go(func() error {
				cs.process(context.WithoutCancel(ctx), payload.DocumentId)
				return nil
			})
		}
		_ = g.Wait()
	}()

	return nil
}

func (cs *consumerService) Wait() {
	<-cs.done
}

func (cs *consumerService) process(ctx context.Context, documentID uint) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "ConsumerService.Extract", trace.WithAttributes(attribute.Int64("document.id", int64(documentID))))
	defer span.End()

	document, err := cs.documentService.Get(ctx, documentID)
	if err != nil {
		if errors.Is(err, ErrDocumentNotFound) {
			cs.logger.Info("EXTRACTION", "Document vanished before extraction", map[string]interface{}{"document_id": documentID})
			return
		}
		cs.logger.Error("EXTRACTION", "Failed to load document", map[string]interface{}{"document_id": documentID, "error": err})
		return
	}
	if document.Status != entity.DocumentStatusPending {
		cs.logger.Warn("EXTRACTION", "Skipping document that is not pending", map[string]interface{}{
			"document_id": documentID,
			"status":      string(document.Status),
		})
		return
	}

	text, err := cs.extractor.Extract(document.FilePath)
	if err != nil {
		span.RecordError(err)
		cs.fail(ctx, documentID, err)
		return
	}
	span.SetAttributes(attribute.Int("text.bytes", len(text)))

	textPath, err := cs.contentStore.WriteText(documentID, text)
	if err != nil {
		cs.fail(ctx, documentID, err)
		return
	}

	if err := cs.documentService.MarkProcessed(ctx, documentID, textPath); err != nil {
		// Deleted or reset while extracting; the text file belongs to nobody now.
		_ = cs.contentStore.Remove(textPath)
		cs.logger.Warn("EXTRACTION", "Could not mark document processed", map[string]interface{}{
			"document_id": documentID,
			"error":       err.Error(),
		})
		return
	}

	cs.logger.Info("EXTRACTION", "Document processed", map[string]interface{}{
		"document_id": documentID,
		"characters":  len(text),
		"duration":    time.Since(start).String(),
	})
}

func (cs *consumerService) fail(ctx context.Context, documentID uint, cause error) {
	if err := cs.contentStore.Remove(cs.contentStore.TextPath(documentID)); err != nil {
		cs.logger.Warn("EXTRACTION", "Failed to remove partial text", map[string]interface{}{"document_id": documentID, "error": err.Error()})
	}

	cs.logger.Error("EXTRACTION", "Extraction failed", map[string]interface{}{
		"document_id": documentID,
		"error":       cause,
	})

	if err := cs.documentService.MarkFailed(ctx, documentID, cause); err != nil {
		cs.logger.Warn("EXTRACTION", "Could not mark document failed", map[string]interface{}{
			"document_id": documentID,
			"error":       err.Error(),
		})
	}
}
