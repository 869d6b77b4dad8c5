package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"pdf-qa-be/internal/constant"
	"pdf-qa-be/internal/dto"
	"pdf-qa-be/internal/entity"
	"pdf-qa-be/internal/mapper"
	"pdf-qa-be/internal/pkg/logger"
	"pdf-qa-be/internal/repository/contract"
	"pdf-qa-be/internal/repository/specification"
	"pdf-qa-be/internal/repository/unitofwork"
	"pdf-qa-be/pkg/events"
	"pdf-qa-be/pkg/filestore"
)

// IndexInvalidator drops derived index artifacts of a document.
type IndexInvalidator interface {
	Invalidate(ctx context.Context, documentID uint) error
}

type IDocumentService interface {
	Upload(ctx context.Context, filename string, data []byte) (*dto.DocumentResponse, error)
	List(ctx context.Context, skip, limit int) ([]*dto.DocumentResponse, error)
	Show(ctx context.Context, id uint) (*dto.DocumentResponse, error)
	Get(ctx context.Context, id uint) (*entity.Document, error)
	Delete(ctx context.Context, id uint) error
	Reprocess(ctx context.Context, id uint) (*dto.DocumentResponse, error)
	MarkProcessed(ctx context.Context, id uint, extractedTextPath string) error
	MarkFailed(ctx context.Context, id uint, cause error) error
}

type documentService struct {
	uowFactory       unitofwork.RepositoryFactory
	contentStore     *filestore.ContentStore
	publisherService IPublisherService
	index            IndexInvalidator
	eventPublisher   events.Publisher
	mapper           *mapper.DocumentMapper
	logger           logger.ILogger

	// Upload and delete of the same content are serialised so a rolled back
	// upload never removes a file another record points at.
	hashLocks [64]sync.Mutex
}

func NewDocumentService(
	uowFactory unitofwork.RepositoryFactory,
	contentStore *filestore.ContentStore,
	publisherService IPublisherService,
	index IndexInvalidator,
	eventPublisher events.Publisher,
	logger logger.ILogger,
) IDocumentService {
	return &documentService{
		uowFactory:       uowFactory,
		contentStore:     contentStore,
		publisherService: publisherService,
		index:            index,
		eventPublisher:   eventPublisher,
		mapper:           mapper.NewDocumentMapper(),
		logger:           logger,
	}
}

func (s *documentService) Upload(ctx context.Context, filename string, data []byte) (*dto.DocumentResponse, error) {
	filename = filepath.Base(filename)
	if !strings.HasSuffix(strings.ToLower(filename), ".pdf") {
		return nil, fmt.Errorf("%w: only PDF files are allowed", ErrValidation)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: file is empty", ErrValidation)
	}

	hash := filestore.Fingerprint(data)
	unlock := s.lockHash(hash)
	defer unlock()

	uow := s.uowFactory.NewUnitOfWork(ctx)
	existing, err := uow.DocumentRepository().FindOne(ctx, specification.ByContentHash{Hash: hash})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicateFingerprint
	}

	stored, err := s.contentStore.Store(data, filename)
	if err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	document := entity.Document{
		Filename:    filename,
		FilePath:    stored.Path,
		FileSize:    stored.Size,
		Status:      entity.DocumentStatusPending,
		ContentHash: stored.Hash,
		MimeType:    entity.MimeTypePDF,
		Metadata: map[string]interface{}{
			"original_filename": filename,
		},
	}

	if err := s.createRecord(ctx, &document); err != nil {
		// Roll back the file write, but only if this call put it on disk.
		if stored.Created {
			if rmErr := s.contentStore.Remove(stored.Path); rmErr != nil {
				s.logger.Warn("DOCUMENT", "Failed to roll back stored file", map[string]interface{}{
					"path":  stored.Path,
					"error": rmErr.Error(),
				})
			}
		}
		return nil, err
	}

	s.publishEvent(ctx, constant.EventDocumentUploaded, &document, "")

	payload, err := json.Marshal(dto.PublishExtractDocumentMessage{
		DocumentId: document.Id,
		FilePath:   document.FilePath,
	})
	if err != nil {
		return nil, err
	}
	if err := s.publisherService.Publish(ctx, payload); err != nil {
		s.logger.Error("DOCUMENT", "Failed to queue extraction", map[string]interface{}{
			"document_id": document.Id,
			"error":       err,
		})
		s.markQueueFailed(ctx, document.Id, err)
		document.Status = entity.DocumentStatusFailed
	}

	s.logger.Info("DOCUMENT", "Document uploaded", map[string]interface{}{
		"document_id": document.Id,
		"filename":    filename,
		"size":        document.FileSize,
	})

	return s.mapper.ToResponse(&document), nil
}

func (s *documentService) createRecord(ctx context.Context, document *entity.Document) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.DocumentRepository().Create(ctx, document); err != nil {
		if errors.Is(err, contract.ErrDuplicateContentHash) {
			return ErrDuplicateFingerprint
		}
		return err
	}

	return uow.Commit()
}

func (s *documentService) List(ctx context.Context, skip, limit int) ([]*dto.DocumentResponse, error) {
	if skip < 0 {
		return nil, fmt.Errorf("%w: skip must be >= 0", ErrValidation)
	}
	if limit < 1 || limit > constant.MaxListLimit {
		return nil, fmt.Errorf("%w: limit must be between 1 and %d", ErrValidation, constant.MaxListLimit)
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	documents, err := uow.DocumentRepository().FindAll(ctx,
		specification.OrderBy{Field: "id"},
		specification.Pagination{Limit: limit, Offset: skip},
	)
	if err != nil {
		return nil, err
	}

	return s.mapper.ToResponses(documents), nil
}

func (s *documentService) Get(ctx context.Context, id uint) (*entity.Document, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	document, err := uow.DocumentRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return nil, err
	}
	if document == nil {
		return nil, ErrDocumentNotFound
	}
	return document, nil
}

func (s *documentService) Show(ctx context.Context, id uint) (*dto.DocumentResponse, error) {
	document, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.mapper.ToResponse(document), nil
}

// Delete removes the record. File and index cleanup failures are logged, never returned.
func (s *documentService) Delete(ctx context.Context, id uint) error {
	document, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	unlock := s.lockHash(document.ContentHash)
	defer unlock()

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.DocumentRepository().Delete(ctx, id); err != nil {
		return err
	}

	paths := []string{document.FilePath, s.contentStore.TextPath(id)}
	if document.ExtractedTextPath != nil {
		paths = append(paths, *document.ExtractedTextPath)
	}
	for _, path := range paths {
		if err := s.contentStore.Remove(path); err != nil {
			s.logger.Warn("DOCUMENT", "Failed to remove document file", map[string]interface{}{
				"document_id": id,
				"path":        path,
				"error":       err.Error(),
			})
		}
	}

	if s.index != nil {
		if err := s.index.Invalidate(ctx, id); err != nil {
			s.logger.Warn("DOCUMENT", "Failed to remove document index", map[string]interface{}{
				"document_id": id,
				"error":       err.Error(),
			})
		}
	}

	s.publishEvent(ctx, constant.EventDocumentDeleted, document, "")
	s.logger.Info("DOCUMENT", "Document deleted", map[string]interface{}{"document_id": id})
	return nil
}

// Reprocess resets a failed document to pending and queues extraction again.
func (s *documentService) Reprocess(ctx context.Context, id uint) (*dto.DocumentResponse, error) {
	document, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.transition(ctx, id, entity.DocumentStatusFailed, entity.DocumentStatusPending, nil); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(dto.PublishExtractDocumentMessage{
		DocumentId: document.Id,
		FilePath:   document.FilePath,
	})
	if err != nil {
		return nil, err
	}
	if err := s.publisherService.Publish(ctx, payload); err != nil {
		s.markQueueFailed(ctx, id, err)
		return nil, fmt.Errorf("queue extraction: %w", err)
	}

	document.Status = entity.DocumentStatusPending
	document.ExtractedTextPath = nil
	return s.mapper.ToResponse(document), nil
}

// markQueueFailed records a failed enqueue. A rejected transition means another writer already moved the document.
func (s *documentService) markQueueFailed(ctx context.Context, id uint, cause error) {
	if err := s.MarkFailed(ctx, id, cause); err != nil {
		s.logger.Warn("DOCUMENT", "Could not mark document failed", map[string]interface{}{
			"document_id": id,
			"error":       err.Error(),
		})
	}
}

func (s *documentService) MarkProcessed(ctx context.Context, id uint, extractedTextPath string) error {
	if err := s.transition(ctx, id, entity.DocumentStatusPending, entity.DocumentStatusProcessed, &extractedTextPath); err != nil {
		return err
	}

	if s.index != nil {
		// Re-extracted text gets a new index version; drop the old artifacts now.
		if err := s.index.Invalidate(ctx, id); err != nil {
			s.logger.Warn("DOCUMENT", "Failed to invalidate document index", map[string]interface{}{
				"document_id": id,
				"error":       err.Error(),
			})
		}
	}

	if document, err := s.Get(ctx, id); err == nil {
		s.publishEvent(ctx, constant.EventDocumentProcessed, document, "")
	}
	return nil
}

func (s *documentService) MarkFailed(ctx context.Context, id uint, cause error) error {
	if err := s.transition(ctx, id, entity.DocumentStatusPending, entity.DocumentStatusFailed, nil); err != nil {
		return err
	}

	detail := ""
	if cause != nil {
		detail = cause.Error()
	}
	if document, err := s.Get(ctx, id); err == nil {
		s.publishEvent(ctx, constant.EventDocumentFailed, document, detail)
	}
	return nil
}

func (s *documentService) transition(ctx context.Context, id uint, from, to entity.DocumentStatus, extractedTextPath *string) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	ok, err := uow.DocumentRepository().TransitionStatus(ctx, id, from, to, extractedTextPath)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	current, err := uow.DocumentRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return err
	}
	if current == nil {
		return ErrDocumentNotFound
	}
	return fmt.Errorf("%w: %s -> %s (current %s)", ErrInvalidStatusTransition, from, to, current.Status)
}

func (s *documentService) lockHash(hash string) func() {
	var slot int
	for i := 0; i < len(hash); i++ {
		slot = (slot*31 + int(hash[i])) % len(s.hashLocks)
	}
	s.hashLocks[slot].Lock()
	return s.hashLocks[slot].Unlock
}

func (s *documentService) publishEvent(ctx context.Context, eventType string, document *entity.Document, detail string) {
	if s.eventPublisher == nil {
		return
	}

	data := map[string]interface{}{
		"document_id": document.Id,
		"filename":    document.Filename,
		"status":      string(document.Status),
	}
	if detail != "" {
		data["detail"] = detail
	}

	// Notifications are auxiliary; a failed publish never fails the operation
	if err := s.eventPublisher.Publish(ctx, events.NewEvent(eventType, data)); err != nil {
		s.logger.Warn("DOCUMENT", "Failed to publish event", map[string]interface{}{
			"event": eventType,
			"error": err.Error(),
		})
	}
}
