package contract

import (
	"context"
	"errors"

	"pdf-qa-be/internal/entity"
	"pdf-qa-be/internal/repository/specification"
)

type DocumentRepository interface {
	Create(ctx context.Context, document *entity.Document) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Document, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Document, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	// TransitionStatus moves a document from one status to another in a single conditional
	// update. It returns false when the document is missing or not in the from status.
	TransitionStatus(ctx context.Context, id uint, from, to entity.DocumentStatus, extractedTextPath *string) (bool, error)
	Delete(ctx context.Context, id uint) error
}

// ErrDuplicateContentHash is returned by Create when the unique index on content_hash fires.
var ErrDuplicateContentHash = errors.New("duplicate content hash")
