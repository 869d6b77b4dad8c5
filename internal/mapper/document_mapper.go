package mapper

import (
	"encoding/json"

	"pdf-qa-be/internal/dto"
	"pdf-qa-be/internal/entity"
	"pdf-qa-be/internal/model"

	"gorm.io/datatypes"
)

type DocumentMapper struct{}

func NewDocumentMapper() *DocumentMapper {
	return &DocumentMapper{}
}

func (m *DocumentMapper) ToEntity(d *model.Document) *entity.Document {
	if d == nil {
		return nil
	}

	var metadata map[string]interface{}
	if len(d.Metadata) > 0 {
		// Metadata is free-form; a malformed blob degrades to empty instead of failing reads.
		_ = json.Unmarshal(d.Metadata, &metadata)
	}

	return &entity.Document{
		Id:                d.Id,
		Filename:          d.Filename,
		FilePath:          d.FilePath,
		ExtractedTextPath: d.ExtractedTextPath,
		UploadedAt:        d.UploadedAt,
		FileSize:          d.FileSize,
		Status:            entity.DocumentStatus(d.Status),
		ContentHash:       d.ContentHash,
		MimeType:          d.MimeType,
		Metadata:          metadata,
	}
}

func (m *DocumentMapper) ToModel(e *entity.Document) *model.Document {
	if e == nil {
		return nil
	}

	var metadata datatypes.JSON
	if e.Metadata != nil {
		if raw, err := json.Marshal(e.Metadata); err == nil {
			metadata = raw
		}
	}

	return &model.Document{
		Id:                e.Id,
		Filename:          e.Filename,
		FilePath:          e.FilePath,
		ExtractedTextPath: e.ExtractedTextPath,
		UploadedAt:        e.UploadedAt,
		FileSize:          e.FileSize,
		Status:            string(e.Status),
		ContentHash:       e.ContentHash,
		MimeType:          e.MimeType,
		Metadata:          metadata,
	}
}

func (m *DocumentMapper) ToEntities(documents []*model.Document) []*entity.Document {
	entities := make([]*entity.Document, len(documents))
	for i, d := range documents {
		entities[i] = m.ToEntity(d)
	}
	return entities
}

func (m *DocumentMapper) ToResponse(e *entity.Document) *dto.DocumentResponse {
	if e == nil {
		return nil
	}
	return &dto.DocumentResponse{
		Id:                e.Id,
		Filename:          e.Filename,
		FilePath:          e.FilePath,
		ExtractedTextPath: e.ExtractedTextPath,
		UploadedAt:        e.UploadedAt,
		FileSize:          e.FileSize,
		Status:            string(e.Status),
		ContentHash:       e.ContentHash,
		MimeType:          e.MimeType,
		Metadata:          e.Metadata,
	}
}

func (m *DocumentMapper) ToResponses(documents []*entity.Document) []*dto.DocumentResponse {
	responses := make([]*dto.DocumentResponse, len(documents))
	for i, d := range documents {
		responses[i] = m.ToResponse(d)
	}
	return responses
}
