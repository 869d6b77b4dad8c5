package model

import (
	"time"

	"github.com/pgvector/pgvector-go"
)

// DocumentChunk is one embedded chunk of a document's extracted text, stored for the
// pgvector index backend. Version is derived from the text it was built from.
type DocumentChunk struct {
	Id         uint            `gorm:"primaryKey;autoIncrement"`
	DocumentId uint            `gorm:"not null;index:idx_document_chunks_doc_version,priority:1"`
	Version    string          `gorm:"type:varchar(64);not null;index:idx_document_chunks_doc_version,priority:2"`
	ChunkIndex int             `gorm:"not null;default:0"`
	Content    string          `gorm:"type:text"`
	Embedding  pgvector.Vector `gorm:"type:vector"`
	CreatedAt  time.Time       `gorm:"autoCreateTime"`
}

func (DocumentChunk) TableName() string {
	return "document_chunks"
}
