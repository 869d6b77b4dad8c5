package entity

import (
	"time"
)

type DocumentStatus string

const (
	DocumentStatusPending   DocumentStatus = "pending"
	DocumentStatusProcessed DocumentStatus = "processed"
	DocumentStatusFailed    DocumentStatus = "failed"
)

const MimeTypePDF = "application/pdf"

type Document struct {
	Id                uint
	Filename          string
	FilePath          string
	ExtractedTextPath *string
	UploadedAt        time.Time
	FileSize          int64
	Status            DocumentStatus
	ContentHash       string
	MimeType          string
	Metadata          map[string]interface{}
}

func (d *Document) IsProcessed() bool {
	return d.Status == DocumentStatusProcessed
}
