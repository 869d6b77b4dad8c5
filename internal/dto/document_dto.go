package dto

import (
	"time"
)

type DocumentResponse struct {
	Id                uint                   `json:"id"`
	Filename          string                 `json:"filename"`
	FilePath          string                 `json:"file_path"`
	ExtractedTextPath *string                `json:"extracted_text_path"`
	UploadedAt        time.Time              `json:"uploaded_at"`
	FileSize          int64                  `json:"file_size"`
	Status            string                 `json:"status"`
	ContentHash       string                 `json:"content_hash"`
	MimeType          string                 `json:"mime_type"`
	Metadata          map[string]interface{} `json:"metadata,omitempty"`
}

type ListDocumentsRequest struct {
	Skip  int `query:"skip" validate:"gte=0"`
	Limit int `query:"limit" validate:"gte=1,lte=100"`
}

type DeleteDocumentResponse struct {
	Id      uint `json:"id"`
	Deleted bool `json:"deleted"`
}

// PublishExtractDocumentMessage is the queue payload consumed by the extraction worker.
type PublishExtractDocumentMessage struct {
	DocumentId uint   `json:"document_id"`
	FilePath   string `json:"file_path"`
}
