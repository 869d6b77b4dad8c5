package model

import (
	"time"

	"gorm.io/datatypes"
)

type Document struct {
	Id                uint           `gorm:"primaryKey;autoIncrement"`
	Filename          string         `gorm:"type:varchar(255);not null;index"`
	FilePath          string         `gorm:"type:text;not null"`
	ExtractedTextPath *string        `gorm:"type:text"`
	UploadedAt        time.Time      `gorm:"autoCreateTime"`
	FileSize          int64          `gorm:"not null"`
	Status            string         `gorm:"type:varchar(20);not null;default:'pending';index"`
	ContentHash       string         `gorm:"type:varchar(64);not null;uniqueIndex"`
	MimeType          string         `gorm:"type:varchar(100);not null"`
	Metadata          datatypes.JSON `gorm:"type:jsonb"`
}

func (Document) TableName() string {
	return "documents"
}
