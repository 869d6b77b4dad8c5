package specification

import (
	"pdf-qa-be/internal/entity"

	"gorm.io/gorm"
)

type ByContentHash struct {
	Hash string
}

func (s ByContentHash) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("content_hash = ?", s.Hash)
}

type ByStatus struct {
	Status entity.DocumentStatus
}

func (s ByStatus) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("status = ?", string(s.Status))
}
