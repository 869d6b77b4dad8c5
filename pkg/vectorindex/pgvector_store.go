package vectorindex

import (
	"context"
	"fmt"

	"pdf-qa-be/internal/model"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

// PgvectorStore keeps chunks in the document_chunks table and ranks them with pgvector.
type PgvectorStore struct {
	db *gorm.DB
}

func NewPgvectorStore(db *gorm.DB) *PgvectorStore {
	return &PgvectorStore{db: db}
}

func (s *PgvectorStore) Load(ctx context.Context, key Key) (Index, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&model.DocumentChunk{}).
		Where("document_id = ? AND version = ?", key.DocumentID, key.Version).
		Count(&count).Error
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrIndexNotFound
	}
	return &pgvectorIndex{db: s.db, key: key, size: int(count)}, nil
}

// Save replaces every stored chunk of the document with the new version.
func (s *PgvectorStore) Save(ctx context.Context, key Key, chunks []Chunk) (Index, error) {
	models := make([]*model.DocumentChunk, len(chunks))
	for i, c := range chunks {
		models[i] = &model.DocumentChunk{
			DocumentId: key.DocumentID,
			Version:    key.Version,
			ChunkIndex: c.Index,
			Content:    c.Content,
			Embedding:  pgvector.NewVector(c.Embedding),
		}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", key.DocumentID).Delete(&model.DocumentChunk{}).Error; err != nil {
			return err
		}
		if len(models) == 0 {
			return nil
		}
		return tx.CreateInBatches(models, 100).Error
	})
	if err != nil {
		return nil, fmt.Errorf("save chunks for %s: %w", key, err)
	}

	return &pgvectorIndex{db: s.db, key: key, size: len(chunks)}, nil
}

func (s *PgvectorStore) Delete(ctx context.Context, documentID uint) error {
	return s.db.WithContext(ctx).Where("document_id = ?", documentID).Delete(&model.DocumentChunk{}).Error
}

type pgvectorIndex struct {
	db   *gorm.DB
	key  Key
	size int
}

func (p *pgvectorIndex) Key() Key { return p.key }

func (p *pgvectorIndex) Len() int { return p.size }

func (p *pgvectorIndex) Search(ctx context.Context, query []float32, k int) ([]ScoredChunk, error) {
	if k <= 0 {
		k = 3
	}

	// Cosine distance in pgvector is 1 - cosine_similarity
	type result struct {
		ChunkIndex int
		Content    string
		Similarity float64
	}
	var results []result

	err := p.db.WithContext(ctx).
		Table("document_chunks").
		Select("chunk_index, content, 1 - (embedding <=> ?) as similarity", pgvector.NewVector(query)).
		Where("document_id = ? AND version = ?", p.key.DocumentID, p.key.Version).
		Order("similarity DESC, chunk_index ASC").
		Limit(k).
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	scored := make([]ScoredChunk, len(results))
	for i, r := range results {
		scored[i] = ScoredChunk{Index: r.ChunkIndex, Content: r.Content, Similarity: r.Similarity}
	}
	return scored, nil
}
