package embedding

import "context"

// Task types hint asymmetric models whether the text is a stored passage or a query.
const (
	TaskTypeDocument = "search_document"
	TaskTypeQuery    = "search_query"
)

type EmbeddingResponseEmbedding struct {
	Values []float32 `json:"values"`
}

type EmbeddingResponse struct {
	Embedding EmbeddingResponseEmbedding `json:"embedding"`
}

// EmbeddingProvider defines the interface for generating text embeddings
type EmbeddingProvider interface {
	Generate(ctx context.Context, text string, taskType string) (*EmbeddingResponse, error)
}
