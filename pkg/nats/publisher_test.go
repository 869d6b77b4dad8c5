package nats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubject(t *testing.T) {
	assert.Equal(t, "documents.document_processed", Subject("DOCUMENT_PROCESSED"))
	assert.Equal(t, "documents.document_failed", Subject("DOCUMENT_FAILED"))
}
