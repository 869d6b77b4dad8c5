package server

import (
	"errors"
	"fmt"
	"testing"

	"pdf-qa-be/internal/service"
	"pdf-qa-be/pkg/pdfextract"

	"github.com/stretchr/testify/assert"
)

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		ok     bool
	}{
		{"validation", fmt.Errorf("%w: only PDF files are allowed", service.ErrValidation), 400, true},
		{"duplicate", service.ErrDuplicateFingerprint, 400, true},
		{"not found", fmt.Errorf("document 9: %w", service.ErrDocumentNotFound), 404, true},
		{"transition", fmt.Errorf("%w: processed -> pending", service.ErrInvalidStatusTransition), 409, true},
		{"not ready", service.ErrDocumentNotReady, 409, true},
		{"extraction", &pdfextract.ExtractionError{Path: "a.pdf", Err: errors.New("bad xref")}, 422, true},
		{"unknown", errors.New("disk full"), 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, ok := statusOf(tt.err)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.status, status)
		})
	}
}
