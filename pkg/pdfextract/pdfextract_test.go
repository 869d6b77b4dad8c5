package pdfextract

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"pdf-qa-be/internal/pkg/testpdf"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestExtract_SinglePage(t *testing.T) {
	path := writeFile(t, "doc.pdf", testpdf.Build("hello world"))

	text, err := NewPDFExtractor().Extract(path)
	require.NoError(t, err)
	assert.Contains(t, text, "hello world")
}

func TestExtract_PagesInOrder(t *testing.T) {
	path := writeFile(t, "multi.pdf", testpdf.Build("alpha page", "beta page", "gamma page"))

	text, err := NewPDFExtractor().Extract(path)
	require.NoError(t, err)

	a := indexOf(text, "alpha")
	b := indexOf(text, "beta")
	c := indexOf(text, "gamma")
	require.True(t, a >= 0 && b >= 0 && c >= 0, "all pages extracted: %q", text)
	assert.Less(t, a, b)
	assert.Less(t, b, c)
}

func TestExtract_CorruptFile(t *testing.T) {
	path := writeFile(t, "broken.pdf", []byte("this is not a pdf at all"))

	_, err := NewPDFExtractor().Extract(path)
	require.Error(t, err)

	var extractionErr *ExtractionError
	assert.True(t, errors.As(err, &extractionErr))
	assert.Equal(t, path, extractionErr.Path)
}

func TestExtract_MissingFile(t *testing.T) {
	_, err := NewPDFExtractor().Extract(filepath.Join(t.TempDir(), "missing.pdf"))

	var extractionErr *ExtractionError
	assert.True(t, errors.As(err, &extractionErr))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}
