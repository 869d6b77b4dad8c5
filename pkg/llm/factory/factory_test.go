package factory

import (
	"testing"

	"pdf-qa-be/pkg/llm/huggingface"
	"pdf-qa-be/pkg/llm/ollama"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLLMProvider(t *testing.T) {
	p, err := NewLLMProvider(Options{Provider: "ollama", Model: "llama3"})
	require.NoError(t, err)
	o, ok := p.(*ollama.OllamaProvider)
	require.True(t, ok)
	assert.Equal(t, "http://localhost:11434", o.BaseURL)

	_, err = NewLLMProvider(Options{Provider: "huggingface", Model: "x"})
	assert.Error(t, err)

	p, err = NewLLMProvider(Options{Provider: "huggingface", Model: "x", APIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &huggingface.HuggingFaceProvider{}, p)

	_, err = NewLLMProvider(Options{Provider: "gemini"})
	assert.Error(t, err)
}
