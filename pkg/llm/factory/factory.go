package factory

import (
	"fmt"

	"pdf-qa-be/pkg/llm"
	"pdf-qa-be/pkg/llm/huggingface"
	"pdf-qa-be/pkg/llm/ollama"
)

type Options struct {
	Provider string
	Model    string
	BaseURL  string
	APIKey   string
}

func NewLLMProvider(o Options) (llm.LLMProvider, error) {
	switch o.Provider {
	case "ollama", "":
		baseURL := o.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		return ollama.NewOllamaProvider(baseURL, o.Model), nil
	case "huggingface":
		if o.APIKey == "" {
			return nil, fmt.Errorf("huggingface provider requires LLM_API_KEY")
		}
		return huggingface.NewHuggingFaceProvider(o.APIKey, o.BaseURL, o.Model), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", o.Provider)
	}
}
