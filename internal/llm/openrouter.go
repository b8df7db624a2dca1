package llm

import (
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

const defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

// OpenRouterProvider targets OpenRouter's OpenAI-compatible API. Models are
// addressed as "vendor/model" and pass through unmapped.
type OpenRouterProvider struct {
	*OpenAIProvider
}

// NewOpenRouterProvider creates a provider targeting the OpenRouter API.
func NewOpenRouterProvider(cfg OpenRouterConfig) (*OpenRouterProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openrouter API key is required")
	}

	config := openai.DefaultConfig(cfg.APIKey)
	config.BaseURL = cfg.BaseURL
	if config.BaseURL == "" {
		config.BaseURL = defaultOpenRouterBaseURL
	}
	// Attribution headers identify the calling app on OpenRouter.
	config.HTTPClient = &http.Client{Transport: &headerTransport{
		base: http.DefaultTransport,
		headers: map[string]string{
			"HTTP-Referer": "https://github.com/abhisek/docquiz",
			"X-Title":      "docquiz",
		},
	}}

	return &OpenRouterProvider{OpenAIProvider: &OpenAIProvider{
		client:          openai.NewClientWithConfig(config),
		model:           cfg.Model,
		legacyMaxTokens: true,
	}}, nil
}
