package quizgen

import (
	"context"
	"fmt"

	"github.com/abhisek/docquiz/internal/llm"
	"github.com/abhisek/docquiz/internal/quiz"
)

// Purpose labels backend requests made for quiz generation.
const Purpose = "quiz-gen"

// Generator produces a question set from document text.
type Generator interface {
	// Generate returns exactly input.QuestionCount validated questions or
	// an error. It sends at most one backend request.
	Generate(ctx context.Context, input GenerateInput) ([]quiz.Question, error)
}

// GenerateInput is what a question set is generated from.
type GenerateInput struct {
	DocumentText       string
	QuestionCount      int
	CustomInstructions string
}

// Config controls the behavior of the LLMGenerator.
type Config struct {
	// MaxTokens is the minimum token budget for the backend response.
	MaxTokens int

	// TokensPerQuestion raises the budget for large sets so the JSON is
	// not cut off mid-question.
	TokensPerQuestion int

	// Temperature controls backend output randomness (0.0-1.0).
	Temperature float64
}

// DefaultConfig returns the recommended defaults.
func DefaultConfig() Config {
	return Config{
		MaxTokens:         2000,
		TokensPerQuestion: 120,
		Temperature:       0.7,
	}
}

// LLMGenerator implements Generator using a generation backend.
type LLMGenerator struct {
	provider llm.Provider
	config   Config
}

// New creates a new LLMGenerator with the given provider and config.
func New(provider llm.Provider, cfg Config) *LLMGenerator {
	return &LLMGenerator{provider: provider, config: cfg}
}

func (g *LLMGenerator) Generate(ctx context.Context, input GenerateInput) ([]quiz.Question, error) {
	ctx = llm.WithPurpose(ctx, Purpose)

	prompt := BuildPrompt(input.DocumentText, input.QuestionCount, input.CustomInstructions)

	req := llm.Request{
		System: prompt.System,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: prompt.User},
		},
		Schema:      QuestionSetSchema,
		MaxTokens:   g.maxTokens(input.QuestionCount),
		Temperature: g.config.Temperature,
	}

	resp, err := g.provider.Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("generation backend: %w", err)
	}

	return Validate(resp.Text, input.QuestionCount)
}

func (g *LLMGenerator) maxTokens(count int) int {
	n := count * g.config.TokensPerQuestion
	if n < g.config.MaxTokens {
		return g.config.MaxTokens
	}
	return n
}
