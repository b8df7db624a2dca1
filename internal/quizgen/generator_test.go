package quizgen

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/abhisek/docquiz/internal/llm"
)

func TestGenerate_Valid(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Text: setJSON(validQuestions(10))})
	gen := New(mock, DefaultConfig())

	qs, err := gen.Generate(context.Background(), GenerateInput{
		DocumentText:       "Cells are the basic unit of life.",
		QuestionCount:      10,
		CustomInstructions: "Keep it short",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(qs) != 10 {
		t.Fatalf("expected 10 questions, got %d", len(qs))
	}

	if mock.CallCount() != 1 {
		t.Fatalf("expected exactly one backend request, got %d", mock.CallCount())
	}
	req := mock.Calls[0]
	if req.Schema != QuestionSetSchema {
		t.Error("expected question-set schema hint")
	}
	if req.MaxTokens != 2000 {
		t.Errorf("expected 2000 max tokens, got %d", req.MaxTokens)
	}
	if req.Temperature != 0.7 {
		t.Errorf("expected temperature 0.7, got %f", req.Temperature)
	}
	if !strings.Contains(req.Messages[0].Content, "Additional instructions: Keep it short") {
		t.Error("expected custom instructions in prompt")
	}
}

func TestGenerate_ScalesTokenBudget(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Text: setJSON(validQuestions(50))})
	gen := New(mock, DefaultConfig())

	if _, err := gen.Generate(context.Background(), GenerateInput{QuestionCount: 50}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := mock.Calls[0].MaxTokens; got != 6000 {
		t.Fatalf("expected 6000 max tokens for 50 questions, got %d", got)
	}
}

func TestGenerate_BackendError(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Err: &llm.ErrProviderUnavailable{}})
	gen := New(mock, DefaultConfig())

	_, err := gen.Generate(context.Background(), GenerateInput{QuestionCount: 10})
	var unavail *llm.ErrProviderUnavailable
	if !errors.As(err, &unavail) {
		t.Fatalf("expected ErrProviderUnavailable, got %T: %v", err, err)
	}
	if mock.CallCount() != 1 {
		t.Fatalf("expected no retry, got %d calls", mock.CallCount())
	}
}

func TestGenerate_GarbageIsSchemaError(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Text: "Sorry, I can't do that."})
	gen := New(mock, DefaultConfig())

	_, err := gen.Generate(context.Background(), GenerateInput{QuestionCount: 10})
	var se *SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("expected *SchemaError, got %T: %v", err, err)
	}
}

func TestGenerate_SetsPurpose(t *testing.T) {
	var gotPurpose string
	p := providerFunc(func(ctx context.Context, _ llm.Request) (*llm.Response, error) {
		gotPurpose = llm.PurposeFrom(ctx)
		return &llm.Response{Text: setJSON(validQuestions(10))}, nil
	})

	if _, err := New(p, DefaultConfig()).Generate(context.Background(), GenerateInput{QuestionCount: 10}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPurpose != Purpose {
		t.Fatalf("expected purpose %q, got %q", Purpose, gotPurpose)
	}
}

type providerFunc func(ctx context.Context, req llm.Request) (*llm.Response, error)

func (f providerFunc) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	return f(ctx, req)
}

func (f providerFunc) ModelID() string { return "func" }
