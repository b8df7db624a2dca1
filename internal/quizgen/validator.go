package quizgen

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/abhisek/docquiz/internal/llm"
	"github.com/abhisek/docquiz/internal/quiz"
)

// SchemaError describes why backend text was rejected as a question set.
type SchemaError struct {
	Reason string
	Err    error
}

func (e *SchemaError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("schema error: %s: %v", e.Reason, e.Err)
	}
	return "schema error: " + e.Reason
}

func (e *SchemaError) Unwrap() error { return e.Err }

// schemaCache caches compiled JSON schemas by name.
var schemaCache sync.Map // map[string]*jsonschema.Schema

// questionSet is the strict wire shape of a backend answer.
type questionSet struct {
	Questions []quiz.Question `json:"questions"`
}

// Validate extracts a question set from untrusted backend text. The text
// between the first '{' and the last '}' must be one JSON object matching
// QuestionSetSchema with exactly expected questions, each with 4 distinct
// options and a unique positive id. Nothing is repaired.
func Validate(raw string, expected int) ([]quiz.Question, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, &SchemaError{Reason: "empty response"}
	}

	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start < 0 || end < start {
		return nil, &SchemaError{Reason: "no JSON object in response"}
	}
	body := raw[start : end+1]

	var parsed any
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		return nil, &SchemaError{Reason: "invalid JSON", Err: err}
	}

	compiled, err := compiledSchema(QuestionSetSchema)
	if err != nil {
		return nil, fmt.Errorf("compile schema %q: %w", QuestionSetSchema.Name, err)
	}
	if err := compiled.Validate(parsed); err != nil {
		return nil, &SchemaError{Reason: "schema validation failed", Err: err}
	}

	dec := json.NewDecoder(strings.NewReader(body))
	dec.DisallowUnknownFields()
	var set questionSet
	if err := dec.Decode(&set); err != nil {
		return nil, &SchemaError{Reason: "decode question set", Err: err}
	}

	if len(set.Questions) != expected {
		return nil, &SchemaError{
			Reason: fmt.Sprintf("got %d questions, want %d", len(set.Questions), expected),
		}
	}

	if err := checkQuestions(set.Questions); err != nil {
		return nil, &SchemaError{Reason: "invalid questions", Err: err}
	}

	return set.Questions, nil
}

// checkQuestions applies the rules JSON Schema cannot express and collects
// every violation.
func checkQuestions(qs []quiz.Question) error {
	var result *multierror.Error
	seen := make(map[int]bool, len(qs))

	for i, q := range qs {
		if q.ID <= 0 {
			result = multierror.Append(result, fmt.Errorf("question %d: id %d is not positive", i, q.ID))
		} else if seen[q.ID] {
			result = multierror.Append(result, fmt.Errorf("question %d: duplicate id %d", i, q.ID))
		}
		seen[q.ID] = true

		if strings.TrimSpace(q.Prompt) == "" {
			result = multierror.Append(result, fmt.Errorf("question %d: empty question text", i))
		}
		if strings.TrimSpace(q.Explanation) == "" {
			result = multierror.Append(result, fmt.Errorf("question %d: empty explanation", i))
		}
		if len(q.Options) != quiz.OptionCount {
			result = multierror.Append(result, fmt.Errorf("question %d: has %d options, want %d", i, len(q.Options), quiz.OptionCount))
		}
		if err := checkOptions(q.Options); err != nil {
			result = multierror.Append(result, fmt.Errorf("question %d: %w", i, err))
		}
		if q.CorrectIndex < 0 || q.CorrectIndex >= quiz.OptionCount {
			result = multierror.Append(result, fmt.Errorf("question %d: correct_answer %d out of range", i, q.CorrectIndex))
		}
	}

	return result.ErrorOrNil()
}

func checkOptions(options []string) error {
	seen := make(map[string]bool, len(options))
	for _, o := range options {
		key := strings.TrimSpace(o)
		if key == "" {
			return errors.New("empty option")
		}
		if seen[key] {
			return fmt.Errorf("duplicate option %q", key)
		}
		seen[key] = true
	}
	return nil
}

// compiledSchema returns a cached compiled schema or compiles and caches it.
func compiledSchema(schema *llm.Schema) (*jsonschema.Schema, error) {
	if cached, ok := schemaCache.Load(schema.Name); ok {
		return cached.(*jsonschema.Schema), nil
	}

	// The jsonschema library expects a parsed JSON value (any), not raw bytes.
	defBytes, err := json.Marshal(schema.Definition)
	if err != nil {
		return nil, fmt.Errorf("marshal schema definition: %w", err)
	}
	var defParsed any
	if err := json.Unmarshal(defBytes, &defParsed); err != nil {
		return nil, fmt.Errorf("parse schema definition: %w", err)
	}

	c := jsonschema.NewCompiler()
	schemaURL := fmt.Sprintf("schema://%s.json", schema.Name)
	if err := c.AddResource(schemaURL, defParsed); err != nil {
		return nil, fmt.Errorf("add resource: %w", err)
	}

	compiled, err := c.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}

	schemaCache.Store(schema.Name, compiled)
	return compiled, nil
}
