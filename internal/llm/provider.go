package llm

import "context"

// Provider is the generation backend abstraction. Consumers call Generate
// with a Request and receive the backend's raw text.
type Provider interface {
	// Generate sends a prompt to the backend and returns its response.
	// The response Text is untrusted: providers never validate or repair
	// it, even when a Schema was supplied.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID returns the model identifier this provider is configured to use.
	ModelID() string
}

// Request describes what to send to the backend.
type Request struct {
	// System is the system prompt. Sets the model's role and constraints.
	System string

	// Messages is the conversation history. Quiz generation is single-turn,
	// so this normally holds one user message.
	Messages []Message

	// Schema, when set, asks the provider to use its native structured
	// output mechanism. It is a hint only; callers still validate Text.
	Schema *Schema

	// MaxTokens is the maximum number of tokens in the response.
	MaxTokens int

	// Temperature controls randomness. Range: 0.0 - 1.0.
	Temperature float64
}

// Message represents a single message in the conversation.
type Message struct {
	Role    Role
	Content string
}

// Role is the message sender role.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Schema defines the JSON structure expected from the backend.
type Schema struct {
	// Name identifies this schema (schema name for OpenAI, cache key for
	// validators). Kebab-case, e.g. "question-set".
	Name string

	// Description is a human-readable description of what this schema
	// represents.
	Description string

	// Definition is the JSON Schema definition as a map.
	Definition map[string]any
}

// Response holds the backend's output.
type Response struct {
	// Text is the raw generated text, exactly as the backend returned it.
	Text string

	// Usage reports token consumption for this request.
	Usage Usage

	// Model is the actual model that served the request.
	Model string

	// StopReason is one of StopEnd, StopMaxTokens or StopRefused.
	StopReason string
}

// Normalized stop reasons.
const (
	StopEnd       = "end"
	StopMaxTokens = "max_tokens"
	StopRefused   = "refused"
)

// Usage tracks token consumption for a single request.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}
