package llm

import "strings"

// ModelCost holds pricing for a model in USD per million tokens.
type ModelCost struct {
	InputPerMTok  float64
	OutputPerMTok float64
}

// Cost returns the USD cost of the given token counts.
func (c ModelCost) Cost(inputTokens, outputTokens int) float64 {
	return float64(inputTokens)*c.InputPerMTok/1_000_000 +
		float64(outputTokens)*c.OutputPerMTok/1_000_000
}

// LookupCost returns the pricing for a model, or nil if unknown. It accepts
// friendly names ("claude-haiku"), OpenRouter ids ("openai/gpt-4o") and
// dated snapshots ("gpt-4o-2024-08-06"), which price as their family.
func LookupCost(model string) *ModelCost {
	id := model
	for _, table := range []map[string]string{anthropicModels, openaiModels, geminiModels} {
		if resolved, ok := table[id]; ok {
			id = resolved
			break
		}
	}
	if c, ok := modelCosts[id]; ok {
		return &c
	}
	if i := strings.IndexByte(id, '/'); i >= 0 {
		id = id[i+1:]
		if c, ok := modelCosts[id]; ok {
			return &c
		}
	}

	// Longest family prefix followed by a date or version suffix.
	var best string
	for family := range modelCosts {
		if strings.HasPrefix(id, family+"-") && len(family) > len(best) {
			best = family
		}
	}
	if best == "" {
		return nil
	}
	c := modelCosts[best]
	return &c
}

// modelCosts lists the model families the configured providers can reach.
// Prices from models.dev, 2026-02.
var modelCosts = map[string]ModelCost{
	"claude-haiku-4-5":  {1, 5},
	"claude-sonnet-4":   {3, 15},
	"claude-sonnet-4-5": {3, 15},
	"claude-opus-4-5":   {5, 25},
	"claude-3-5-haiku":  {0.8, 4},

	"gpt-4o":       {2.5, 10},
	"gpt-4o-mini":  {0.15, 0.6},
	"gpt-4.1":      {2, 8},
	"gpt-4.1-mini": {0.4, 1.6},
	"gpt-4.1-nano": {0.1, 0.4},
	"gpt-5":        {1.25, 10},
	"gpt-5-mini":   {0.25, 2},
	"gpt-5-nano":   {0.05, 0.4},

	"gemini-2.0-flash":      {0.1, 0.4},
	"gemini-2.0-flash-lite": {0.075, 0.3},
	"gemini-2.0-flash-exp":  {0, 0},
	"gemini-2.5-flash":      {0.3, 2.5},
	"gemini-2.5-pro":        {1.25, 10},
}
