package llm

import (
	"math"
	"testing"
)

func TestLookupCost(t *testing.T) {
	tests := []struct {
		model  string
		input  float64
		output float64
		found  bool
	}{
		{model: "gpt-4o-mini", input: 0.15, output: 0.6, found: true},
		{model: "gpt-4o-2024-08-06", input: 2.5, output: 10, found: true},
		{model: "gpt-4o-mini-2024-07-18", input: 0.15, output: 0.6, found: true},
		{model: "claude-haiku", input: 1, output: 5, found: true},
		{model: "claude-haiku-4-5-20251001", input: 1, output: 5, found: true},
		{model: "claude-sonnet-4-20250514", input: 3, output: 15, found: true},
		{model: "gemini-flash", input: 0.1, output: 0.4, found: true},
		{model: "google/gemini-2.0-flash-exp", input: 0, output: 0, found: true},
		{model: "openai/gpt-4.1-mini", input: 0.4, output: 1.6, found: true},
		{model: "mock", found: false},
		{model: "gpt", found: false},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			c := LookupCost(tt.model)
			if !tt.found {
				if c != nil {
					t.Fatalf("LookupCost(%q) = %+v, want nil", tt.model, *c)
				}
				return
			}
			if c == nil {
				t.Fatalf("LookupCost(%q) = nil", tt.model)
			}
			if c.InputPerMTok != tt.input || c.OutputPerMTok != tt.output {
				t.Errorf("LookupCost(%q) = %+v, want {%v %v}", tt.model, *c, tt.input, tt.output)
			}
		})
	}
}

func TestModelCost_Cost(t *testing.T) {
	c := ModelCost{InputPerMTok: 2.5, OutputPerMTok: 10}
	got := c.Cost(2000, 6000)
	want := 0.005 + 0.06
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("Cost = %v, want %v", got, want)
	}
}
