package theme

import (
	"strings"
	"testing"

	"github.com/abhisek/docquiz/internal/quiz"
)

func TestMark(t *testing.T) {
	if !strings.Contains(Mark(true), "✓") {
		t.Errorf("Mark(true) = %q", Mark(true))
	}
	if !strings.Contains(Mark(false), "✗") {
		t.Errorf("Mark(false) = %q", Mark(false))
	}
}

func TestTierStyle(t *testing.T) {
	tests := []struct {
		tier quiz.Tier
		want string
	}{
		{quiz.TierExcellent, Correct.Render("x")},
		{quiz.TierGood, Selected.Render("x")},
		{quiz.TierNeedsPractice, Warning.Render("x")},
	}
	for _, tt := range tests {
		if got := TierStyle(tt.tier).Render("x"); got != tt.want {
			t.Errorf("TierStyle(%s) rendered %q, want %q", tt.tier, got, tt.want)
		}
	}
}
