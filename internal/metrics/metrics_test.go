package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNew_IndependentRegistries(t *testing.T) {
	a := New()
	b := New()

	a.Assemblies.WithLabelValues(PathGenerated).Inc()

	if got := testutil.ToFloat64(a.Assemblies.WithLabelValues(PathGenerated)); got != 1 {
		t.Fatalf("expected 1, got %v", got)
	}
	if got := testutil.ToFloat64(b.Assemblies.WithLabelValues(PathGenerated)); got != 0 {
		t.Fatalf("expected registries to be independent, got %v", got)
	}
}

func TestCounters(t *testing.T) {
	m := New()
	m.Assemblies.WithLabelValues(PathDegraded).Inc()
	m.Assemblies.WithLabelValues(PathGenerated).Add(2)
	m.CreditsDebited.Add(30)

	samples, err := m.Counters()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []Sample{
		{Name: "docquiz_assemblies_total", Labels: "path=degraded", Value: 1},
		{Name: "docquiz_assemblies_total", Labels: "path=generated", Value: 2},
		{Name: "docquiz_credits_debited_total", Labels: "", Value: 30},
	}
	if len(samples) != len(want) {
		t.Fatalf("expected %d samples, got %d: %+v", len(want), len(samples), samples)
	}
	for i := range want {
		if samples[i] != want[i] {
			t.Errorf("sample %d = %+v, want %+v", i, samples[i], want[i])
		}
	}
}

func TestHandler(t *testing.T) {
	m := New()
	m.Submissions.WithLabelValues("good").Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `docquiz_submissions_total{tier="good"} 1`) {
		t.Errorf("expected submission counter in output:\n%s", rec.Body.String())
	}
}
