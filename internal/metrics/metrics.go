package metrics

import (
	"net/http"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Assembly paths.
const (
	PathGenerated = "generated"
	PathDegraded  = "degraded"
)

// Metrics holds the counters for quiz assembly and scoring. Each instance
// owns its registry so tests and embedded uses do not collide.
type Metrics struct {
	Registry *prometheus.Registry

	Assemblies         *prometheus.CounterVec
	Rejections         *prometheus.CounterVec
	CreditsDebited     prometheus.Counter
	CreditsRefunded    prometheus.Counter
	GenerationDuration *prometheus.HistogramVec
	Submissions        *prometheus.CounterVec
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Assemblies: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docquiz_assemblies_total",
				Help: "Total number of assembled quizzes by path",
			},
			[]string{"path"},
		),
		Rejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docquiz_assembly_rejections_total",
				Help: "Total number of assembly requests rejected before generation",
			},
			[]string{"reason"},
		),
		CreditsDebited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "docquiz_credits_debited_total",
			Help: "Total credits debited for quiz generation",
		}),
		CreditsRefunded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "docquiz_credits_refunded_total",
			Help: "Total credits refunded after a failed save",
		}),
		GenerationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "docquiz_generation_duration_seconds",
				Help:    "Duration of generation backend calls",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
			},
			[]string{"path"},
		),
		Submissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docquiz_submissions_total",
				Help: "Total number of scored submissions by feedback tier",
			},
			[]string{"tier"},
		),
	}

	m.Registry.MustRegister(
		m.Assemblies,
		m.Rejections,
		m.CreditsDebited,
		m.CreditsRefunded,
		m.GenerationDuration,
		m.Submissions,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// Sample is one counter value flattened for display.
type Sample struct {
	Name   string
	Labels string
	Value  float64
}

// Counters returns the current value of every non-zero counter, sorted by
// name and labels.
func (m *Metrics) Counters() ([]Sample, error) {
	families, err := m.Registry.Gather()
	if err != nil {
		return nil, err
	}

	var out []Sample
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			c := metric.GetCounter()
			if c == nil || c.GetValue() == 0 {
				continue
			}
			var labels []string
			for _, lp := range metric.GetLabel() {
				labels = append(labels, lp.GetName()+"="+lp.GetValue())
			}
			out = append(out, Sample{
				Name:   mf.GetName(),
				Labels: strings.Join(labels, ","),
				Value:  c.GetValue(),
			})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Labels < out[j].Labels
	})
	return out, nil
}
