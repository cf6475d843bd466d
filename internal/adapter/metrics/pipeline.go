package metrics

import (
	"sync"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bakeyeon/sentiment-translator/internal/domain"
	"github.com/bakeyeon/sentiment-translator/internal/pipeline"
)

// PipelineMetrics holds Prometheus metrics for pipeline activity.
type PipelineMetrics struct {
	SnapshotsPublished prometheus.Counter
	RunsTotal          *prometheus.CounterVec
	SuggestionsTotal   prometheus.Counter
}

// NewPipelineMetrics creates and registers pipeline metrics on the given registry.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	m := &PipelineMetrics{
		SnapshotsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "snapshots_published_total",
			Help:      "Total number of pipeline state snapshots published.",
		}),
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of completed translation runs.",
		}, []string{"outcome"}),
		SuggestionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "suggestions_total",
			Help:      "Total number of emoji suggestions surfaced.",
		}),
	}

	reg.MustRegister(m.SnapshotsPublished, m.RunsTotal, m.SuggestionsTotal)
	return m
}

// RegisterSessionGauge exposes the live session count as a gauge.
func RegisterSessionGauge(reg prometheus.Registerer, count func() int) {
	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "active_sessions",
		Help:      "Number of live translation sessions.",
	}, func() float64 {
		return float64(count())
	}))
}

// InstrumentedSink decorates a pipeline sink with snapshot and run counters.
// Run outcomes are derived from terminal phase transitions: entering Ready
// counts a successful run, entering Failed a failed run. Repeated snapshots
// within the same phase (target re-analysis while Ready) are not re-counted.
type InstrumentedSink struct {
	next pipeline.Sink
	m    *PipelineMetrics

	mu        sync.Mutex
	lastPhase map[uuid.UUID]domain.Phase
}

func NewInstrumentedSink(next pipeline.Sink, m *PipelineMetrics) *InstrumentedSink {
	return &InstrumentedSink{
		next:      next,
		m:         m,
		lastPhase: make(map[uuid.UUID]domain.Phase),
	}
}

func (s *InstrumentedSink) Publish(sessionID uuid.UUID, snap pipeline.Snapshot) {
	s.m.SnapshotsPublished.Inc()

	s.mu.Lock()
	prev := s.lastPhase[sessionID]
	s.lastPhase[sessionID] = snap.State.Phase
	s.mu.Unlock()

	if prev != snap.State.Phase {
		switch snap.State.Phase {
		case domain.PhaseReady:
			s.m.RunsTotal.WithLabelValues("success").Inc()
			if snap.State.Suggestion != nil {
				s.m.SuggestionsTotal.Inc()
			}
		case domain.PhaseFailed:
			s.m.RunsTotal.WithLabelValues("failure").Inc()
		}
	}

	s.next.Publish(sessionID, snap)
}

// Forget drops phase tracking for an expired session.
func (s *InstrumentedSink) Forget(sessionID uuid.UUID) {
	s.mu.Lock()
	delete(s.lastPhase, sessionID)
	s.mu.Unlock()
}
