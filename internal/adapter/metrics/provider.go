package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bakeyeon/sentiment-translator/internal/domain"
)

// ProviderMetrics holds Prometheus metrics for analysis provider calls.
type ProviderMetrics struct {
	CallsTotal   *prometheus.CounterVec
	CallDuration *prometheus.HistogramVec
}

// NewProviderMetrics creates and registers provider metrics on the given registry.
func NewProviderMetrics(reg prometheus.Registerer) *ProviderMetrics {
	m := &ProviderMetrics{
		CallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "calls_total",
			Help:      "Total number of analysis provider calls.",
		}, []string{"operation", "outcome"}),
		CallDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "call_duration_seconds",
			Help:      "Duration of analysis provider calls in seconds.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"operation"}),
	}

	reg.MustRegister(m.CallsTotal, m.CallDuration)
	return m
}

// InstrumentedProvider decorates an analysis provider with call metrics.
type InstrumentedProvider struct {
	next domain.AnalysisProvider
	m    *ProviderMetrics
}

func NewInstrumentedProvider(next domain.AnalysisProvider, m *ProviderMetrics) *InstrumentedProvider {
	return &InstrumentedProvider{next: next, m: m}
}

func (p *InstrumentedProvider) AnalyzeSentiment(ctx context.Context, text string) (domain.SentimentReading, error) {
	start := time.Now()
	reading, err := p.next.AnalyzeSentiment(ctx, text)
	p.record("analyze_sentiment", start, err)
	return reading, err
}

func (p *InstrumentedProvider) TranslateAndAnalyze(ctx context.Context, text, sourceLangCode, targetLangName string) (domain.TranslationResult, error) {
	start := time.Now()
	result, err := p.next.TranslateAndAnalyze(ctx, text, sourceLangCode, targetLangName)
	p.record("translate_and_analyze", start, err)
	return result, err
}

func (p *InstrumentedProvider) SuggestEmojiGap(ctx context.Context, req domain.EmojiGapRequest) (domain.EmojiSuggestion, error) {
	start := time.Now()
	suggestion, err := p.next.SuggestEmojiGap(ctx, req)
	p.record("suggest_emoji_gap", start, err)
	return suggestion, err
}

func (p *InstrumentedProvider) record(operation string, start time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	p.m.CallsTotal.WithLabelValues(operation, outcome).Inc()
	p.m.CallDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
