package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bakeyeon/sentiment-translator/internal/adapter/redis"
)

// CacheMetrics holds Prometheus metrics for the analysis cache.
type CacheMetrics struct {
	HitsTotal   prometheus.Counter
	MissesTotal prometheus.Counter
}

// NewCacheMetrics creates and registers cache metrics on the given registry.
func NewCacheMetrics(reg prometheus.Registerer) *CacheMetrics {
	m := &CacheMetrics{
		HitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Total number of analysis cache hits.",
		}),
		MissesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Total number of analysis cache misses.",
		}),
	}

	reg.MustRegister(m.HitsTotal, m.MissesTotal)
	return m
}

// InstrumentedStore decorates a cache store with hit/miss counters.
type InstrumentedStore struct {
	next redis.Store
	m    *CacheMetrics
}

func NewInstrumentedStore(next redis.Store, m *CacheMetrics) *InstrumentedStore {
	return &InstrumentedStore{next: next, m: m}
}

func (s *InstrumentedStore) Get(ctx context.Context, key string) (string, bool) {
	value, ok := s.next.Get(ctx, key)
	if ok {
		s.m.HitsTotal.Inc()
	} else {
		s.m.MissesTotal.Inc()
	}
	return value, ok
}

func (s *InstrumentedStore) Set(ctx context.Context, key, value string, ttl time.Duration) {
	s.next.Set(ctx, key, value, ttl)
}
