package adaptive

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the factory collectors. A nil *Metrics records nothing.
type Metrics struct {
	synthesized *prometheus.CounterVec
	cacheHits   *prometheus.CounterVec
	failures    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg. Collectors
// already registered by another factory are shared.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		synthesized: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adaptive_types_synthesized_total",
				Help: "Types synthesized, by base type",
			},
			[]string{"base"},
		),
		cacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adaptive_type_cache_hits_total",
				Help: "Implement calls served from the type cache, by base type",
			},
			[]string{"base"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adaptive_synthesis_failures_total",
				Help: "Failed syntheses, by base type",
			},
			[]string{"base"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "adaptive_synthesis_duration_seconds",
				Help:    "Time spent synthesizing one type",
				Buckets: prometheus.ExponentialBuckets(0.00001, 4, 8),
			},
			[]string{"base"},
		),
	}
	if reg == nil {
		return m, nil
	}

	var err error
	m.synthesized, err = register(reg, m.synthesized)
	if err != nil {
		return nil, err
	}
	m.cacheHits, err = register(reg, m.cacheHits)
	if err != nil {
		return nil, err
	}
	m.failures, err = register(reg, m.failures)
	if err != nil {
		return nil, err
	}
	m.duration, err = register(reg, m.duration)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (m *Metrics) hit(base string) {
	if m != nil {
		m.cacheHits.WithLabelValues(base).Inc()
	}
}

func (m *Metrics) done(base string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(base).Observe(time.Since(start).Seconds())
	if err != nil {
		m.failures.WithLabelValues(base).Inc()
		return
	}
	m.synthesized.WithLabelValues(base).Inc()
}
