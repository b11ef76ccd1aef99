package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yieldindex/lendnorm/internal/assembler"
)

const (
	namespace    = "lendnorm"
	projectLabel = "project"
	outcomeLabel = "outcome"
)

var (
	_ assembler.Recorder = (*Metrics)(nil)

	marketLabels  = []string{projectLabel, outcomeLabel}
	projectLabels = []string{projectLabel}
)

// Metrics tracks market outcomes, pass durations and emitted pool counts per project.
type Metrics struct {
	markets      *prometheus.CounterVec
	passDuration *prometheus.HistogramVec
	pools        *prometheus.GaugeVec
}

// New creates the collectors and registers them on registerer.
func New(registerer prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		markets: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "markets_total",
				Help:      "number of markets processed, by outcome",
			},
			marketLabels,
		),
		passDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "pass_duration_seconds",
				Help:      "time spent assembling one protocol",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
			},
			projectLabels,
		),
		pools: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "pools",
				Help:      "number of pools emitted by the last pass",
			},
			projectLabels,
		),
	}

	err := errors.Join(
		registerer.Register(m.markets),
		registerer.Register(m.passDuration),
		registerer.Register(m.pools),
	)
	return m, err
}

func (m *Metrics) RecordMarket(project string, outcome string) {
	m.markets.With(prometheus.Labels{
		projectLabel: project,
		outcomeLabel: outcome,
	}).Inc()
}

// RecordPass observes one protocol pass.
func (m *Metrics) RecordPass(project string, duration time.Duration, pools int) {
	m.passDuration.With(prometheus.Labels{projectLabel: project}).Observe(duration.Seconds())
	m.pools.With(prometheus.Labels{projectLabel: project}).Set(float64(pools))
}
