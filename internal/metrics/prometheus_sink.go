package metrics

import (
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusSink exposes submitted samples as labelled prometheus series.
// Metric names like "opensea.ethereum.contract_queryFilter.latency" become
// the value of the "metric" label.
type PrometheusSink struct {
	gauges     *prometheus.GaugeVec
	counters   *prometheus.CounterVec
	histograms *prometheus.HistogramVec
}

func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	s := &PrometheusSink{
		gauges: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "nftsales",
			Name:      "metric_value",
			Help:      "Last reported value of a pipeline metric",
		}, []string{"metric"}),
		counters: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nftsales",
			Name:      "metric_total",
			Help:      "Accumulated value of a pipeline counter",
		}, []string{"metric"}),
		histograms: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "nftsales",
			Name:      "metric_observation",
			Help:      "Distribution of a pipeline measurement",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 16),
		}, []string{"metric"}),
	}
	for _, c := range []prometheus.Collector{s.gauges, s.counters, s.histograms} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register prometheus collector: %w", err)
		}
	}
	return s, nil
}

func (s *PrometheusSink) Submit(metric string, value float64, kind Kind, _ time.Time) error {
	label := SanitizeName(metric)
	switch kind {
	case Gauge:
		s.gauges.WithLabelValues(label).Set(value)
	case Counter:
		if value < 0 {
			return fmt.Errorf("counter %s cannot decrease by %v", metric, value)
		}
		s.counters.WithLabelValues(label).Add(value)
	case Histogram:
		s.histograms.WithLabelValues(label).Observe(value)
	default:
		return fmt.Errorf("unknown metric kind %q", kind)
	}
	return nil
}

// SanitizeName maps dotted metric paths onto prometheus-safe identifiers.
func SanitizeName(metric string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, metric)
}
