package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	ScanDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "pairpull",
			Subsystem: "engine",
			Name:      "scan_duration_seconds",
			Help:      "Duration of universe scans",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		},
	)

	PairQuality = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "pairpull",
			Subsystem: "engine",
			Name:      "pair_quality_score",
			Help:      "Quality score of selected pairs from the latest scan",
		},
		[]string{"pair"},
	)

	RefreshErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pairpull",
			Subsystem: "engine",
			Name:      "refresh_errors_total",
			Help:      "Errors by signal refresh stage",
		},
		[]string{"stage"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(ScanDuration, PairQuality, RefreshErrors)
	})
}
