package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	barsStored    *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	lastPrice     *prometheus.GaugeVec
	latency       *prometheus.HistogramVec
	signalsTotal  *prometheus.CounterVec
	activePairs   prometheus.Gauge
	grossLeverage prometheus.Gauge
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		barsStored: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pairpull_bars_stored_total",
				Help: "Total number of bars written to a backend",
			},
			[]string{"backend", "symbol"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pairpull_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pairpull_last_price",
				Help: "Last recorded close price for a symbol",
			},
			[]string{"symbol"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pairpull_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		signalsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pairpull_signals_total",
				Help: "Signals emitted per pair and direction",
			},
			[]string{"pair", "direction"},
		),
		activePairs: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "pairpull_active_pairs",
				Help: "Number of pairs currently in the trading registry",
			},
		),
		grossLeverage: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "pairpull_gross_leverage",
				Help: "Latest portfolio gross leverage after vol targeting",
			},
		),
	}
}

// RecordBarStored records a bar written to a backend.
func (r *Recorder) RecordBarStored(backend, symbol string) {
	r.barsStored.WithLabelValues(backend, symbol).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last close price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordSignal counts an emitted signal by pair and direction.
func (r *Recorder) RecordSignal(pairID string, direction int) {
	r.signalsTotal.WithLabelValues(pairID, strconv.Itoa(direction)).Inc()
}

// SetActivePairs sets the active pair gauge.
func (r *Recorder) SetActivePairs(n int) {
	r.activePairs.Set(float64(n))
}

// SetGrossLeverage sets the portfolio gross leverage gauge.
func (r *Recorder) SetGrossLeverage(v float64) {
	r.grossLeverage.Set(v)
}
