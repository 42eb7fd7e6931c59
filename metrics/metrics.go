// Package metrics records calibration and pricing activity with Prometheus.
package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/meenmo/isdacds/bond"
	"github.com/meenmo/isdacds/calibrate"
	"github.com/meenmo/isdacds/pricer"
)

// Recorder owns its registry so several recorders never collide.
type Recorder struct {
	registry     *prometheus.Registry
	calibrations *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	trades       prometheus.Counter
	latency      *prometheus.HistogramVec
}

// New creates a recorder and registers its collectors.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		calibrations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "isdacds_calibrations_total",
				Help: "Credit curve calibrations by outcome",
			},
			[]string{"outcome"},
		),
		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "isdacds_errors_total",
				Help: "Errors by kind",
			},
			[]string{"kind"},
		),
		trades: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "isdacds_trades_priced_total",
			Help: "CDS trades priced",
		}),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "isdacds_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.ExponentialBuckets(1e-5, 4, 10),
			},
			[]string{"operation"},
		),
	}
	r.registry.MustRegister(r.calibrations, r.errorsTotal, r.trades, r.latency)
	return r
}

// Registry exposes the collectors for scraping or export.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// RecordCalibration counts one calibration and, on failure, its error kind.
func (r *Recorder) RecordCalibration(err error) {
	if err == nil {
		r.calibrations.WithLabelValues("ok").Inc()
		return
	}
	r.calibrations.WithLabelValues("failed").Inc()
	r.RecordError(err)
}

// RecordError counts an error under its kind.
func (r *Recorder) RecordError(err error) {
	r.errorsTotal.WithLabelValues(Kind(err)).Inc()
}

// RecordTrades counts priced trades.
func (r *Recorder) RecordTrades(n int) {
	r.trades.Add(float64(n))
}

// RecordLatency records operation latency.
func (r *Recorder) RecordLatency(op string, d time.Duration) {
	r.latency.WithLabelValues(op).Observe(d.Seconds())
}

// Time runs fn and records its latency under op.
func (r *Recorder) Time(op string, fn func() error) error {
	start := time.Now()
	err := fn()
	r.RecordLatency(op, time.Since(start))
	return err
}

// WriteTextfile writes the registry in the node-exporter textfile format.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}

// Kind maps an error onto a short label.
func Kind(err error) string {
	switch {
	case errors.Is(err, calibrate.ErrCalibrationArbitrage):
		return "arbitrage"
	case errors.Is(err, calibrate.ErrNoConvergence):
		return "no_convergence"
	case errors.Is(err, calibrate.ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, bond.ErrOutOfRangeQuote):
		return "out_of_range"
	case errors.Is(err, pricer.ErrExpired):
		return "expired"
	}
	return "other"
}
