package inframed

import (
	"sync/atomic"
	"time"

	"github.com/inframed/inframed/internal/convert"
)

// MetricsCollector receives conversion events. Implement it to feed a
// monitoring system.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    patients prometheus.Counter
//	    rejected *prometheus.CounterVec
//	}
//
//	func (p *PrometheusCollector) RecordRejected(signal string) {
//	    p.rejected.WithLabelValues(signal).Inc()
//	}
type MetricsCollector interface {
	// RecordPatient is called for every patient written, with the number of
	// signals it has records of.
	RecordPatient(signals int)

	// RecordRejected is called when a patient is dropped because a forced
	// signal does not have exactly one record.
	RecordRejected(signal string)

	// RecordFile is called once per input file when the merge ends.
	RecordFile(stats FileStats)

	// RecordRun is called when a run ends; err is nil on success.
	RecordRun(duration time.Duration, written int, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordPatient(int)                   {}
func (NoopMetricsCollector) RecordRejected(string)               {}
func (NoopMetricsCollector) RecordFile(FileStats)                {}
func (NoopMetricsCollector) RecordRun(time.Duration, int, error) {}

// BasicMetricsCollector keeps counters in memory.
type BasicMetricsCollector struct {
	Patients      atomic.Int64
	SignalsTotal  atomic.Int64
	Rejected      atomic.Int64
	Files         atomic.Int64
	Lines         atomic.Int64
	BadFormat     atomic.Int64
	Runs          atomic.Int64
	RunErrors     atomic.Int64
	RunTotalNanos atomic.Int64
}

// RecordPatient implements MetricsCollector.
func (b *BasicMetricsCollector) RecordPatient(signals int) {
	b.Patients.Add(1)
	b.SignalsTotal.Add(int64(signals))
}

// RecordRejected implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRejected(string) {
	b.Rejected.Add(1)
}

// RecordFile implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFile(stats FileStats) {
	b.Files.Add(1)
	b.Lines.Add(stats.Lines)
	b.BadFormat.Add(stats.BadFormat)
}

// RecordRun implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRun(duration time.Duration, _ int, err error) {
	b.Runs.Add(1)
	b.RunTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.RunErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	s := BasicMetricsStats{
		Patients:  b.Patients.Load(),
		Rejected:  b.Rejected.Load(),
		Files:     b.Files.Load(),
		Lines:     b.Lines.Load(),
		BadFormat: b.BadFormat.Load(),
		Runs:      b.Runs.Load(),
		RunErrors: b.RunErrors.Load(),
	}
	if s.Patients > 0 {
		s.AvgSignals = float64(b.SignalsTotal.Load()) / float64(s.Patients)
	}
	if s.Runs > 0 {
		s.RunAvgNanos = b.RunTotalNanos.Load() / s.Runs
	}
	return s
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	Patients    int64
	AvgSignals  float64
	Rejected    int64
	Files       int64
	Lines       int64
	BadFormat   int64
	Runs        int64
	RunErrors   int64
	RunAvgNanos int64
}

// observer adapts a MetricsCollector to the converter's event interface.
type observer struct {
	c MetricsCollector
}

func (o observer) OnPatient(_ int32, signals int)    { o.c.RecordPatient(signals) }
func (o observer) OnRejected(_ int32, signal string) { o.c.RecordRejected(signal) }
func (o observer) OnFile(stats convert.FileStats)    { o.c.RecordFile(stats) }
func (o observer) OnRun(d time.Duration, written int, err error) {
	o.c.RecordRun(d, written, err)
}
