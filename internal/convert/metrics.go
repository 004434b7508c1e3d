package convert

import "time"

// MetricsObserver receives events of a conversion run.
type MetricsObserver interface {
	// OnPatient is called for every patient written.
	OnPatient(pid int32, signals int)
	// OnRejected is called when a patient is dropped for a forced signal.
	OnRejected(pid int32, signal string)
	// OnFile is called once per input file after the merge.
	OnFile(stats FileStats)
	// OnRun is called when the run ends.
	OnRun(duration time.Duration, written int, err error)
}

// NoopMetricsObserver is a no-op implementation of MetricsObserver.
type NoopMetricsObserver struct{}

func (NoopMetricsObserver) OnPatient(int32, int)            {}
func (NoopMetricsObserver) OnRejected(int32, string)        {}
func (NoopMetricsObserver) OnFile(FileStats)                {}
func (NoopMetricsObserver) OnRun(time.Duration, int, error) {}
