package convert

import (
	"log/slog"

	"github.com/inframed/inframed/internal/fs"
)

// Thresholds are the limits a run is judged against once all input is read.
type Thresholds struct {
	// MinParsedRatio is the lowest acceptable parsed/relevant line ratio of a file.
	MinParsedRatio float64
	// MaxBadFormatRatio is the highest acceptable bad-format/relevant line ratio of a file.
	MaxBadFormatRatio float64
	// MinRelevantLines is the size above which the two ratios are enforced.
	MinRelevantLines int64
	// MaxMissingDictCount is how often one string value may be missing from
	// its dictionary in safe mode.
	MaxMissingDictCount int
	// MaxForcedMissingRatio is the highest acceptable fraction of patients
	// lacking one forced signal in safe mode.
	MaxForcedMissingRatio float64
	// LogLimit bounds repeated warnings per file or per signal.
	LogLimit int
}

// DefaultThresholds returns the standard limits.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinParsedRatio:        0.01,
		MaxBadFormatRatio:     0.05,
		MinRelevantLines:      1000,
		MaxMissingDictCount:   50,
		MaxForcedMissingRatio: 0.05,
		LogLimit:              10,
	}
}

type options struct {
	logger     *slog.Logger
	fs         fs.FileSystem
	metrics    MetricsObserver
	maxPID     int32
	thresholds Thresholds
	runID      string
}

// Option configures a Converter.
type Option func(*options)

// WithLogger sets the logger for the run.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithFileSystem routes every file operation through fsys.
func WithFileSystem(fsys fs.FileSystem) Option {
	return func(o *options) {
		if fsys != nil {
			o.fs = fsys
		}
	}
}

// WithMetricsObserver sets the metrics observer for the run.
func WithMetricsObserver(m MetricsObserver) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithMaxPID treats any input whose next pid exceeds pid as exhausted. It
// overrides MAX_PID_TO_TAKE in the config. 0 means no ceiling.
func WithMaxPID(pid int32) Option {
	return func(o *options) {
		o.maxPID = pid
	}
}

// WithThresholds replaces the default thresholds.
func WithThresholds(t Thresholds) Option {
	return func(o *options) {
		o.thresholds = t
	}
}

// WithRunID fixes the run id instead of generating one.
func WithRunID(id string) Option {
	return func(o *options) {
		o.runID = id
	}
}
