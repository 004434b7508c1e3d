package inframed

import (
	"github.com/inframed/inframed/internal/convert"
	"github.com/inframed/inframed/repository"
)

type options struct {
	logger           *Logger
	metricsCollector MetricsCollector
	maxPID           int32
	thresholds       *Thresholds
	cacheBytes       int64
	uploads          int
	uploadRate       int64
}

// Option configures Convert, OpenRepository and Publish.
type Option func(*options)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetricsCollector sets the collector that receives conversion events.
func WithMetricsCollector(c MetricsCollector) Option {
	return func(o *options) { o.metricsCollector = c }
}

// WithMaxPID stops reading every input at the first patient above pid. It
// overrides MAX_PID_TO_TAKE of the config.
func WithMaxPID(pid int32) Option {
	return func(o *options) { o.maxPID = pid }
}

// WithThresholds replaces the limits a run is checked against.
func WithThresholds(t Thresholds) Option {
	return func(o *options) { o.thresholds = &t }
}

// WithCache keeps up to bytes of decoded patient records in a repository
// opened with OpenRepository.
func WithCache(bytes int64) Option {
	return func(o *options) { o.cacheBytes = bytes }
}

// WithUploadConcurrency bounds parallel uploads of Publish.
func WithUploadConcurrency(n int) Option {
	return func(o *options) { o.uploads = n }
}

// WithUploadRate bounds Publish throughput in bytes per second.
func WithUploadRate(bytesPerSec int64) Option {
	return func(o *options) { o.uploadRate = bytesPerSec }
}

func newOptions(optFns []Option) options {
	o := options{
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
	}
	for _, fn := range optFns {
		fn(&o)
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}
	return o
}

func (o options) convertOptions() []convert.Option {
	out := []convert.Option{
		convert.WithLogger(o.logger.Logger),
		convert.WithMetricsObserver(observer{c: o.metricsCollector}),
	}
	if o.maxPID > 0 {
		out = append(out, convert.WithMaxPID(o.maxPID))
	}
	if o.thresholds != nil {
		out = append(out, convert.WithThresholds(*o.thresholds))
	}
	return out
}

func (o options) repositoryOptions() []repository.Option {
	out := []repository.Option{repository.WithLogger(o.logger.Logger)}
	if o.cacheBytes > 0 {
		out = append(out, repository.WithCache(o.cacheBytes))
	}
	if o.uploads > 0 {
		out = append(out, repository.WithUploadConcurrency(o.uploads))
	}
	if o.uploadRate > 0 {
		out = append(out, repository.WithUploadRate(o.uploadRate))
	}
	return out
}
