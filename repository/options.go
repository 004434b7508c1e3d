package repository

import (
	"io"
	"log/slog"

	"github.com/inframed/inframed/internal/resource"
)

type options struct {
	logger     *slog.Logger
	cacheBytes int64
	configName string

	limits resource.Config
}

func defaultOptions() options {
	return options{
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		configName: "rep.repository",
		limits:     resource.Config{MaxConcurrentUploads: 4},
	}
}

// Option configures Open, OpenFile and Publish.
type Option func(*options)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithCache keeps up to bytes of decoded patient records in memory.
func WithCache(bytes int64) Option {
	return func(o *options) { o.cacheBytes = bytes }
}

// WithConfigName sets the name the repository_config is published under.
// OpenFile sets it from the file name.
func WithConfigName(name string) Option {
	return func(o *options) { o.configName = name }
}

// WithUploadConcurrency bounds the files Publish uploads in parallel.
func WithUploadConcurrency(n int) Option {
	return func(o *options) { o.limits.MaxConcurrentUploads = int64(n) }
}

// WithUploadRate bounds Publish read throughput in bytes per second.
func WithUploadRate(bytesPerSec int64) Option {
	return func(o *options) { o.limits.IOLimitBytesPerSec = bytesPerSec }
}
