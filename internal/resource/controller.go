package resource

import (
	"context"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Config holds resource limits.
type Config struct {
	// MaxConcurrentUploads bounds parallel uploads. 0 means 1.
	MaxConcurrentUploads int64

	// IOLimitBytesPerSec bounds upload read throughput. 0 means unlimited.
	IOLimitBytesPerSec int64
}

// Controller enforces a Config.
type Controller struct {
	cfg       Config
	uploads   *semaphore.Weighted
	ioLimiter *rate.Limiter
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	if cfg.MaxConcurrentUploads <= 0 {
		cfg.MaxConcurrentUploads = 1
	}
	c := &Controller{
		cfg:     cfg,
		uploads: semaphore.NewWeighted(cfg.MaxConcurrentUploads),
	}
	if cfg.IOLimitBytesPerSec > 0 {
		c.ioLimiter = rate.NewLimiter(rate.Limit(cfg.IOLimitBytesPerSec), int(cfg.IOLimitBytesPerSec))
	}
	return c
}

// MaxConcurrentUploads returns the upload slot count.
func (c *Controller) MaxConcurrentUploads() int {
	if c == nil {
		return 1
	}
	return int(c.cfg.MaxConcurrentUploads)
}

// AcquireUpload blocks until an upload slot is free.
func (c *Controller) AcquireUpload(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.uploads.Acquire(ctx, 1)
}

// TryAcquireUpload takes an upload slot without blocking.
func (c *Controller) TryAcquireUpload() bool {
	if c == nil {
		return true
	}
	return c.uploads.TryAcquire(1)
}

// ReleaseUpload frees an upload slot.
func (c *Controller) ReleaseUpload() {
	if c == nil {
		return
	}
	c.uploads.Release(1)
}

// AcquireIO waits until the IO limit allows n bytes. n must not exceed
// IOBurst.
func (c *Controller) AcquireIO(ctx context.Context, n int) error {
	if c == nil || c.ioLimiter == nil {
		return nil
	}
	return c.ioLimiter.WaitN(ctx, n)
}

// IOBurst returns the largest n AcquireIO accepts, or 0 when unlimited.
func (c *Controller) IOBurst() int {
	if c == nil || c.ioLimiter == nil {
		return 0
	}
	return c.ioLimiter.Burst()
}
