package resource

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestController_Uploads(t *testing.T) {
	c := NewController(Config{MaxConcurrentUploads: 2})
	assert.Equal(t, 2, c.MaxConcurrentUploads())

	require.NoError(t, c.AcquireUpload(t.Context()))
	require.NoError(t, c.AcquireUpload(t.Context()))
	assert.False(t, c.TryAcquireUpload())

	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.AcquireUpload(ctx), context.DeadlineExceeded)

	c.ReleaseUpload()
	assert.True(t, c.TryAcquireUpload())
}

func TestController_Defaults(t *testing.T) {
	c := NewController(Config{})
	assert.Equal(t, 1, c.MaxConcurrentUploads())
	assert.Equal(t, 0, c.IOBurst())
	assert.NoError(t, c.AcquireIO(t.Context(), 1<<30))
}

func TestController_Nil(t *testing.T) {
	var c *Controller
	assert.NoError(t, c.AcquireUpload(t.Context()))
	assert.True(t, c.TryAcquireUpload())
	c.ReleaseUpload()
	assert.NoError(t, c.AcquireIO(t.Context(), 10))
	assert.Equal(t, 1, c.MaxConcurrentUploads())
}

func TestRateLimitedReader(t *testing.T) {
	c := NewController(Config{IOLimitBytesPerSec: 1 << 20})
	assert.Equal(t, 1<<20, c.IOBurst())

	src := strings.Repeat("x", 3<<20/2)
	var dst bytes.Buffer
	_, err := io.Copy(&dst, NewRateLimitedReader(t.Context(), strings.NewReader(src), c))
	require.NoError(t, err)
	assert.Equal(t, len(src), dst.Len())
}

func TestRateLimitedReader_Cancelled(t *testing.T) {
	c := NewController(Config{IOLimitBytesPerSec: 16})
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	r := NewRateLimitedReader(ctx, strings.NewReader(strings.Repeat("x", 64)), c)
	buf := make([]byte, 64)
	n, err := r.Read(buf)
	assert.Equal(t, 16, n)
	assert.Error(t, err)
}
