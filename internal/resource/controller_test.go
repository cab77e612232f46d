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

func TestController_Transfers(t *testing.T) {
	c := NewController(Config{MaxTransfers: 2})
	assert.Equal(t, 2, c.MaxTransfers())

	require.NoError(t, c.AcquireTransfer(t.Context()))
	require.NoError(t, c.AcquireTransfer(t.Context()))
	assert.False(t, c.TryAcquireTransfer())

	c.ReleaseTransfer()
	assert.True(t, c.TryAcquireTransfer())

	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, c.AcquireTransfer(ctx))
}

func TestController_DefaultTransfers(t *testing.T) {
	c := NewController(Config{})
	assert.Equal(t, 1, c.MaxTransfers())
	assert.False(t, c.Limited())
	assert.Zero(t, c.Burst())
	assert.True(t, c.TryAcquireIO(1<<30))
}

func TestController_IO(t *testing.T) {
	c := NewController(Config{IOLimitBytesPerSec: 100})
	assert.True(t, c.Limited())
	assert.Equal(t, 100, c.Burst())

	assert.True(t, c.TryAcquireIO(100))
	assert.False(t, c.TryAcquireIO(50))
}

func TestController_Nil(t *testing.T) {
	var c *Controller
	require.NoError(t, c.AcquireTransfer(t.Context()))
	c.ReleaseTransfer()
	require.NoError(t, c.AcquireIO(t.Context(), 1<<20))
	assert.Equal(t, 1, c.MaxTransfers())
}

func TestRateLimitedReaderCapsReads(t *testing.T) {
	c := NewController(Config{IOLimitBytesPerSec: 1 << 20})
	r := NewRateLimitedReader(t.Context(), strings.NewReader(strings.Repeat("x", 3<<20)), c)

	n, err := r.Read(make([]byte, 2<<20))
	require.NoError(t, err)
	assert.LessOrEqual(t, n, 1<<20)
}

func TestRateLimitedWriterCopies(t *testing.T) {
	var buf bytes.Buffer
	w := NewRateLimitedWriter(t.Context(), &buf, NewController(Config{IOLimitBytesPerSec: 1 << 20}))

	n, err := io.Copy(w, strings.NewReader("hello"))
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
	assert.Equal(t, "hello", buf.String())
}

func TestRateLimitedReaderCancelled(t *testing.T) {
	c := NewController(Config{IOLimitBytesPerSec: 10})
	require.True(t, c.TryAcquireIO(10))

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	_, err := NewRateLimitedReader(ctx, strings.NewReader("abc"), c).Read(make([]byte, 3))
	assert.Error(t, err)
}
