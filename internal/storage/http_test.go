package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThrottle_NilNeverBlocks(t *testing.T) {
	var th *throttle
	assert.NoError(t, th.Wait(context.Background()))

	th, err := newThrottle("k", "")
	require.NoError(t, err)
	assert.Nil(t, th)
}

func TestThrottle_WaitHonoursContext(t *testing.T) {
	th, err := newThrottle("k", "1-M")
	require.NoError(t, err)

	require.NoError(t, th.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, th.Wait(ctx), context.DeadlineExceeded)
}

func TestThrottle_InvalidRate(t *testing.T) {
	_, err := newThrottle("k", "fast")
	assert.Error(t, err)
}

func TestCodeForStatus(t *testing.T) {
	assert.Equal(t, CodeUnauthorized, codeForStatus(403))
	assert.Equal(t, CodeInsufficient, codeForStatus(402))
	assert.Equal(t, CodeRateLimited, codeForStatus(429))
	assert.Equal(t, CodeInternalError, codeForStatus(503))
	assert.Equal(t, CodeUnknownError, codeForStatus(418))
}
