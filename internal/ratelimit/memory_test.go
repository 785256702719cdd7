package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryAllow(t *testing.T) {
	limiter := NewMemory(time.Minute, 2)
	ctx := context.Background()

	first, err := limiter.Allow(ctx, "client")
	require.NoError(t, err)
	require.True(t, first.Allowed)
	require.Equal(t, 2, first.Limit)
	require.Equal(t, 1, first.Remaining)

	second, err := limiter.Allow(ctx, "client")
	require.NoError(t, err)
	require.True(t, second.Allowed)
	require.Equal(t, 0, second.Remaining)

	third, err := limiter.Allow(ctx, "client")
	require.NoError(t, err)
	require.False(t, third.Allowed)
	require.True(t, third.ResetAt.After(time.Now()))
}
