package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLimiter_EnforcesMinDelayPerHost(t *testing.T) {
	l := New(50*time.Millisecond, nil, 1, nil)
	ctx := context.Background()

	require.NoError(t, l.Wait(ctx, "example.com"))
	start := time.Now()
	require.NoError(t, l.Wait(ctx, "example.com"))
	elapsed := time.Since(start)

	require.GreaterOrEqual(t, elapsed, 45*time.Millisecond)
}

func TestLimiter_PerHostOverrideIsIndependent(t *testing.T) {
	l := New(100*time.Millisecond, map[string]time.Duration{
		"fast.example.com": 5 * time.Millisecond,
	}, 1, nil)
	ctx := context.Background()

	require.NoError(t, l.Wait(ctx, "fast.example.com"))
	start := time.Now()
	require.NoError(t, l.Wait(ctx, "fast.example.com"))
	require.Less(t, time.Since(start), 50*time.Millisecond)

	require.NoError(t, l.Wait(ctx, "slow.example.com"))
	start = time.Now()
	require.NoError(t, l.Wait(ctx, "slow.example.com"))
	require.GreaterOrEqual(t, time.Since(start), 95*time.Millisecond)
}

func TestLimiter_RespectsContextCancellation(t *testing.T) {
	l := New(time.Second, nil, 1, nil)
	ctx := context.Background()
	require.NoError(t, l.Wait(ctx, "example.com"))

	cancelCtx, cancel := context.WithCancel(ctx)
	cancel()

	err := l.Wait(cancelCtx, "example.com")
	require.Error(t, err)
}
