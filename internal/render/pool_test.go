package render

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_FillsSaneValues(t *testing.T) {
	cfg := DefaultConfig()
	require.Greater(t, cfg.PoolSize, 0)
	require.Greater(t, cfg.NavigateTimeout.Seconds(), 0.0)
}

func TestPool_NextRoundRobinsAcrossBrowsers(t *testing.T) {
	p := &Pool{
		initialized: true,
		browsers:    []context.Context{context.Background(), context.Background(), context.Background()},
	}

	seen := map[int]bool{}
	for i := 0; i < 6; i++ {
		_, ok := p.next()
		require.True(t, ok)
		seen[p.currentIndex] = true
	}
	require.Equal(t, 3, len(seen))
}

func TestPool_NextFailsWhenNotStarted(t *testing.T) {
	p := NewPool(DefaultConfig(), nil)
	_, ok := p.next()
	require.False(t, ok)
}

func TestPool_RenderFailsWhenNotStarted(t *testing.T) {
	p := NewPool(DefaultConfig(), nil)
	_, err := p.Render(context.Background(), "https://example.com")
	require.Error(t, err)
}
