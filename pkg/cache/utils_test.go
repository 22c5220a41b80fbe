package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateKeyWithParams(t *testing.T) {
	assert.Equal(t, "candles:BTCUSDT:1d:500", GenerateKeyWithParams("candles", "BTCUSDT", "1d", 500))
	assert.Equal(t, "candles", GenerateKeyWithParams("candles"))
}

func TestGenerateKeyAndPattern(t *testing.T) {
	assert.Equal(t, "scan:latest", GenerateKey("scan", "latest"))
	assert.Equal(t, "scan:*", BuildPattern("scan:"))
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	mc := NewMemoryCache(WithMemoryMaxSize(4))
	ctx := context.Background()

	key := GenerateKeyWithParams("candles", "BTCUSDT", "1d", 3)
	require.NoError(t, mc.Set(ctx, key, []float64{1, 2, 3}, time.Minute))

	var raw interface{}
	require.NoError(t, mc.Get(ctx, key, &raw))
	vals, ok := raw.([]float64)
	require.True(t, ok)
	assert.Equal(t, []float64{1, 2, 3}, vals)

	require.NoError(t, mc.Delete(ctx, key))
	require.Error(t, mc.Get(ctx, key, &raw))
}
