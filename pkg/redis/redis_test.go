package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tossww/open-insider-trader/pkg/config"
)

func TestNewClient_Disabled(t *testing.T) {
	cfg := &config.Config{
		Redis: config.RedisConfig{Enabled: false},
	}

	client, err := New(cfg)
	require.NoError(t, err)
	assert.False(t, client.Enabled())
	assert.NoError(t, client.Close())
}

func TestRateLimiter_Disabled(t *testing.T) {
	limiter := NewRateLimiter(Disabled(), "test")

	allowed, remaining, err := limiter.Allow(context.Background(), YahooRateLimit)
	require.NoError(t, err)
	assert.True(t, allowed, "all requests pass when Redis is disabled")
	assert.Equal(t, YahooRateLimit.Limit, remaining)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, limiter.Wait(ctx, OpenInsiderRateLimit))
}

func TestCache_Disabled(t *testing.T) {
	cache := NewCache(Disabled(), "test")
	ctx := context.Background()

	var result string
	found, err := cache.Get(ctx, "key", &result)
	require.NoError(t, err)
	assert.False(t, found)

	assert.NoError(t, cache.Set(ctx, "key", "value", TTLShort))

	removed, err := cache.DeletePattern(ctx, "prices:*")
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestCache_GetOrSetDisabledCallsLoader(t *testing.T) {
	cache := NewCache(Disabled(), "test")

	calls := 0
	var got []float64
	err := cache.GetOrSet(context.Background(), "k", &got, TTLShort, func() (interface{}, error) {
		calls++
		return []float64{1.5, 2.5}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, []float64{1.5, 2.5}, got)
}

func TestCacheKeys(t *testing.T) {
	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"PriceSeriesKey", PriceSeriesKey("abc", "2024-01-01", "now"), "prices:ABC:2024-01-01:now"},
		{"MarketCapKey", MarketCapKey("xyz", "2024-01-15"), "marketcap:XYZ:2024-01-15"},
		{"ScreenerPageKey", ScreenerPageKey(30, 2), "openinsider:30d:p2"},
		{"LatestReportKey", LatestReportKey(), "signals:latest"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.got)
		})
	}
}
