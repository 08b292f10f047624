//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/texlink-oficial/texlink/internal/verification/providers"
	"github.com/texlink-oficial/texlink/pkg/testutil/containers"
)

func TestRedisCache(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	cache := NewRedisCache(rc.Client)
	ctx := context.Background()

	debt := 12500.0
	result := &providers.CreditResult{
		TaxID:           "11222333000181",
		Score:           720,
		RiskTier:        providers.RiskTierLow,
		HasNegatives:    false,
		DebtAmount:      &debt,
		Recommendations: []string{"approved for standard terms"},
		Source:          "SERASA",
		CheckedAt:       time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	t.Run("round trip", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))
		require.NoError(t, cache.Set(ctx, "11222333000181", result, time.Minute))

		cached, ok, err := cache.Get(ctx, "11222333000181")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, 720, cached.Score)
		assert.Equal(t, providers.RiskTierLow, cached.RiskTier)
		require.NotNil(t, cached.DebtAmount)
		assert.Equal(t, debt, *cached.DebtAmount)
		assert.Equal(t, "SERASA", cached.Source)
	})

	t.Run("miss on unknown key", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))
		_, ok, err := cache.Get(ctx, "99888777000166")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("entry expires with its TTL", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))
		require.NoError(t, cache.Set(ctx, "11222333000181", result, 500*time.Millisecond))

		_, ok, err := cache.Get(ctx, "11222333000181")
		require.NoError(t, err)
		require.True(t, ok)

		time.Sleep(700 * time.Millisecond)

		_, ok, err = cache.Get(ctx, "11222333000181")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("delete removes the entry", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))
		require.NoError(t, cache.Set(ctx, "11222333000181", result, time.Minute))
		require.NoError(t, cache.Delete(ctx, "11222333000181"))

		_, ok, err := cache.Get(ctx, "11222333000181")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("corrupt entry is treated as a miss", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))
		require.NoError(t, rc.Client.Set(ctx, "texlink:credit:11222333000181", "not json", time.Minute).Err())

		_, ok, err := cache.Get(ctx, "11222333000181")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
