package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/texlink-oficial/texlink/internal/verification/providers"
)

func TestInMemoryCache_RoundTrip(t *testing.T) {
	c := NewInMemoryCache()
	ctx := context.Background()

	result := &providers.CreditResult{
		TaxID:  "12345678000190",
		Score:  720,
		Source: "SERASA",
	}
	require.NoError(t, c.Set(ctx, result.TaxID, result, time.Hour))

	got, ok, err := c.Get(ctx, result.TaxID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 720, got.Score)
	assert.Equal(t, "SERASA", got.Source)

	// The cached copy must not alias the caller's value.
	got.Score = 0
	again, ok, err := c.Get(ctx, result.TaxID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 720, again.Score)
}

func TestInMemoryCache_MissOnUnknownKey(t *testing.T) {
	c := NewInMemoryCache()

	_, ok, err := c.Get(context.Background(), "00000000000000")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInMemoryCache_ExpiredEntryEvictedOnRead(t *testing.T) {
	now := time.Now()
	c := NewInMemoryCache(WithClock(func() time.Time { return now }))
	ctx := context.Background()

	result := &providers.CreditResult{TaxID: "12345678000190", Score: 500}
	require.NoError(t, c.Set(ctx, result.TaxID, result, 30*24*time.Hour))

	_, ok, err := c.Get(ctx, result.TaxID)
	require.NoError(t, err)
	require.True(t, ok)

	now = now.Add(30*24*time.Hour + time.Minute)

	_, ok, err = c.Get(ctx, result.TaxID)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len(), "expired entry should be evicted, not just hidden")
}

func TestInMemoryCache_Delete(t *testing.T) {
	c := NewInMemoryCache()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", &providers.CreditResult{Score: 1}, time.Hour))
	require.NoError(t, c.Delete(ctx, "k"))

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}
