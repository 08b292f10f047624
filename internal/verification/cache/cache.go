// Package cache provides the credit-result cache backing the verification
// service. Two implementations exist: an in-process map for single-instance
// and test deployments, and a Redis-backed store shared across instances.
package cache

import (
	"context"
	"time"

	"github.com/texlink-oficial/texlink/internal/verification/providers"
)

// Cache stores credit analysis results keyed by normalized tax ID. Get
// returns ok=false for both missing and expired entries; implementations
// evict expired entries on read.
type Cache interface {
	Get(ctx context.Context, taxID string) (*providers.CreditResult, bool, error)
	Set(ctx context.Context, taxID string, result *providers.CreditResult, ttl time.Duration) error
	Delete(ctx context.Context, taxID string) error
}
