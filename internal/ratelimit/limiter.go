package ratelimit

import "context"

// RateLimiter throttles admin-API calls per store domain so concurrent
// batches against one store share its request budget.
type RateLimiter interface {
	Allow(ctx context.Context, scope string) (bool, error)
	Wait(ctx context.Context, scope string) error
}
