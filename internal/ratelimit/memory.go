package ratelimit

import (
	"context"
	"fmt"
	"time"

	limiter "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// Memory is a fixed window limiter kept in process memory.
type Memory struct {
	limiter *limiter.Limiter
}

// NewMemory builds an in-process limiter allowing max events per window.
func NewMemory(window time.Duration, max int) *Memory {
	store := memory.NewStoreWithOptions(limiter.StoreOptions{
		Prefix:          "volume-discount",
		CleanUpInterval: window,
	})
	return &Memory{limiter: limiter.New(store, limiter.Rate{Period: window, Limit: int64(max)})}
}

// Allow registers an event for key.
func (m *Memory) Allow(ctx context.Context, key string) (Decision, error) {
	res, err := m.limiter.Get(ctx, key)
	if err != nil {
		return Decision{}, fmt.Errorf("memory limiter: %w", err)
	}
	return Decision{
		Allowed:   !res.Reached,
		Limit:     int(res.Limit),
		Remaining: int(res.Remaining),
		ResetAt:   time.Unix(res.Reset, 0),
	}, nil
}
