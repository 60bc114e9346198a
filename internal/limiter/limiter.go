// Package limiter defines interfaces and implementations for throttling
// case submission bursts per claimant.
package limiter

import (
	"context"
	"time"
)

// Limiter controls submission rates and temporary blocks.
type Limiter interface {
	// Allow reports whether the user may submit now and an optional retry-after.
	Allow(ctx context.Context, userID string) (bool, time.Duration, error)
	// Note records one submission; once the per-window cap is reached it
	// places a temporary block and reports it.
	Note(ctx context.Context, userID string) (bool, time.Duration, error)
}

// Noop permits everything; used by tooling that bypasses throttling.
type Noop struct{}

func (Noop) Allow(context.Context, string) (bool, time.Duration, error) { return true, 0, nil }
func (Noop) Note(context.Context, string) (bool, time.Duration, error) { return false, 0, nil }
