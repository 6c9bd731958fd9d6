// Package rate gates outbound API calls so we respect Gmail quota limits.
package rate

import (
	"context"
	"fmt"

	xrate "golang.org/x/time/rate"
)

// Limiter gates outbound API calls.
type Limiter interface {
	Wait(ctx context.Context) error
}

// APILimiter wraps a token-bucket limiter from golang.org/x/time/rate.
type APILimiter struct {
	l *xrate.Limiter
}

// NewAPILimiter returns a limiter releasing rps calls per second with a
// burst of rps.
func NewAPILimiter(rps int) *APILimiter {
	if rps <= 0 {
		rps = 1
	}
	return &APILimiter{l: xrate.NewLimiter(xrate.Limit(rps), rps)}
}

// Wait blocks until a call may proceed or the context is canceled.
func (a *APILimiter) Wait(ctx context.Context) error {
	if err := a.l.Wait(ctx); err != nil {
		return fmt.Errorf("rate wait: %w", err)
	}
	return nil
}

var _ Limiter = (*APILimiter)(nil)
