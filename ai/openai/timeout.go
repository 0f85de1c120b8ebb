package openai

import (
	"context"
	"time"
)

// timeoutFunc derives a bounded child context for a single model call.
type timeoutFunc func(ctx context.Context) (context.Context, context.CancelFunc)

func newTimeoutFunc(d time.Duration) timeoutFunc {
	return func(ctx context.Context) (context.Context, context.CancelFunc) {
		return context.WithTimeout(ctx, d)
	}
}
