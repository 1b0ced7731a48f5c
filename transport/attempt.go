package transport

import "context"

type attemptKey struct{}

// WithAttempt returns a context recording that the request is its n-th retry.
func WithAttempt(ctx context.Context, n int) context.Context {
	return context.WithValue(ctx, attemptKey{}, n)
}

// AttemptFrom returns the retry attempt carried by ctx, 0 for a first send.
func AttemptFrom(ctx context.Context) int {
	n, _ := ctx.Value(attemptKey{}).(int)
	return n
}
