package rate

import "errors"

var (
	// ErrRateLimited is returned once an identity exhausts its attempts in a window.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps Redis failures.
	ErrRedisUnavailable = errors.New("redis unavailable")
)
