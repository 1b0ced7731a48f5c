package transport

import (
	"sync"
	"time"
)

// Debouncer suppresses a key that repeats within a window of its first occurrence.
type Debouncer struct {
	mu      sync.Mutex
	window  time.Duration
	now     func() time.Time
	lastKey string
	expiry  time.Time
}

// NewDebouncer returns a Debouncer with the given window. A nil now uses time.Now.
func NewDebouncer(window time.Duration, now func() time.Time) *Debouncer {
	if now == nil {
		now = time.Now
	}
	return &Debouncer{window: window, now: now}
}

// Allow reports whether key should be handled and, if so, records it as the last
// handled key. A suppressed key does not extend the window.
func (d *Debouncer) Allow(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if key == d.lastKey && now.Before(d.expiry) {
		return false
	}
	d.lastKey = key
	d.expiry = now.Add(d.window)
	return true
}
