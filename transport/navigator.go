package transport

import (
	"strings"
	"sync"
)

// Navigator exposes the current UI location and moves it.
type Navigator interface {
	Location() string
	Navigate(target string)
}

// MemoryNavigator records navigations in memory. It backs the CLI and tests.
type MemoryNavigator struct {
	mu       sync.Mutex
	location string
	history  []string
}

// NewMemoryNavigator starts at location.
func NewMemoryNavigator(location string) *MemoryNavigator {
	return &MemoryNavigator{location: location}
}

func (n *MemoryNavigator) Location() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.location
}

func (n *MemoryNavigator) Navigate(target string) {
	n.mu.Lock()
	n.location = target
	n.history = append(n.history, target)
	n.mu.Unlock()
}

// History returns every navigation target in order.
func (n *MemoryNavigator) History() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.history...)
}

func locationPath(loc string) string {
	if i := strings.IndexAny(loc, "?#"); i >= 0 {
		return loc[:i]
	}
	return loc
}
