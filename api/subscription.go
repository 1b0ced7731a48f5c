package api

import (
	"context"
	"errors"
	"net/http"
)

// SubscriptionStatus is the tenant plan and usage.
type SubscriptionStatus struct {
	Plan          string `json:"plan"`
	MaxDevices    int    `json:"max_devices"`
	Used          int    `json:"used"`
	PaymentStatus string `json:"status_pago"`
	Suspended     bool   `json:"suspended,omitempty"`
}

// Remaining returns how many devices can still be added.
func (s SubscriptionStatus) Remaining() int {
	if n := s.MaxDevices - s.Used; n > 0 {
		return n
	}
	return 0
}

// Subscription is the subscription resource.
type Subscription struct {
	c *Client
}

const (
	subscriptionStatusPath       = "/subscription/status"
	legacySubscriptionStatusPath = "/subscriptions/subscription/status"
)

// Status returns the current plan. Deployments that still mount the route under the
// doubled prefix are reached through a fallback on 404.
func (s *Subscription) Status(ctx context.Context) (SubscriptionStatus, error) {
	var out SubscriptionStatus
	err := s.c.do(ctx, http.MethodGet, subscriptionStatusPath, nil, nil, &out)
	if err == nil {
		return out, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return SubscriptionStatus{}, err
	}
	out = SubscriptionStatus{}
	if err := s.c.do(ctx, http.MethodGet, legacySubscriptionStatusPath, nil, nil, &out); err != nil {
		return SubscriptionStatus{}, err
	}
	return out, nil
}
