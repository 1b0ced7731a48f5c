package mkclient

import (
	"context"
	"net/http"
	"time"

	internalmetrics "github.com/MrEthical07/mkclient/internal/metrics"
	"github.com/MrEthical07/mkclient/middleware"
	"github.com/MrEthical07/mkclient/signal"
	"github.com/MrEthical07/mkclient/storage"
)

// countingStorage counts backend failures of the wrapped storage.
type countingStorage struct {
	inner   storage.Storage
	metrics *internalmetrics.Metrics
}

func (s *countingStorage) count(err error) error {
	if err != nil {
		s.metrics.Inc(internalmetrics.MetricStorageFailure)
	}
	return err
}

func (s *countingStorage) Get(ctx context.Context, key string) (string, bool, error) {
	v, ok, err := s.inner.Get(ctx, key)
	return v, ok, s.count(err)
}

func (s *countingStorage) Set(ctx context.Context, key, value string) error {
	return s.count(s.inner.Set(ctx, key, value))
}

func (s *countingStorage) SetMany(ctx context.Context, values map[string]string) error {
	return s.count(storage.SetAll(ctx, s.inner, values))
}

func (s *countingStorage) Delete(ctx context.Context, keys ...string) error {
	return s.count(s.inner.Delete(ctx, keys...))
}

// metricsObserver feeds classifier decisions into the counters.
type metricsObserver struct {
	m *internalmetrics.Metrics
}

var signalMetric = map[signal.Kind]internalmetrics.MetricID{
	signal.SessionExpired:      internalmetrics.MetricSignalSessionExpired,
	signal.SubscriptionUpsell:  internalmetrics.MetricSignalUpsell,
	signal.TenantStatusChanged: internalmetrics.MetricSignalTenantStatus,
	signal.ForcedLogout:        internalmetrics.MetricSignalForcedLogout,
}

func (o metricsObserver) Classified(kind signal.Kind) {
	if id, ok := signalMetric[kind]; ok {
		o.m.Inc(id)
	}
}

func (o metricsObserver) Suppressed(signal.Kind) { o.m.Inc(internalmetrics.MetricSignalSuppressed) }
func (o metricsObserver) Retried()               { o.m.Inc(internalmetrics.MetricRaceRetry) }
func (o metricsObserver) Navigated()             { o.m.Inc(internalmetrics.MetricNavigation) }

// latency records each round trip in the request latency histogram.
func latency(m *internalmetrics.Metrics) middleware.Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		if !m.LatencyEnabled() {
			return next
		}
		return middleware.RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next.RoundTrip(r)
			m.Observe(internalmetrics.MetricRequestLatency, time.Since(start))
			return resp, err
		})
	}
}
