package otel

import (
	"context"
	"sync"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	mkclient "github.com/MrEthical07/mkclient"
)

type fakeSource struct {
	mu       sync.RWMutex
	snapshot mkclient.MetricsSnapshot
	dropped  uint64
}

func (f *fakeSource) MetricsSnapshot() mkclient.MetricsSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := mkclient.MetricsSnapshot{
		Counters:   make(map[mkclient.MetricID]uint64, len(f.snapshot.Counters)),
		Histograms: make(map[mkclient.MetricID][]uint64, len(f.snapshot.Histograms)),
	}
	for k, v := range f.snapshot.Counters {
		out.Counters[k] = v
	}
	for k, buckets := range f.snapshot.Histograms {
		out.Histograms[k] = append([]uint64(nil), buckets...)
	}
	return out
}

func (f *fakeSource) SignalsDropped() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dropped
}

func newReader() (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	reader := sdkmetric.NewManualReader()
	return reader, sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
}

func collectInt64(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	out := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				if len(data.DataPoints) > 0 {
					out[m.Name] = data.DataPoints[0].Value
				}
			case metricdata.Gauge[int64]:
				if len(data.DataPoints) > 0 {
					out[m.Name] = data.DataPoints[0].Value
				}
			}
		}
	}
	return out
}

func TestExporterRegistersAndCollects(t *testing.T) {
	reader, provider := newReader()
	src := &fakeSource{
		snapshot: mkclient.MetricsSnapshot{
			Counters: map[mkclient.MetricID]uint64{
				mkclient.MetricLoginSuccess: 3,
				mkclient.MetricRaceRetry:    1,
			},
			Histograms: map[mkclient.MetricID][]uint64{
				mkclient.MetricRequestLatency: {1, 1, 1, 1, 1, 1, 1, 1},
			},
		},
		dropped: 4,
	}

	exp, err := NewExporter(provider.Meter("mkclient-test"), src)
	if err != nil {
		t.Fatalf("NewExporter failed: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}()

	got := collectInt64(t, reader)
	if got["mkclient_login_success_total"] != 3 || got["mkclient_race_retry_total"] != 1 {
		t.Fatalf("unexpected counters %v", got)
	}
	if got["mkclient_signals_dropped_total"] != 4 {
		t.Fatalf("expected 4 drops, got %d", got["mkclient_signals_dropped_total"])
	}
	if got["mkclient_request_latency_seconds_bucket_le_0_005"] != 1 || got["mkclient_request_latency_seconds_bucket_le_inf"] != 8 {
		t.Fatalf("unexpected buckets %v", got)
	}
	if got["mkclient_request_latency_seconds_count"] != 8 {
		t.Fatalf("expected 8 samples, got %d", got["mkclient_request_latency_seconds_count"])
	}
}

func TestExporterSkipsDisabledMetrics(t *testing.T) {
	reader, provider := newReader()
	src := &fakeSource{snapshot: mkclient.MetricsSnapshot{
		Counters:   map[mkclient.MetricID]uint64{},
		Histograms: map[mkclient.MetricID][]uint64{},
	}}
	exp, err := NewExporter(provider.Meter("mkclient-test"), src)
	if err != nil {
		t.Fatalf("NewExporter failed: %v", err)
	}
	defer exp.Close()

	got := collectInt64(t, reader)
	if _, ok := got["mkclient_login_success_total"]; ok {
		t.Fatal("disabled counters must not be observed")
	}
	if _, ok := got["mkclient_signals_dropped_total"]; !ok {
		t.Fatal("the drop counter is always observed")
	}
}

func TestExporterRejectsNilArguments(t *testing.T) {
	_, provider := newReader()
	if _, err := NewExporter(provider.Meter("mkclient-test"), nil); err != ErrNilSource {
		t.Fatalf("expected ErrNilSource, got %v", err)
	}
	if _, err := NewExporter(nil, &fakeSource{}); err != ErrNilMeter {
		t.Fatalf("expected ErrNilMeter, got %v", err)
	}
}

func TestExporterConcurrentCollectNoPanic(t *testing.T) {
	reader, provider := newReader()
	src := &fakeSource{
		snapshot: mkclient.MetricsSnapshot{
			Counters: map[mkclient.MetricID]uint64{
				mkclient.MetricLoginSuccess: 1,
			},
			Histograms: map[mkclient.MetricID][]uint64{
				mkclient.MetricRequestLatency: {1, 0, 0, 0, 0, 0, 0, 0},
			},
		},
	}

	exp, err := NewExporter(provider.Meter("mkclient-test"), src)
	if err != nil {
		t.Fatalf("NewExporter failed: %v", err)
	}
	defer exp.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(v uint64) {
			defer wg.Done()
			src.mu.Lock()
			src.snapshot.Counters[mkclient.MetricLoginSuccess] = v
			src.mu.Unlock()

			var rm metricdata.ResourceMetrics
			_ = reader.Collect(context.Background(), &rm)
		}(uint64(i + 1))
	}
	wg.Wait()
}
