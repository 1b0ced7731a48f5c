package prometheus

import (
	"errors"
	"net/http"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	mkclient "github.com/MrEthical07/mkclient"
	"github.com/MrEthical07/mkclient/metrics/export/internaldefs"
)

// ErrNilSource is returned when no metrics source is supplied.
var ErrNilSource = errors.New("nil metrics source")

// MetricsSource is implemented by [mkclient.Client].
type MetricsSource interface {
	MetricsSnapshot() mkclient.MetricsSnapshot
	SignalsDropped() uint64
}

type counterDesc struct {
	id   mkclient.MetricID
	desc *prom.Desc
}

type histogramDesc struct {
	id   mkclient.MetricID
	desc *prom.Desc
}

// Exporter is a [prom.Collector] reading a client's snapshot on every scrape.
type Exporter struct {
	source     MetricsSource
	counters   []counterDesc
	histograms []histogramDesc
	dropped    *prom.Desc
	registry   *prom.Registry
}

// NewExporter creates an Exporter registered in its own registry. Callers may also
// register the Exporter in a registry of their choosing.
func NewExporter(source MetricsSource) (*Exporter, error) {
	if source == nil {
		return nil, ErrNilSource
	}
	e := &Exporter{
		source:     source,
		counters:   make([]counterDesc, 0, len(internaldefs.CounterDefs)),
		histograms: make([]histogramDesc, 0, len(internaldefs.HistogramDefs)),
		dropped:    prom.NewDesc(internaldefs.SignalsDroppedName, internaldefs.SignalsDroppedHelp, nil, nil),
		registry:   prom.NewRegistry(),
	}
	for _, def := range internaldefs.CounterDefs {
		e.counters = append(e.counters, counterDesc{id: def.ID, desc: prom.NewDesc(def.Name, def.Help, nil, nil)})
	}
	for _, def := range internaldefs.HistogramDefs {
		e.histograms = append(e.histograms, histogramDesc{id: def.ID, desc: prom.NewDesc(def.Name, def.Help, nil, nil)})
	}
	if err := e.registry.Register(e); err != nil {
		return nil, err
	}
	return e, nil
}

// Registry returns the Exporter's own registry.
func (e *Exporter) Registry() *prom.Registry {
	return e.registry
}

// Handler serves the Exporter's registry in the Prometheus exposition format.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// Describe implements [prom.Collector].
func (e *Exporter) Describe(ch chan<- *prom.Desc) {
	for _, c := range e.counters {
		ch <- c.desc
	}
	for _, h := range e.histograms {
		ch <- h.desc
	}
	ch <- e.dropped
}

// Collect implements [prom.Collector]. Disabled metrics export nothing but the drop
// counter.
func (e *Exporter) Collect(ch chan<- prom.Metric) {
	snapshot := e.source.MetricsSnapshot()
	for _, c := range e.counters {
		v, ok := snapshot.Counters[c.id]
		if !ok {
			continue
		}
		ch <- prom.MustNewConstMetric(c.desc, prom.CounterValue, float64(v))
	}
	for _, h := range e.histograms {
		raw, ok := snapshot.Histograms[h.id]
		if !ok {
			continue
		}
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(raw))
		buckets := make(map[float64]uint64, len(internaldefs.HistogramUpperBounds))
		for i, le := range internaldefs.HistogramUpperBounds {
			buckets[le] = cumulative[i]
		}
		// Snapshots carry no sum.
		ch <- prom.MustNewConstHistogram(h.desc, cumulative[len(cumulative)-1], 0, buckets)
	}
	ch <- prom.MustNewConstMetric(e.dropped, prom.CounterValue, float64(e.source.SignalsDropped()))
}
