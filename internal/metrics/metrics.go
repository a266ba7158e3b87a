// Package metrics exposes fetcher activity as Prometheus collectors.
//
// A Collector subscribes to fetcher events; it never calls into the
// fetcher's stores or source.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roach88/fetchr/internal/fetcher"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "fetchr"

// Outcome label values for the fetches counter.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Collector holds the fetcher's Prometheus metrics.
type Collector struct {
	pending   prometheus.Gauge
	fetches   *prometheus.CounterVec
	hits      *prometheus.CounterVec
	misses    *prometheus.CounterVec
	refreshes prometheus.Counter
	duration  prometheus.Histogram

	mu      sync.Mutex
	started map[string]time.Time
}

// New creates a Collector. An empty namespace means DefaultNamespace.
func New(namespace string) *Collector {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &Collector{
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "pending",
			Help:      "Fetches started and not yet finished",
		}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "total",
			Help:      "Finished fetches by outcome",
		}, []string{"outcome"}),
		hits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Specs served from the stores, by kind",
		}, []string{"kind"}),
		misses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Specs that could not be served from the stores, by kind",
		}, []string{"kind"}),
		refreshes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "freshness",
			Name:      "refreshes_total",
			Help:      "Background checks that found changed data",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "duration_seconds",
			Help:      "Time from fetch start to fetch end",
			Buckets:   prometheus.DefBuckets,
		}),
		started: make(map[string]time.Time),
	}
}

// Register registers every collector with reg.
func (c *Collector) Register(reg prometheus.Registerer) error {
	for _, col := range c.collectors() {
		if err := reg.Register(col); err != nil {
			return err
		}
	}
	return nil
}

func (c *Collector) collectors() []prometheus.Collector {
	return []prometheus.Collector{c.pending, c.fetches, c.hits, c.misses, c.refreshes, c.duration}
}

// Attach subscribes to f's events. The returned function unsubscribes.
func (c *Collector) Attach(f *fetcher.Fetcher) (detach func()) {
	offs := []func(){
		f.On(fetcher.EventFetchStart, c.onStart),
		f.On(fetcher.EventFetchEnd, c.onEnd),
		f.On(fetcher.EventCacheHit, func(ev fetcher.Event) {
			c.hits.WithLabelValues(string(ev.Spec.Kind)).Inc()
		}),
		f.On(fetcher.EventCacheMiss, func(ev fetcher.Event) {
			c.misses.WithLabelValues(string(ev.Spec.Kind)).Inc()
		}),
		f.On(fetcher.EventRefresh, func(fetcher.Event) {
			c.refreshes.Inc()
		}),
	}
	return func() {
		for _, off := range offs {
			off()
		}
	}
}

func (c *Collector) onStart(ev fetcher.Event) {
	c.pending.Inc()
	c.mu.Lock()
	c.started[ev.FetchID] = ev.Time
	c.mu.Unlock()
}

func (c *Collector) onEnd(ev fetcher.Event) {
	c.pending.Dec()
	outcome := OutcomeOK
	if ev.Err != nil {
		outcome = OutcomeError
	}
	c.fetches.WithLabelValues(outcome).Inc()

	c.mu.Lock()
	start, ok := c.started[ev.FetchID]
	delete(c.started, ev.FetchID)
	c.mu.Unlock()
	if ok {
		c.duration.Observe(ev.Time.Sub(start).Seconds())
	}
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
