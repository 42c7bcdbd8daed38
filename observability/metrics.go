package observability

import "github.com/prometheus/client_golang/prometheus"

const namespace = "chatrelay"

// Metrics aggregates the Prometheus collectors shared by the cache, the
// bus and the subscription layer. Counters are diagnostics only and never
// affect correctness.
type Metrics struct {
	CacheHits         prometheus.Counter
	CacheMisses       prometheus.Counter
	CacheSets         prometheus.Counter
	CacheDeletes      prometheus.Counter
	MessagesPublished prometheus.Counter
	ActiveSubscribers prometheus.Gauge
}

// NewMetrics builds and registers all collectors with the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Total number of cache hits",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Total number of cache misses",
		}),
		CacheSets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "sets_total",
			Help:      "Total number of cache set operations",
		}),
		CacheDeletes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "deletes_total",
			Help:      "Total number of cache delete and prefix-delete operations",
		}),
		MessagesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bus",
			Name:      "messages_published_total",
			Help:      "Total number of payloads published on the notification bus",
		}),
		ActiveSubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "bus",
			Name:      "active_subscribers",
			Help:      "Number of currently registered room subscribers",
		}),
	}
	reg.MustRegister(
		m.CacheHits, m.CacheMisses, m.CacheSets, m.CacheDeletes,
		m.MessagesPublished, m.ActiveSubscribers,
	)
	return m
}

// NewTestMetrics returns metrics backed by a private registry, for tests.
func NewTestMetrics() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}
