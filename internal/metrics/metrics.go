package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "luckypick"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// HTTP server metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Visit tracking
	VisitsRecordedTotal prometheus.Counter
	RecordErrorsTotal   prometheus.Counter
	VisitsDroppedTotal  prometheus.Counter
	RecordDuration      prometheus.Histogram
	LastVisitTimestamp  prometheus.Gauge
	ImportLinesTotal    *prometheus.CounterVec

	// Admin surface
	StatsQueriesTotal  *prometheus.CounterVec
	StatsQueryDuration *prometheus.HistogramVec
	LoginAttemptsTotal *prometheus.CounterVec

	SSESubscribersGauge prometheus.GaugeFunc
	SSEDroppedTotal     prometheus.Counter

	// Store metrics
	DBSizeBytes  prometheus.GaugeFunc
	DBCounters   prometheus.GaugeFunc
	DBListItems  prometheus.GaugeFunc
	DBSetMembers prometheus.GaugeFunc

	GeoCacheHitRate prometheus.GaugeFunc
}

// DBStats represents store row counts returned by the stats provider function.
type DBStats struct {
	Counters   int64
	ListItems  int64
	SetMembers int64
}

// cachedDBStats caches dbStatsFunc for one second so the three row-count
// gauges of a single scrape share one query.
type cachedDBStats struct {
	mu          sync.RWMutex
	getStats    func() DBStats
	cachedStats DBStats
	cachedAt    int64 // Unix nanoseconds
}

func newCachedDBStats(getStats func() DBStats) *cachedDBStats {
	return &cachedDBStats{getStats: getStats}
}

func (c *cachedDBStats) get() DBStats {
	now := time.Now().UnixNano()

	c.mu.RLock()
	if c.cachedAt != 0 && now-c.cachedAt <= int64(time.Second) {
		stats := c.cachedStats
		c.mu.RUnlock()
		return stats
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cachedAt == 0 || now-c.cachedAt > int64(time.Second) {
		c.cachedStats = c.getStats()
		c.cachedAt = now
	}
	return c.cachedStats
}

// Providers supplies the values behind the gauge funcs. Nil funcs report zero.
type Providers struct {
	SSEClients   func() int
	DBSize       func() int64
	DBStats      func() DBStats
	GeoCacheRate func() float64
}

func (p *Providers) fill() {
	if p.SSEClients == nil {
		p.SSEClients = func() int { return 0 }
	}
	if p.DBSize == nil {
		p.DBSize = func() int64 { return 0 }
	}
	if p.DBStats == nil {
		p.DBStats = func() DBStats { return DBStats{} }
	}
	if p.GeoCacheRate == nil {
		p.GeoCacheRate = func() float64 { return 0 }
	}
}

// New creates all metrics. Nothing is registered until Register.
func New(p Providers) *Metrics {
	p.fill()
	cache := newCachedDBStats(p.DBStats)

	gauge := func(subsystem, name, help string, f func() float64) prometheus.GaugeFunc {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      name,
			Help:      help,
		}, f)
	}

	return &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests handled",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		VisitsRecordedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "visits",
			Name:      "recorded_total",
			Help:      "Visits written to the store",
		}),
		RecordErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "visits",
			Name:      "record_errors_total",
			Help:      "Visit recordings that failed and were swallowed",
		}),
		VisitsDroppedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "visits",
			Name:      "dropped_total",
			Help:      "Visits dropped because the tracker was saturated or closed",
		}),
		RecordDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "visits",
			Name:      "record_duration_seconds",
			Help:      "Time to write one visit to the store",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
		}),
		LastVisitTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "visits",
			Name:      "last_timestamp_seconds",
			Help:      "Unix timestamp of the last recorded visit",
		}),
		ImportLinesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "import",
				Name:      "lines_total",
				Help:      "Visit log lines read by the importer",
			},
			[]string{"outcome"},
		),
		StatsQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "stats",
				Name:      "queries_total",
				Help:      "Stats queries by period and outcome",
			},
			[]string{"period", "outcome"},
		),
		StatsQueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "stats",
				Name:      "query_duration_seconds",
				Help:      "Stats query duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"period"},
		),
		LoginAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "auth",
				Name:      "login_attempts_total",
				Help:      "Admin login attempts by outcome",
			},
			[]string{"outcome"},
		),
		SSEDroppedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sse",
			Name:      "dropped_total",
			Help:      "Events missed by SSE subscribers with full buffers",
		}),
		SSESubscribersGauge: gauge("sse", "subscribers", "Current number of SSE subscribers", func() float64 {
			return float64(p.SSEClients())
		}),
		DBSizeBytes: gauge("db", "size_bytes", "Size of the SQLite database in bytes", func() float64 {
			return float64(p.DBSize())
		}),
		DBCounters: gauge("db", "counters", "Rows in the counters table", func() float64 {
			return float64(cache.get().Counters)
		}),
		DBListItems: gauge("db", "list_items", "Rows in the lists table", func() float64 {
			return float64(cache.get().ListItems)
		}),
		DBSetMembers: gauge("db", "set_members", "Rows in the sets table", func() float64 {
			return float64(cache.get().SetMembers)
		}),
		GeoCacheHitRate: gauge("geo", "cache_hit_rate", "GeoIP cache hit rate (0-1)", p.GeoCacheRate),
	}
}

// Register registers all metrics with reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.VisitsRecordedTotal,
		m.RecordErrorsTotal,
		m.VisitsDroppedTotal,
		m.RecordDuration,
		m.LastVisitTimestamp,
		m.ImportLinesTotal,
		m.StatsQueriesTotal,
		m.StatsQueryDuration,
		m.LoginAttemptsTotal,
		m.SSESubscribersGauge,
		m.SSEDroppedTotal,
		m.DBSizeBytes,
		m.DBCounters,
		m.DBListItems,
		m.DBSetMembers,
		m.GeoCacheHitRate,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// RecordHTTPRequest records an HTTP request metric.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration float64) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// VisitRecorded implements analytics.Observer.
func (m *Metrics) VisitRecorded(d time.Duration) {
	m.VisitsRecordedTotal.Inc()
	m.RecordDuration.Observe(d.Seconds())
	m.LastVisitTimestamp.SetToCurrentTime()
}

// RecordFailed implements analytics.Observer.
func (m *Metrics) RecordFailed() { m.RecordErrorsTotal.Inc() }

// RecordDropped implements analytics.Observer.
func (m *Metrics) RecordDropped() { m.VisitsDroppedTotal.Inc() }

// RecordStatsQuery records one admin stats query.
func (m *Metrics) RecordStatsQuery(period string, ok bool, duration float64) {
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	m.StatsQueriesTotal.WithLabelValues(period, outcome).Inc()
	m.StatsQueryDuration.WithLabelValues(period).Observe(duration)
}

// RecordLogin records a login attempt outcome: success, invalid or malformed.
func (m *Metrics) RecordLogin(outcome string) {
	m.LoginAttemptsTotal.WithLabelValues(outcome).Inc()
}

// RecordSSEDropped counts one event missed by a slow subscriber.
func (m *Metrics) RecordSSEDropped() { m.SSEDroppedTotal.Inc() }

// RecordImportLine records one visit log line: accepted, invalid or dropped.
func (m *Metrics) RecordImportLine(outcome string) {
	m.ImportLinesTotal.WithLabelValues(outcome).Inc()
}
