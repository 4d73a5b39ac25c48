package metrics

import (
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_RecordHTTPRequest(t *testing.T) {
	m := New(Providers{})

	m.RecordHTTPRequest("GET", "GET /api/analytics/stats", "200", 0.05)
	m.RecordHTTPRequest("GET", "GET /api/analytics/stats", "200", 0.1)
	m.RecordHTTPRequest("POST", "POST /api/auth/login", "401", 0.01)

	count := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "GET /api/analytics/stats", "200"))
	if count != 2 {
		t.Errorf("expected 2 requests, got %v", count)
	}
	count = testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("POST", "POST /api/auth/login", "401"))
	if count != 1 {
		t.Errorf("expected 1 request, got %v", count)
	}
}

func TestMetrics_TrackingObserver(t *testing.T) {
	m := New(Providers{})

	m.VisitRecorded(3 * time.Millisecond)
	m.VisitRecorded(5 * time.Millisecond)
	m.RecordFailed()
	m.RecordDropped()
	m.RecordDropped()
	m.RecordDropped()

	if v := testutil.ToFloat64(m.VisitsRecordedTotal); v != 2 {
		t.Errorf("recorded = %v, want 2", v)
	}
	if v := testutil.ToFloat64(m.RecordErrorsTotal); v != 1 {
		t.Errorf("errors = %v, want 1", v)
	}
	if v := testutil.ToFloat64(m.VisitsDroppedTotal); v != 3 {
		t.Errorf("dropped = %v, want 3", v)
	}
	if v := testutil.ToFloat64(m.LastVisitTimestamp); v <= 0 {
		t.Errorf("last visit timestamp = %v, want > 0", v)
	}
	if n := testutil.CollectAndCount(m.RecordDuration); n != 1 {
		t.Errorf("record duration series = %d, want 1", n)
	}
}

func TestMetrics_AdminCounters(t *testing.T) {
	m := New(Providers{})

	m.RecordStatsQuery("day", true, 0.01)
	m.RecordStatsQuery("month", true, 0.2)
	m.RecordStatsQuery("month", false, 0.3)
	m.RecordLogin("success")
	m.RecordLogin("invalid")
	m.RecordLogin("invalid")
	m.RecordImportLine("accepted")
	m.RecordImportLine("invalid")
	m.RecordSSEDropped()
	m.RecordSSEDropped()

	if v := testutil.ToFloat64(m.StatsQueriesTotal.WithLabelValues("month", "error")); v != 1 {
		t.Errorf("month errors = %v, want 1", v)
	}
	if v := testutil.ToFloat64(m.StatsQueriesTotal.WithLabelValues("day", "ok")); v != 1 {
		t.Errorf("day ok = %v, want 1", v)
	}
	if v := testutil.ToFloat64(m.LoginAttemptsTotal.WithLabelValues("invalid")); v != 2 {
		t.Errorf("invalid logins = %v, want 2", v)
	}
	if v := testutil.ToFloat64(m.ImportLinesTotal.WithLabelValues("accepted")); v != 1 {
		t.Errorf("accepted lines = %v, want 1", v)
	}
	if v := testutil.ToFloat64(m.SSEDroppedTotal); v != 2 {
		t.Errorf("sse drops = %v, want 2", v)
	}
}

func TestMetrics_GaugeFuncs(t *testing.T) {
	dbStats := DBStats{Counters: 120, ListItems: 340, SetMembers: 12}

	m := New(Providers{
		SSEClients:   func() int { return 3 },
		DBSize:       func() int64 { return 2048 },
		DBStats:      func() DBStats { return dbStats },
		GeoCacheRate: func() float64 { return 0.75 },
	})

	tests := []struct {
		name  string
		gauge prometheus.GaugeFunc
		want  float64
	}{
		{"sse subscribers", m.SSESubscribersGauge, 3},
		{"db size", m.DBSizeBytes, 2048},
		{"counters", m.DBCounters, 120},
		{"list items", m.DBListItems, 340},
		{"set members", m.DBSetMembers, 12},
		{"geo hit rate", m.GeoCacheHitRate, 0.75},
	}
	for _, tt := range tests {
		if got := testutil.ToFloat64(tt.gauge); got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestMetrics_NilProvidersReportZero(t *testing.T) {
	m := New(Providers{})
	for _, g := range []prometheus.GaugeFunc{m.SSESubscribersGauge, m.DBSizeBytes, m.DBCounters, m.GeoCacheHitRate} {
		if v := testutil.ToFloat64(g); v != 0 {
			t.Errorf("gauge = %v, want 0", v)
		}
	}
}

func TestCachedDBStats_SharesOneQueryPerScrape(t *testing.T) {
	var calls atomic.Int32
	m := New(Providers{DBStats: func() DBStats {
		calls.Add(1)
		return DBStats{Counters: 1, ListItems: 2, SetMembers: 3}
	}})

	testutil.ToFloat64(m.DBCounters)
	testutil.ToFloat64(m.DBListItems)
	testutil.ToFloat64(m.DBSetMembers)

	if n := calls.Load(); n != 1 {
		t.Errorf("stats provider called %d times, want 1", n)
	}
}

func TestMetrics_Register(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(Providers{})

	if err := m.Register(reg); err != nil {
		t.Errorf("unexpected error registering metrics: %v", err)
	}

	err := m.Register(reg)
	if err == nil {
		t.Fatal("expected error on double registration")
	}
	if !strings.Contains(err.Error(), "already registered") && !strings.Contains(err.Error(), "duplicate") {
		t.Errorf("expected 'already registered' or 'duplicate' error, got: %v", err)
	}
}
