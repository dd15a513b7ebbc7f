package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNewManagerWithOptions(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewManager(
		WithNamespace("testns"),
		WithSubsystem("testsub"),
		WithMetricPrefix("t_"),
		WithHistogramBuckets([]float64{1, 10, 100}),
		WithPrometheusRegistry(registry),
	)
	if m == nil {
		t.Fatal("manager is nil")
	}
	if m.namespace != "testns" {
		t.Errorf("namespace = %q, want testns", m.namespace)
	}
	if m.subsystem != "testsub" {
		t.Errorf("subsystem = %q, want testsub", m.subsystem)
	}

	mfs, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	if len(mfs) == 0 {
		t.Fatal("no metrics registered")
	}
	for _, mf := range mfs {
		if !strings.HasPrefix(mf.GetName(), "testns_testsub_t_") {
			t.Errorf("metric %q does not carry the configured naming", mf.GetName())
		}
	}
}

func TestOptionsIgnoreZeroValues(t *testing.T) {
	m := NewManager(
		WithNamespace(""),
		WithSubsystem(""),
		WithMetricPrefix(""),
		WithHistogramBuckets(nil),
		WithPrometheusRegistry(prometheus.NewRegistry()),
	)
	if m.namespace != "rankpulse" || m.subsystem != "ranking" {
		t.Errorf("zero-value options must keep defaults, got %s_%s", m.namespace, m.subsystem)
	}
}

func TestConfigure(t *testing.T) {
	prev, prevReg := globalManager, customRegistry
	defer func() { globalManager, customRegistry = prev, prevReg }()

	Configure(WithNamespace("cfgns"), WithSubsystem("cfgsub"))
	RecordMatchApplied()

	mfs, err := GetRegistry().Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	found := false
	for _, mf := range mfs {
		if mf.GetName() == "cfgns_cfgsub_matches_applied_total" {
			found = true
		}
	}
	if !found {
		t.Error("configured registry is missing the renamed counter")
	}
}

func TestGlobalHelpers(t *testing.T) {
	// Exercise every package-level helper against the global manager;
	// none of these may panic.
	RecordMatchApplied()
	RecordMatchDuplicate()
	RecordMatchRejected()
	RecordRatingUpdateLatency(1.5)

	RecordRecalculation("global", 12.0)
	RecordRecalculationCoalesced("global")
	RecordRecalculationAborted("country")
	UpdateRankedPlayers("global", 100)

	RecordCacheHit("page")
	RecordCacheMiss("rank")
	RecordCacheInvalidation("match")
	RecordCacheError()
	UpdateCacheDegraded(true)
	UpdateCacheDegraded(false)

	UpdateQueueSize(5)
	UpdateQueueCapacity(100)
	UpdateQueueUtilization(0.05)
	RecordQueueEnqueue()
	RecordQueueDequeue()
	RecordQueueEnqueueError()

	UpdateWorkerCount(4)
	RecordWorkerProcessingLatency(3.2)
	RecordWorkerError()

	UpdateTotalPlayers(42)

	RecordHTTPRequest("leaderboard", "GET", "200")
	RecordHTTPRequestDuration("leaderboard", "GET", "200", 4.0)
	RecordErrorByComponent("cache", "timeout")

	UpdateSystemMemoryUsage(1024)
	UpdateSystemGoroutineCount(10)

	mfs, err := GetRegistry().Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	if len(mfs) == 0 {
		t.Fatal("global registry has no metrics")
	}
}
