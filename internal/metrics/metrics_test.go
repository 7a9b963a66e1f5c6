package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	Init()
}

// TestMetricsInit verifies that Init() is idempotent and registers metrics
func TestMetricsInit(t *testing.T) {
	// Call Init multiple times - should be idempotent via sync.Once
	Init()
	Init()

	if ScanDuration == nil {
		t.Error("ScanDuration should be initialized")
	}
	if ReclaimDuration == nil {
		t.Error("ReclaimDuration should be initialized")
	}
	if DirsRemovedTotal == nil {
		t.Error("DirsRemovedTotal should be initialized")
	}
	if DirsSkippedTotal == nil {
		t.Error("DirsSkippedTotal should be initialized")
	}
	if CandidatesFound == nil {
		t.Error("CandidatesFound should be initialized")
	}
	if LastRunTimestamp == nil {
		t.Error("LastRunTimestamp should be initialized")
	}
	if RootDirsRemovedTotal == nil {
		t.Error("RootDirsRemovedTotal should be initialized")
	}
	if ErrorsTotal == nil {
		t.Error("ErrorsTotal should be initialized")
	}
	if FreeSpacePercent == nil {
		t.Error("FreeSpacePercent should be initialized")
	}

	// Test metrics are registered by gathering from default registry
	mfs, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("Failed to gather metrics: %v", err)
	}

	expectedMetrics := []string{
		"emptybye_scan_duration_seconds",
		"emptybye_reclaim_duration_seconds",
		"emptybye_dirs_removed_total",
		"emptybye_dirs_skipped_total",
		"emptybye_candidates_found",
		"emptybye_last_run_timestamp",
		"emptybye_daemon_errors_total",
	}

	foundMetrics := make(map[string]bool)
	for _, mf := range mfs {
		foundMetrics[*mf.Name] = true
	}

	for _, expected := range expectedMetrics {
		if !foundMetrics[expected] {
			t.Errorf("metric %s not registered", expected)
		}
	}
}

func gaugeValue(t *testing.T, name string) float64 {
	t.Helper()
	mfs, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("Failed to gather metrics: %v", err)
	}
	for _, mf := range mfs {
		if *mf.Name == name && len(mf.Metric) > 0 {
			return mf.Metric[0].GetGauge().GetValue()
		}
	}
	t.Fatalf("metric %s not found", name)
	return 0
}

// TestRecordRun verifies the last-run timestamp gauge is set
func TestRecordRun(t *testing.T) {
	RecordRun()

	ts := int64(gaugeValue(t, "emptybye_last_run_timestamp"))
	if ts == 0 {
		t.Errorf("last run timestamp not set")
	}
	if time.Since(time.Unix(ts, 0)) > time.Minute {
		t.Errorf("last run timestamp stale: %d", ts)
	}
}

// TestRootRemovalCounter verifies the per-root counter moves
func TestRootRemovalCounter(t *testing.T) {
	RecordRootRemoval("/srv/media")
	RecordRootRemoval("/srv/media")

	mfs, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("Failed to gather metrics: %v", err)
	}
	for _, mf := range mfs {
		if *mf.Name != "emptybye_root_dirs_removed_total" {
			continue
		}
		for _, m := range mf.Metric {
			for _, l := range m.GetLabel() {
				if l.GetName() == "root" && l.GetValue() == "/srv/media" {
					if m.GetCounter().GetValue() < 2 {
						t.Errorf("root counter = %v, expected >= 2", m.GetCounter().GetValue())
					}
					return
				}
			}
		}
	}
	t.Errorf("per-root counter for /srv/media not found")
}

// TestHealthChecker verifies component health aggregation and staleness
func TestHealthChecker(t *testing.T) {
	hc := NewHealthChecker(0)

	if !hc.IsHealthy() {
		t.Errorf("empty checker should be healthy")
	}

	hc.Report("database", true)
	hc.Report("scheduler", true)
	if !hc.IsHealthy() {
		t.Errorf("all-healthy components should report healthy")
	}

	hc.Report("scheduler", false)
	if hc.IsHealthy() {
		t.Errorf("one unhealthy component must fail the check")
	}

	t.Run("staleness", func(t *testing.T) {
		stale := NewHealthChecker(time.Nanosecond)
		stale.Report("scheduler", true)
		time.Sleep(time.Millisecond)
		if stale.IsHealthy() {
			t.Errorf("stale report must count as unhealthy")
		}
	})
}
