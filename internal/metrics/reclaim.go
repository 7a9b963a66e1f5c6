package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Reclaim subsystem metrics
var (
	// ScanDuration tracks how long tree scans take
	ScanDuration prometheus.Histogram

	// ReclaimDuration tracks how long reclamation passes take
	ReclaimDuration prometheus.Histogram

	// DirsRemovedTotal tracks total directories removed
	DirsRemovedTotal prometheus.Counter

	// DirsSkippedTotal tracks directories skipped (no longer empty, safety, unreadable)
	DirsSkippedTotal prometheus.Counter

	// CandidatesFound records candidates produced by the most recent scan
	CandidatesFound prometheus.Gauge

	// LastRunTimestamp records Unix timestamp of the last run
	LastRunTimestamp prometheus.Gauge

	// RootDirsRemovedTotal tracks directories removed per scan root
	RootDirsRemovedTotal *prometheus.CounterVec
)

// initReclaimMetrics initializes all reclaim subsystem metrics
func initReclaimMetrics() {
	ScanDuration = NewDurationHistogram(
		"emptybye_scan_duration_seconds",
		"Duration of bottom-up tree scans in seconds.",
	)

	ReclaimDuration = NewDurationHistogram(
		"emptybye_reclaim_duration_seconds",
		"Duration of reclamation passes in seconds.",
	)

	DirsRemovedTotal = NewCounter(
		"emptybye_dirs_removed_total",
		"Total number of empty directories removed.",
	)

	DirsSkippedTotal = NewCounter(
		"emptybye_dirs_skipped_total",
		"Total number of candidate directories skipped without removal.",
	)

	CandidatesFound = NewGauge(
		"emptybye_candidates_found",
		"Number of removal candidates found by the most recent scan.",
	)

	LastRunTimestamp = NewGauge(
		"emptybye_last_run_timestamp",
		"Timestamp of the last reclamation run (Unix epoch seconds).",
	)

	RootDirsRemovedTotal = NewCounterVec(
		"emptybye_root_dirs_removed_total",
		"Total directories removed per scan root.",
		[]string{"root"},
	)
}

// registerReclaimMetrics registers all reclaim metrics with Prometheus
func registerReclaimMetrics() {
	prometheus.MustRegister(ScanDuration)
	prometheus.MustRegister(ReclaimDuration)
	prometheus.MustRegister(DirsRemovedTotal)
	prometheus.MustRegister(DirsSkippedTotal)
	prometheus.MustRegister(CandidatesFound)
	prometheus.MustRegister(LastRunTimestamp)
	prometheus.MustRegister(RootDirsRemovedTotal)
}

// RecordRun updates the last run timestamp to current time
func RecordRun() {
	LastRunTimestamp.Set(float64(time.Now().Unix()))
}

// RecordRootRemoval records one removal under a specific scan root
func RecordRootRemoval(root string) {
	RootDirsRemovedTotal.WithLabelValues(root).Inc()
}
