package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Daemon subsystem metrics
var (
	// ErrorsTotal tracks total errors encountered by the daemon
	ErrorsTotal prometheus.Counter

	// FreeSpacePercent tracks current free space percentage per scan root
	FreeSpacePercent *prometheus.GaugeVec

	// RootFreeBytes tracks free space on the filesystem containing each root
	RootFreeBytes *prometheus.GaugeVec

	// RootTotalBytes tracks total capacity of the filesystem containing each root
	RootTotalBytes *prometheus.GaugeVec
)

// initDaemonMetrics initializes all daemon subsystem metrics
func initDaemonMetrics() {
	ErrorsTotal = NewCounter(
		"emptybye_daemon_errors_total",
		"Total number of errors encountered by emptybye.",
	)

	FreeSpacePercent = NewGaugeVec(
		"emptybye_daemon_free_space_percent",
		"Current free space percentage for scan roots.",
		[]string{"root"},
	)

	RootFreeBytes = NewGaugeVec(
		"emptybye_root_free_bytes",
		"Free space available on the filesystem containing this root.",
		[]string{"root"},
	)

	RootTotalBytes = NewGaugeVec(
		"emptybye_root_total_bytes",
		"Total capacity of the filesystem containing this root.",
		[]string{"root"},
	)
}

// registerDaemonMetrics registers all daemon metrics with Prometheus
func registerDaemonMetrics() {
	prometheus.MustRegister(ErrorsTotal)
	prometheus.MustRegister(FreeSpacePercent)
	prometheus.MustRegister(RootFreeBytes)
	prometheus.MustRegister(RootTotalBytes)
}

// UpdateRootDiskMetrics sets the free-space gauges for a scan root
func UpdateRootDiskMetrics(root string, usedPercent float64, freeBytes, totalBytes int64) {
	FreeSpacePercent.WithLabelValues(root).Set(100.0 - usedPercent)
	RootFreeBytes.WithLabelValues(root).Set(float64(freeBytes))
	RootTotalBytes.WithLabelValues(root).Set(float64(totalBytes))
}
