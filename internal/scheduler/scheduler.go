package scheduler

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"emptybye/internal/config"
	"emptybye/internal/database"
	"emptybye/internal/disk"
	"emptybye/internal/limiter"
	"emptybye/internal/metrics"
	"emptybye/internal/reclaim"
	"emptybye/internal/safety"
	"emptybye/internal/scan"
)

// Options carries per-invocation behavior flags
type Options struct {
	DryRun  bool
	Verbose bool
}

func RunOnce(ctx context.Context, cfg *config.Config, opts Options, logger *log.Logger) error {
	return RunOnceWithDB(ctx, cfg, opts, logger, nil)
}

// RunOnceWithDB performs one full cycle: disk gauges, scan and reclaim for
// every configured root. Per-root failures are logged and the cycle
// continues with the remaining roots.
func RunOnceWithDB(ctx context.Context, cfg *config.Config, opts Options, logger *log.Logger, db *database.RemovalDB) error {
	if logger == nil {
		logger = log.Default()
	}
	if cfg == nil {
		return errors.New("nil config")
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	// Initialize CPU limiter if configured
	var cpuLimiter *limiter.CPULimiter
	if cfg.ResourceLimits.MaxCPUPercent > 0 {
		cpuLimiter = limiter.NewCPULimiter(cfg.ResourceLimits.MaxCPUPercent)
	}

	start := time.Now()
	metrics.RecordRun()
	updateRootDiskMetrics(cfg, logger)

	validator := safety.NewValidator(cfg.Roots, cfg.ProtectedPaths)

	var firstErr error
	totalRemoved := 0
	totalCandidates := 0

	for _, root := range cfg.Roots {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		// Skip stale NFS roots - log but don't fail
		if cfg.NFSTimeout > 0 && disk.IsNFSStale(root, cfg.NFSProbeTimeout()) {
			logger.Printf("skipping stale NFS root %s", root)
			continue
		}

		scanner := scan.NewScanner(logger, cfg, opts.Verbose)
		if cpuLimiter != nil {
			scanner.SetThrottle(cpuLimiter.Throttle)
		}

		scanStart := time.Now()
		candidates, err := scanner.Scan(root)
		if err != nil {
			logger.Printf("scan failed for root %s: %v", root, err)
			metrics.ErrorsTotal.Inc()
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		metrics.ScanDuration.Observe(time.Since(scanStart).Seconds())
		totalCandidates += len(candidates)

		reclaimer := reclaim.NewReclaimer(logger, nil, opts.DryRun, db)
		reclaimer.SetValidator(validator)
		reclaimer.SetSymlinkPolicy(cfg.FollowSymlinks, cfg.MaxSymlinkDepth)
		if cpuLimiter != nil {
			reclaimer.SetThrottle(cpuLimiter.Throttle)
		}

		report := reclaimer.Reclaim(root, candidates)
		metrics.ReclaimDuration.Observe(report.Elapsed.Seconds())
		totalRemoved += report.RemovedCount
	}

	metrics.CandidatesFound.Set(float64(totalCandidates))

	if hc := metrics.GetHealthChecker(); hc != nil {
		hc.Report("scheduler", firstErr == nil)
	}

	elapsed := time.Since(start)
	logger.Printf("cycle complete: roots=%d candidates=%d removed=%d dry_run=%v duration=%.3fs",
		len(cfg.Roots), totalCandidates, totalRemoved, opts.DryRun, elapsed.Seconds())
	return firstErr
}

func Run(ctx context.Context, cfg *config.Config, opts Options, logger *log.Logger) error {
	return RunWithDB(ctx, cfg, opts, logger, nil)
}

// RunWithDB runs cycles on the configured interval until the context is
// canceled. SIGUSR1 (or POST /trigger) forces an immediate cycle; SIGHUP
// (or POST /reload) reloads the configuration from disk.
func RunWithDB(ctx context.Context, cfg *config.Config, opts Options, logger *log.Logger, db *database.RemovalDB) error {
	if logger == nil {
		logger = log.Default()
	}
	if cfg == nil {
		return errors.New("nil config")
	}

	trigger := make(chan os.Signal, 1)
	signal.Notify(trigger, syscall.SIGUSR1)
	metrics.SetTriggerChannel(trigger)

	reload := make(chan os.Signal, 1)
	signal.Notify(reload, syscall.SIGHUP)
	metrics.SetReloadChannel(reload)

	configPath := cfg.SourcePath

	if err := RunOnceWithDB(ctx, cfg, opts, logger, db); err != nil {
		logger.Printf("error running cycle: %v", err)
	}

	ticker := time.NewTicker(cfg.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Println("scheduler shutting down")
			return ctx.Err()
		case <-trigger:
			logger.Println("reclamation cycle triggered")
			if err := RunOnceWithDB(ctx, cfg, opts, logger, db); err != nil {
				logger.Printf("error running cycle: %v", err)
			}
		case <-reload:
			if configPath == "" {
				logger.Println("reload requested but no config file in use")
				continue
			}
			fresh, err := config.Load(configPath)
			if err != nil {
				logger.Printf("config reload failed, keeping previous config: %v", err)
				metrics.ErrorsTotal.Inc()
				continue
			}
			cfg = fresh
			ticker.Reset(cfg.Interval())
			logger.Printf("config reloaded from %s", configPath)
		case <-ticker.C:
			if err := RunOnceWithDB(ctx, cfg, opts, logger, db); err != nil {
				logger.Printf("error running cycle: %v", err)
			}
		}
	}
}

// updateRootDiskMetrics refreshes the free-space gauges for all scan roots
func updateRootDiskMetrics(cfg *config.Config, logger *log.Logger) {
	for _, root := range cfg.Roots {
		usedPercent, freeBytes, totalBytes, err := disk.Usage(root)
		if err != nil {
			logger.Printf("failed to read disk usage for %s: %v", root, err)
			continue
		}
		metrics.UpdateRootDiskMetrics(root, usedPercent, freeBytes, totalBytes)
	}
}
