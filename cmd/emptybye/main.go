package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"emptybye/internal/config"
	"emptybye/internal/database"
	"emptybye/internal/exitcodes"
	"emptybye/internal/logging"
	"emptybye/internal/metrics"
	"emptybye/internal/scan"
	"emptybye/internal/scheduler"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "", "Path to configuration file")
	dryRun := flag.Bool("dry-run", false, "Report what would be removed without removing anything")
	followSymlinks := flag.Bool("follow-symlinks", false, "Treat symlinks to empty directories as non-content (one-shot mode)")
	once := flag.Bool("once", false, "Run one cycle and exit (no loop)")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	flag.Usage = usage
	flag.Parse()

	root := flag.Arg(0)
	if root == "" && *configPath == "" {
		usage()
		os.Exit(exitcodes.InvalidInput)
	}

	opts := scheduler.Options{DryRun: *dryRun, Verbose: *verbose}

	// One-shot mode: a root on the command line, no config file, no daemon
	if root != "" {
		logger := logging.New()
		if *dryRun {
			logger.Println("DRY RUN MODE: No directories will be removed")
		}

		cfg, err := config.FromRoot(root, *followSymlinks)
		if err != nil {
			logger.Printf("ERROR: Invalid root: %v", err)
			os.Exit(exitcodes.InvalidInput)
		}

		metrics.Init()
		if err := scheduler.RunOnce(context.Background(), cfg, opts, logger); err != nil {
			if errors.Is(err, scan.ErrRootMissing) || errors.Is(err, scan.ErrRootNotDir) {
				logger.Printf("ERROR: %v", err)
				os.Exit(exitcodes.InvalidInput)
			}
			logger.Printf("ERROR: Reclamation failed: %v", err)
			os.Exit(exitcodes.RuntimeError)
		}
		return
	}

	// Daemon mode
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Failed to load config: %v\n", err)
		os.Exit(exitcodes.InvalidInput)
	}

	logger := logging.NewWithConfig(cfg)
	logger.Println("EmptyBye Daemon Starting...")
	logger.Printf("Config file: %s", *configPath)
	if *dryRun {
		logger.Println("DRY RUN MODE: No directories will be removed")
	}

	// Initialize metrics (Prometheus)
	metrics.Init()
	metrics.SetHealthChecker(metrics.NewHealthChecker(3 * cfg.Interval()))
	if cfg.Prometheus.Port > 0 {
		addr := cfg.PrometheusAddress()
		logger.Printf("Starting Prometheus metrics on %s", addr)
		metrics.StartServer(addr, logger)
	}

	// Initialize database for removal history
	var db *database.RemovalDB
	if cfg.DatabasePath != "" {
		logger.Printf("Opening removal database: %s", cfg.DatabasePath)
		db, err = database.NewRemovalDB(cfg.DatabasePath)
		if err != nil {
			logger.Printf("ERROR: Failed to open database: %v", err)
			os.Exit(exitcodes.RuntimeError)
		}
		defer func() {
			if err := db.Close(); err != nil {
				logger.Printf("ERROR: Failed to close database: %v", err)
			}
		}()
		if hc := metrics.GetHealthChecker(); hc != nil {
			hc.Report("database", true)
		}
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	logger.Println("Starting reclamation scheduler...")
	if *once {
		if err := scheduler.RunOnceWithDB(ctx, cfg, opts, logger, db); err != nil {
			logger.Printf("ERROR: Reclamation failed: %v", err)
			os.Exit(exitcodes.RuntimeError)
		}
		logger.Println("Reclamation completed successfully")
	} else {
		if err := scheduler.RunWithDB(ctx, cfg, opts, logger, db); err != nil && err != context.Canceled {
			logger.Printf("ERROR: Scheduler failed: %v", err)
			os.Exit(exitcodes.RuntimeError)
		}
	}

	logger.Println("EmptyBye Daemon stopped")
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: emptybye [flags] [directory]\n\n")
	fmt.Fprintf(os.Stderr, "Find and remove empty directories, cascading upward as parents empty out.\n")
	fmt.Fprintf(os.Stderr, "Give a directory for a one-shot run, or -config for daemon mode.\n\n")
	flag.PrintDefaults()
}
