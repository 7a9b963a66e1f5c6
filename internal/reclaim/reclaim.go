package reclaim

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"emptybye/internal/database"
	"emptybye/internal/fsops"
	"emptybye/internal/metrics"
	"emptybye/internal/safety"
	"emptybye/internal/scan"

	"github.com/prometheus/client_golang/prometheus"
)

// Logger interface for structured logging in reclaim
type Logger interface {
	Info(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// reclaimStdLogger wraps standard log.Logger to implement Logger interface
type reclaimStdLogger struct {
	*log.Logger
}

func (l *reclaimStdLogger) Info(msg string, args ...interface{}) {
	l.logWithLevel("INFO", msg, args...)
}

func (l *reclaimStdLogger) Error(msg string, args ...interface{}) {
	l.logWithLevel("ERROR", msg, args...)
}

func (l *reclaimStdLogger) logWithLevel(level, msg string, args ...interface{}) {
	// Format key-value pairs
	var parts []interface{}
	parts = append(parts, fmt.Sprintf("[%s]", level), msg)
	parts = append(parts, args...)
	l.Logger.Println(parts...)
}

// Metrics interface for reclaim metrics
type Metrics interface {
	DirsRemovedTotal() prometheus.Counter
	DirsSkippedTotal() prometheus.Counter
	ErrorsTotal() prometheus.Counter
}

// reclaimMetrics wraps global metrics to implement Metrics interface
type reclaimMetrics struct{}

func (m *reclaimMetrics) DirsRemovedTotal() prometheus.Counter {
	return metrics.DirsRemovedTotal
}

func (m *reclaimMetrics) DirsSkippedTotal() prometheus.Counter {
	return metrics.DirsSkippedTotal
}

func (m *reclaimMetrics) ErrorsTotal() prometheus.Counter {
	return metrics.ErrorsTotal
}

// Report summarizes one reclamation run over a single root.
type Report struct {
	Removed      []string
	RemovedCount int
	SkippedCount int
	ErrorCount   int
	Elapsed      time.Duration
}

// Reclaimer drains a candidate set to its fixpoint: it re-verifies each
// directory's emptiness immediately before removal, removes it, and
// enqueues the parent for a further attempt. The run terminates when no
// candidate remains; the removed set guarantees no path is attempted twice.
type Reclaimer struct {
	logger          Logger
	metrics         Metrics
	deleter         fsops.Deleter
	validator       *safety.Validator
	db              *database.RemovalDB
	logFile         *os.File // Optional file for structured logging
	dryRun          bool
	followSymlinks  bool
	maxSymlinkDepth int
	throttle        func()
}

// NewReclaimer creates a Reclaimer. db may be nil when no removal history
// is being recorded.
func NewReclaimer(logger *log.Logger, logFile *os.File, dryRun bool, db *database.RemovalDB) *Reclaimer {
	reclaimLogger := &reclaimStdLogger{Logger: logger}
	if logger == nil {
		reclaimLogger.Logger = log.Default()
	}
	return &Reclaimer{
		logger:          reclaimLogger,
		metrics:         &reclaimMetrics{},
		deleter:         fsops.OSDeleter{},
		db:              db,
		logFile:         logFile,
		dryRun:          dryRun,
		maxSymlinkDepth: scan.DefaultMaxSymlinkDepth,
	}
}

// SetDeleter replaces the filesystem deleter (used in tests)
func (r *Reclaimer) SetDeleter(d fsops.Deleter) {
	r.deleter = d
}

// SetValidator installs the safety validator consulted before every removal
func (r *Reclaimer) SetValidator(v *safety.Validator) {
	r.validator = v
}

// SetSymlinkPolicy configures the recheck to mirror the scanner's policy
func (r *Reclaimer) SetSymlinkPolicy(follow bool, maxDepth int) {
	r.followSymlinks = follow
	if maxDepth > 0 {
		r.maxSymlinkDepth = maxDepth
	}
}

// SetThrottle installs a hook invoked between removal attempts
func (r *Reclaimer) SetThrottle(throttle func()) {
	r.throttle = throttle
}

// Reclaim processes candidates deepest-first and cascades upward until the
// fixpoint. root itself is never removed; per-directory failures are
// logged and skipped, never fatal.
func (r *Reclaimer) Reclaim(root string, candidates []scan.Candidate) *Report {
	start := time.Now()
	root = filepath.Clean(root)

	report := &Report{Removed: make([]string, 0, len(candidates))}
	removed := make(map[string]struct{})

	queue := make([]scan.Candidate, len(candidates))
	copy(queue, candidates)

	r.logger.Info("Starting reclamation", "root", root, "candidates", len(queue), "dry_run", r.dryRun)

	for len(queue) > 0 {
		// Deepest first: a candidate's children are attempted before it,
		// so most rechecks of chained parents succeed on first try.
		sort.Slice(queue, func(i, j int) bool {
			return queue[i].Depth > queue[j].Depth
		})
		batch := queue
		queue = nil
		enqueued := make(map[string]struct{})

		for _, cand := range batch {
			if r.throttle != nil {
				r.throttle()
			}
			path := cand.Path
			if _, done := removed[path]; done {
				continue
			}

			if path == root {
				// The scan root is never eligible
				continue
			}
			if r.validator != nil {
				if err := r.validator.ValidateRemoveTarget(path); err != nil {
					r.logger.Error("Safety validator refused target", "path", path, "error", err)
					r.logStructured("SKIP", path, cand.Depth, "safety:"+err.Error())
					r.record("SKIP", path, cand.Depth, root, err.Error())
					r.metrics.DirsSkippedTotal().Inc()
					report.SkippedCount++
					continue
				}
			}

			// Mandatory recheck immediately before removal: a file created
			// since the scan must keep the directory on disk.
			verdict, verr := r.verdict(path, removed)
			switch verdict {
			case scan.NonEmpty:
				// Expected non-removal, not an error
				r.logger.Info("No longer empty, skipping", "path", path)
				r.record("SKIP", path, cand.Depth, root, "no_longer_empty")
				r.metrics.DirsSkippedTotal().Inc()
				report.SkippedCount++
				continue
			case scan.Unreadable:
				if errors.Is(verr, fs.ErrNotExist) {
					// Already gone (removed by another actor): no-op
					r.logger.Info("Directory already gone", "path", path)
					continue
				}
				r.logger.Error("Cannot recheck directory", "path", path, "error", verr)
				r.record("SKIP", path, cand.Depth, root, verr.Error())
				r.metrics.DirsSkippedTotal().Inc()
				report.SkippedCount++
				continue
			}

			action := "REMOVE"
			if r.dryRun {
				action = "DRY_RUN"
				r.logger.Info("[DRY RUN] Would remove empty directory", "path", path)
			} else {
				if err := r.removeDir(path); err != nil {
					if os.IsNotExist(err) {
						r.logger.Info("Directory already gone", "path", path)
						continue
					}
					r.logger.Error("Failed to remove", "path", path, "error", err)
					r.logStructured("ERROR", path, cand.Depth, err.Error())
					r.record("ERROR", path, cand.Depth, root, err.Error())
					r.metrics.ErrorsTotal().Inc()
					report.ErrorCount++
					continue
				}
			}

			removed[path] = struct{}{}
			report.Removed = append(report.Removed, path)
			report.RemovedCount++
			r.logStructured(action, path, cand.Depth, "")
			r.record(action, path, cand.Depth, root, "")
			r.metrics.DirsRemovedTotal().Inc()
			metrics.RecordRootRemoval(root)

			// Chain reaction: the parent may have just become empty
			parent := filepath.Dir(path)
			if parent == root || !underRoot(parent, root) {
				continue
			}
			if _, done := removed[parent]; done {
				continue
			}
			if _, queued := enqueued[parent]; queued {
				continue
			}
			if info, err := os.Stat(parent); err != nil || !info.IsDir() {
				continue
			}
			enqueued[parent] = struct{}{}
			queue = append(queue, scan.Candidate{Path: parent, Depth: scan.Depth(parent)})
		}
	}

	report.Elapsed = time.Since(start)
	r.logger.Info("Reclamation complete",
		"root", root,
		"removed", report.RemovedCount,
		"skipped", report.SkippedCount,
		"errors", report.ErrorCount,
		"elapsed", report.Elapsed.Round(time.Millisecond).String(),
	)
	return report
}

// removeDir removes a directory the recheck proved empty. Under the
// follow-symlinks policy the directory may still hold symlink entries the
// recheck classified as non-content; those links are unlinked first so
// rmdir can succeed. Their targets are separate paths and are never
// touched. A non-link entry that appeared since the recheck is left in
// place and makes the final rmdir fail.
func (r *Reclaimer) removeDir(path string) error {
	if r.followSymlinks {
		entries, err := os.ReadDir(path)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			if entry.Type()&fs.ModeSymlink == 0 {
				continue
			}
			if err := r.deleter.Remove(filepath.Join(path, entry.Name())); err != nil && !os.IsNotExist(err) {
				return err
			}
		}
	}
	return r.deleter.Remove(path)
}

// verdict rechecks a single directory. In dry-run mode entries that were
// hypothetically removed earlier in this run are discounted so the
// simulation explores the same cascade a real run would.
func (r *Reclaimer) verdict(path string, removed map[string]struct{}) (scan.Verdict, error) {
	if !r.dryRun {
		return scan.CheckEmptyDepth(path, r.followSymlinks, r.maxSymlinkDepth)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return scan.Unreadable, fmt.Errorf("list %s: %w", path, err)
	}
	for _, entry := range entries {
		full := filepath.Join(path, entry.Name())
		if _, gone := removed[full]; gone {
			continue
		}
		if !r.followSymlinks {
			return scan.NonEmpty, nil
		}
		if entry.Type()&fs.ModeSymlink == 0 {
			return scan.NonEmpty, nil
		}
		resolved, err := filepath.EvalSymlinks(full)
		if err != nil {
			return scan.NonEmpty, nil
		}
		info, err := os.Stat(resolved)
		if err != nil || !info.IsDir() {
			return scan.NonEmpty, nil
		}
		if v, _ := scan.CheckEmptyDepth(resolved, true, r.maxSymlinkDepth); v != scan.Empty {
			return scan.NonEmpty, nil
		}
	}
	return scan.Empty, nil
}

func (r *Reclaimer) record(action, path string, depth int, root, errMsg string) {
	if r.db == nil {
		return
	}
	if err := r.db.RecordRemoval(action, path, depth, root, errMsg); err != nil {
		// Don't fail the run if history recording fails
		r.logger.Error("Failed to record to database", "error", err)
	}
}

// logStructured logs with structured format: timestamp, action, path, depth, reason
func (r *Reclaimer) logStructured(action, path string, depth int, reason string) {
	logEntry := fmt.Sprintf("[%s] %s path=%s depth=%d",
		time.Now().UTC().Format(time.RFC3339),
		action,
		path,
		depth,
	)
	if reason != "" {
		escaped := strings.ReplaceAll(reason, `"`, `\"`)
		logEntry += fmt.Sprintf(` reason="%s"`, escaped)
	}

	if r.logFile != nil {
		r.logFile.WriteString(logEntry + "\n")
		r.logFile.Sync()
	}
	r.logger.Info(logEntry)
}

func underRoot(path, root string) bool {
	path = filepath.Clean(path)
	root = filepath.Clean(root)
	if path == root {
		return true
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(os.PathSeparator))
}
