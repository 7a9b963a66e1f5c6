package scan

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"emptybye/internal/config"
)

// Logger interface for structured logging
type Logger interface {
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Debug(msg string, args ...interface{})
}

// stdLogger wraps standard log.Logger to implement Logger interface
type stdLogger struct {
	*log.Logger
	verbose bool
}

func (l *stdLogger) Info(msg string, args ...interface{}) {
	l.logWithLevel("INFO", msg, args...)
}

func (l *stdLogger) Warn(msg string, args ...interface{}) {
	l.logWithLevel("WARN", msg, args...)
}

func (l *stdLogger) Debug(msg string, args ...interface{}) {
	if !l.verbose {
		return
	}
	l.logWithLevel("DEBUG", msg, args...)
}

func (l *stdLogger) logWithLevel(level, msg string, args ...interface{}) {
	// Format key-value pairs
	var parts []interface{}
	parts = append(parts, fmt.Sprintf("[%s]", level), msg)
	parts = append(parts, args...)
	l.Logger.Println(parts...)
}

var (
	ErrRootMissing = errors.New("root does not exist")
	ErrRootNotDir  = errors.New("root is not a directory")
)

// Candidate is a directory path queued for a removal attempt, not yet
// confirmed removable.
type Candidate struct {
	Path  string
	Depth int
}

// Depth counts path separators of the cleaned path. It is an ordering
// heuristic only; correctness comes from the pre-removal recheck.
func Depth(path string) int {
	return strings.Count(filepath.Clean(path), string(os.PathSeparator))
}

// Scanner walks directory trees bottom-up and collects initially empty
// directories as removal candidates.
type Scanner struct {
	logger          Logger
	followSymlinks  bool
	maxSymlinkDepth int
	exclude         []string
	throttle        func()
}

// NewScanner creates a Scanner taking its symlink policy and exclude
// patterns from cfg.
func NewScanner(logger *log.Logger, cfg *config.Config, verbose bool) *Scanner {
	if logger == nil {
		logger = log.Default()
	}
	s := &Scanner{
		logger: &stdLogger{Logger: logger, verbose: verbose},
	}
	if cfg != nil {
		s.followSymlinks = cfg.FollowSymlinks
		s.maxSymlinkDepth = cfg.MaxSymlinkDepth
		s.exclude = cfg.Exclude
	}
	return s
}

// SetThrottle installs a hook invoked periodically during the walk,
// used to bound CPU usage on large trees.
func (s *Scanner) SetThrottle(throttle func()) {
	s.throttle = throttle
}

// Scan walks the subtree under root bottom-up and returns every directory
// except root itself that is currently empty under the configured symlink
// policy. Root validation failures are fatal; unreadable subtrees are
// logged, skipped and never become candidates.
func (s *Scanner) Scan(root string) ([]Candidate, error) {
	root = filepath.Clean(root)

	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRootMissing, root)
		}
		return nil, fmt.Errorf("stat root %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrRootNotDir, root)
	}

	// filepath.WalkDir visits in lexical pre-order, so every ancestor
	// appears before its descendants; walking the collected list in
	// reverse yields the bottom-up order the classification wants.
	var dirs []string
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			// Contents unknown: conservatively exclude the subtree
			s.logger.Warn("Skipping unreadable subtree", "path", path, "error", err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && s.excluded(filepath.Base(path)) {
			s.logger.Debug("Excluded by pattern", "path", path)
			return filepath.SkipDir
		}
		if path != root {
			dirs = append(dirs, path)
		}
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("walk %s: %w", root, walkErr)
	}

	candidates := make([]Candidate, 0)
	for i := len(dirs) - 1; i >= 0; i-- {
		if s.throttle != nil {
			s.throttle()
		}
		path := dirs[i]
		verdict, err := CheckEmptyDepth(path, s.followSymlinks, s.maxSymlinkDepth)
		switch verdict {
		case Empty:
			candidates = append(candidates, Candidate{Path: path, Depth: Depth(path)})
			s.logger.Debug("Empty directory found", "path", path)
		case Unreadable:
			s.logger.Warn("Cannot classify directory", "path", path, "error", err)
		}
	}

	s.logger.Info("Scan complete", "root", root, "dirs_visited", len(dirs), "candidates", len(candidates))
	return candidates, nil
}

func (s *Scanner) excluded(name string) bool {
	for _, pattern := range s.exclude {
		matched, err := filepath.Match(pattern, name)
		if err != nil {
			s.logger.Warn("Invalid exclude pattern", "pattern", pattern, "error", err)
			continue
		}
		if matched {
			return true
		}
	}
	return false
}
