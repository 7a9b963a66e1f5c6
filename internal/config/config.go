package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type PrometheusCfg struct {
	Port int `yaml:"port" json:"port"`
}

type LoggingCfg struct {
	RotationDays int `yaml:"rotation_days" json:"rotation_days"` // Days to keep logs before rotation
}

type ResourceLimits struct {
	MaxCPUPercent float64 `yaml:"max_cpu_percent" json:"max_cpu_percent"` // Maximum CPU usage (e.g., 10.0)
}

type Config struct {
	Roots           []string       `yaml:"roots" json:"roots"`                           // Directories scanned for reclaimable subtrees
	Exclude         []string       `yaml:"exclude" json:"exclude"`                       // Base-name glob patterns; matching subtrees are never scanned
	FollowSymlinks  bool           `yaml:"follow_symlinks" json:"follow_symlinks"`       // Treat dir symlinks to empty dirs as non-content
	MaxSymlinkDepth int            `yaml:"max_symlink_depth" json:"max_symlink_depth"`   // Recursion bound for the follow-symlinks emptiness check
	IntervalMinutes int            `yaml:"interval_minutes" json:"interval_minutes"`     // Daemon mode run interval
	Prometheus      PrometheusCfg  `yaml:"prometheus" json:"prometheus"`
	Logging         LoggingCfg     `yaml:"logging" json:"logging"`
	ResourceLimits  ResourceLimits `yaml:"resource_limits" json:"resource_limits"`
	NFSTimeout      int            `yaml:"nfs_timeout_seconds" json:"nfs_timeout_seconds"` // Timeout for NFS staleness probes
	DatabasePath    string         `yaml:"database_path" json:"database_path"`             // Path to SQLite database for removal history
	ProtectedPaths  []string       `yaml:"protected_paths" json:"protected_paths"`         // Extra paths the safety validator must never touch

	// SourcePath records the file this config was loaded from, for reloads
	SourcePath string `yaml:"-" json:"-"`
}

var (
	errNoRoots         = errors.New("configuration must specify at least one root")
	errInvalidPath     = errors.New("path must be absolute")
	errInvalidPattern  = errors.New("invalid exclude pattern")
	errInvalidInterval = errors.New("interval_minutes must be positive")
)

func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg, err := decode(f)
	if err != nil {
		return nil, err
	}
	if err := cfg.validateAndDefault(); err != nil {
		return nil, err
	}
	cfg.SourcePath = path
	return cfg, nil
}

// FromRoot builds a one-shot configuration for a single root given on the
// command line, bypassing the config file entirely.
func FromRoot(root string, followSymlinks bool) (*Config, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errInvalidPath, root)
	}
	cfg := &Config{
		Roots:          []string{abs},
		FollowSymlinks: followSymlinks,
	}
	if err := cfg.validateAndDefault(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(r io.Reader) (*Config, error) {
	cfg := &Config{}
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return cfg, nil
}

func (c *Config) validateAndDefault() error {
	if len(c.Roots) == 0 {
		return errNoRoots
	}

	if c.IntervalMinutes < 0 {
		return errInvalidInterval
	}
	if c.IntervalMinutes == 0 {
		c.IntervalMinutes = 60
	}

	if c.Prometheus.Port == 0 {
		c.Prometheus.Port = 9090
	}

	if c.Logging.RotationDays <= 0 {
		c.Logging.RotationDays = 30 // Default: keep logs for 30 days
	}

	if c.ResourceLimits.MaxCPUPercent <= 0 {
		c.ResourceLimits.MaxCPUPercent = 10.0 // Default: 10% CPU limit
	}

	if c.MaxSymlinkDepth <= 0 {
		c.MaxSymlinkDepth = 40
	}

	if c.NFSTimeout <= 0 {
		c.NFSTimeout = 5 // Default: 5 seconds timeout for NFS probes
	}

	if c.DatabasePath == "" {
		c.DatabasePath = "/var/lib/emptybye/removals.db"
	}

	// Exclude patterns are matched with filepath.Match; reject patterns
	// that can never compile rather than failing mid-scan.
	for _, pattern := range c.Exclude {
		if _, err := filepath.Match(pattern, "probe"); err != nil {
			return fmt.Errorf("%w: %s", errInvalidPattern, pattern)
		}
	}

	cleaned := make([]string, 0, len(c.Roots))
	for _, p := range c.Roots {
		cp, err := cleanAbsolute(p)
		if err != nil {
			return err
		}
		cleaned = append(cleaned, cp)
	}
	c.Roots = cleaned

	return nil
}

func cleanAbsolute(p string) (string, error) {
	if p == "" {
		return "", errInvalidPath
	}
	cp := filepath.Clean(p)
	if !filepath.IsAbs(cp) {
		return "", fmt.Errorf("%w: %s", errInvalidPath, p)
	}
	return cp, nil
}

func (c *Config) Interval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}

func (c *Config) PrometheusAddress() string {
	return fmt.Sprintf(":%d", c.Prometheus.Port)
}

func (c *Config) NFSProbeTimeout() time.Duration {
	return time.Duration(c.NFSTimeout) * time.Second
}
