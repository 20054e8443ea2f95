package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and file location configuration.
type Paths struct {
	DataDir      string `toml:"data_dir"`
	LogDir       string `toml:"log_dir"`
	AliasMapPath string `toml:"alias_map_path"`
	CatalogPath  string `toml:"catalog_path"`
}

// Fetch contains configuration for the raw-content fetch capability.
type Fetch struct {
	UserAgent         string `toml:"user_agent"`
	TimeoutSeconds    int    `toml:"timeout_seconds"`
	RequestsPerMinute int    `toml:"requests_per_minute"`
}

// Extraction contains configuration for the third-party extraction service.
type Extraction struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Canonical contains configuration for entity canonicalization.
type Canonical struct {
	FuzzyEnabled   bool    `toml:"fuzzy_enabled"`
	FuzzyThreshold float64 `toml:"fuzzy_threshold"`
}

// Workflow contains timing and concurrency settings for pipeline processing.
type Workflow struct {
	PollInterval         int  `toml:"poll_interval"`
	ErrorRetryInterval   int  `toml:"error_retry_interval"`
	HeartbeatInterval    int  `toml:"heartbeat_interval"`
	LeaseTimeout         int  `toml:"lease_timeout"`
	StageDelaySeconds    int  `toml:"stage_delay_seconds"`
	DocumentDelaySeconds int  `toml:"document_delay_seconds"`
	Workers              int  `toml:"workers"`
	HaltOnError          bool `toml:"halt_on_error"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format         string            `toml:"format"`
	Level          string            `toml:"level"`
	StageOverrides map[string]string `toml:"stage_overrides"`
}

// Config encapsulates all configuration values for lexpipe.
//
// Configuration sections by subsystem:
//   - Paths: data directory, log directory, alias map and catalog files
//   - Fetch: raw-content fetch timeouts and pacing
//   - Extraction: third-party extraction service connection
//   - Canonical: fuzzy matching toggle and threshold
//   - Workflow: polling, lease, delay, and worker settings
//   - Logging: log format and level
type Config struct {
	Paths      Paths      `toml:"paths"`
	Fetch      Fetch      `toml:"fetch"`
	Extraction Extraction `toml:"extraction"`
	Canonical  Canonical  `toml:"canonical"`
	Workflow   Workflow   `toml:"workflow"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/lexpipe/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("lexpipe.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories lexpipe needs to operate.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the location of the document store database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "documents.db")
}

// LockPath returns the location of the daemon instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "lexpipe.lock")
}

// PollInterval returns the queue poll interval as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Workflow.PollInterval) * time.Second
}

// LeaseTimeout returns the claim lease duration after which stale
// processing documents become eligible for re-claim.
func (c *Config) LeaseTimeout() time.Duration {
	return time.Duration(c.Workflow.LeaseTimeout) * time.Second
}

// HeartbeatInterval returns how often in-flight workers refresh their lease.
func (c *Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.Workflow.HeartbeatInterval) * time.Second
}

// StageDelay returns the pause applied between stage invocations.
func (c *Config) StageDelay() time.Duration {
	return time.Duration(c.Workflow.StageDelaySeconds) * time.Second
}

// DocumentDelay returns the pause applied between documents in a run.
func (c *Config) DocumentDelay() time.Duration {
	return time.Duration(c.Workflow.DocumentDelaySeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
