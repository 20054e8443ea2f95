package testsupport

import (
	"path/filepath"
	"testing"

	"lexpipe/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.AliasMapPath = ""
	cfgVal.Paths.CatalogPath = ""
	cfgVal.Extraction.APIKey = "test"
	cfgVal.Workflow.PollInterval = 1
	cfgVal.Workflow.HeartbeatInterval = 1
	cfgVal.Workflow.LeaseTimeout = 5
	cfgVal.Workflow.StageDelaySeconds = 0
	cfgVal.Workflow.DocumentDelaySeconds = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithWorkers sets the daemon worker count on the test config.
func WithWorkers(workers int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Workflow.Workers = workers
	}
}

// WithLeaseTimeout sets the claim lease timeout in seconds.
func WithLeaseTimeout(seconds int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Workflow.LeaseTimeout = seconds
	}
}

// WithAliasMap points the config at an alias map fixture.
func WithAliasMap(path string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.AliasMapPath = path
	}
}

// WithFuzzyMatching toggles fuzzy canonical matching on the test config.
func WithFuzzyMatching(enabled bool, threshold float64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Canonical.FuzzyEnabled = enabled
		b.cfg.Canonical.FuzzyThreshold = threshold
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
