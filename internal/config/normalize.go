package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeFetch()
	c.normalizeExtraction()
	c.normalizeCanonical()
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.AliasMapPath) == "" {
		// The conventional location is only adopted when a curated map is
		// actually there; a fresh install runs with an empty alias map
		// instead of failing on a file it never created. An explicitly
		// configured path that is missing still fails at load time.
		expanded, err := expandPath(defaultAliasMapPath)
		if err != nil {
			return fmt.Errorf("paths.alias_map_path: %w", err)
		}
		if _, statErr := os.Stat(expanded); statErr == nil {
			c.Paths.AliasMapPath = expanded
		} else {
			c.Paths.AliasMapPath = ""
		}
	} else if c.Paths.AliasMapPath, err = expandPath(c.Paths.AliasMapPath); err != nil {
		return fmt.Errorf("paths.alias_map_path: %w", err)
	}
	if strings.TrimSpace(c.Paths.CatalogPath) != "" {
		if c.Paths.CatalogPath, err = expandPath(c.Paths.CatalogPath); err != nil {
			return fmt.Errorf("paths.catalog_path: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeFetch() {
	c.Fetch.UserAgent = strings.TrimSpace(c.Fetch.UserAgent)
	if c.Fetch.UserAgent == "" {
		c.Fetch.UserAgent = defaultFetchUserAgent
	}
	if c.Fetch.TimeoutSeconds <= 0 {
		c.Fetch.TimeoutSeconds = defaultFetchTimeout
	}
	if c.Fetch.RequestsPerMinute <= 0 {
		c.Fetch.RequestsPerMinute = defaultFetchRequestsPerMin
	}
}

func (c *Config) normalizeExtraction() {
	c.Extraction.BaseURL = strings.TrimSpace(c.Extraction.BaseURL)
	if c.Extraction.BaseURL == "" {
		c.Extraction.BaseURL = defaultExtractionBaseURL
	}
	c.Extraction.Model = strings.TrimSpace(c.Extraction.Model)
	if c.Extraction.Model == "" {
		c.Extraction.Model = defaultExtractionModel
	}
	if c.Extraction.TimeoutSeconds <= 0 {
		c.Extraction.TimeoutSeconds = defaultExtractionTimeout
	}
	c.Extraction.APIKey = strings.TrimSpace(c.Extraction.APIKey)
	if c.Extraction.APIKey == "" {
		if value, ok := os.LookupEnv("LEXPIPE_EXTRACTION_API_KEY"); ok {
			c.Extraction.APIKey = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("OPENROUTER_API_KEY"); ok {
			c.Extraction.APIKey = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeCanonical() {
	if c.Canonical.FuzzyThreshold <= 0 {
		c.Canonical.FuzzyThreshold = defaultFuzzyThreshold
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.PollInterval <= 0 {
		c.Workflow.PollInterval = defaultPollInterval
	}
	if c.Workflow.ErrorRetryInterval <= 0 {
		c.Workflow.ErrorRetryInterval = defaultErrorRetryInterval
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		c.Workflow.HeartbeatInterval = defaultHeartbeatInterval
	}
	if c.Workflow.LeaseTimeout <= 0 {
		c.Workflow.LeaseTimeout = defaultLeaseTimeout
	}
	if c.Workflow.StageDelaySeconds < 0 {
		c.Workflow.StageDelaySeconds = defaultStageDelaySeconds
	}
	if c.Workflow.DocumentDelaySeconds < 0 {
		c.Workflow.DocumentDelaySeconds = defaultDocumentDelaySeconds
	}
	if c.Workflow.Workers <= 0 {
		c.Workflow.Workers = defaultWorkers
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
