package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateCanonical(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateFetch(); err != nil {
		return err
	}
	return nil
}

// validateCanonical checks the fuzzy threshold range. Fuzzy matching with
// no catalog configured is allowed and degrades to normalized identity.
func (c *Config) validateCanonical() error {
	if c.Canonical.FuzzyThreshold < 0 || c.Canonical.FuzzyThreshold > 1 {
		return errors.New("canonical.fuzzy_threshold must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositiveMap(map[string]int{
		"workflow.poll_interval":        c.Workflow.PollInterval,
		"workflow.error_retry_interval": c.Workflow.ErrorRetryInterval,
		"workflow.workers":              c.Workflow.Workers,
	}); err != nil {
		return err
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		return errors.New("workflow.heartbeat_interval must be positive")
	}
	if c.Workflow.LeaseTimeout <= 0 {
		return errors.New("workflow.lease_timeout must be positive")
	}
	if c.Workflow.LeaseTimeout <= c.Workflow.HeartbeatInterval {
		return errors.New("workflow.lease_timeout must be greater than workflow.heartbeat_interval")
	}
	return nil
}

func (c *Config) validateFetch() error {
	if c.Fetch.TimeoutSeconds <= 0 {
		return errors.New("fetch.timeout_seconds must be positive")
	}
	if c.Fetch.RequestsPerMinute <= 0 {
		return errors.New("fetch.requests_per_minute must be positive")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
