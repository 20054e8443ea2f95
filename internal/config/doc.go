// Package config loads, normalizes, and validates lexpipe configuration
// from TOML files. A Config is constructed once at process start and passed
// explicitly to the components that need it; there is no ambient global.
package config
