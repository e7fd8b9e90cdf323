// Package config loads and validates the opldock TOML configuration. Path
// fields come back expanded and absolute; absent files fall back to
// defaults so the daemon runs usefully with zero configuration.
package config
