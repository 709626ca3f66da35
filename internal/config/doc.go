// Package config loads, validates, and normalizes the TOML configuration
// that drives the voice-replacement pipeline. Provider credentials are
// optional: an absent key routes the affected stage onto its degraded
// fallback path rather than failing configuration load.
package config
