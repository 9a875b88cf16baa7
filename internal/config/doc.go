// Package config loads, validates, and normalizes the TOML configuration
// shared by the spectra daemon and CLI.
//
// Load resolves the config file (explicit path, then the default location),
// overlays it on compiled defaults, expands tilde paths, and validates the
// result. Components receive the typed Config and never re-read files.
package config
