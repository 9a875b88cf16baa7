// Package logging wraps log/slog with the conventions the daemon and CLI
// share: standardized field names, component loggers, context-derived
// attributes, a human console handler, and log retention cleanup.
//
// Loggers are constructed once at process start from configuration and passed
// down; packages never reach for a global logger. A nil logger is always safe
// to hand to helpers here, which substitute a no-op logger.
package logging
