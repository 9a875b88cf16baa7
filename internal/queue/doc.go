// Package queue persists ingest items in SQLite and models their lifecycle
// from arrival through identification, parsing, normalization, and export.
// The store is the single writer surface; workflow, IPC, and CLI all go
// through it.
package queue
