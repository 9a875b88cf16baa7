// Package api defines wire-format types and converters for the IPC and HTTP
// API layer. It translates internal queue models into transport-friendly DTOs
// so external consumers never couple to internal types.
//
// DTOs use camelCase JSON tags. Internal enums (queue.Status, processing
// lanes) are exposed as lowercase strings. Timestamps use RFC3339 with
// milliseconds. Archive queries and item metadata pass through as
// json.RawMessage to avoid double-encoding.
package api
