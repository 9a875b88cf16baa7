// Package services defines the shared error taxonomy and context annotations
// used across workflow stages and archive clients.
//
// Stage and client failures are wrapped with one of the exported sentinel
// errors so the workflow manager can decide whether an item should land in
// review (operator input needed) or failed (retryable). Context helpers carry
// the queue item, stage, lane, and request correlation identifiers so loggers
// can attach them uniformly.
package services
