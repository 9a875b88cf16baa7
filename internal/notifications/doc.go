// Package notifications delivers workflow events via ntfy push messages.
// When no topic is configured the service gracefully degrades to a no-op,
// so callers never need to nil-check. Repeated identical events inside the
// configured dedup window are suppressed to keep noisy queues quiet.
package notifications
