// Package provenance records where every overlay trace came from: the source
// (local file or archive service), the query parameters, units before and
// after normalization, and timestamps.
//
// A Manifest lives per target under the library directory and is merged on
// every export with last-write-wins semantics keyed by each trace's
// RecordedAt timestamp. There is no versioning or conflict resolution beyond
// that timestamp.
package provenance
