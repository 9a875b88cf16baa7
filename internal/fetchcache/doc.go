// Package fetchcache stores raw archive responses on disk so repeated
// fetches for the same target and query are served locally. Blobs are keyed
// by archive name plus query fingerprint; a JSON index carries metadata and
// drives size-based eviction.
package fetchcache
