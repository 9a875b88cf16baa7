// Package archives defines the shared surface of the reference archive
// clients: the fetched product type and the fetcher interface the workflow
// drives. Per-archive clients live in the subpackages mast, simbad, sdss,
// eso, and nist.
package archives
