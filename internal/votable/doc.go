// Package votable decodes the slice of VOTable XML that TAP services
// return: FIELD declarations plus TABLEDATA rows from the first TABLE.
// Binary serializations and multi-resource documents are not supported.
package votable
