// Package asciitab parses two-column text spectra: whitespace, comma, tab,
// or semicolon delimited, with optional comment lines and header rows. Unit
// hints found in comments or column headers are surfaced but not converted;
// unit handling belongs to the caller.
package asciitab
