// Package jcamp parses JCAMP-DX spectral files: labelled data records,
// XYPOINTS tables, and XYDATA blocks in (X++(Y..Y)) form with AFFN, SQZ,
// DIF, and DUP encodings. Compound and NTUPLES files are out of scope; the
// first data block wins.
package jcamp
