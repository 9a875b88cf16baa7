// Package identification answers the two questions asked about every new
// item before parsing: what format is this file, and what target does it
// belong to.
//
// Format detection prefers content magic over file extensions. Target names
// are canonicalized (case folding, diacritic stripping, greek-letter
// expansion) so the same star keys the same library folder and cache entries
// no matter how an archive or a filename spells it.
package identification
