// Package ipac reads and writes the IPAC ASCII table format used by the
// Montage toolkit for its image lists, overlap lists and fit tables.
//
// A table is a block of header lines followed by fixed-width data rows:
//
//	\fixlen = T
//	\ free-form comment
//	|  cntr|          fname|
//	|   int|           char|
//	      0  2mass-a001.fits
//
// Lines starting with a backslash carry keywords (`\name = value`) or
// comments (`\ text`). The first line starting with a bar names the
// columns and fixes their boundaries; up to three further bar lines carry
// types, units and null markers. Every data value lies strictly between
// the bar positions of its column.
package ipac
