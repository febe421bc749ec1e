// Package file provides a directory-per-namespace implementation of driven.IndexStore.
//
// An index is held in memory as a flat list of records and searched by
// brute-force cosine similarity. On disk each namespace directory holds:
//
//   - vectors.bin: "DPVX" magic, format version, dimensions, record count,
//     then little-endian float32 rows
//   - records.json: fingerprint, text and provenance per row, in row order
//   - meta.json: schema version and the index bookkeeping
//
// # Atomic Saves
//
// Save writes all three files into a sibling temp directory and swaps it in
// with renames (ns -> ns.old, tmp -> ns, then ns.old is removed). A crash
// between the renames leaves ns.old behind, which the next access recovers.
package file
