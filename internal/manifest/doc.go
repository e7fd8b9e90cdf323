// Package manifest maintains the per-target game manifest, a flat JSON
// journal at CFG/game_manifest.json recording which source files were
// imported under which game ID and destination name.
//
// Reads are lenient: a missing, malformed, or wrongly shaped manifest is
// treated as empty so a corrupted file never blocks an import. Writes go
// through Save, which pretty-prints ASCII-escaped JSON so the file stays
// readable from OPL-adjacent tooling and text editors on the console side.
//
// The import path only appends or updates entries; Remove exists solely for
// the explicit delete-game operation.
package manifest
