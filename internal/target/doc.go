// Package target wraps the filesystem surface of an OPL-style USB target:
// path resolution, access validation, the fixed required folder set, free
// space queries, and the safety-buffer arithmetic used before and during
// imports. Free space on removable FAT media drifts while a copy runs, so
// the buffer is deliberately static and generous rather than block-size
// accurate.
package target
