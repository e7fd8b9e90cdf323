// Package importer runs the import pipeline that moves uploaded PS2 disc
// images onto an OPL-style target.
//
// A job walks a fixed sequence of states: initializing, validating_target,
// ensuring_structure, validating_files, checking_space, importing,
// completed, with failed reachable from every step. Files are staged into
// an isolated temporary directory first, each one resolved to a canonical
// game identifier and a CD/DVD destination, then copied in order with the
// free-space check repeated before every single copy — removable media
// loses space to other writers while a batch runs, and it is cheaper to
// stop before a doomed copy than to clean up after one.
//
// There is no rollback: files committed before a mid-batch failure stay on
// the target and are reported as imported. Each committed copy is journaled
// into the target manifest immediately afterwards. The staging directory is
// removed on every exit path.
package importer
