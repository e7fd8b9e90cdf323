// Package gameid derives the canonical PS2 title identifier (LLLL_NNN.NN)
// for incoming disc images.
//
// Resolution runs an ordered strategy chain with a fixed priority: an ID
// embedded at the start of the source filename, an ID read from the disc
// image's SYSTEM.CNF, a prior association in the target's manifest, and
// finally deterministic generation from a seed string. The first strategy
// that produces an ID wins. The disc strategy only participates when the
// caller has a staged image on local disk, which in practice means the
// import pipeline; art and manifest operations skip straight past it.
package gameid
