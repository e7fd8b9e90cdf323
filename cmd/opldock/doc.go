// Package main hosts the opldock CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into the same
// services the daemon serves over HTTP: target validation, ISO imports,
// library scans and removals, game-ID resolution, device listing, and
// configuration scaffolding. It centralizes configuration resolution and
// structured logging setup so subcommands can focus on user experience
// instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
