// Package main hosts the curator CLI entrypoint and command graph.
//
// The Cobra-based command tree drives the pipeline end to end: scan
// hashes the staging tree, analyze groups duplicates and ranks them,
// decide records keep/remove resolutions (automatic, interactive, or
// from a decision file), and consolidate applies them to build the
// final library. It centralizes configuration resolution, the run lock,
// and structured logging setup so subcommands can focus on user
// experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the
// internal packages first, then surface it through dedicated commands
// or flags here.
package main
