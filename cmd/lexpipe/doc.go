// Package main hosts the lexpipe CLI entrypoint and command graph.
//
// The Cobra-based command tree covers decision registration, one-shot and
// daemon pipeline execution, queue inspection, failed-document retry, and
// standalone title canonicalization. It centralizes configuration resolution
// and structured logging setup so subcommands can focus on user experience
// instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
