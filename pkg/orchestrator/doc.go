// Package orchestrator wires the schema source → transformer → lint → form
// builder pipeline behind a single entry point.
package orchestrator
