// Package app wires the orchestrator into the two entry points the CLI
// exposes: resolving and ripping a list of user-supplied references, and
// running the search facade against one source.
package app
