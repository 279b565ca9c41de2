// Package orchestrator runs the serving tier as a single unit.
//
// The manager binds every listener before serving any of them, starts the
// refresher, and joins the listeners so that the first one to fail stops the
// rest. A cancelled context shuts everything down gracefully.
package orchestrator
