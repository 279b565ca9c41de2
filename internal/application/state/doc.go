// Package state holds the process-wide graph state shared between the
// refresher and the HTTP listeners.
//
// Every field is guarded by its own lock. Readers of one field never wait on
// a writer of another, and there is no transaction spanning fields: a reader
// may observe a new graph together with the previous metadata document.
package state
