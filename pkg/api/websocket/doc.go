// Package websocket streams graph update events to clients of the public
// listener.
package websocket
