// Package refresher runs the background loop that rebuilds the graph
// documents through the plugin chain and publishes them to the shared state.
package refresher
