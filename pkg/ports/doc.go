// Package ports declares the interfaces shared between the application layer
// and the adapters: the event bus used for graph update notifications and the
// document store the refresh pipeline reads upstream documents from.
package ports
