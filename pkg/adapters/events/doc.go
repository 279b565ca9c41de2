// Package events provides event bus implementations for graph update
// notifications.
//
// Implementations:
//   - redis: Redis Streams, every subscriber sees every event
//   - memory: In-process fan-out
package events
