// Package http provides the three HTTP listeners of the graph-builder.
//
// The status listener serves orchestration endpoints:
//   - GET /liveness
//   - GET /readiness
//   - GET /metrics
//
// The primary listener serves the graph document to clients at
// {prefix}/v1/graph and {prefix}/graph. The public listener serves the
// secondary metadata document at {prefix}/graph-data and an update feed at
// {prefix}/graph-data/watch. Both client-facing listeners are traced and
// gzip-compressed; the status listener is neither.
package http
