// Package prometheus provides the process metrics registry, the startup gate
// asserting required metrics are registered, and the collector holding the
// graph-builder metrics.
//
// Every application metric is registered through Registry.Registerer, which
// prefixes names with the configured metrics prefix. Go runtime and process
// collectors keep their standard unprefixed names.
package prometheus
