// Package storage provides upstream document store implementations.
//
// Implementations:
//   - redis: Redis string keys, read by the fetch plugin every refresh cycle
//   - file: One file per key in a directory, optionally watched for changes
//   - memory: In-memory for testing and local runs
package storage
