// Package plugins implements the refresh pipeline that produces the
// documents graph-builder serves.
//
// A Chain runs its plugins in order, handing each the IO produced by the
// previous one. Built-in plugins:
//   - fetch: loads the graph and secondary metadata documents from a store
//   - validate: rejects graph documents that are not a well-formed update graph
//   - minify: compacts JSON documents
package plugins
