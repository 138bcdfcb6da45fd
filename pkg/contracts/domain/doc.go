// Package domain defines the data contracts shared across the popflow
// pipeline: observations scraped or uploaded, the reconciled dataset with its
// derived columns, and the outputs of the statistics engine. The package is
// deliberately dependency-free so binaries, services and tests can all share
// these types without pulling in pipeline internals.
package domain
