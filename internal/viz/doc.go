// Package viz renders experiment progress and signals in the terminal.
//
//   - [ProgressModel]: Bubble Tea model fed with per-partition progress
//   - [Watch]: runs an experiment under a [ProgressModel]
//   - [SparklineChart], [ProgressBar]: single-line renderers
//
// # Key Bindings
//
//	q, ctrl+c - cancel the run and quit
package viz
