// Package taskrunner provides an in-process priority task queue with a fixed
// pool of concurrent workers, at-least-once execution with bounded retries,
// and lifecycle tracking for submitted work. It is consumed as a library by
// the HTTP and agent layers, which submit opaque units of work and read back
// status snapshots.
package taskrunner
