// Package maintenance keeps the icons folder in step with the image library.
//
// A pass normalizes nested images up to the library root, sweeps icons whose
// source is gone, then converts every image that has no icon or a stale one.
// The Orchestrator runs passes one at a time and coalesces requests that
// arrive while a pass is in flight into a single catch-up pass carrying the
// most recent reason. Run performs a bulk import followed by a pass.
package maintenance
