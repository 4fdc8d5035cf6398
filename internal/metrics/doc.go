// Package metrics provides Prometheus instrumentation for icon-sync.
//
// All metrics are registered with promauto on the default registry and are
// prefixed with "icon_sync_". The status server exposes them on /metrics.
//
// # Metric Categories
//
//   - Maintenance: passes by reason, pass duration, running flag, coalesced requests
//   - Library: collisions, copies and moves, image and icon counts
//   - Encoder: encode results by status, per-phase durations, decodes by format
//   - Orphans and normalization: icons removed by action, flatten moves
//   - Watcher: raw events, debounced triggers, watched directories
//   - Filesystem: operation durations and stale-handle retries by volume
//   - History database: query counts and durations, file sizes
//
// # Usage
//
// Call InitializeMetrics once at startup so every label combination is present
// from the first scrape, and register NewFilesystemObserver with
// filesystem.SetObserver. A Collector samples the gauges that are not updated
// inline.
package metrics
