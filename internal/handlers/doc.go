// Package handlers provides the status API served by the watch agent.
//
// It includes handlers for:
//   - Health and liveness probes and version information
//   - Maintenance status and manual pass requests
//   - The pass and collision journal
//   - Prometheus metrics
package handlers
