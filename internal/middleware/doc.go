// Package middleware wraps the status API router with request logging and
// Prometheus request metrics.
package middleware
