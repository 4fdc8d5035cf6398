// Package logging provides the leveled logger shared by the icon-sync engine,
// its CLI and the background agent.
//
// It supports the following log levels:
//   - DEBUG: Verbose debugging information
//   - INFO: General operational messages
//   - WARN: Warning conditions (collisions, skipped items)
//   - ERROR: Error conditions
//   - FATAL: Fatal errors that terminate the application
//
// The log level is configured via the LOG_LEVEL environment variable, or
// forced to DEBUG with DEBUG=true.
//
// Callers that display engine output (a status line, a progress view, the
// status API) register a Sink with AddSink and receive every emitted line
// together with its level.
package logging
