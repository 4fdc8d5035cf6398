// Package history keeps a SQLite journal of maintenance passes and library
// collisions so the status API and the CLI can show what happened recently.
package history
