// Package main provides the icon-sync command.
//
// icon-sync keeps <library>/Icon Images free of duplicate names and keeps
// <library>/Icon Images/Icons holding exactly one multi-size .ico per image.
//
// # Commands
//
//   - run: copy files or folders into the library and build their icons
//   - scan: one maintenance pass (normalize, orphan sweep, convert)
//   - watch: the background agent with its status API
//   - encode, inspect: build or examine a single icon
//   - sweep, normalize: single maintenance steps
//   - relocate, folders, pause, resume: persisted settings
//   - history, version
//
// # Configuration
//
// Settings come from config.yaml (state directory, working directory or
// --config) and ICONSYNC_* environment variables; see package startup for
// the keys. The library root chosen with relocate is stored in the state
// directory and takes precedence over the configured one.
//
// # Signals
//
// SIGINT or SIGTERM cancels the running command. Bulk runs stop before the
// next image and the agent runs its final pass; a second signal exits
// immediately.
package main
