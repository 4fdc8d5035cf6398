/*
Package filesystem provides the file primitives the library and encoder build on:
stat/open/readdir with retry for stale network file handles, a metadata-preserving
atomic copy, a move that survives cross-device renames, and atomic whole-file writes.

# Retry Behavior

Only ESTALE triggers a retry. Every other error is returned on the first attempt.
The defaults are 3 retries with backoff starting at 50ms and capped at 500ms:

	info, err := filesystem.StatWithRetry(path, filesystem.DefaultRetryConfig())

# Copy and Move

CopyFile writes into a hidden temporary sibling of the destination and renames it
into place once the bytes, permission bits and modification time are set, so a
reader never observes a partially written file:

	if err := filesystem.CopyFile(src, dst); err != nil {
	    return fmt.Errorf("copy into library: %w", err)
	}

MoveFile tries os.Rename first and falls back to CopyFile followed by removal of
the source when the rename crosses a device boundary.

# Metrics

Operation and retry metrics are reported through an Observer registered with
SetObserver. Volume labels come from a VolumeResolver mapping path prefixes to
names such as "library" or "icons".
*/
package filesystem
