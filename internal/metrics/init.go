package metrics

// InitializeMetrics pre-populates the expected label combinations so every
// metric is exported from the first scrape. Call once at startup.
func InitializeMetrics() {
	volumes := []string{"library", "icons", "state", "unknown"}

	for _, vol := range volumes {
		for _, op := range []string{"copy", "move", "write"} {
			FilesystemOperationDuration.WithLabelValues(vol, op)
			FilesystemOperationErrors.WithLabelValues(vol, op)
		}
		for _, op := range []string{"stat", "open", "readdir"} {
			FilesystemRetryAttempts.WithLabelValues(op, vol)
			FilesystemRetrySuccess.WithLabelValues(op, vol)
			FilesystemRetryFailures.WithLabelValues(op, vol)
			FilesystemStaleErrors.WithLabelValues(op, vol)
			FilesystemRetryDuration.WithLabelValues(op, vol)
		}
	}

	for _, status := range []string{"converted", "skipped", "failed"} {
		IconsEncodedTotal.WithLabelValues(status)
	}
	for _, phase := range []string{"decode", "resize", "write"} {
		IconEncodeDuration.WithLabelValues(phase)
	}
	for _, format := range []string{"png", "jpeg", "webp", "bmp", "tiff", "svg", "unknown"} {
		IconDecodeByFormat.WithLabelValues(format)
	}

	for _, op := range []string{"copy", "move"} {
		LibraryCollisions.WithLabelValues(op)
		LibraryWrites.WithLabelValues(op, "ok")
		LibraryWrites.WithLabelValues(op, "error")
	}

	for _, action := range []string{"delete", "quarantine"} {
		OrphansRemoved.WithLabelValues(action)
	}

	for _, reason := range []string{"startup", "fs-change", "periodic", "post-run", "shutdown", "manual"} {
		MaintenancePassesTotal.WithLabelValues(reason)
	}

	for _, op := range []string{"initialize_schema", "record_pass", "record_collision", "recent_passes", "recent_collisions"} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}
	for _, file := range []string{"main", "wal", "shm"} {
		DBSizeBytes.WithLabelValues(file)
	}
}
