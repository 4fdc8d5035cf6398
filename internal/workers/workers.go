package workers

import (
	"os"
	"runtime"
	"strconv"
)

// EnvOverride names the environment variable that pins the worker count.
const EnvOverride = "ICONSYNC_ENCODE_WORKERS"

// Count returns a worker count of multiplier × GOMAXPROCS, at least 1 and at
// most limit (0 means no limit). A positive EnvOverride value replaces the
// calculation but still honors limit.
func Count(multiplier float64, limit int) int {
	if override := os.Getenv(EnvOverride); override != "" {
		if count, err := strconv.Atoi(override); err == nil && count > 0 {
			if limit > 0 && count > limit {
				return limit
			}
			return count
		}
	}

	// GOMAXPROCS follows the container CPU limit.
	available := runtime.GOMAXPROCS(0)

	workers := int(float64(available) * multiplier)
	if workers < 1 {
		workers = 1
	}
	if limit > 0 && workers > limit {
		workers = limit
	}

	return workers
}

// ForCPU returns the worker count for CPU-bound work such as frame
// resampling: one per available CPU, capped at limit.
func ForCPU(limit int) int {
	return Count(1.0, limit)
}
