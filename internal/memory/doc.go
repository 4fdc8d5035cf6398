// Package memory bounds heap use while icons are encoded.
//
// Decoding large sources and resizing to 512 or 1024 pixel frames can
// allocate hundreds of megabytes per image. [ConfigureFromEnv] sets the Go
// soft memory limit from ICONSYNC_MEMORY_LIMIT (bytes, or with a KiB, MiB or
// GiB suffix) scaled by ICONSYNC_MEMORY_RATIO (default 0.85). GOMEMLIMIT, when
// set, wins.
//
// A [Monitor] samples heap allocation against that limit. Above the critical
// water mark it holds callers of [Monitor.Wait] until usage falls below the
// high water mark. Maintenance passes and bulk runs wait between images.
//
// Without a limit the monitor never holds anyone back.
package memory
