// Package startup loads configuration and prepares the process to run.
//
// # Configuration
//
// [LoadConfig] reads config.yaml through viper. Every key can be overridden
// with an ICONSYNC_ environment variable (ICONSYNC_LIBRARY_ROOT,
// ICONSYNC_SCAN_INTERVAL and so on):
//
//   - library_root: folder holding "Icon Images" (default: ~/Desktop/Iconer)
//   - size_preset: frame size preset such as "16–256" (default: 16–256)
//   - sizes: explicit comma list of frame sizes; wins over size_preset
//   - padding: tight, balanced or extra (default: balanced)
//   - keep_alpha, autocrop: encoder switches (default: true)
//   - overwrite, recursive: bulk run switches (default: false)
//   - suffix: appended to icon stems (default: none)
//   - remove_orphans, orphan_action: orphan sweep (default: true, delete)
//   - debounce: quiet period after filesystem events (default: 400ms)
//   - scan_interval: periodic catch-up pass, 0 disables (default: 10m)
//   - rasterizer: oksvg, vips or none (default: oksvg)
//   - status_addr: status API listen address, empty disables
//   - state_dir: settings and history databases
//   - watch_folders: extra folders imported into the library
//
// A library root chosen at runtime (see [Relocate]) is stored in the settings
// database and wins over library_root; see [Config.ApplySettings].
//
// # Logging
//
// [LogConfig] and the Log* helpers print the sectioned startup and shutdown
// output of the watch agent.
package startup
