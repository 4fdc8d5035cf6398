// Package settings persists the small amount of state the user changes at
// runtime: the library root, extra watched folders and the paused flag.
//
// Values live in a bbolt file under the state directory. A Store opened with
// an empty directory keeps everything in memory.
package settings
