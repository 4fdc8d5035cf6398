// Package agent runs icon-sync in the background: it watches the library,
// requests maintenance passes on start, on change, periodically and at
// shutdown, imports images from watched folders, and serves the status API.
package agent
