// Package watcher turns filesystem activity in the image library into
// debounced maintenance requests.
package watcher
