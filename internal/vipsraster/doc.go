// Package vipsraster provides an icon.Rasterizer backed by libvips, for SVG
// files that use features the pure-Go rasterizer does not handle (filters,
// embedded text, CSS styling).
//
// Init must be called before the first Rasterize. Until then, and after
// Shutdown, Rasterize fails with icon.ErrRasterizerUnavailable so the encoder
// reports a configuration error instead of silently skipping SVG sources.
package vipsraster
