package vipsraster

import (
	"bytes"
	"fmt"
	"image"
	"path/filepath"
	"sync"

	"github.com/davidbyttow/govips/v2/vips"
	"github.com/disintegration/imaging"

	"icon-sync/internal/icon"
	"icon-sync/internal/logging"
)

var (
	initMutex   sync.Mutex
	initialized bool
	available   bool
)

// Init starts libvips with its log output routed through the application
// logger at a matching level. Safe to call more than once.
func Init() error {
	initMutex.Lock()
	defer initMutex.Unlock()

	if initialized {
		return nil
	}

	level, handler := logSettings(logging.GetLevel())
	vips.LoggingSettings(handler, level)

	vips.Startup(&vips.Config{
		ConcurrencyLevel: 1,
		MaxCacheMem:      32 * 1024 * 1024,
		MaxCacheSize:     50,
	})

	initialized = true
	available = true
	logging.Info("libvips initialized for SVG rasterizing (version: %s)", vips.Version)
	return nil
}

// logSettings maps the application level to the libvips verbosity and a
// handler forwarding what libvips lets through.
func logSettings(appLevel logging.LogLevel) (vips.LogLevel, func(string, vips.LogLevel, string)) {
	var threshold vips.LogLevel
	switch appLevel {
	case logging.LevelDebug:
		threshold = vips.LogLevelInfo
	case logging.LevelInfo:
		threshold = vips.LogLevelWarning
	case logging.LevelWarn:
		threshold = vips.LogLevelError
	default:
		threshold = vips.LogLevelCritical
	}

	return threshold, func(domain string, level vips.LogLevel, msg string) {
		switch level {
		case vips.LogLevelError, vips.LogLevelCritical:
			logging.Error("[%s] %s", domain, msg)
		case vips.LogLevelWarning:
			logging.Warn("[%s] %s", domain, msg)
		default:
			logging.Debug("[%s] %s", domain, msg)
		}
	}
}

// Shutdown releases libvips. libvips cannot be started again afterwards.
func Shutdown() {
	initMutex.Lock()
	defer initMutex.Unlock()

	if initialized {
		vips.Shutdown()
		initialized = false
		available = false
		logging.Info("libvips shutdown complete")
	}
}

// Available reports whether Init has run and Shutdown has not.
func Available() bool {
	initMutex.Lock()
	defer initMutex.Unlock()
	return available
}

// Rasterizer renders SVG files through libvips (librsvg).
type Rasterizer struct{}

// Rasterize loads the SVG at path and fits it within edge×edge.
func (Rasterizer) Rasterize(path string, edge int) (*image.NRGBA, error) {
	if !Available() {
		return nil, fmt.Errorf("%w: libvips is not initialized; install libvips with librsvg support or set rasterizer to \"oksvg\"", icon.ErrRasterizerUnavailable)
	}

	ref, err := vips.LoadImageFromFile(path, vips.NewImportParams())
	if err != nil {
		return nil, fmt.Errorf("%w: vips failed to load %s: %v", icon.ErrDecode, filepath.Base(path), err)
	}
	defer ref.Close()

	logging.Debug("Vips loaded %s: %dx%d, fitting to %d", filepath.Base(path), ref.Width(), ref.Height(), edge)

	if err := ref.Thumbnail(edge, edge, vips.InterestingNone); err != nil {
		return nil, fmt.Errorf("%w: vips resize failed: %v", icon.ErrDecode, err)
	}

	// PNG keeps the alpha channel on the way back into Go.
	pngBytes, _, err := ref.ExportPng(vips.NewPngExportParams())
	if err != nil {
		return nil, fmt.Errorf("%w: vips export failed: %v", icon.ErrDecode, err)
	}

	img, err := imaging.Decode(bytes.NewReader(pngBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: decode vips output: %v", icon.ErrDecode, err)
	}
	return imaging.Clone(img), nil
}
