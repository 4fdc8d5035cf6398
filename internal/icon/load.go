package icon

import (
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"  // BMP format support
	_ "golang.org/x/image/tiff" // TIFF format support
	_ "golang.org/x/image/webp" // WebP format support

	"icon-sync/internal/filesystem"
	"icon-sync/internal/logging"
	"icon-sync/internal/metrics"
)

// MaxImageDimension bounds the working size of raster sources. Larger images
// are downscaled on load, but never below the largest requested frame.
const MaxImageDimension = 4096

// Rasterizer renders a vector image to a bitmap whose longest edge is edge.
type Rasterizer interface {
	Rasterize(path string, edge int) (*image.NRGBA, error)
}

func isVector(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".svg")
}

// load decodes src, rasterizing vectors at edge pixels.
func (e *Encoder) load(path string, edge int) (image.Image, error) {
	if isVector(path) {
		if e.Rasterizer == nil {
			return nil, fmt.Errorf("%w: %s needs an SVG rasterizer; set rasterizer to \"oksvg\" or \"vips\" in the config", ErrRasterizerUnavailable, path)
		}
		img, err := e.Rasterizer.Rasterize(path, edge)
		if err != nil {
			return nil, err
		}
		metrics.IconDecodeByFormat.WithLabelValues("svg").Inc()
		return img, nil
	}

	limit := MaxImageDimension
	if edge > limit {
		limit = edge
	}
	return loadConstrained(path, limit)
}

// loadConstrained decodes a raster image with EXIF orientation applied and
// fits it within maxDimension on both axes.
func loadConstrained(path string, maxDimension int) (image.Image, error) {
	format := "unknown"
	if f, err := filesystem.OpenWithRetry(path, filesystem.DefaultRetryConfig()); err == nil {
		if cfg, name, cfgErr := image.DecodeConfig(f); cfgErr == nil {
			format = name
			logging.Debug("Image %s dimensions: %dx%d (%s)", path, cfg.Width, cfg.Height, name)
		}
		f.Close()
	}

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, path, err)
	}
	metrics.IconDecodeByFormat.WithLabelValues(format).Inc()

	b := img.Bounds()
	if b.Dx() > maxDimension || b.Dy() > maxDimension {
		logging.Info("Constraining large image %s from %dx%d to fit %d", path, b.Dx(), b.Dy(), maxDimension)
		return imaging.Fit(img, maxDimension, maxDimension, imaging.Lanczos), nil
	}
	return img, nil
}
