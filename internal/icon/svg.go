package icon

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"

	"icon-sync/internal/filesystem"
)

// SVGRasterizer renders SVG files in pure Go with oksvg and rasterx.
type SVGRasterizer struct{}

// Rasterize draws the SVG at path scaled so its longest edge is edge pixels,
// keeping the aspect ratio of the view box.
func (SVGRasterizer) Rasterize(path string, edge int) (*image.NRGBA, error) {
	if edge <= 0 {
		return nil, fmt.Errorf("%w: invalid raster edge %d", ErrDecode, edge)
	}

	in, err := filesystem.OpenWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSourceMissing, path)
	}
	defer in.Close()

	icon, err := oksvg.ReadIconStream(in)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, path, err)
	}

	vw, vh := icon.ViewBox.W, icon.ViewBox.H
	if vw <= 0 || vh <= 0 {
		return nil, fmt.Errorf("%w: %s: svg has no usable size (viewBox %gx%g)", ErrDecode, path, vw, vh)
	}

	w, h := edge, edge
	if vw > vh {
		h = max(1, int(math.Round(float64(edge)*vh/vw)))
	} else if vh > vw {
		w = max(1, int(math.Round(float64(edge)*vw/vh)))
	}

	icon.SetTarget(0, 0, float64(w), float64(h))
	rgba := image.NewRGBA(image.Rect(0, 0, w, h))
	gv := rasterx.NewScannerGV(w, h, rgba, rgba.Bounds())
	dasher := rasterx.NewDasher(w, h, gv)
	icon.Draw(dasher, 1.0)

	return imaging.Clone(rgba), nil
}
