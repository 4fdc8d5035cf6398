package icon

import (
	"image"
	"image/color"
	"sync"

	"github.com/disintegration/imaging"
)

// alphaBounds returns the bounding box of pixels with non-zero alpha.
// ok is false when every pixel is fully transparent.
func alphaBounds(img *image.NRGBA) (image.Rectangle, bool) {
	b := img.Bounds()
	minX, minY := b.Max.X, b.Max.Y
	maxX, maxY := b.Min.X-1, b.Min.Y-1

	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, y):]
		for x := b.Min.X; x < b.Max.X; x++ {
			if row[(x-b.Min.X)*4+3] == 0 {
				continue
			}
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}
		}
	}

	if maxX < minX {
		return image.Rectangle{}, false
	}
	return image.Rect(minX, minY, maxX+1, maxY+1), true
}

// autocrop trims fully transparent border rows and columns. Fully transparent
// and fully opaque images come back unchanged.
func autocrop(img *image.NRGBA) *image.NRGBA {
	box, ok := alphaBounds(img)
	if !ok || box == img.Bounds() {
		return img
	}
	return imaging.Crop(img, box)
}

// flatten composites img onto black and drops transparency.
func flatten(img *image.NRGBA) *image.NRGBA {
	b := img.Bounds()
	dst := imaging.New(b.Dx(), b.Dy(), color.Black)
	return imaging.Overlay(dst, img, image.Pt(0, 0), 1.0)
}

// padSquare centers img on a square canvas sized so the artwork spans ratio of
// the edge. The canvas is transparent, or black when keepAlpha is false.
func padSquare(img *image.NRGBA, ratio float64, keepAlpha bool) *image.NRGBA {
	b := img.Bounds()
	side := squareSide(b.Dx(), b.Dy(), ratio)

	var bg color.Color = color.Transparent
	if !keepAlpha {
		bg = color.Black
	}
	canvas := imaging.New(side, side, bg)
	return imaging.PasteCenter(canvas, img)
}

// prepare runs autocrop, alpha handling and padding, returning the square
// canvas every frame is derived from.
func prepare(src image.Image, opts Options) *image.NRGBA {
	img := imaging.Clone(src)
	if opts.Autocrop {
		img = autocrop(img)
	}
	if !opts.KeepAlpha {
		img = flatten(img)
	}
	return padSquare(img, PaddingRatio(opts.Padding), opts.KeepAlpha)
}

// buildFrames resizes canvas once to the largest size and derives every other
// frame from that base. sizes must be normalized and non-empty.
func buildFrames(canvas *image.NRGBA, sizes []int, workers int) []image.Image {
	largest := sizes[len(sizes)-1]
	base := canvas
	if canvas.Bounds().Dx() != largest {
		base = imaging.Resize(canvas, largest, largest, imaging.Lanczos)
	}

	frames := make([]image.Image, len(sizes))
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if sizes[i] == largest {
					frames[i] = base
					continue
				}
				frames[i] = imaging.Resize(base, sizes[i], sizes[i], imaging.Lanczos)
			}
		}()
	}
	for i := range sizes {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return frames
}
