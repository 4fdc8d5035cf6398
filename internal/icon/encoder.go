package icon

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"icon-sync/internal/filesystem"
	"icon-sync/internal/logging"
	"icon-sync/internal/metrics"
	"icon-sync/internal/naming"
	"icon-sync/internal/workers"
)

// Extension is the icon container extension.
const Extension = ".ico"

// Status is the outcome of one encode.
type Status string

const (
	StatusConverted Status = "converted"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// Options control a single encode.
type Options struct {
	Overwrite bool
	KeepAlpha bool
	Autocrop  bool
	// Padding is a preset name: tight, balanced or extra.
	Padding string
	// Suffix is appended to the source stem in derived output names.
	Suffix string
}

// DefaultOptions keeps transparency, autocrops and uses balanced padding.
func DefaultOptions() Options {
	return Options{
		KeepAlpha: true,
		Autocrop:  true,
		Padding:   PaddingBalanced,
	}
}

// Result reports one encode. Err is set only when Status is StatusFailed and
// wraps one of the package's typed errors.
type Result struct {
	Status  Status
	Source  string
	OutPath string
	Sizes   []int
	Message string
	Err     error
}

// OK reports whether the encode converted or skipped.
func (r Result) OK() bool {
	return r.Status != StatusFailed
}

// Encoder turns source images into multi-frame icon files.
type Encoder struct {
	Rasterizer Rasterizer
	// Workers bounds concurrent frame resampling. Zero picks one per CPU.
	Workers int
}

// NewEncoder returns an Encoder using r for SVG sources. r may be nil, in
// which case SVG sources fail with ErrRasterizerUnavailable.
func NewEncoder(r Rasterizer) *Encoder {
	return &Encoder{Rasterizer: r}
}

// OutputPath resolves where the icon for src goes. A target ending in .ico is
// the file itself; anything else is a directory receiving <stem><suffix>.ico.
func OutputPath(src, outDirOrFile, suffix string) string {
	if strings.EqualFold(filepath.Ext(outDirOrFile), Extension) {
		return outDirOrFile
	}
	return filepath.Join(outDirOrFile, naming.Stem(src)+suffix+Extension)
}

// Encode converts src into an icon holding one frame per size.
func (e *Encoder) Encode(ctx context.Context, src, outDirOrFile string, sizes []int, opts Options) Result {
	res := e.encode(ctx, src, outDirOrFile, sizes, opts)

	metrics.IconsEncodedTotal.WithLabelValues(string(res.Status)).Inc()
	switch res.Status {
	case StatusFailed:
		logging.Warn("%s", res.Message)
	default:
		logging.Debug("%s", res.Message)
	}
	return res
}

func (e *Encoder) encode(ctx context.Context, src, outDirOrFile string, sizes []int, opts Options) Result {
	res := Result{Source: src}
	fail := func(err error) Result {
		res.Status = StatusFailed
		res.Err = err
		res.Message = fmt.Sprintf("ERR: %s: %v", src, err)
		return res
	}

	res.Sizes = NormalizeSizes(sizes)
	if len(res.Sizes) == 0 {
		return fail(fmt.Errorf("%w: %v", ErrNoSizes, sizes))
	}

	info, err := filesystem.StatWithRetry(src, filesystem.DefaultRetryConfig())
	if err != nil || !info.Mode().IsRegular() {
		return fail(fmt.Errorf("%w: %s", ErrSourceMissing, src))
	}

	res.OutPath = OutputPath(src, outDirOrFile, opts.Suffix)
	if !opts.Overwrite {
		if _, err := os.Stat(res.OutPath); err == nil {
			res.Status = StatusSkipped
			res.Message = fmt.Sprintf("SKIP: %s -> %s (exists)", src, res.OutPath)
			return res
		}
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	largest := res.Sizes[len(res.Sizes)-1]

	start := time.Now()
	img, err := e.load(src, largest)
	if err != nil {
		if !errors.Is(err, ErrRasterizerUnavailable) && !errors.Is(err, ErrDecode) {
			err = fmt.Errorf("%w: %s: %v", ErrDecode, src, err)
		}
		return fail(err)
	}
	metrics.IconEncodeDuration.WithLabelValues("decode").Observe(time.Since(start).Seconds())

	start = time.Now()
	canvas := prepare(img, opts)
	frames := buildFrames(canvas, res.Sizes, e.workerCount(len(res.Sizes)))
	metrics.IconEncodeDuration.WithLabelValues("resize").Observe(time.Since(start).Seconds())

	// Nothing has touched the output yet; a cancel here leaves no trace.
	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	start = time.Now()
	if err := writeIcon(res.OutPath, frames); err != nil {
		return fail(fmt.Errorf("%w: %s: %v", ErrWrite, res.OutPath, err))
	}
	metrics.IconEncodeDuration.WithLabelValues("write").Observe(time.Since(start).Seconds())

	res.Status = StatusConverted
	res.Message = fmt.Sprintf("OK: %s -> %s sizes=%d..%d (%d frames)",
		src, res.OutPath, res.Sizes[0], largest, len(res.Sizes))
	return res
}

func (e *Encoder) workerCount(frames int) int {
	n := e.Workers
	if n <= 0 {
		n = workers.ForCPU(frames)
	}
	if n > frames {
		n = frames
	}
	return n
}

func writeIcon(path string, frames []image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return filesystem.WriteAtomic(path, 0o644, func(w io.Writer) error {
		return writeICO(w, frames)
	}, time.Time{})
}
