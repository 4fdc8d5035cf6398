package maintenance

import (
	"context"

	"icon-sync/internal/icon"
	"icon-sync/internal/library"
	"icon-sync/internal/logging"
)

// RunOptions control a bulk run.
type RunOptions struct {
	// Recursive descends into subfolders of folder inputs.
	Recursive bool
	// Sizes overrides the configured sizes when non-empty.
	Sizes []int
	// Options overrides the configured encode options when non-nil.
	Options *icon.Options
}

// Run copies every image found in inputs into the library and encodes each
// library copy into the icons folder, one item at a time. Cancelling ctx stops
// the run before the next item starts. A maintenance pass is requested when
// the run ends, cancelled or not.
func (o *Orchestrator) Run(ctx context.Context, inputs []string, opts RunOptions) (RunResult, error) {
	o.runMu.Lock()
	if o.runActive {
		o.runMu.Unlock()
		return RunResult{}, ErrRunActive
	}
	o.runActive = true
	o.runMu.Unlock()
	defer func() {
		o.runMu.Lock()
		o.runActive = false
		o.runMu.Unlock()
	}()

	cfg := o.Config()
	if cfg.ImagesDir == "" {
		return RunResult{}, ErrNoLibrary
	}

	o.mu.Lock()
	progress := o.progress
	o.mu.Unlock()

	sizes := icon.NormalizeSizes(opts.Sizes)
	if len(sizes) == 0 {
		sizes = icon.NormalizeSizes(cfg.Sizes)
	}
	if len(sizes) == 0 {
		sizes = icon.PresetSizes(icon.DefaultPreset)
	}
	encodeOpts := cfg.Options
	if opts.Options != nil {
		encodeOpts = *opts.Options
	}

	images := gather(inputs, opts.Recursive, cfg.IconsDir)
	result := RunResult{Inputs: len(images)}

	writer := library.NewWriter(cfg.ImagesDir)
	writer.Recorder = cfg.Recorder

	for i, src := range images {
		if ctx.Err() != nil {
			result.Cancelled = true
			logging.Info("run: cancelled after %d of %d images", i, len(images))
			break
		}
		notify(progress, PhaseCopy, i, len(images), src)

		dst, collision, err := writer.CopyIntoLibrary(src)
		switch {
		case err != nil:
			result.Errors++
			continue
		case dst == "":
			continue
		case collision != nil:
			result.Collisions++
		default:
			result.Copied++
		}

		if cfg.Throttle != nil && cfg.Throttle.Wait(ctx) != nil {
			result.Cancelled = true
			break
		}
		notify(progress, PhaseConvert, i, len(images), dst)
		res := o.encoder.Encode(ctx, dst, cfg.IconsDir, sizes, encodeOpts)
		logging.Info("%s", res.Message)
		switch res.Status {
		case icon.StatusConverted:
			result.Converted++
		case icon.StatusSkipped:
			result.Skipped++
		default:
			if ctx.Err() != nil {
				result.Cancelled = true
			} else {
				result.Errors++
			}
		}
	}

	notify(progress, PhaseDone, len(images), len(images), "")
	logging.Info("%s", result.Summary())

	o.Request("post-run")
	return result, nil
}

// gather expands inputs into a de-duplicated list of images, keeping input order.
func gather(inputs []string, recursive bool, iconsDir string) []string {
	seen := make(map[string]struct{})
	var images []string
	for _, in := range inputs {
		found, err := library.FindImages(in, recursive, iconsDir)
		if err != nil {
			logging.Warn("run: %s: %v", in, err)
			continue
		}
		for _, p := range found {
			if _, dup := seen[p]; dup {
				continue
			}
			seen[p] = struct{}{}
			images = append(images, p)
		}
	}
	return images
}
