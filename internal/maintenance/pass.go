package maintenance

import (
	"context"
	"fmt"
	"os"

	"icon-sync/internal/icon"
	"icon-sync/internal/library"
	"icon-sync/internal/logging"
	"icon-sync/internal/orphans"
)

// collisionCounter counts collisions for the report and forwards them.
type collisionCounter struct {
	count *int
	next  library.CollisionRecorder
}

func (c collisionCounter) RecordCollision(col library.Collision) {
	*c.count++
	if c.next != nil {
		c.next.RecordCollision(col)
	}
}

func notify(fn ProgressFunc, phase Phase, done, total int, current string) {
	if fn != nil {
		fn(Progress{Phase: phase, Done: done, Total: total, Current: current})
	}
}

// pass runs normalize, orphan sweep, scan and convert in that order. Per-item
// failures are counted in report; only a cancelled context or an unreadable
// images folder ends the pass early.
func (o *Orchestrator) pass(ctx context.Context, cfg Config, progress ProgressFunc, report *ScanReport) error {
	if cfg.ImagesDir == "" {
		return ErrNoLibrary
	}
	if err := os.MkdirAll(cfg.IconsDir, 0o755); err != nil {
		return fmt.Errorf("create icons folder %s: %w", cfg.IconsDir, err)
	}

	writer := library.NewWriter(cfg.ImagesDir)
	writer.Recorder = collisionCounter{count: &report.Collisions, next: cfg.Recorder}

	// Normalize
	notify(progress, PhaseNormalize, 0, 0, "")
	normalizer := &library.Normalizer{
		Writer:   writer,
		SkipDirs: []string{cfg.IconsDir},
		OnProgress: func(done, total int, current string) {
			notify(progress, PhaseNormalize, done, total, current)
		},
	}
	moved, err := normalizer.Normalize(ctx)
	report.NormalizedMoves = moved
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logging.Warn("maintenance: normalize: %v", err)
	}

	// Orphan sweep
	if cfg.RemoveOrphans {
		notify(progress, PhaseOrphanSweep, 0, 0, "")
		sweeper := &orphans.Sweeper{}
		removed, err := sweeper.Sweep(cfg.ImagesDir, cfg.IconsDir, cfg.Options.Suffix, cfg.OrphanAction)
		report.OrphanIconsRemoved = removed
		if err != nil {
			logging.Warn("maintenance: orphan sweep: %v", err)
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	// Scan
	notify(progress, PhaseScan, 0, 0, "")
	images, err := library.FindImages(cfg.ImagesDir, false)
	if err != nil {
		return fmt.Errorf("scan %s: %w", cfg.ImagesDir, err)
	}
	report.Scanned = len(images)
	notify(progress, PhaseScan, len(images), len(images), "")

	// Convert
	sizes := cfg.Sizes
	if len(icon.NormalizeSizes(sizes)) == 0 {
		sizes = icon.PresetSizes(icon.DefaultPreset)
	}
	for i, src := range images {
		if err := ctx.Err(); err != nil {
			return err
		}
		notify(progress, PhaseConvert, i, len(images), src)

		out := icon.OutputPath(src, cfg.IconsDir, cfg.Options.Suffix)
		stale, needed := needsConversion(src, out)
		if !needed {
			continue
		}

		if cfg.Throttle != nil {
			if err := cfg.Throttle.Wait(ctx); err != nil {
				return err
			}
		}
		opts := cfg.Options
		opts.Overwrite = stale
		res := o.encoder.Encode(ctx, src, out, sizes, opts)
		switch res.Status {
		case icon.StatusConverted:
			report.Converted++
		case icon.StatusFailed:
			report.Errors++
		}
	}

	notify(progress, PhaseDone, len(images), len(images), "")
	return nil
}

// needsConversion reports whether src has no icon at out (needed) or an icon
// older than itself (needed and stale).
func needsConversion(src, out string) (stale, needed bool) {
	outInfo, err := os.Stat(out)
	if err != nil {
		return false, true
	}
	srcInfo, err := os.Stat(src)
	if err != nil {
		return false, false
	}
	if srcInfo.ModTime().After(outInfo.ModTime()) {
		return true, true
	}
	return false, false
}

func toString(v any) string {
	return fmt.Sprint(v)
}
