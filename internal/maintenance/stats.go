package maintenance

import (
	"os"
	"path/filepath"
	"strings"

	"icon-sync/internal/icon"
	"icon-sync/internal/library"
	"icon-sync/internal/metrics"
)

// GetStats counts source images and icons for the metrics collector.
func (o *Orchestrator) GetStats() metrics.Stats {
	cfg := o.Config()

	var stats metrics.Stats
	if images, err := library.FindImages(cfg.ImagesDir, false); err == nil {
		stats.Images = len(images)
	}
	if entries, err := os.ReadDir(cfg.IconsDir); err == nil {
		for _, e := range entries {
			if e.Type().IsRegular() && strings.EqualFold(filepath.Ext(e.Name()), icon.Extension) {
				stats.Icons++
			}
		}
	}
	return stats
}
