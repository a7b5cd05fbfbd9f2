package proxy

import (
	"context"
	"os"
	"path/filepath"

	"github.com/mediasearch/core/internal/logger"
	"github.com/mediasearch/core/internal/models"
	"github.com/mediasearch/core/internal/repos"
)

// repairableStatuses is exactly the set spec.md §4.4 names for --repair:
// "proxied, analyzed_light, completed".
var repairableStatuses = []models.AssetStatus{
	models.StatusProxied,
	models.StatusAnalyzedLight,
	models.StatusCompleted,
}

// RepairStats summarizes one --repair pass for CLI/log output.
type RepairStats struct {
	Checked int
	Reset   int
}

// Repairer implements --repair mode: it is only a resetter — assets whose
// derivative files are missing on disk go back to pending, and actual
// regeneration happens through the normal claim path afterward
// (spec.md §4.4).
type Repairer struct {
	assets  repos.AssetRepo
	dataDir string
	log     *logger.Logger
}

func NewRepairer(assets repos.AssetRepo, dataDir string, log *logger.Logger) *Repairer {
	return &Repairer{assets: assets, dataDir: dataDir, log: log.With("component", "Repairer")}
}

// Run scans libSlug (or every library if empty) across the repairable
// statuses. dryRun logs what would be reset without writing
// (SPEC_FULL.md's "maintenance run --dry-run" enrichment, applied here too
// since --repair shares the same operator-facing dry-run expectation).
func (r *Repairer) Run(ctx context.Context, libSlug string, dryRun bool) (RepairStats, error) {
	var stats RepairStats
	for _, status := range repairableStatuses {
		assets, err := r.assets.List(ctx, libSlug, status, 0)
		if err != nil {
			return stats, err
		}
		for _, asset := range assets {
			stats.Checked++
			if !r.missingDerivatives(asset) {
				continue
			}
			stats.Reset++
			if dryRun {
				r.log.Info("repair: would reset asset", "asset_id", asset.ID, "status", status)
				continue
			}
			if err := r.assets.Update(ctx, asset.ID, map[string]interface{}{
				"status":               models.StatusPending,
				"proxy_path":           "",
				"thumbnail_path":       "",
				"video_head_clip_path": "",
			}); err != nil {
				return stats, err
			}
			r.log.Info("repair: reset asset", "asset_id", asset.ID, "status", status)
		}
	}
	return stats, nil
}

// missingDerivatives reports whether any derivative file the asset's kind
// is supposed to have produced by now is absent on disk.
func (r *Repairer) missingDerivatives(asset *models.Asset) bool {
	if asset.ThumbnailPath == "" || !r.exists(asset.ThumbnailPath) {
		return true
	}
	switch asset.Kind {
	case models.MediaKindImage:
		return asset.ProxyPath == "" || !r.exists(asset.ProxyPath)
	default:
		return asset.VideoHeadClipPath == "" || !r.exists(asset.VideoHeadClipPath)
	}
}

func (r *Repairer) exists(relPath string) bool {
	_, err := os.Stat(filepath.Join(r.dataDir, relPath))
	return err == nil
}
