package proxy

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/mediasearch/core/internal/logger"
	"github.com/mediasearch/core/internal/models"
	"github.com/mediasearch/core/internal/repos"
	"github.com/mediasearch/core/internal/video"
	"github.com/mediasearch/core/internal/worker"
)

// NewImageProcessor wires an ImageCascade into a worker.Processor: resolve
// the library's source root, run the cascade, and on success advance the
// asset to proxied (spec.md §4.4).
func NewImageProcessor(assets repos.AssetRepo, libraries repos.LibraryRepo, cascade *ImageCascade, log *logger.Logger) worker.Processor {
	log = log.With("component", "ImageProcessor")
	return func(ctx context.Context, asset *models.Asset, shouldStop func() bool) error {
		lib, err := libraries.GetBySlug(ctx, asset.LibrarySlug, false)
		if err != nil {
			return err
		}
		sourcePath := filepath.Join(lib.SourceRoot, asset.RelPath)

		proxyRel, thumbRel, err := cascade.Process(ctx, asset, sourcePath)
		if err != nil {
			return err
		}

		log.Info("image proxied", "asset_id", asset.ID, "proxy_path", proxyRel, "thumbnail_path", thumbRel)
		return assets.Update(ctx, asset.ID, map[string]interface{}{
			"status":         models.StatusProxied,
			"proxy_path":     proxyRel,
			"thumbnail_path": thumbRel,
		})
	}
}

// NewVideoProcessor wires a VideoCascade (which itself drives the Scene
// Engine) into a worker.Processor, translating video.ErrCancelled into
// worker.ErrCancelled so the run-loop's release path applies uniformly
// across every stage (spec.md §4.2, §5 "Cancellation").
func NewVideoProcessor(assets repos.AssetRepo, libraries repos.LibraryRepo, cascade *VideoCascade, log *logger.Logger) worker.Processor {
	log = log.With("component", "VideoProcessor")
	return func(ctx context.Context, asset *models.Asset, shouldStop func() bool) error {
		lib, err := libraries.GetBySlug(ctx, asset.LibrarySlug, false)
		if err != nil {
			return err
		}
		sourcePath := filepath.Join(lib.SourceRoot, asset.RelPath)

		thumbRel, headClipRel, err := cascade.Process(ctx, asset, sourcePath, shouldStop)
		if err != nil {
			if errors.Is(err, video.ErrCancelled) {
				return worker.ErrCancelled
			}
			return err
		}

		log.Info("video proxied", "asset_id", asset.ID, "thumbnail_path", thumbRel, "head_clip_path", headClipRel)
		return assets.Update(ctx, asset.ID, map[string]interface{}{
			"status":               models.StatusProxied,
			"thumbnail_path":       thumbRel,
			"video_head_clip_path": headClipRel,
		})
	}
}
