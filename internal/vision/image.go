package vision

import (
	"context"
	"path/filepath"

	"github.com/mediasearch/core/internal/logger"
	"github.com/mediasearch/core/internal/models"
	"github.com/mediasearch/core/internal/repos"
	"github.com/mediasearch/core/internal/worker"
)

// ImageProcessor drives the vision pass for one image asset. Images have
// no scene concept, so the light/full halves of spec.md §4.5.6 apply
// directly to the asset row via AssetRepo.MergeVisionMetadata.
type ImageProcessor struct {
	assets    repos.AssetRepo
	libraries repos.LibraryRepo
	sysMeta   repos.SystemMetadataRepo
	dataDir   string
	analyzer  Analyzer
	log       *logger.Logger
}

func NewImageProcessor(assets repos.AssetRepo, libraries repos.LibraryRepo, sysMeta repos.SystemMetadataRepo, dataDir string, analyzer Analyzer, log *logger.Logger) *ImageProcessor {
	return &ImageProcessor{
		assets:    assets,
		libraries: libraries,
		sysMeta:   sysMeta,
		dataDir:   dataDir,
		analyzer:  analyzer,
		log:       log.With("component", "ImageVisionProcessor"),
	}
}

func (p *ImageProcessor) effectiveModelID(ctx context.Context, asset *models.Asset) (uint64, error) {
	lib, err := p.libraries.GetBySlug(ctx, asset.LibrarySlug, false)
	if err != nil {
		return 0, err
	}
	return p.sysMeta.EffectiveModelID(ctx, lib)
}

// framePath prefers the proxy (higher resolution, up to 768px) over the
// thumbnail as the analyzer's input frame; the thumbnail is reserved for
// the case a proxy was never produced (should not happen past the
// proxied status, but kept as a defensive fallback).
func (p *ImageProcessor) framePath(asset *models.Asset) string {
	if asset.ProxyPath != "" {
		return filepath.Join(p.dataDir, asset.ProxyPath)
	}
	return filepath.Join(p.dataDir, asset.ThumbnailPath)
}

// Light is the worker.Processor for queue.StageAIImageLight: describe()
// the asset's proxy frame and advance it to analyzed_light.
func (p *ImageProcessor) Light() worker.Processor {
	return func(ctx context.Context, asset *models.Asset, shouldStop func() bool) error {
		modelID, err := p.effectiveModelID(ctx, asset)
		if err != nil {
			return err
		}
		result, err := p.analyzer.Describe(ctx, p.framePath(asset))
		if err != nil {
			return err
		}
		if err := p.assets.MergeVisionMetadata(ctx, asset.ID, false, result.Description, result.Tags, "", modelID); err != nil {
			return err
		}
		p.log.Info("image described", "asset_id", asset.ID)
		return p.assets.Update(ctx, asset.ID, map[string]interface{}{
			"status": models.StatusAnalyzedLight,
		})
	}
}

// Full is the worker.Processor for queue.StageAIImageFull: ocr() the
// asset's proxy frame, then advance it to completed. Per spec.md §4.5.6
// point 3, full mode only adds ocr_text and never touches the
// description/tags written by the light pass.
func (p *ImageProcessor) Full() worker.Processor {
	return func(ctx context.Context, asset *models.Asset, shouldStop func() bool) error {
		modelID, err := p.effectiveModelID(ctx, asset)
		if err != nil {
			return err
		}
		text, err := p.analyzer.OCR(ctx, p.framePath(asset))
		if err != nil {
			return err
		}
		if err := p.assets.MergeVisionMetadata(ctx, asset.ID, true, "", nil, text, modelID); err != nil {
			return err
		}
		p.log.Info("image ocr'd", "asset_id", asset.ID)
		return p.assets.Update(ctx, asset.ID, map[string]interface{}{
			"status": models.StatusCompleted,
		})
	}
}
