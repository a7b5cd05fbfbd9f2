package vision

import (
	"context"
	"encoding/json"
	"path/filepath"

	"github.com/mediasearch/core/internal/logger"
	"github.com/mediasearch/core/internal/models"
	"github.com/mediasearch/core/internal/repos"
	"github.com/mediasearch/core/internal/worker"
)

// VideoProcessor drives the per-scene vision pass for one video asset
// (spec.md §4.5.6). It is split into two worker.Processor values — one for
// the light stage, one for the full stage — sharing the same scene merge
// logic.
type VideoProcessor struct {
	assets    repos.AssetRepo
	libraries repos.LibraryRepo
	sysMeta   repos.SystemMetadataRepo
	scenes    repos.VideoSceneRepo
	dataDir   string
	analyzer  Analyzer
	log       *logger.Logger
}

func NewVideoProcessor(assets repos.AssetRepo, libraries repos.LibraryRepo, sysMeta repos.SystemMetadataRepo, scenes repos.VideoSceneRepo, dataDir string, analyzer Analyzer, log *logger.Logger) *VideoProcessor {
	return &VideoProcessor{
		assets:    assets,
		libraries: libraries,
		sysMeta:   sysMeta,
		scenes:    scenes,
		dataDir:   dataDir,
		analyzer:  analyzer,
		log:       log.With("component", "VideoVisionProcessor"),
	}
}

func (p *VideoProcessor) effectiveModelID(ctx context.Context, asset *models.Asset) (uint64, error) {
	lib, err := p.libraries.GetBySlug(ctx, asset.LibrarySlug, false)
	if err != nil {
		return 0, err
	}
	return p.sysMeta.EffectiveModelID(ctx, lib)
}

func decodeSceneMetadata(scene *models.VideoScene) models.SceneMetadata {
	var meta models.SceneMetadata
	if len(scene.Metadata) > 0 {
		_ = json.Unmarshal(scene.Metadata, &meta)
	}
	return meta
}

func (p *VideoProcessor) runLight(ctx context.Context, scene *models.VideoScene, modelID uint64) (models.SceneMetadata, error) {
	result, err := p.analyzer.Describe(ctx, p.framePathFor(scene))
	if err != nil {
		return models.SceneMetadata{}, err
	}
	meta := decodeSceneMetadata(scene)
	meta.Description = result.Description
	meta.Tags = result.Tags
	meta.ModelID = modelID
	return meta, nil
}

func (p *VideoProcessor) persistScene(ctx context.Context, scene *models.VideoScene, meta models.SceneMetadata, modelID uint64) error {
	blob, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return p.scenes.MergeVisionMetadata(ctx, scene.ID, meta.Description, blob, modelID)
}

// Light is the worker.Processor for queue.StageAIVideoLight: describe()
// every scene that doesn't yet carry a current-model description, then
// advance the asset to analyzed_light.
func (p *VideoProcessor) Light() worker.Processor {
	return func(ctx context.Context, asset *models.Asset, shouldStop func() bool) error {
		modelID, err := p.effectiveModelID(ctx, asset)
		if err != nil {
			return err
		}
		scenes, err := p.scenes.ListByAsset(ctx, asset.ID)
		if err != nil {
			return err
		}
		for _, scene := range scenes {
			if shouldStop() {
				return worker.ErrCancelled
			}
			meta := decodeSceneMetadata(scene)
			if meta.ModelID == modelID && meta.Description != "" {
				continue
			}
			meta, err := p.runLight(ctx, scene, modelID)
			if err != nil {
				return err
			}
			if err := p.persistScene(ctx, scene, meta, modelID); err != nil {
				return err
			}
		}
		p.log.Info("video scenes described", "asset_id", asset.ID, "scene_count", len(scenes))
		return p.assets.Update(ctx, asset.ID, map[string]interface{}{
			"status":        models.StatusAnalyzedLight,
			"tags_model_id": modelID,
		})
	}
}

// Full is the worker.Processor for queue.StageAIVideoFull: ocr() every
// scene not yet fully analyzed by this worker's effective model (scenes
// that already are stay untouched), first rerunning the light pass on any
// scene whose stored model id
// doesn't match this worker's effective model (spec.md §4.5.6 point 2).
// Before advancing the asset to completed it re-verifies every scene
// carries both halves of the pass, repairing any it finds missing.
func (p *VideoProcessor) Full() worker.Processor {
	return func(ctx context.Context, asset *models.Asset, shouldStop func() bool) error {
		modelID, err := p.effectiveModelID(ctx, asset)
		if err != nil {
			return err
		}
		if err := p.processFullPass(ctx, asset, modelID, shouldStop); err != nil {
			return err
		}

		// Re-verify: a scene another pass wrote concurrently, or one this
		// pass's own model-mismatch repair skipped over, must not leave
		// the asset marked completed with an incomplete scene.
		scenes, err := p.scenes.ListByAsset(ctx, asset.ID)
		if err != nil {
			return err
		}
		for _, scene := range scenes {
			if shouldStop() {
				return worker.ErrCancelled
			}
			meta := decodeSceneMetadata(scene)
			if meta.ModelID == modelID && meta.OCRText != "" {
				continue
			}
			if err := p.processScene(ctx, scene, modelID); err != nil {
				return err
			}
		}

		p.log.Info("video scenes fully analyzed", "asset_id", asset.ID, "scene_count", len(scenes))
		return p.assets.Update(ctx, asset.ID, map[string]interface{}{
			"status":        models.StatusCompleted,
			"full_model_id": modelID,
		})
	}
}

func (p *VideoProcessor) processFullPass(ctx context.Context, asset *models.Asset, modelID uint64, shouldStop func() bool) error {
	scenes, err := p.scenes.ListByAsset(ctx, asset.ID)
	if err != nil {
		return err
	}
	for _, scene := range scenes {
		if shouldStop() {
			return worker.ErrCancelled
		}
		meta := decodeSceneMetadata(scene)
		if meta.ModelID == modelID && meta.OCRText != "" {
			continue
		}
		if err := p.processScene(ctx, scene, modelID); err != nil {
			return err
		}
	}
	return nil
}

func (p *VideoProcessor) processScene(ctx context.Context, scene *models.VideoScene, modelID uint64) error {
	meta := decodeSceneMetadata(scene)
	if meta.ModelID != modelID {
		var err error
		meta, err = p.runLight(ctx, scene, modelID)
		if err != nil {
			return err
		}
	}
	if meta.OCRText == "" {
		text, err := p.analyzer.OCR(ctx, p.framePathFor(scene))
		if err != nil {
			return err
		}
		meta.OCRText = text
	}
	return p.persistScene(ctx, scene, meta, modelID)
}

// framePathFor resolves a scene's representative frame to an absolute path.
// Scenes created by internal/video store a path relative to the data
// directory (spec.md §4.5.3), which is joined onto dataDir; a path that is
// already absolute, as some test fixtures use, is returned unchanged.
func (p *VideoProcessor) framePathFor(scene *models.VideoScene) string {
	if filepath.IsAbs(scene.RepFramePath) {
		return scene.RepFramePath
	}
	return filepath.Join(p.dataDir, scene.RepFramePath)
}
