// Package video implements the Video Scene Engine (spec.md §4.5): a 1fps
// frame extractor paired with per-frame metadata (§4.5.1), a deterministic
// scene-cut detector (§4.5.2), high-res representative-frame re-extraction
// (§4.5.3), a crash-resumable checkpoint (§4.5.4), and segmentation-version
// invalidation (§4.5.5).
package video

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/mediasearch/core/internal/apperr"
	"github.com/mediasearch/core/internal/config"
	"github.com/mediasearch/core/internal/logger"
	"github.com/mediasearch/core/internal/models"
	"github.com/mediasearch/core/internal/repos"
)

// ErrCancelled signals should_stop() fired mid-segmentation. Callers that
// wire this engine into a worker.Processor should fold it into
// worker.ErrCancelled; it is defined locally so this package does not
// depend on internal/worker.
var ErrCancelled = errors.New("video: segmentation cancelled")

// Engine drives one asset's segmentation run from start or resume through
// to a clean finish, persisting every scene close atomically.
type Engine struct {
	scenes  repos.VideoSceneRepo
	active  repos.VideoActiveStateRepo
	assets  repos.AssetRepo
	cfg     *config.Config
	ffmpeg  string
	ffprobe string
	leaseTTL time.Duration
	log     *logger.Logger
}

func NewEngine(scenes repos.VideoSceneRepo, active repos.VideoActiveStateRepo, assets repos.AssetRepo, cfg *config.Config, ffmpegPath, ffprobePath string, log *logger.Logger) *Engine {
	return &Engine{
		scenes:   scenes,
		active:   active,
		assets:   assets,
		cfg:      cfg,
		ffmpeg:   ffmpegPath,
		ffprobe:  ffprobePath,
		leaseTTL: cfg.LeaseTTL,
		log:      log.With("component", "video.Engine"),
	}
}

// Segment runs (or resumes) scene segmentation for one video asset.
// sourcePath is the absolute path to the original file; shouldStop is
// polled before each frame is read, the cooperative-cancellation granularity spec.md
// §5 prescribes for "decoder pipe reads" as a suspension point.
func (e *Engine) Segment(ctx context.Context, asset *models.Asset, sourcePath string, shouldStop func() bool) error {
	if invalidated, err := e.invalidateIfStale(ctx, asset); err != nil {
		return err
	} else if invalidated {
		asset.SegmentationVersion = ""
	}

	existing, err := e.scenes.ListByAsset(ctx, asset.ID)
	if err != nil {
		return err
	}

	var seekTo, resumeFrom float64
	seg := NewSegmenter(e.cfg)

	checkpoint, err := e.active.Get(ctx, asset.ID)
	if err != nil {
		return err
	}

	switch {
	case checkpoint != nil:
		resumeFrom = maxEndTS(existing)
		seekTo = math.Max(resumeFrom-2.0, 0)
		seg.Resume(Checkpoint{
			AnchorPhash:   decodeHash(checkpoint.AnchorPhash),
			SceneStartTS:  checkpoint.SceneStartTS,
			LastCutTS:     checkpoint.LastCutTS,
			BestFrameTS:   checkpoint.BestFrameTS,
			BestSharpness: checkpoint.BestSharpness,
			FramesInScene: checkpoint.FramesInScene,
		})
	case len(existing) > 0:
		// Scenes exist with no active-state row: the prior run already
		// finished cleanly. Nothing to do — callers shouldn't normally
		// re-invoke Segment for an asset already past this stage, but
		// treat it as idempotent rather than re-segmenting from scratch.
		return nil
	default:
		if asset.SegmentationVersion == "" {
			if err := e.assets.Update(ctx, asset.ID, map[string]interface{}{
				"segmentation_version": e.cfg.SegmentationVersion(),
			}); err != nil {
				return err
			}
			asset.SegmentationVersion = e.cfg.SegmentationVersion()
		}
	}

	extractor, err := NewFrameExtractor(ctx, e.ffmpeg, e.ffprobe, sourcePath, seekTo, e.log)
	if err != nil {
		return err
	}
	defer extractor.Close()

	var lastPTS float64
	for {
		if shouldStop() {
			return ErrCancelled
		}

		frame, err := extractor.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}

		if resumeFrom > 0 && frame.PTS < resumeFrom {
			continue // discard frames until pts >= M (spec.md §4.5.4 step 4)
		}
		lastPTS = frame.PTS

		closed := seg.Process(frame.PTS, frame.Image)
		if closed == nil {
			continue
		}
		if err := e.persistClose(ctx, asset, sourcePath, closed, seg, false); err != nil {
			return err
		}
	}

	if err := extractor.CheckCompletion(lastPTS); err != nil {
		return err
	}

	if final := seg.Flush(extractor.Duration()); final != nil {
		if err := e.persistClose(ctx, asset, sourcePath, final, seg, true); err != nil {
			return err
		}
	}
	return nil
}

// persistClose re-extracts the representative frame at high resolution,
// then runs the scene-close transaction (spec.md §4.5.4): insert the
// scene, replace (or, on the final close, delete) the checkpoint, and
// renew the asset's lease — atomically.
func (e *Engine) persistClose(ctx context.Context, asset *models.Asset, sourcePath string, closed *SceneResult, seg *Segmenter, final bool) error {
	repPath, err := e.reextractRepFrame(ctx, asset, sourcePath, closed)
	if err != nil {
		return err
	}

	scene := &models.VideoScene{
		AssetID:      asset.ID,
		StartTS:      closed.StartTS,
		EndTS:        closed.EndTS,
		RepFramePath: repPath,
		Sharpness:    closed.Sharpness,
		CloseReason:  closed.CloseReason,
	}

	var nextState *models.VideoActiveState
	if !final {
		cp := seg.Checkpoint()
		nextState = &models.VideoActiveState{
			AssetID:       asset.ID,
			AnchorPhash:   encodeHash(cp.AnchorPhash),
			SceneStartTS:  cp.SceneStartTS,
			LastCutTS:     cp.LastCutTS,
			BestFrameTS:   cp.BestFrameTS,
			BestSharpness: cp.BestSharpness,
			FramesInScene: cp.FramesInScene,
		}
	}

	return e.scenes.CloseScene(ctx, scene, nextState, asset.ID, time.Now().Add(e.leaseTTL))
}

// reextractRepFrame performs the targeted high-resolution seek of spec.md
// §4.5.3: a fresh, single-frame ffmpeg invocation decoupled from the 1fps
// pass, so full-resolution pixels are never held in memory during
// segmentation itself.
func (e *Engine) reextractRepFrame(ctx context.Context, asset *models.Asset, sourcePath string, closed *SceneResult) (string, error) {
	seek := math.Max(closed.RepFramePTS-0.5, 0)

	relDir := filepath.Join("video_scenes", asset.LibrarySlug, asset.ID.String())
	absDir := filepath.Join(e.cfg.DataDir, relDir)
	if err := os.MkdirAll(absDir, 0o755); err != nil {
		return "", fmt.Errorf("rep frame dir: %w", err)
	}

	fileName := fmt.Sprintf("%s_%s.jpg", formatTS(closed.StartTS), formatTS(closed.EndTS))
	absPath := filepath.Join(absDir, fileName)

	args := []string{
		"-ss", strconv.FormatFloat(seek, 'f', 3, 64),
		"-i", sourcePath,
		"-frames:v", "1",
		"-q:v", "2",
		"-y", absPath,
	}
	cmd := exec.CommandContext(ctx, e.ffmpeg, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", &apperr.CorruptSourceError{Path: sourcePath, Err: fmt.Errorf("rep-frame re-extraction: %w: %s", err, stderr.String())}
	}
	return filepath.Join(relDir, fileName), nil
}

// invalidateIfStale implements spec.md §4.5.5: an asset whose stored
// segmentation_version differs from the currently configured version has
// its scenes, checkpoint, and preview paths wiped so it re-segments from
// scratch. A null/empty stored version is legacy data and is never
// invalidated.
func (e *Engine) invalidateIfStale(ctx context.Context, asset *models.Asset) (bool, error) {
	if asset.SegmentationVersion == "" || asset.SegmentationVersion == e.cfg.SegmentationVersion() {
		return false, nil
	}

	if err := e.scenes.DeleteByAsset(ctx, asset.ID); err != nil {
		return false, err
	}
	if err := e.active.Delete(ctx, asset.ID); err != nil {
		return false, err
	}
	return true, e.assets.Update(ctx, asset.ID, map[string]interface{}{
		"segmentation_version": e.cfg.SegmentationVersion(),
		"video_head_clip_path": "",
	})
}

func maxEndTS(scenes []*models.VideoScene) float64 {
	var max float64
	for _, s := range scenes {
		if s.EndTS > max {
			max = s.EndTS
		}
	}
	return max
}

// formatTS matches the original indexer's rep-frame filename format
// (original_source/src/video/indexing.py: f"{ts:.3f}") — seconds to
// millisecond precision, not a zero-padded millisecond integer.
func formatTS(ts float64) string {
	return fmt.Sprintf("%.3f", ts)
}

func encodeHash(h [32]byte) string { return hex.EncodeToString(h[:]) }

func decodeHash(s string) [32]byte {
	var h [32]byte
	b, err := hex.DecodeString(s)
	if err == nil && len(b) == len(h) {
		copy(h[:], b)
	}
	return h
}
