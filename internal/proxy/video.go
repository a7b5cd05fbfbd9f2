package proxy

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/mediasearch/core/internal/apperr"
	"github.com/mediasearch/core/internal/logger"
	"github.com/mediasearch/core/internal/models"
	"github.com/mediasearch/core/internal/video"
)

// VideoCascade produces a video asset's derivatives: one ephemeral 720p
// transcode of the source, a static thumbnail and 10-second stream-copy
// head-clip cut from that transcode, then the Scene Engine's own
// (separately specified) pass over the original source (spec.md §4.4).
type VideoCascade struct {
	dataDir    string
	ffmpegPath string
	engine     *video.Engine
	log        *logger.Logger
}

func NewVideoCascade(dataDir, ffmpegPath string, engine *video.Engine, log *logger.Logger) *VideoCascade {
	return &VideoCascade{
		dataDir:    dataDir,
		ffmpegPath: ffmpegPath,
		engine:     engine,
		log:        log.With("component", "VideoCascade"),
	}
}

// Process reads sourcePath exactly once for the proxy stage's own
// derivatives (the ephemeral transcode); the thumbnail and head-clip are
// then cut from that transcode, never re-reading the original. The Scene
// Engine's 1fps pass and per-scene re-extraction are a separate, later
// read of the original source under its own contract (spec.md §4.5).
func (c *VideoCascade) Process(ctx context.Context, asset *models.Asset, sourcePath string, shouldStop func() bool) (thumbRel, headClipRel string, err error) {
	tmpRel := TempRelPath(asset.LibrarySlug)
	tmpAbs := filepath.Join(c.dataDir, tmpRel)
	if err := os.MkdirAll(filepath.Dir(tmpAbs), 0o755); err != nil {
		return "", "", fmt.Errorf("proxy: tmp dir: %w", err)
	}
	defer func() {
		// Ephemeral: removed on exit, success or failure (spec.md §4.4).
		if rmErr := os.Remove(tmpAbs); rmErr != nil && !os.IsNotExist(rmErr) {
			c.log.Warn("failed to remove ephemeral transcode", "path", tmpAbs, "error", rmErr)
		}
	}()

	if err := c.transcode720p(ctx, sourcePath, tmpAbs); err != nil {
		return "", "", err
	}

	headClipRel = VideoHeadClipRelPath(asset.LibrarySlug, asset.ID)
	headClipAbs := filepath.Join(c.dataDir, headClipRel)
	if err := os.MkdirAll(filepath.Dir(headClipAbs), 0o755); err != nil {
		return "", "", fmt.Errorf("proxy: head clip dir: %w", err)
	}
	if err := c.streamCopyHeadClip(ctx, tmpAbs, headClipAbs); err != nil {
		return "", "", err
	}

	thumbRel = ThumbnailRelPath(asset.LibrarySlug, asset.ID)
	thumbAbs := filepath.Join(c.dataDir, thumbRel)
	if err := os.MkdirAll(filepath.Dir(thumbAbs), 0o755); err != nil {
		return "", "", fmt.Errorf("proxy: thumbnail dir: %w", err)
	}
	if err := c.extractThumbnail(ctx, tmpAbs, thumbAbs); err != nil {
		return "", "", err
	}

	if err := c.engine.Segment(ctx, asset, sourcePath, shouldStop); err != nil {
		return "", "", err
	}
	return thumbRel, headClipRel, nil
}

func (c *VideoCascade) transcode720p(ctx context.Context, sourcePath, outPath string) error {
	args := []string{
		"-y", "-i", sourcePath,
		"-vf", "scale=-2:720",
		"-c:v", "libx264", "-preset", "veryfast",
		"-c:a", "aac",
		outPath,
	}
	return c.runFFmpeg(ctx, sourcePath, args)
}

func (c *VideoCascade) streamCopyHeadClip(ctx context.Context, inPath, outPath string) error {
	args := []string{"-y", "-i", inPath, "-t", "10", "-c", "copy", outPath}
	return c.runFFmpeg(ctx, inPath, args)
}

func (c *VideoCascade) extractThumbnail(ctx context.Context, inPath, outPath string) error {
	args := []string{"-y", "-ss", "1", "-i", inPath, "-frames:v", "1", "-q:v", "2", outPath}
	return c.runFFmpeg(ctx, inPath, args)
}

func (c *VideoCascade) runFFmpeg(ctx context.Context, srcForError string, args []string) error {
	cmd := exec.CommandContext(ctx, c.ffmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return &apperr.CorruptSourceError{Path: srcForError, Err: fmt.Errorf("ffmpeg: %w: %s", err, stderr.String())}
	}
	return nil
}
