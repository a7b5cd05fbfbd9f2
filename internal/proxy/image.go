package proxy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"

	webpenc "github.com/chai2010/webp"

	"github.com/mediasearch/core/internal/apperr"
	"github.com/mediasearch/core/internal/logger"
	"github.com/mediasearch/core/internal/models"
)

// proxyLongEdge and thumbnailLongEdge are the cascade's target sizes
// (spec.md §4.4: "WebP proxy (≤768px long edge)" / "JPEG thumbnail
// (≤320px long edge)").
const (
	proxyLongEdge     = 768
	thumbnailLongEdge = 320
)

func init() {
	// image/jpeg and image/png register themselves via blank import above
	// and the stdlib's own init; bmp/tiff/webp decoding is the one
	// image-processing dependency the pack actually carries
	// (golang.org/x/image), so it covers every non-RAW extension the
	// Scanner recognizes (spec.md §4.3).
	image.RegisterFormat("bmp", "BM", bmp.Decode, bmp.DecodeConfig)
	image.RegisterFormat("tiff-le", "II*\x00", tiff.Decode, tiff.DecodeConfig)
	image.RegisterFormat("tiff-be", "MM\x00*", tiff.Decode, tiff.DecodeConfig)
	image.RegisterFormat("webp", "RIFF????WEBP", webp.Decode, webp.DecodeConfig)
}

// rawExts is the camera-RAW/DNG subset of the Scanner's recognized image
// extensions (spec.md §4.3) — none of them have a native or x/image
// decoder, so they route through decodeRAWPreview instead.
var rawExts = map[string]bool{
	".cr2": true, ".cr3": true, ".crw": true, ".nef": true, ".nrw": true,
	".arw": true, ".sr2": true, ".srf": true, ".raf": true, ".orf": true,
	".rw2": true, ".raw": true, ".rwl": true, ".dng": true,
}

// ImageCascade builds the WebP proxy and JPEG thumbnail for one image
// asset: decode → proxy → thumbnail-from-proxy, never upscaling at either
// step (spec.md §4.4).
type ImageCascade struct {
	dataDir        string
	ffmpegPath     string
	useRAWPreviews bool
	log            *logger.Logger
}

func NewImageCascade(dataDir, ffmpegPath string, useRAWPreviews bool, log *logger.Logger) *ImageCascade {
	return &ImageCascade{
		dataDir:        dataDir,
		ffmpegPath:     ffmpegPath,
		useRAWPreviews: useRAWPreviews,
		log:            log.With("component", "ImageCascade"),
	}
}

// Process decodes sourcePath exactly once, derives the proxy and thumbnail,
// and writes both under data_dir, returning their data_dir-relative paths.
func (c *ImageCascade) Process(ctx context.Context, asset *models.Asset, sourcePath string) (proxyRel, thumbRel string, err error) {
	src, err := c.decodeSource(ctx, sourcePath)
	if err != nil {
		return "", "", err
	}

	proxyImg := resizeLongEdge(src, proxyLongEdge)
	thumbImg := resizeLongEdge(proxyImg, thumbnailLongEdge) // cascade: from the proxy, not the source

	proxyRel = ProxyRelPath(asset.LibrarySlug, asset.ID)
	thumbRel = ThumbnailRelPath(asset.LibrarySlug, asset.ID)

	if err := c.writeWebP(filepath.Join(c.dataDir, proxyRel), proxyImg); err != nil {
		return "", "", err
	}
	if err := c.writeJPEG(filepath.Join(c.dataDir, thumbRel), thumbImg); err != nil {
		return "", "", err
	}
	return proxyRel, thumbRel, nil
}

// decodeSource performs the cascade's single source read: a native/x-image
// decode for every recognized format, or a RAW-preview extraction for
// camera-RAW/DNG files when enabled.
func (c *ImageCascade) decodeSource(ctx context.Context, sourcePath string) (image.Image, error) {
	ext := strings.ToLower(filepath.Ext(sourcePath))
	if rawExts[ext] {
		if !c.useRAWPreviews {
			return nil, &apperr.CorruptSourceError{Path: sourcePath, Err: errors.New("RAW preview extraction disabled (use_raw_previews=false)")}
		}
		return c.decodeRAWPreview(ctx, sourcePath)
	}

	f, err := os.Open(sourcePath)
	if err != nil {
		return nil, &apperr.CorruptSourceError{Path: sourcePath, Err: err}
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, &apperr.CorruptSourceError{Path: sourcePath, Err: err}
	}
	return img, nil
}

// decodeRAWPreview extracts a RAW file's embedded full-size JPEG preview via
// ffmpeg (the same binary the Video Scene Engine already depends on), since
// no library in the example pack decodes camera RAW formats directly.
func (c *ImageCascade) decodeRAWPreview(ctx context.Context, sourcePath string) (image.Image, error) {
	tmp, err := os.CreateTemp("", "raw-preview-*.jpg")
	if err != nil {
		return nil, fmt.Errorf("proxy: raw preview temp file: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	cmd := exec.CommandContext(ctx, c.ffmpegPath, "-y", "-i", sourcePath, "-map", "0:v:0", "-frames:v", "1", tmpPath)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, &apperr.CorruptSourceError{Path: sourcePath, Err: fmt.Errorf("raw preview extraction: %w: %s", err, stderr.String())}
	}

	f, err := os.Open(tmpPath)
	if err != nil {
		return nil, &apperr.CorruptSourceError{Path: sourcePath, Err: err}
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, &apperr.CorruptSourceError{Path: sourcePath, Err: err}
	}
	return img, nil
}

func (c *ImageCascade) writeWebP(absPath string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return fmt.Errorf("proxy: webp dir: %w", err)
	}
	f, err := os.Create(absPath)
	if err != nil {
		return fmt.Errorf("proxy: create proxy file: %w", err)
	}
	defer f.Close()
	return webpenc.Encode(f, img, &webpenc.Options{Quality: 82})
}

func (c *ImageCascade) writeJPEG(absPath string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return fmt.Errorf("proxy: jpeg dir: %w", err)
	}
	f, err := os.Create(absPath)
	if err != nil {
		return fmt.Errorf("proxy: create thumbnail file: %w", err)
	}
	defer f.Close()
	return jpeg.Encode(f, img, &jpeg.Options{Quality: 85})
}

// resizeLongEdge scales img so its longer edge is maxLongEdge, preserving
// aspect ratio, and never upscales (spec.md §4.4 "never upscaling").
func resizeLongEdge(img image.Image, maxLongEdge int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	longEdge := w
	if h > w {
		longEdge = h
	}
	if longEdge <= maxLongEdge {
		return img
	}

	scale := float64(maxLongEdge) / float64(longEdge)
	newW := int(math.Round(float64(w) * scale))
	newH := int(math.Round(float64(h) * scale))
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}
