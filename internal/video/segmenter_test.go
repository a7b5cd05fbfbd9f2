package video

import (
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediasearch/core/internal/config"
	"github.com/mediasearch/core/internal/models"
)

func solidImage(c color.Color, w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// verticalSplit and horizontalSplit differ sharply in the low-frequency
// DCT coefficients phash.Compute keys on, which is what we need to force a
// cut deterministically without depending on a specific Hamming distance.
func verticalSplit(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x < w/2 {
				img.Set(x, y, color.White)
			} else {
				img.Set(x, y, color.Black)
			}
		}
	}
	return img
}

func horizontalSplit(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if y < h/2 {
				img.Set(x, y, color.White)
			} else {
				img.Set(x, y, color.Black)
			}
		}
	}
	return img
}

func testConfig() *config.Config {
	return &config.Config{
		PhashThreshold:  1,
		TemporalCeiling: 5 * time.Second,
		DebounceSec:     2 * time.Second,
	}
}

func TestProcess_FirstFrameOpensSceneWithoutCut(t *testing.T) {
	seg := NewSegmenter(testConfig())
	closed := seg.Process(0, solidImage(color.White, 64, 48))
	assert.Nil(t, closed)
}

func TestProcess_TemporalCeilingForcesCut(t *testing.T) {
	seg := NewSegmenter(testConfig())
	img := solidImage(color.White, 64, 48)

	require.Nil(t, seg.Process(0, img))
	require.Nil(t, seg.Process(1, img))
	require.Nil(t, seg.Process(2, img))
	require.Nil(t, seg.Process(3, img))

	closed := seg.Process(5, img) // 5 - 0 >= TemporalCeiling (5s)
	require.NotNil(t, closed)
	assert.Equal(t, models.CloseReasonTemporal, closed.CloseReason)
	assert.Equal(t, 0.0, closed.StartTS)
	assert.Equal(t, 5.0, closed.EndTS)
}

func TestProcess_PhashCutRespectsDebounce(t *testing.T) {
	seg := NewSegmenter(testConfig())
	a := verticalSplit(64, 48)
	b := horizontalSplit(64, 48)

	require.Nil(t, seg.Process(0, a))
	// A strongly different frame arrives immediately after scene open —
	// within DEBOUNCE_SEC (2s) of the implicit "previous cut" (scene
	// start), so it must not cut yet.
	closed := seg.Process(1, b)
	assert.Nil(t, closed)

	// The same strongly different frame, now past the debounce window.
	closed = seg.Process(3, b)
	require.NotNil(t, closed)
	assert.Equal(t, models.CloseReasonPhash, closed.CloseReason)
}

func TestProcess_BestFrameOnlyReplacedWhenSharperAndEligible(t *testing.T) {
	// A never-cuts config isolates the best-frame bookkeeping from the
	// cut decision entirely.
	cfg := &config.Config{PhashThreshold: 1000, TemporalCeiling: time.Hour, DebounceSec: time.Hour}
	seg := NewSegmenter(cfg)

	blurry := solidImage(color.White, 64, 48) // uniform: zero Laplacian variance
	sharp := verticalSplit(64, 48)             // sharp edge: high Laplacian variance

	require.Nil(t, seg.Process(0, blurry)) // frame 1: the anchor itself seeds best-frame
	cp := seg.Checkpoint()
	assert.Equal(t, 0.0, cp.BestFrameTS)
	assert.Equal(t, 0.0, cp.BestSharpness)

	require.Nil(t, seg.Process(1, sharp)) // frame 2: now eligible, and sharper — replaces
	cp = seg.Checkpoint()
	assert.Equal(t, 1.0, cp.BestFrameTS)
	assert.Greater(t, cp.BestSharpness, 0.0)

	require.Nil(t, seg.Process(2, blurry)) // frame 3: duller than the current best — no replacement
	cp = seg.Checkpoint()
	assert.Equal(t, 1.0, cp.BestFrameTS)
}

func TestFlush_ExtendsEndToSourceDuration(t *testing.T) {
	seg := NewSegmenter(testConfig())
	img := solidImage(color.White, 64, 48)
	require.Nil(t, seg.Process(0, img))
	require.Nil(t, seg.Process(1, img))

	closed := seg.Flush(10.0)
	require.NotNil(t, closed)
	assert.Equal(t, models.CloseReasonForced, closed.CloseReason)
	assert.Equal(t, 10.0, closed.EndTS)
}

func TestFlush_UsesLastPTSWhenPastDuration(t *testing.T) {
	seg := NewSegmenter(testConfig())
	img := solidImage(color.White, 64, 48)
	require.Nil(t, seg.Process(0, img))
	require.Nil(t, seg.Process(3, img)) // still under the 5s temporal ceiling

	closed := seg.Flush(2.0) // duration shorter than what we actually observed
	require.NotNil(t, closed)
	assert.Equal(t, 3.0, closed.EndTS)
}

func TestFlush_NilWhenNoSceneOpen(t *testing.T) {
	seg := NewSegmenter(testConfig())
	assert.Nil(t, seg.Flush(10.0))
}

func TestResume_ContinuesOpenSceneWithoutReopening(t *testing.T) {
	seg := NewSegmenter(testConfig())
	img := solidImage(color.White, 64, 48)
	require.Nil(t, seg.Process(0, img))
	cp := seg.Checkpoint()

	resumed := NewSegmenter(testConfig())
	resumed.Resume(cp)
	resumedCP := resumed.Checkpoint()
	assert.Equal(t, cp, resumedCP)
}

func TestLaplacianVariance_UniformImageIsZero(t *testing.T) {
	gray := grayscale(solidImage(color.White, 16, 16))
	assert.Equal(t, 0.0, laplacianVariance(gray))
}

func TestLaplacianVariance_EdgeIsPositive(t *testing.T) {
	gray := grayscale(verticalSplit(16, 16))
	assert.Greater(t, laplacianVariance(gray), 0.0)
}
