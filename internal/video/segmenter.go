package video

import (
	"image"

	"github.com/mediasearch/core/internal/config"
	"github.com/mediasearch/core/internal/models"
	"github.com/mediasearch/core/internal/phash"
)

// SceneResult is one closed scene, ready to be re-extracted at high
// resolution and persisted (spec.md §4.5.2 step 6).
type SceneResult struct {
	StartTS, EndTS float64
	RepFramePTS    float64
	Sharpness      float64
	CloseReason    models.CloseReason
}

// Checkpoint is the resumable state of one open scene — exactly what
// VideoActiveState persists and primes from (spec.md §4.5.4). It
// deliberately carries no frame bytes: the representative frame is only
// ever materialized by a high-res re-extraction after its scene closes
// (§4.5.3), so there is nothing to checkpoint for it but PTS and sharpness.
type Checkpoint struct {
	AnchorPhash   phash.Hash
	SceneStartTS  float64
	LastCutTS     float64
	BestFrameTS   float64
	BestSharpness float64
	FramesInScene int
}

// Segmenter is the "composite cut detector" of spec.md §4.5.2: a pure state
// machine over a stream of (pts, image) pairs, driven one frame at a time
// by Process. It holds no I/O and no wall-clock dependency, so the same
// inputs and parameters always yield the same scenes.
type Segmenter struct {
	threshold       int
	temporalCeiling float64
	debounceSec     float64

	hasOpenScene  bool
	anchor        phash.Hash
	sceneStart    float64
	lastCutTS     float64
	lastPTS       float64
	framesInScene int
	bestFramePTS  float64
	bestSharpness float64
}

// NewSegmenter builds a Segmenter from the configured tuning parameters
// (spec.md §4.5.2's PHASH_THRESHOLD/TEMPORAL_CEILING/DEBOUNCE_SEC).
func NewSegmenter(cfg *config.Config) *Segmenter {
	return &Segmenter{
		threshold:       cfg.PhashThreshold,
		temporalCeiling: cfg.TemporalCeiling.Seconds(),
		debounceSec:     cfg.DebounceSec.Seconds(),
	}
}

// Resume primes the segmenter with a previously-persisted checkpoint,
// reopening the scene it describes (spec.md §4.5.4 resume step 5).
func (s *Segmenter) Resume(cp Checkpoint) {
	s.hasOpenScene = true
	s.anchor = cp.AnchorPhash
	s.sceneStart = cp.SceneStartTS
	s.lastCutTS = cp.LastCutTS
	s.lastPTS = cp.SceneStartTS
	s.bestFramePTS = cp.BestFrameTS
	s.bestSharpness = cp.BestSharpness
	s.framesInScene = cp.FramesInScene
}

// Checkpoint captures the currently-open scene's state for persistence.
// hasOpenScene is false only before the very first frame has been seen,
// which never happens at a scene-close transaction (one always exists by
// then), so callers at a close point can call this unconditionally.
func (s *Segmenter) Checkpoint() Checkpoint {
	return Checkpoint{
		AnchorPhash:   s.anchor,
		SceneStartTS:  s.sceneStart,
		LastCutTS:     s.lastCutTS,
		BestFrameTS:   s.bestFramePTS,
		BestSharpness: s.bestSharpness,
		FramesInScene: s.framesInScene,
	}
}

// Process ingests one frame. It returns the just-closed scene if this frame
// triggered a cut, or nil if the scene is still open (spec.md §4.5.2
// "Per frame" steps 1-6).
func (s *Segmenter) Process(pts float64, img image.Image) *SceneResult {
	h := phash.Compute(img)
	sharpness := laplacianVariance(grayscale(img))
	s.lastPTS = pts

	if !s.hasOpenScene {
		s.openScene(h, pts, sharpness)
		return nil
	}

	s.framesInScene++
	// Fewer than 2 frames seen in the open scene: skip updating the best
	// frame, to avoid picking a transition blur or fade-in as the
	// representative (spec.md §4.5.2 step 2).
	if s.framesInScene >= 2 && sharpness > s.bestSharpness {
		s.bestSharpness = sharpness
		s.bestFramePTS = pts
	}

	dist := phash.Distance(h, s.anchor)

	var reason models.CloseReason
	switch {
	case pts-s.sceneStart >= s.temporalCeiling:
		reason = models.CloseReasonTemporal
	case dist > s.threshold && pts-s.lastCutTS >= s.debounceSec:
		reason = models.CloseReasonPhash
	default:
		return nil
	}

	closed := &SceneResult{
		StartTS:     s.sceneStart,
		EndTS:       pts,
		RepFramePTS: s.bestFramePTS,
		Sharpness:   s.bestSharpness,
		CloseReason: reason,
	}
	s.openScene(h, pts, sharpness)
	return closed
}

func (s *Segmenter) openScene(anchor phash.Hash, pts, sharpness float64) {
	s.hasOpenScene = true
	s.anchor = anchor
	s.sceneStart = pts
	s.lastCutTS = pts
	s.bestFramePTS = pts
	s.bestSharpness = sharpness
	s.framesInScene = 1
}

// Flush closes whatever scene is still open at end-of-stream, extending its
// end to the source's reported duration if that runs past the last
// observed frame (spec.md §4.5.2 "End-of-stream"). It returns nil if no
// scene is open, which only happens for a zero-frame stream.
func (s *Segmenter) Flush(sourceDuration float64) *SceneResult {
	if !s.hasOpenScene {
		return nil
	}
	endTS := s.lastPTS
	if sourceDuration > endTS {
		endTS = sourceDuration
	}
	closed := &SceneResult{
		StartTS:     s.sceneStart,
		EndTS:       endTS,
		RepFramePTS: s.bestFramePTS,
		Sharpness:   s.bestSharpness,
		CloseReason: models.CloseReasonForced,
	}
	s.hasOpenScene = false
	return closed
}

// grayscale converts img to a float64 luma grid via the standard
// ITU-R BT.601 weights, the input laplacianVariance expects.
func grayscale(img image.Image) [][]float64 {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := make([][]float64, h)
	for y := 0; y < h; y++ {
		out[y] = make([]float64, w)
		for x := 0; x < w; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			out[y][x] = 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(bl>>8)
		}
	}
	return out
}

// laplacianVariance approximates sharpness as the variance of the discrete
// Laplacian over the frame (spec.md §4.5.2 "sharpness (Laplacian variance,
// approximated on the 480 px frame)") — a sharp, in-focus frame has high
// edge variance; a blurred transition frame does not.
func laplacianVariance(gray [][]float64) float64 {
	h := len(gray)
	if h < 3 {
		return 0
	}
	w := len(gray[0])
	if w < 3 {
		return 0
	}

	n := 0
	var mean float64
	lap := make([]float64, 0, (h-2)*(w-2))
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			v := -4*gray[y][x] + gray[y-1][x] + gray[y+1][x] + gray[y][x-1] + gray[y][x+1]
			lap = append(lap, v)
			mean += v
			n++
		}
	}
	mean /= float64(n)

	var variance float64
	for _, v := range lap {
		d := v - mean
		variance += d * d
	}
	return variance / float64(n)
}
