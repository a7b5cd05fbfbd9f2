// Package vision implements the pluggable vision-analyzer contract of
// spec.md §4.5.6. The vision model itself is explicitly out of scope (it is
// "treated as a pure function frame → {description, tags, ocr_text}"); this
// package owns only the interface, the strict-merge wiring for both halves
// of the pass (image assets directly, video scenes via VideoSceneRepo), and
// a mock analyzer for tests. Real analyzer backends are swapped in behind
// the Analyzer interface without touching the merge/invalidation logic.
package vision

import "context"

// ModelCard identifies one analyzer build, matching the (name, version)
// pair registered in the AIModel table (spec.md §3).
type ModelCard struct {
	Name    string
	Version string
}

// LightResult is the output of the light half of the pass: a description
// and a set of tags for one frame.
type LightResult struct {
	Description string
	Tags        []string
}

// Analyzer is the pluggable dispatch surface spec.md §4.5.6 calls
// "describe(frame) → {description, tags}, ocr(frame) → text" with a known
// model_card(). A frame is addressed by its path on the local cache
// filesystem (a scene's rep_frame_path, or an asset's proxy image).
type Analyzer interface {
	Describe(ctx context.Context, framePath string) (LightResult, error)
	OCR(ctx context.Context, framePath string) (string, error)
	ModelCard() ModelCard
}
