package vision

import (
	"context"
	"fmt"
	"path/filepath"
)

// MockAnalyzer is a deterministic stand-in for the real vision model
// (out of scope per spec.md §1), used by tests and by operators running
// the pipeline without a configured analyzer. Its outputs are a pure
// function of the frame path, so repeated runs over the same fixture are
// reproducible (spec.md §4.5.2 "deterministic for the same inputs").
type MockAnalyzer struct {
	Card ModelCard
}

// NewMockAnalyzer returns a MockAnalyzer carrying the given model card, or
// a default "mock/v1" card if name/version are both empty.
func NewMockAnalyzer(name, version string) *MockAnalyzer {
	if name == "" {
		name = "mock"
	}
	if version == "" {
		version = "v1"
	}
	return &MockAnalyzer{Card: ModelCard{Name: name, Version: version}}
}

func (a *MockAnalyzer) Describe(ctx context.Context, framePath string) (LightResult, error) {
	base := filepath.Base(framePath)
	return LightResult{
		Description: fmt.Sprintf("mock description of %s", base),
		Tags:        []string{"mock", filepath.Ext(base)},
	}, nil
}

func (a *MockAnalyzer) OCR(ctx context.Context, framePath string) (string, error) {
	return fmt.Sprintf("mock ocr text for %s", filepath.Base(framePath)), nil
}

func (a *MockAnalyzer) ModelCard() ModelCard { return a.Card }
