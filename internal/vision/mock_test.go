package vision

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockAnalyzer_DeterministicForSameFrame(t *testing.T) {
	a := NewMockAnalyzer("", "")
	r1, err := a.Describe(context.Background(), "/data/video_scenes/lib/asset/0_5.jpg")
	require.NoError(t, err)
	r2, err := a.Describe(context.Background(), "/data/video_scenes/lib/asset/0_5.jpg")
	require.NoError(t, err)
	assert.Equal(t, r1, r2)
}

func TestMockAnalyzer_ModelCardDefaults(t *testing.T) {
	a := NewMockAnalyzer("", "")
	assert.Equal(t, ModelCard{Name: "mock", Version: "v1"}, a.ModelCard())
}
