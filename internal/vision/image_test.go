package vision

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediasearch/core/internal/logger"
	"github.com/mediasearch/core/internal/models"
)

func TestImageProcessor_Light_MergesAndAdvances(t *testing.T) {
	assets := &fakeVisionAssets{}
	p := NewImageProcessor(assets, &fakeVisionLibraries{lib: &models.Library{Slug: "lib"}}, &fakeVisionSysMeta{modelID: 3}, "/data", NewMockAnalyzer("", ""), logger.Nop())

	asset := &models.Asset{ID: uuid.New(), LibrarySlug: "lib", ProxyPath: "lib/proxies/1/a.webp"}
	err := p.Light()(context.Background(), asset, neverStop)
	require.NoError(t, err)

	require.Len(t, assets.merges, 1)
	call := assets.merges[0]
	assert.False(t, call.full)
	assert.NotEmpty(t, call.desc)
	assert.NotEmpty(t, call.tags)
	assert.Equal(t, uint64(3), call.modelID)
	assert.Equal(t, models.StatusAnalyzedLight, assets.updates[asset.ID]["status"])
}

func TestImageProcessor_Full_MergesOCROnlyAndAdvances(t *testing.T) {
	assets := &fakeVisionAssets{}
	p := NewImageProcessor(assets, &fakeVisionLibraries{lib: &models.Library{Slug: "lib"}}, &fakeVisionSysMeta{modelID: 3}, "/data", NewMockAnalyzer("", ""), logger.Nop())

	asset := &models.Asset{ID: uuid.New(), LibrarySlug: "lib", ProxyPath: "lib/proxies/1/a.webp"}
	err := p.Full()(context.Background(), asset, neverStop)
	require.NoError(t, err)

	require.Len(t, assets.merges, 1)
	call := assets.merges[0]
	assert.True(t, call.full)
	assert.Empty(t, call.desc)
	assert.Nil(t, call.tags)
	assert.NotEmpty(t, call.ocrText)
	assert.Equal(t, models.StatusCompleted, assets.updates[asset.ID]["status"])
}

func TestImageProcessor_FramePath_FallsBackToThumbnail(t *testing.T) {
	p := &ImageProcessor{dataDir: "/data"}
	asset := &models.Asset{ThumbnailPath: "lib/thumbnails/1/a.jpg"}
	assert.Equal(t, "/data/lib/thumbnails/1/a.jpg", p.framePath(asset))
}
