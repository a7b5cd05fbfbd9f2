package video

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediasearch/core/internal/config"
	"github.com/mediasearch/core/internal/logger"
	"github.com/mediasearch/core/internal/models"
	"github.com/mediasearch/core/internal/repos"
)

type fakeSceneRepo struct {
	repos.VideoSceneRepo
	byAsset map[uuid.UUID][]*models.VideoScene
	deleted []uuid.UUID
}

func (f *fakeSceneRepo) ListByAsset(ctx context.Context, assetID uuid.UUID) ([]*models.VideoScene, error) {
	return f.byAsset[assetID], nil
}

func (f *fakeSceneRepo) DeleteByAsset(ctx context.Context, assetID uuid.UUID) error {
	f.deleted = append(f.deleted, assetID)
	delete(f.byAsset, assetID)
	return nil
}

type fakeActiveRepo struct {
	repos.VideoActiveStateRepo
	state   map[uuid.UUID]*models.VideoActiveState
	deleted []uuid.UUID
}

func (f *fakeActiveRepo) Get(ctx context.Context, assetID uuid.UUID) (*models.VideoActiveState, error) {
	return f.state[assetID], nil
}

func (f *fakeActiveRepo) Delete(ctx context.Context, assetID uuid.UUID) error {
	f.deleted = append(f.deleted, assetID)
	delete(f.state, assetID)
	return nil
}

type fakeAssetUpdateRepo struct {
	repos.AssetRepo
	updates []map[string]interface{}
}

func (f *fakeAssetUpdateRepo) Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	f.updates = append(f.updates, updates)
	return nil
}

func testVideoConfig() *config.Config {
	return &config.Config{
		DataDir:         "/tmp/mediasearch-test",
		PhashThreshold:  51,
		TemporalCeiling: 30 * time.Second,
		DebounceSec:     3 * time.Second,
		LeaseTTL:        5 * time.Minute,
	}
}

func TestInvalidateIfStale_NullVersionIsLegacyAndSkipped(t *testing.T) {
	scenes := &fakeSceneRepo{byAsset: map[uuid.UUID][]*models.VideoScene{}}
	active := &fakeActiveRepo{state: map[uuid.UUID]*models.VideoActiveState{}}
	assets := &fakeAssetUpdateRepo{}
	e := NewEngine(scenes, active, assets, testVideoConfig(), "ffmpeg", "ffprobe", logger.Nop())

	asset := &models.Asset{ID: uuid.New(), SegmentationVersion: ""}
	invalidated, err := e.invalidateIfStale(context.Background(), asset)
	require.NoError(t, err)
	assert.False(t, invalidated)
	assert.Empty(t, scenes.deleted)
	assert.Empty(t, assets.updates)
}

func TestInvalidateIfStale_MatchingVersionSkipped(t *testing.T) {
	scenes := &fakeSceneRepo{byAsset: map[uuid.UUID][]*models.VideoScene{}}
	active := &fakeActiveRepo{state: map[uuid.UUID]*models.VideoActiveState{}}
	assets := &fakeAssetUpdateRepo{}
	cfg := testVideoConfig()
	e := NewEngine(scenes, active, assets, cfg, "ffmpeg", "ffprobe", logger.Nop())

	asset := &models.Asset{ID: uuid.New(), SegmentationVersion: cfg.SegmentationVersion()}
	invalidated, err := e.invalidateIfStale(context.Background(), asset)
	require.NoError(t, err)
	assert.False(t, invalidated)
}

func TestInvalidateIfStale_StaleVersionWipesSceneState(t *testing.T) {
	assetID := uuid.New()
	scenes := &fakeSceneRepo{byAsset: map[uuid.UUID][]*models.VideoScene{assetID: {{AssetID: assetID}}}}
	active := &fakeActiveRepo{state: map[uuid.UUID]*models.VideoActiveState{assetID: {AssetID: assetID}}}
	assets := &fakeAssetUpdateRepo{}
	e := NewEngine(scenes, active, assets, testVideoConfig(), "ffmpeg", "ffprobe", logger.Nop())

	asset := &models.Asset{ID: assetID, SegmentationVersion: "51:3:old"}
	invalidated, err := e.invalidateIfStale(context.Background(), asset)
	require.NoError(t, err)
	assert.True(t, invalidated)
	assert.Equal(t, []uuid.UUID{assetID}, scenes.deleted)
	assert.Equal(t, []uuid.UUID{assetID}, active.deleted)
	require.Len(t, assets.updates, 1)
	assert.Equal(t, "", assets.updates[0]["video_head_clip_path"])
}

func TestMaxEndTS_EmptyIsZero(t *testing.T) {
	assert.Equal(t, 0.0, maxEndTS(nil))
}

func TestMaxEndTS_PicksLargest(t *testing.T) {
	scenes := []*models.VideoScene{{EndTS: 3}, {EndTS: 11.5}, {EndTS: 7}}
	assert.Equal(t, 11.5, maxEndTS(scenes))
}

func TestFormatTS_IsStableAndMonotonic(t *testing.T) {
	assert.Equal(t, formatTS(1.0), formatTS(1.0))
	assert.Less(t, formatTS(1.0), formatTS(2.0))
}

func TestHashRoundTrip(t *testing.T) {
	var h [32]byte
	for i := range h {
		h[i] = byte(i)
	}
	encoded := encodeHash(h)
	assert.Equal(t, h, decodeHash(encoded))
}

func TestDecodeHash_InvalidInputYieldsZeroHash(t *testing.T) {
	assert.Equal(t, [32]byte{}, decodeHash("not-hex"))
}
