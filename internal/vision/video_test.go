package vision

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediasearch/core/internal/logger"
	"github.com/mediasearch/core/internal/models"
	"github.com/mediasearch/core/internal/repos"
	"github.com/mediasearch/core/internal/worker"
)

type fakeVisionAssets struct {
	repos.AssetRepo
	updates map[uuid.UUID]map[string]interface{}
	merges  []mergeCall
}

type mergeCall struct {
	id      uuid.UUID
	full    bool
	desc    string
	tags    []string
	ocrText string
	modelID uint64
}

func (f *fakeVisionAssets) Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	if f.updates == nil {
		f.updates = map[uuid.UUID]map[string]interface{}{}
	}
	f.updates[id] = updates
	return nil
}

func (f *fakeVisionAssets) MergeVisionMetadata(ctx context.Context, id uuid.UUID, full bool, desc string, tags []string, ocrText string, modelID uint64) error {
	f.merges = append(f.merges, mergeCall{id, full, desc, tags, ocrText, modelID})
	return nil
}

type fakeVisionLibraries struct {
	repos.LibraryRepo
	lib *models.Library
}

func (f *fakeVisionLibraries) GetBySlug(ctx context.Context, slug string, includeDeleted bool) (*models.Library, error) {
	return f.lib, nil
}

type fakeVisionSysMeta struct {
	repos.SystemMetadataRepo
	modelID uint64
}

func (f *fakeVisionSysMeta) EffectiveModelID(ctx context.Context, lib *models.Library) (uint64, error) {
	return f.modelID, nil
}

type fakeVisionScenes struct {
	repos.VideoSceneRepo
	scenes []*models.VideoScene
	merges []sceneMergeCall
}

type sceneMergeCall struct {
	id      uuid.UUID
	desc    string
	modelID uint64
}

func (f *fakeVisionScenes) ListByAsset(ctx context.Context, assetID uuid.UUID) ([]*models.VideoScene, error) {
	return f.scenes, nil
}

func (f *fakeVisionScenes) MergeVisionMetadata(ctx context.Context, id uuid.UUID, desc string, metadata []byte, modelID uint64) error {
	f.merges = append(f.merges, sceneMergeCall{id, desc, modelID})
	for _, s := range f.scenes {
		if s.ID == id {
			s.Metadata = metadata
		}
	}
	return nil
}

func neverStop() bool { return false }

func newSceneWithMeta(t *testing.T, meta models.SceneMetadata) *models.VideoScene {
	t.Helper()
	blob, err := json.Marshal(meta)
	require.NoError(t, err)
	return &models.VideoScene{
		ID:           uuid.New(),
		RepFramePath: "/data/video_scenes/lib/asset/0_5.jpg",
		StartTS:      0,
		EndTS:        5,
		Metadata:     blob,
	}
}

func TestVideoProcessor_Light_DescribesUndescribedScenes(t *testing.T) {
	scene := newSceneWithMeta(t, models.SceneMetadata{})
	assets := &fakeVisionAssets{}
	scenes := &fakeVisionScenes{scenes: []*models.VideoScene{scene}}
	p := NewVideoProcessor(assets, &fakeVisionLibraries{lib: &models.Library{Slug: "lib"}}, &fakeVisionSysMeta{modelID: 1}, scenes, "/data", NewMockAnalyzer("", ""), logger.Nop())

	asset := &models.Asset{ID: uuid.New(), LibrarySlug: "lib"}
	err := p.Light()(context.Background(), asset, neverStop)
	require.NoError(t, err)

	require.Len(t, scenes.merges, 1)
	assert.Equal(t, uint64(1), scenes.merges[0].modelID)
	assert.Equal(t, models.StatusAnalyzedLight, assets.updates[asset.ID]["status"])
}

func TestVideoProcessor_Light_SkipsAlreadyDescribedScenes(t *testing.T) {
	scene := newSceneWithMeta(t, models.SceneMetadata{Description: "already done", ModelID: 1})
	scenes := &fakeVisionScenes{scenes: []*models.VideoScene{scene}}
	assets := &fakeVisionAssets{}
	p := NewVideoProcessor(assets, &fakeVisionLibraries{lib: &models.Library{Slug: "lib"}}, &fakeVisionSysMeta{modelID: 1}, scenes, "/data", NewMockAnalyzer("", ""), logger.Nop())

	asset := &models.Asset{ID: uuid.New(), LibrarySlug: "lib"}
	err := p.Light()(context.Background(), asset, neverStop)
	require.NoError(t, err)
	assert.Empty(t, scenes.merges)
}

func TestVideoProcessor_Full_RerunsLightOnModelMismatch(t *testing.T) {
	scene := newSceneWithMeta(t, models.SceneMetadata{Description: "stale", ModelID: 1})
	scenes := &fakeVisionScenes{scenes: []*models.VideoScene{scene}}
	assets := &fakeVisionAssets{}
	p := NewVideoProcessor(assets, &fakeVisionLibraries{lib: &models.Library{Slug: "lib"}}, &fakeVisionSysMeta{modelID: 2}, scenes, "/data", NewMockAnalyzer("", ""), logger.Nop())

	asset := &models.Asset{ID: uuid.New(), LibrarySlug: "lib"}
	err := p.Full()(context.Background(), asset, neverStop)
	require.NoError(t, err)

	require.NotEmpty(t, scenes.merges)
	last := scenes.merges[len(scenes.merges)-1]
	assert.Equal(t, uint64(2), last.modelID)

	var final models.SceneMetadata
	require.NoError(t, json.Unmarshal(scene.Metadata, &final))
	assert.NotEmpty(t, final.Description)
	assert.NotEmpty(t, final.OCRText)
	assert.Equal(t, uint64(2), final.ModelID)

	assert.Equal(t, models.StatusCompleted, assets.updates[asset.ID]["status"])
}

func TestVideoProcessor_Full_SkipsSceneAlreadyFullyAnalyzed(t *testing.T) {
	scene := newSceneWithMeta(t, models.SceneMetadata{Description: "d", Tags: []string{"t"}, OCRText: "text", ModelID: 1})
	scenes := &fakeVisionScenes{scenes: []*models.VideoScene{scene}}
	assets := &fakeVisionAssets{}
	p := NewVideoProcessor(assets, &fakeVisionLibraries{lib: &models.Library{Slug: "lib"}}, &fakeVisionSysMeta{modelID: 1}, scenes, "/data", NewMockAnalyzer("", ""), logger.Nop())

	asset := &models.Asset{ID: uuid.New(), LibrarySlug: "lib"}
	err := p.Full()(context.Background(), asset, neverStop)
	require.NoError(t, err)
	assert.Empty(t, scenes.merges)
}

func TestVideoProcessor_Full_Cancellation(t *testing.T) {
	scene := newSceneWithMeta(t, models.SceneMetadata{})
	scenes := &fakeVisionScenes{scenes: []*models.VideoScene{scene}}
	assets := &fakeVisionAssets{}
	p := NewVideoProcessor(assets, &fakeVisionLibraries{lib: &models.Library{Slug: "lib"}}, &fakeVisionSysMeta{modelID: 1}, scenes, "/data", NewMockAnalyzer("", ""), logger.Nop())

	asset := &models.Asset{ID: uuid.New(), LibrarySlug: "lib"}
	alwaysStop := func() bool { return true }
	err := p.Full()(context.Background(), asset, alwaysStop)
	require.True(t, errors.Is(err, worker.ErrCancelled))
}
