package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediasearch/core/internal/apperr"
	"github.com/mediasearch/core/internal/logger"
	"github.com/mediasearch/core/internal/models"
	"github.com/mediasearch/core/internal/queue"
	"github.com/mediasearch/core/internal/repos"
)

type fakeStatusRepo struct {
	repos.WorkerStatusRepo
	heartbeats int
	commands   []models.WorkerCommand
	cleared    int
}

func (f *fakeStatusRepo) Heartbeat(ctx context.Context, workerID, hostname string, state models.WorkerState, stats []byte) error {
	f.heartbeats++
	return nil
}

func (f *fakeStatusRepo) GetPendingCommand(ctx context.Context, workerID string) (models.WorkerCommand, error) {
	if len(f.commands) == 0 {
		return models.CommandNone, nil
	}
	cmd := f.commands[0]
	f.commands = f.commands[1:]
	return cmd, nil
}

func (f *fakeStatusRepo) ClearCommand(ctx context.Context, workerID string) error {
	f.cleared++
	return nil
}

type fakeSysMeta struct {
	repos.SystemMetadataRepo
	schemaVersion string
}

func (f *fakeSysMeta) Get(ctx context.Context, key string) (string, error) {
	if key == models.MetaKeySchemaVersion {
		return f.schemaVersion, nil
	}
	return "", apperr.ErrNotFound
}

func testConfig() Config {
	return Config{
		WorkerID:          "worker-1",
		Hostname:          "host-1",
		Stage:             queue.StageImageProxy,
		LibrarySlug:       "alpha",
		Once:              true,
		PollInterval:      10 * time.Millisecond,
		HeartbeatInterval: 10 * time.Millisecond,
		ForensicsDir:      "",
	}
}

func TestRun_SchemaMismatchIsFatal(t *testing.T) {
	status := &fakeStatusRepo{}
	sysMeta := &fakeSysMeta{schemaVersion: "0"}
	w := New(testConfig(), nil, status, sysMeta, nil, logger.Nop())

	err := w.Run(context.Background())
	require.Error(t, err)
	var cfgErr *apperr.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
	assert.Zero(t, status.heartbeats)
}

func TestProcessOne_SuccessIncrementsProcessed(t *testing.T) {
	status := &fakeStatusRepo{}
	sysMeta := &fakeSysMeta{schemaVersion: models.CurrentSchemaVersion}
	processed := false
	proc := Processor(func(ctx context.Context, asset *models.Asset, shouldStop func() bool) error {
		processed = true
		return nil
	})
	w := New(testConfig(), nil, status, sysMeta, proc, logger.Nop())

	w.processOne(context.Background(), &models.Asset{ID: uuid.New()})
	assert.True(t, processed)
	assert.EqualValues(t, 1, w.processedCount.Load())
	assert.EqualValues(t, 0, w.failedCount.Load())
}

func TestProcessOne_CancelledReleasesWithoutFailing(t *testing.T) {
	assetID := uuid.New()
	// Using nil *queue.Engine would panic on Release/Fail; swap in a small
	// stand-in engine backed by a fake AssetRepo to observe which path runs.
	assets := &recordingAssetRepo{}
	engine := queue.NewEngine(assets, &recordingLibraryRepo{}, &recordingSysMetaRepo{}, logger.Nop(), time.Minute, 5)
	status := &fakeStatusRepo{}
	sysMeta := &fakeSysMeta{schemaVersion: models.CurrentSchemaVersion}
	proc := Processor(func(ctx context.Context, asset *models.Asset, shouldStop func() bool) error {
		return ErrCancelled
	})
	w := New(testConfig(), engine, status, sysMeta, proc, logger.Nop())

	w.processOne(context.Background(), &models.Asset{ID: assetID})
	assert.Equal(t, []uuid.UUID{assetID}, assets.released)
	assert.Empty(t, assets.failed)
	assert.EqualValues(t, 0, w.processedCount.Load())
}

func TestProcessOne_ErrorRecordsFailure(t *testing.T) {
	assetID := uuid.New()
	assets := &recordingAssetRepo{}
	engine := queue.NewEngine(assets, &recordingLibraryRepo{}, &recordingSysMetaRepo{}, logger.Nop(), time.Minute, 5)
	status := &fakeStatusRepo{}
	sysMeta := &fakeSysMeta{schemaVersion: models.CurrentSchemaVersion}
	boom := errors.New("boom")
	proc := Processor(func(ctx context.Context, asset *models.Asset, shouldStop func() bool) error {
		return boom
	})
	w := New(testConfig(), engine, status, sysMeta, proc, logger.Nop())

	w.processOne(context.Background(), &models.Asset{ID: assetID})
	assert.Equal(t, []uuid.UUID{assetID}, assets.failed)
	assert.Empty(t, assets.released)
	assert.EqualValues(t, 1, w.failedCount.Load())
}

func TestShouldStop_OnlySetByShutdown(t *testing.T) {
	w := New(testConfig(), nil, &fakeStatusRepo{}, &fakeSysMeta{}, nil, logger.Nop())
	assert.False(t, w.shouldStop())
	w.paused.Store(true)
	assert.False(t, w.shouldStop())
	w.stopped.Store(true)
	assert.True(t, w.shouldStop())
}

// --- minimal repos.AssetRepo/LibraryRepo/SystemMetadataRepo stand-ins ---

type recordingAssetRepo struct {
	repos.AssetRepo
	released []uuid.UUID
	failed   []uuid.UUID
}

func (r *recordingAssetRepo) Release(ctx context.Context, id uuid.UUID) error {
	r.released = append(r.released, id)
	return nil
}

func (r *recordingAssetRepo) Fail(ctx context.Context, id uuid.UUID, cause error, maxRetries int) error {
	r.failed = append(r.failed, id)
	return nil
}

type recordingLibraryRepo struct{ repos.LibraryRepo }
type recordingSysMetaRepo struct{ repos.SystemMetadataRepo }
