// Package queue implements the Claim/Lease Engine (spec.md §4.1): the single
// place that turns a worker role (image proxy, video proxy, AI light/full on
// either kind) into a repos.ClaimFilter, resolves the effective AI model for
// AI stages, and fans a --all claim out across every active library so one
// worker process never has to know how many libraries exist.
package queue

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/mediasearch/core/internal/apperr"
	"github.com/mediasearch/core/internal/logger"
	"github.com/mediasearch/core/internal/models"
	"github.com/mediasearch/core/internal/repos"
)

// Stage names one point in the pipeline a worker process claims against.
// NeedsModel marks AI stages, whose claim predicate must match the asset's
// effective target model (spec.md §4.1 "Effective model resolution") so a
// worker built against one AI model never steals work meant for another.
type Stage struct {
	Name           string
	Kind           models.MediaKind
	AcceptStatuses []models.AssetStatus
	NeedsModel     bool
}

var (
	StageImageProxy = Stage{
		Name:           "image-proxy",
		Kind:           models.MediaKindImage,
		AcceptStatuses: []models.AssetStatus{models.StatusPending, models.StatusFailed},
	}
	StageVideoProxy = Stage{
		Name:           "video-proxy",
		Kind:           models.MediaKindVideo,
		AcceptStatuses: []models.AssetStatus{models.StatusPending, models.StatusFailed},
	}
	StageAIImageLight = Stage{
		Name:           "ai-image-light",
		Kind:           models.MediaKindImage,
		AcceptStatuses: []models.AssetStatus{models.StatusProxied, models.StatusFailed},
		NeedsModel:     true,
	}
	StageAIImageFull = Stage{
		Name:           "ai-image-full",
		Kind:           models.MediaKindImage,
		AcceptStatuses: []models.AssetStatus{models.StatusAnalyzedLight, models.StatusFailed},
		NeedsModel:     true,
	}
	StageAIVideoLight = Stage{
		Name:           "ai-video-light",
		Kind:           models.MediaKindVideo,
		AcceptStatuses: []models.AssetStatus{models.StatusProxied, models.StatusFailed},
		NeedsModel:     true,
	}
	StageAIVideoFull = Stage{
		Name:           "ai-video-full",
		Kind:           models.MediaKindVideo,
		AcceptStatuses: []models.AssetStatus{models.StatusAnalyzedLight, models.StatusFailed},
		NeedsModel:     true,
	}
)

// Engine is the Claim/Lease Engine. One instance is built per worker process
// and reused across the whole run-loop.
type Engine struct {
	assets     repos.AssetRepo
	libraries  repos.LibraryRepo
	sysMeta    repos.SystemMetadataRepo
	log        *logger.Logger
	leaseTTL   time.Duration
	maxRetries int
}

func NewEngine(assets repos.AssetRepo, libraries repos.LibraryRepo, sysMeta repos.SystemMetadataRepo, log *logger.Logger, leaseTTL time.Duration, maxRetries int) *Engine {
	return &Engine{
		assets:     assets,
		libraries:  libraries,
		sysMeta:    sysMeta,
		log:        log.With("component", "QueueEngine"),
		leaseTTL:   leaseTTL,
		maxRetries: maxRetries,
	}
}

// Claim runs stage's claim contract, scoped to librarySlug if non-empty, or
// fanned out across every active library if all is true. Returns
// apperr.ErrNoWork when nothing eligible exists anywhere in scope.
func (e *Engine) Claim(ctx context.Context, workerID string, stage Stage, librarySlug string, all bool) (*models.Asset, error) {
	if librarySlug != "" {
		return e.claimInLibrary(ctx, workerID, stage, librarySlug)
	}
	if !all {
		return nil, apperr.ErrInvalidArgument
	}

	libs, err := e.libraries.List(ctx, false)
	if err != nil {
		return nil, err
	}
	for _, lib := range libs {
		if !lib.Active {
			continue
		}
		asset, err := e.claimInLibrary(ctx, workerID, stage, lib.Slug)
		if err == nil {
			return asset, nil
		}
		if !errors.Is(err, apperr.ErrNoWork) {
			return nil, err
		}
	}
	return nil, apperr.ErrNoWork
}

func (e *Engine) claimInLibrary(ctx context.Context, workerID string, stage Stage, slug string) (*models.Asset, error) {
	filter := repos.ClaimFilter{
		LibrarySlug:    slug,
		Kind:           stage.Kind,
		AcceptStatuses: stage.AcceptStatuses,
		LeaseTTL:       e.leaseTTL,
		MaxRetries:     e.maxRetries,
	}

	if stage.NeedsModel {
		lib, err := e.libraries.GetBySlug(ctx, slug, false)
		if err != nil {
			return nil, err
		}
		modelID, err := e.sysMeta.EffectiveModelID(ctx, lib)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				// No model configured for this library and no system
				// default — there is nothing this stage could claim here.
				return nil, apperr.ErrNoWork
			}
			return nil, err
		}
		filter.ModelID = &modelID
	}

	return e.assets.ClaimNext(ctx, workerID, filter)
}

// Release reverts an in-progress claim back to its pre-claim status and
// clears the lease, used on cooperative cancellation (spec.md §4.2
// "shutdown" and the cancellation contract in §5).
func (e *Engine) Release(ctx context.Context, assetID uuid.UUID) error {
	return e.assets.Release(ctx, assetID)
}

// Fail records a processing failure: classifies cause via apperr and either
// requeues the asset to its pre-claim status or poisons it once the retry
// cap is exceeded (spec.md §4.1 "Error taxonomy").
func (e *Engine) Fail(ctx context.Context, assetID uuid.UUID, cause error) error {
	return e.assets.Fail(ctx, assetID, cause, e.maxRetries)
}

// ReclaimExpiredLeases sweeps every processing asset whose lease has expired
// back to its pre-claim status (or poisoned, past the retry cap). Called
// opportunistically by any worker's run-loop and by `maintenance run`
// (spec.md §4.1 "Reclaim", §8).
func (e *Engine) ReclaimExpiredLeases(ctx context.Context) (int64, error) {
	return e.assets.ReclaimExpiredLeases(ctx)
}
