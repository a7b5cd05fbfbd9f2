package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mediasearch/core/internal/logger"
	"github.com/mediasearch/core/internal/models"
)

// VideoActiveStateRepo manages the single in-progress-segmentation
// checkpoint row per asset (spec.md §4.5.4 resumable checkpoint).
type VideoActiveStateRepo interface {
	Get(ctx context.Context, assetID uuid.UUID) (*models.VideoActiveState, error)
	// Upsert writes one checkpoint row; ON CONFLICT keeps this a single
	// round trip instead of read-then-write. The segmentation engine does
	// not call it: its checkpoint is written once per scene close, inside
	// VideoSceneRepo.CloseScene.
	Upsert(ctx context.Context, state *models.VideoActiveState) error
	Delete(ctx context.Context, assetID uuid.UUID) error
}

type videoActiveStateRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewVideoActiveStateRepo(db *gorm.DB, log *logger.Logger) VideoActiveStateRepo {
	return &videoActiveStateRepo{db: db, log: log.With("repo", "VideoActiveStateRepo")}
}

func (r *videoActiveStateRepo) Get(ctx context.Context, assetID uuid.UUID) (*models.VideoActiveState, error) {
	var state models.VideoActiveState
	err := r.db.WithContext(ctx).Where("asset_id = ?", assetID).First(&state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func (r *videoActiveStateRepo) Upsert(ctx context.Context, state *models.VideoActiveState) error {
	state.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "asset_id"}},
		UpdateAll: true,
	}).Create(state).Error
}

func (r *videoActiveStateRepo) Delete(ctx context.Context, assetID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("asset_id = ?", assetID).Delete(&models.VideoActiveState{}).Error
}
