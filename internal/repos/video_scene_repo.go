package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mediasearch/core/internal/logger"
	"github.com/mediasearch/core/internal/models"
)

// VideoSceneRepo persists closed scenes. Scenes are append-only once
// created — the strict-merge policy (spec.md §4.5.6) only ever touches
// Description/Metadata on an existing row, never StartTS/EndTS/RepFramePath.
type VideoSceneRepo interface {
	Create(ctx context.Context, scene *models.VideoScene) error
	ListByAsset(ctx context.Context, assetID uuid.UUID) ([]*models.VideoScene, error)
	Get(ctx context.Context, id uuid.UUID) (*models.VideoScene, error)
	// MergeVisionMetadata re-reads the row inside the transaction and only
	// overwrites Description/Metadata when modelID is newer or equal to
	// what's stored, per the strict-merge policy (spec.md §4.5.6).
	MergeVisionMetadata(ctx context.Context, id uuid.UUID, desc string, metadata []byte, modelID uint64) error
	DeleteByAsset(ctx context.Context, assetID uuid.UUID) error
	// CloseScene is the scene-close transaction of spec.md §4.5.4: insert the
	// closed scene, replace the asset's resumable checkpoint with the state
	// of the newly-opened scene (or delete it when nextState is nil, meaning
	// the stream just ended), and renew the asset's lease — all atomically,
	// so a crash between any two of these steps can never happen.
	CloseScene(ctx context.Context, scene *models.VideoScene, nextState *models.VideoActiveState, assetID uuid.UUID, leaseExpiresAt time.Time) error
}

type videoSceneRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewVideoSceneRepo(db *gorm.DB, log *logger.Logger) VideoSceneRepo {
	return &videoSceneRepo{db: db, log: log.With("repo", "VideoSceneRepo")}
}

func (r *videoSceneRepo) Create(ctx context.Context, scene *models.VideoScene) error {
	return r.db.WithContext(ctx).Create(scene).Error
}

func (r *videoSceneRepo) ListByAsset(ctx context.Context, assetID uuid.UUID) ([]*models.VideoScene, error) {
	var out []*models.VideoScene
	err := r.db.WithContext(ctx).
		Where("asset_id = ?", assetID).
		Order("start_ts ASC").
		Find(&out).Error
	return out, err
}

func (r *videoSceneRepo) Get(ctx context.Context, id uuid.UUID) (*models.VideoScene, error) {
	var scene models.VideoScene
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&scene).Error
	if err != nil {
		return nil, err
	}
	return &scene, nil
}

func (r *videoSceneRepo) MergeVisionMetadata(ctx context.Context, id uuid.UUID, desc string, metadata []byte, modelID uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var scene models.VideoScene
		if err := tx.Clauses().Where("id = ?", id).First(&scene).Error; err != nil {
			return err
		}

		var existing models.SceneMetadata
		if len(scene.Metadata) > 0 {
			// best-effort decode: a malformed existing blob must not block a
			// fresh write, it just loses its own model_id gate.
			_ = unmarshalSceneMetadata(scene.Metadata, &existing)
		}
		if existing.ModelID > modelID {
			// A newer model already analyzed this scene; an older pass
			// arriving late (e.g. a retried lease) must not clobber it.
			return nil
		}

		return tx.Model(&models.VideoScene{}).Where("id = ?", id).Updates(map[string]interface{}{
			"description": desc,
			"metadata":    metadata,
		}).Error
	})
}

func (r *videoSceneRepo) DeleteByAsset(ctx context.Context, assetID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("asset_id = ?", assetID).Delete(&models.VideoScene{}).Error
}

func (r *videoSceneRepo) CloseScene(ctx context.Context, scene *models.VideoScene, nextState *models.VideoActiveState, assetID uuid.UUID, leaseExpiresAt time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(scene).Error; err != nil {
			return err
		}

		if nextState != nil {
			nextState.UpdatedAt = time.Now()
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "asset_id"}},
				UpdateAll: true,
			}).Create(nextState).Error; err != nil {
				return err
			}
		} else if err := tx.Where("asset_id = ?", assetID).Delete(&models.VideoActiveState{}).Error; err != nil {
			return err
		}

		return tx.Model(&models.Asset{}).Where("id = ?", assetID).Updates(map[string]interface{}{
			"lease_expires_at": leaseExpiresAt,
			"updated_at":       time.Now(),
		}).Error
	})
}
