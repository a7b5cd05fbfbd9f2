package repos

import (
	"context"
	"errors"
	"strconv"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mediasearch/core/internal/apperr"
	"github.com/mediasearch/core/internal/logger"
	"github.com/mediasearch/core/internal/models"
)

type SystemMetadataRepo interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	// EffectiveModelID resolves spec.md §4.1's "effective model": the
	// library's TargetModelID if set, else the system default. Returns
	// apperr.ErrNotFound if neither is configured.
	EffectiveModelID(ctx context.Context, lib *models.Library) (uint64, error)
}

type systemMetadataRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSystemMetadataRepo(db *gorm.DB, log *logger.Logger) SystemMetadataRepo {
	return &systemMetadataRepo{db: db, log: log.With("repo", "SystemMetadataRepo")}
}

func (r *systemMetadataRepo) Get(ctx context.Context, key string) (string, error) {
	var row models.SystemMetadata
	err := r.db.WithContext(ctx).Where("key = ?", key).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", apperr.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return row.Value, nil
}

func (r *systemMetadataRepo) Set(ctx context.Context, key, value string) error {
	row := &models.SystemMetadata{Key: key, Value: value}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(row).Error
}

func (r *systemMetadataRepo) EffectiveModelID(ctx context.Context, lib *models.Library) (uint64, error) {
	if lib.TargetModelID != nil {
		return *lib.TargetModelID, nil
	}
	raw, err := r.Get(ctx, models.MetaKeyDefaultAIModelID)
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, apperr.ErrInvalidArgument
	}
	return id, nil
}
