package repos

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mediasearch/core/internal/apperr"
	"github.com/mediasearch/core/internal/logger"
	"github.com/mediasearch/core/internal/models"
)

type AIModelRepo interface {
	// Register is idempotent on (name, version) — re-registering the same
	// build returns the existing row instead of erroring (spec.md §3).
	Register(ctx context.Context, name, version string) (*models.AIModel, error)
	Get(ctx context.Context, id uint64) (*models.AIModel, error)
	List(ctx context.Context) ([]*models.AIModel, error)
}

type aiModelRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAIModelRepo(db *gorm.DB, log *logger.Logger) AIModelRepo {
	return &aiModelRepo{db: db, log: log.With("repo", "AIModelRepo")}
}

func (r *aiModelRepo) Register(ctx context.Context, name, version string) (*models.AIModel, error) {
	model := &models.AIModel{Name: name, Version: version}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}, {Name: "version"}},
		DoNothing: true,
	}).Create(model).Error
	if err != nil {
		return nil, err
	}
	if model.ID != 0 {
		return model, nil
	}
	// DoNothing left model.ID unset on conflict; fetch the existing row.
	var existing models.AIModel
	if err := r.db.WithContext(ctx).
		Where("name = ? AND version = ?", name, version).
		First(&existing).Error; err != nil {
		return nil, err
	}
	return &existing, nil
}

func (r *aiModelRepo) Get(ctx context.Context, id uint64) (*models.AIModel, error) {
	var model models.AIModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &model, nil
}

func (r *aiModelRepo) List(ctx context.Context) ([]*models.AIModel, error) {
	var out []*models.AIModel
	err := r.db.WithContext(ctx).Order("name ASC, version ASC").Find(&out).Error
	return out, err
}
