package repos

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mediasearch/core/internal/apperr"
	"github.com/mediasearch/core/internal/logger"
	"github.com/mediasearch/core/internal/models"
)

// ProjectRepo is the Project Bin grouping feature, supplemented from
// original_source/src/repository/project_repo.py — not part of spec.md's
// data model, grouping assets across libraries for export.
type ProjectRepo interface {
	Create(ctx context.Context, name, exportPath string) (*models.Project, error)
	Get(ctx context.Context, id uint64) (*models.Project, error)
	List(ctx context.Context) ([]*models.Project, error)
	// AddAsset is idempotent: associating an already-member asset a second
	// time is a no-op, not an error.
	AddAsset(ctx context.Context, projectID uint64, assetID uuid.UUID) error
	RemoveAsset(ctx context.Context, projectID uint64, assetID uuid.UUID) error
	// AssetPaths resolves every member asset's absolute source path,
	// joining through Library.SourceRoot and skipping soft-deleted
	// libraries, for driving an export.
	AssetPaths(ctx context.Context, projectID uint64) ([]string, error)
}

type projectRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProjectRepo(db *gorm.DB, log *logger.Logger) ProjectRepo {
	return &projectRepo{db: db, log: log.With("repo", "ProjectRepo")}
}

func (r *projectRepo) Create(ctx context.Context, name, exportPath string) (*models.Project, error) {
	p := &models.Project{Name: name, ExportPath: exportPath}
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}

func (r *projectRepo) Get(ctx context.Context, id uint64) (*models.Project, error) {
	var p models.Project
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *projectRepo) List(ctx context.Context) ([]*models.Project, error) {
	var out []*models.Project
	err := r.db.WithContext(ctx).Order("created_at DESC, id DESC").Find(&out).Error
	return out, err
}

func (r *projectRepo) AddAsset(ctx context.Context, projectID uint64, assetID uuid.UUID) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.ProjectAsset{ProjectID: projectID, AssetID: assetID}).Error
}

func (r *projectRepo) RemoveAsset(ctx context.Context, projectID uint64, assetID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("project_id = ? AND asset_id = ?", projectID, assetID).
		Delete(&models.ProjectAsset{}).Error
}

func (r *projectRepo) AssetPaths(ctx context.Context, projectID uint64) ([]string, error) {
	var rows []struct {
		SourceRoot string
		RelPath    string
	}
	err := r.db.WithContext(ctx).
		Table("project_assets AS pa").
		Select("l.source_root AS source_root, a.rel_path AS rel_path").
		Joins("JOIN asset a ON pa.asset_id = a.id").
		Joins("JOIN library l ON a.library_slug = l.slug").
		Where("pa.project_id = ? AND l.deleted_at IS NULL", projectID).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(rows))
	for _, row := range rows {
		if row.SourceRoot == "" || row.RelPath == "" {
			continue
		}
		paths = append(paths, filepath.Join(row.SourceRoot, row.RelPath))
	}
	return paths, nil
}
