package repos

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mediasearch/core/internal/apperr"
	"github.com/mediasearch/core/internal/logger"
	"github.com/mediasearch/core/internal/models"
)

type LibraryRepo interface {
	// Create fails if slug collides with any row including soft-deleted
	// ones (spec.md §3 "Slug uniqueness applies to soft-deleted rows too").
	Create(ctx context.Context, lib *models.Library) error
	GetBySlug(ctx context.Context, slug string, includeDeleted bool) (*models.Library, error)
	List(ctx context.Context, includeDeleted bool) ([]*models.Library, error)
	SoftDelete(ctx context.Context, slug string) error
	Restore(ctx context.Context, slug string) error
	// ClaimForScan atomically moves an idle library to scanning, skipping
	// one already claimed by a concurrent scanner (spec.md §4.3).
	ClaimForScan(ctx context.Context, slug string) (bool, error)
	SetScanStatus(ctx context.Context, slug string, status models.ScanStatus) error
	// HardDelete permanently removes a library row. Only a library already
	// soft-deleted can be hard-deleted (spec.md §6.1 "trash empty") — the
	// caller is responsible for purging its assets first.
	HardDelete(ctx context.Context, slug string) error
}

type libraryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLibraryRepo(db *gorm.DB, log *logger.Logger) LibraryRepo {
	return &libraryRepo{db: db, log: log.With("repo", "LibraryRepo")}
}

func (r *libraryRepo) Create(ctx context.Context, lib *models.Library) error {
	// Unscoped existence check: a trashed library with the same slug must
	// still block creation of a new one (spec.md §3).
	var count int64
	if err := r.db.WithContext(ctx).Unscoped().
		Model(&models.Library{}).
		Where("slug = ?", lib.Slug).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: slug %q already in use (including trashed)", apperr.ErrInvalidArgument, lib.Slug)
	}
	return r.db.WithContext(ctx).Create(lib).Error
}

func (r *libraryRepo) GetBySlug(ctx context.Context, slug string, includeDeleted bool) (*models.Library, error) {
	var lib models.Library
	err := r.db.WithContext(ctx).Scopes(notDeleted(includeDeleted)).
		Where("slug = ?", slug).
		First(&lib).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &lib, nil
}

func (r *libraryRepo) List(ctx context.Context, includeDeleted bool) ([]*models.Library, error) {
	var out []*models.Library
	err := r.db.WithContext(ctx).Scopes(notDeleted(includeDeleted)).
		Order("slug ASC").
		Find(&out).Error
	return out, err
}

func (r *libraryRepo) SoftDelete(ctx context.Context, slug string) error {
	res := r.db.WithContext(ctx).
		Where("slug = ?", slug).
		Delete(&models.Library{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (r *libraryRepo) Restore(ctx context.Context, slug string) error {
	res := r.db.WithContext(ctx).Unscoped().
		Model(&models.Library{}).
		Where("slug = ? AND deleted_at IS NOT NULL", slug).
		Update("deleted_at", nil)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// ClaimForScan uses SKIP LOCKED the same way the asset claim does (see
// asset_repo.go ClaimNext), at library granularity, so two scanner
// invocations against the same library never both start walking it
// (spec.md §4.3 "Claims the library at start").
func (r *libraryRepo) ClaimForScan(ctx context.Context, slug string) (bool, error) {
	claimed := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var lib models.Library
		err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("slug = ? AND scan_status = ?", slug, models.ScanStatusIdle).
			First(&lib).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := tx.Model(&lib).Update("scan_status", models.ScanStatusScanning).Error; err != nil {
			return err
		}
		claimed = true
		return nil
	})
	return claimed, err
}

func (r *libraryRepo) HardDelete(ctx context.Context, slug string) error {
	res := r.db.WithContext(ctx).Unscoped().
		Where("slug = ? AND deleted_at IS NOT NULL", slug).
		Delete(&models.Library{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (r *libraryRepo) SetScanStatus(ctx context.Context, slug string, status models.ScanStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Library{}).
		Where("slug = ?", slug).
		Updates(map[string]interface{}{
			"scan_status": status,
			"updated_at":  time.Now(),
		}).Error
}
