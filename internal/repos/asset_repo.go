package repos

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mediasearch/core/internal/apperr"
	"github.com/mediasearch/core/internal/logger"
	"github.com/mediasearch/core/internal/models"
)

// ClaimFilter narrows ClaimNext to the kind of work one worker specializes
// in (spec.md §4.1 "Claim"): a library scope, the media kind the worker's
// stage handles, the set of statuses it accepts, and — for vision stages —
// the model id the asset's effective target must match.
type ClaimFilter struct {
	LibrarySlug    string // empty = unscoped
	Kind           models.MediaKind
	AcceptStatuses []models.AssetStatus
	ModelID        *uint64 // nil = stage is model-agnostic (proxy stage)
	LeaseTTL       time.Duration
	MaxRetries     int
}

type AssetRepo interface {
	// ClaimNext runs the full claim contract in one transaction: lock a
	// single eligible row with SKIP LOCKED, set it processing, assign the
	// worker's lease, bump retry_count, clear error_message. Returns
	// apperr.ErrNoWork when nothing is eligible.
	ClaimNext(ctx context.Context, workerID string, filter ClaimFilter) (*models.Asset, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Asset, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error
	// Release reverts a claimed-but-not-yet-advanced asset back to its
	// pre-claim status and clears the lease (spec.md §4.1, worker shutdown).
	Release(ctx context.Context, id uuid.UUID) error
	// Fail records a failure: classifies via apperr, then either requeues
	// the asset to its pre-claim status or poisons it once retry_count
	// exceeds maxRetries.
	Fail(ctx context.Context, id uuid.UUID, cause error, maxRetries int) error
	// ReclaimExpiredLeases finds processing rows whose lease has expired
	// and reverts them to their pre-claim status, clearing the lease and
	// worker_id (spec.md §8, maintenance reclaim sweep).
	ReclaimExpiredLeases(ctx context.Context) (int64, error)
	// UpsertScanned is the scanner's dirty-detection upsert: inserts a new
	// asset row, or updates mtime/size and resets it to pending if either
	// changed on an existing row (spec.md §4.3 "dirty detection").
	UpsertScanned(ctx context.Context, libSlug, relPath string, kind models.MediaKind, mtimeSec float64, sizeBytes int64) (created bool, dirtied bool, err error)
	// VanishedRelPaths returns rel_paths present in the library but absent
	// from seenRelPaths — the scanner's deletion-detection pass.
	VanishedRelPaths(ctx context.Context, libSlug string, seenRelPaths []string) ([]string, error)
	List(ctx context.Context, libSlug string, status models.AssetStatus, limit int) ([]*models.Asset, error)
	// MergeVisionMetadata is the asset-level half of the strict-merge
	// vision policy (spec.md §4.5.6; the scene-level half is
	// VideoSceneRepo.MergeVisionMetadata). Light mode (full=false) writes
	// description+tags and stamps tags_model_id; full mode only adds
	// ocr_text and stamps full_model_id, never touching description/tags.
	// A call whose modelID is not newer than what's already stamped for
	// that half is a no-op, so a late-arriving retry can never regress a
	// fresher analysis.
	MergeVisionMetadata(ctx context.Context, id uuid.UUID, full bool, desc string, tags []string, ocrText string, modelID uint64) error
	// DeleteBatchForLibrary permanently removes up to batchSize asset rows
	// for libSlug and returns how many were removed (spec.md §6.1 "trash
	// empty ... chunked hard-delete (batches of 5 000)"). The caller loops
	// until a batch removes fewer than batchSize rows, so one trash-empty
	// never holds a single
	// transaction open over an unbounded row count.
	DeleteBatchForLibrary(ctx context.Context, libSlug string, batchSize int) (int64, error)
}

type assetRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAssetRepo(db *gorm.DB, log *logger.Logger) AssetRepo {
	return &assetRepo{db: db, log: log.With("repo", "AssetRepo")}
}

func (r *assetRepo) ClaimNext(ctx context.Context, workerID string, filter ClaimFilter) (*models.Asset, error) {
	if len(filter.AcceptStatuses) == 0 {
		return nil, apperr.ErrInvalidArgument
	}
	now := time.Now()
	leaseExpiry := now.Add(filter.LeaseTTL)

	var claimed *models.Asset
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status IN ?", filter.AcceptStatuses).
			Where("kind = ?", filter.Kind)

		if filter.LibrarySlug != "" {
			q = q.Where("library_slug = ?", filter.LibrarySlug)
		}
		if filter.MaxRetries > 0 {
			q = q.Where("retry_count <= ?", filter.MaxRetries)
		}
		if filter.ModelID != nil {
			switch filter.Kind {
			case models.MediaKindImage:
				q = q.Where("tags_model_id IS NULL OR tags_model_id = ?", *filter.ModelID)
			default:
				q = q.Where("(tags_model_id IS NULL OR tags_model_id = ?) AND (full_model_id IS NULL OR full_model_id = ?)",
					*filter.ModelID, *filter.ModelID)
			}
		}

		var asset models.Asset
		err := q.Order("updated_at ASC").First(&asset).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.ErrNoWork
		}
		if err != nil {
			return err
		}

		uErr := tx.Model(&models.Asset{}).
			Where("id = ?", asset.ID).
			Updates(map[string]interface{}{
				"status":           models.StatusProcessing,
				"worker_id":        workerID,
				"lease_expires_at": leaseExpiry,
				"retry_count":      gorm.Expr("retry_count + 1"),
				"error_message":    "",
				"updated_at":       now,
			}).Error
		if uErr != nil {
			return uErr
		}

		asset.Status = models.StatusProcessing
		asset.WorkerID = workerID
		asset.LeaseExpiresAt = &leaseExpiry
		asset.RetryCount++
		asset.ErrorMessage = ""
		claimed = &asset
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *assetRepo) Get(ctx context.Context, id uuid.UUID) (*models.Asset, error) {
	var asset models.Asset
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&asset).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &asset, nil
}

func (r *assetRepo) Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	res := r.db.WithContext(ctx).Model(&models.Asset{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (r *assetRepo) Release(ctx context.Context, id uuid.UUID) error {
	asset, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	revert := asset.PreClaimStatus()
	return r.Update(ctx, id, map[string]interface{}{
		"status":           revert,
		"worker_id":        "",
		"lease_expires_at": nil,
	})
}

// Fail implements spec.md §4.1's failure transition: poison once
// retry_count has exceeded maxRetries (or the error classifies as
// non-retryable), otherwise requeue to the pre-claim status so the next
// ClaimNext picks it up again.
func (r *assetRepo) Fail(ctx context.Context, id uuid.UUID, cause error, maxRetries int) error {
	asset, err := r.Get(ctx, id)
	if err != nil {
		return err
	}

	updates := map[string]interface{}{
		"error_message": cause.Error(),
	}
	if !apperr.Retryable(cause) || asset.RetryCount > maxRetries {
		updates["status"] = models.StatusPoisoned
		updates["worker_id"] = ""
		updates["lease_expires_at"] = nil
	} else {
		updates["status"] = asset.PreClaimStatus()
		updates["worker_id"] = ""
		updates["lease_expires_at"] = nil
	}
	return r.Update(ctx, id, updates)
}

func (r *assetRepo) ReclaimExpiredLeases(ctx context.Context) (int64, error) {
	now := time.Now()
	var stale []models.Asset
	err := r.db.WithContext(ctx).
		Where("status = ? AND lease_expires_at IS NOT NULL AND lease_expires_at < ?", models.StatusProcessing, now).
		Find(&stale).Error
	if err != nil {
		return 0, err
	}

	var reclaimed int64
	for _, a := range stale {
		revert := a.PreClaimStatus()
		res := r.db.WithContext(ctx).Model(&models.Asset{}).
			Where("id = ? AND status = ?", a.ID, models.StatusProcessing).
			Updates(map[string]interface{}{
				"status":           revert,
				"worker_id":        "",
				"lease_expires_at": nil,
				"updated_at":       now,
			})
		if res.Error != nil {
			return reclaimed, res.Error
		}
		reclaimed += res.RowsAffected
	}
	return reclaimed, nil
}

func (r *assetRepo) UpsertScanned(ctx context.Context, libSlug, relPath string, kind models.MediaKind, mtimeSec float64, sizeBytes int64) (bool, bool, error) {
	var created, dirtied bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Asset
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("library_slug = ? AND rel_path = ?", libSlug, relPath).
			First(&existing).Error

		if errors.Is(err, gorm.ErrRecordNotFound) {
			asset := &models.Asset{
				LibrarySlug: libSlug,
				RelPath:     relPath,
				Kind:        kind,
				MtimeSec:    mtimeSec,
				SizeBytes:   sizeBytes,
				Status:      models.StatusPending,
			}
			if cErr := tx.Create(asset).Error; cErr != nil {
				return cErr
			}
			created = true
			return nil
		}
		if err != nil {
			return err
		}

		if existing.MtimeSec == mtimeSec && existing.SizeBytes == sizeBytes {
			return nil
		}

		// File changed on disk since the last scan: every derivative is
		// stale, so the asset resets to pending and starts the pipeline
		// over (spec.md §4.3 "dirty detection").
		dirtied = true
		return tx.Model(&models.Asset{}).Where("id = ?", existing.ID).Updates(map[string]interface{}{
			"mtime_sec":             mtimeSec,
			"size_bytes":            sizeBytes,
			"status":                models.StatusPending,
			"tags_model_id":         nil,
			"full_model_id":         nil,
			"error_message":         "",
			"retry_count":           0,
			"video_head_clip_path":  "",
			"segmentation_version":  "",
			"proxy_path":            "",
			"thumbnail_path":        "",
			"description":           "",
			"metadata":              nil,
			"updated_at":            time.Now(),
		}).Error
	})
	return created, dirtied, err
}

func (r *assetRepo) VanishedRelPaths(ctx context.Context, libSlug string, seenRelPaths []string) ([]string, error) {
	var existing []string
	err := r.db.WithContext(ctx).Model(&models.Asset{}).
		Where("library_slug = ?", libSlug).
		Pluck("rel_path", &existing).Error
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(seenRelPaths))
	for _, p := range seenRelPaths {
		seen[p] = struct{}{}
	}

	var vanished []string
	for _, p := range existing {
		if _, ok := seen[p]; !ok {
			vanished = append(vanished, p)
		}
	}
	return vanished, nil
}

func (r *assetRepo) MergeVisionMetadata(ctx context.Context, id uuid.UUID, full bool, desc string, tags []string, ocrText string, modelID uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var asset models.Asset
		if err := tx.Where("id = ?", id).First(&asset).Error; err != nil {
			return err
		}

		var existing models.AssetMetadata
		if len(asset.Metadata) > 0 {
			// best-effort decode: a malformed existing blob must not block
			// a fresh write, it just loses its own model_id gate.
			_ = unmarshalSceneMetadata(asset.Metadata, &existing)
		}

		updates := map[string]interface{}{}
		if full {
			if asset.FullModelID != nil && *asset.FullModelID >= modelID {
				return nil
			}
			existing.OCRText = ocrText
			existing.ModelID = modelID
			updates["full_model_id"] = modelID
		} else {
			if asset.TagsModelID != nil && *asset.TagsModelID >= modelID {
				return nil
			}
			existing.Description = desc
			existing.Tags = tags
			existing.ModelID = modelID
			updates["tags_model_id"] = modelID
		}

		encoded, err := json.Marshal(existing)
		if err != nil {
			return err
		}
		updates["description"] = existing.Description
		updates["metadata"] = datatypes.JSON(encoded)
		return tx.Model(&models.Asset{}).Where("id = ?", id).Updates(updates).Error
	})
}

func (r *assetRepo) DeleteBatchForLibrary(ctx context.Context, libSlug string, batchSize int) (int64, error) {
	sub := r.db.WithContext(ctx).Model(&models.Asset{}).
		Select("id").
		Where("library_slug = ?", libSlug).
		Limit(batchSize)
	res := r.db.WithContext(ctx).Where("id IN (?)", sub).Delete(&models.Asset{})
	return res.RowsAffected, res.Error
}

func (r *assetRepo) List(ctx context.Context, libSlug string, status models.AssetStatus, limit int) ([]*models.Asset, error) {
	q := r.db.WithContext(ctx).Model(&models.Asset{})
	if libSlug != "" {
		q = q.Where("library_slug = ?", libSlug)
	}
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []*models.Asset
	err := q.Order("updated_at DESC").Find(&out).Error
	return out, err
}
