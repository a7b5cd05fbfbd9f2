package repos

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mediasearch/core/internal/logger"
	"github.com/mediasearch/core/internal/models"
)

// WorkerStatusRepo is the observational heartbeat table (spec.md §4.2). It
// never gates claims — lease_expires_at on Asset is the only source of
// truth for abandoned work — but drives `maintenance run`'s stale-worker
// pruning and the operator-facing `forensic_dump`/`pause`/`shutdown` signal
// path.
type WorkerStatusRepo interface {
	Heartbeat(ctx context.Context, workerID, hostname string, state models.WorkerState, stats []byte) error
	GetPendingCommand(ctx context.Context, workerID string) (models.WorkerCommand, error)
	ClearCommand(ctx context.Context, workerID string) error
	SetCommand(ctx context.Context, workerID string, cmd models.WorkerCommand) error
	// PruneStale marks workers whose heartbeat is older than olderThan as
	// offline; it does not delete the row (spec.md §8, 24h staleness).
	PruneStale(ctx context.Context, olderThan time.Duration) (int64, error)
	List(ctx context.Context) ([]*models.WorkerStatus, error)
}

type workerStatusRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewWorkerStatusRepo(db *gorm.DB, log *logger.Logger) WorkerStatusRepo {
	return &workerStatusRepo{db: db, log: log.With("repo", "WorkerStatusRepo")}
}

func (r *workerStatusRepo) Heartbeat(ctx context.Context, workerID, hostname string, state models.WorkerState, stats []byte) error {
	row := &models.WorkerStatus{
		WorkerID:        workerID,
		Hostname:        hostname,
		LastHeartbeatAt: time.Now(),
		State:           state,
		PendingCommand:  models.CommandNone,
		Stats:           stats,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "worker_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"hostname", "last_heartbeat_at", "state", "stats",
		}),
	}).Create(row).Error
}

func (r *workerStatusRepo) GetPendingCommand(ctx context.Context, workerID string) (models.WorkerCommand, error) {
	var row models.WorkerStatus
	err := r.db.WithContext(ctx).Select("pending_command").Where("worker_id = ?", workerID).First(&row).Error
	if err != nil {
		return models.CommandNone, err
	}
	return row.PendingCommand, nil
}

func (r *workerStatusRepo) ClearCommand(ctx context.Context, workerID string) error {
	return r.SetCommand(ctx, workerID, models.CommandNone)
}

func (r *workerStatusRepo) SetCommand(ctx context.Context, workerID string, cmd models.WorkerCommand) error {
	return r.db.WithContext(ctx).Model(&models.WorkerStatus{}).
		Where("worker_id = ?", workerID).
		Update("pending_command", cmd).Error
}

func (r *workerStatusRepo) PruneStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	res := r.db.WithContext(ctx).Model(&models.WorkerStatus{}).
		Where("last_heartbeat_at < ? AND state != ?", cutoff, models.WorkerStateOffline).
		Update("state", models.WorkerStateOffline)
	return res.RowsAffected, res.Error
}

func (r *workerStatusRepo) List(ctx context.Context) ([]*models.WorkerStatus, error) {
	var out []*models.WorkerStatus
	err := r.db.WithContext(ctx).Order("worker_id ASC").Find(&out).Error
	return out, err
}
