// Package maintenance implements the administrative sweeps of spec.md §8:
// the reclaim sweep (expired leases), stale-worker pruning, and the
// temp-file GC for ephemeral transcode scratch space, all wired behind a
// shared --dry-run mode that computes and logs what it would do without
// mutating anything (spec.md §6.1 "maintenance run").
package maintenance

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/mediasearch/core/internal/logger"
	"github.com/mediasearch/core/internal/models"
	"github.com/mediasearch/core/internal/queue"
	"github.com/mediasearch/core/internal/repos"
)

// Stats summarizes one sweep's effect (or, in dry-run mode, what it would
// have done).
type Stats struct {
	LeasesReclaimed  int64
	WorkersPruned    int64
	TempFilesRemoved int
	TempBytesFreed   int64
}

// Sweeper runs the three maintenance sweeps against one database/cache
// filesystem pair.
type Sweeper struct {
	engine           *queue.Engine
	assets           repos.AssetRepo
	workerStatus     repos.WorkerStatusRepo
	dataDir          string
	staleWorkerAfter time.Duration
	tempFileAfter    time.Duration
	log              *logger.Logger
}

func NewSweeper(engine *queue.Engine, assets repos.AssetRepo, workerStatus repos.WorkerStatusRepo, dataDir string, staleWorkerAfter, tempFileAfter time.Duration, log *logger.Logger) *Sweeper {
	return &Sweeper{
		engine:           engine,
		assets:           assets,
		workerStatus:     workerStatus,
		dataDir:          dataDir,
		staleWorkerAfter: staleWorkerAfter,
		tempFileAfter:    tempFileAfter,
		log:              log.With("component", "Sweeper"),
	}
}

// Run performs the reclaim sweep, the stale-worker prune, and the temp-file
// GC. librarySlug scopes the temp-file GC to one library's scratch subtree
// (empty scans every library); the reclaim sweep and worker prune are
// inherently fleet-wide — a lease or a heartbeat isn't attributable to one
// library — so they always run unscoped.
func (s *Sweeper) Run(ctx context.Context, librarySlug string, dryRun bool) (Stats, error) {
	var stats Stats

	if dryRun {
		reclaimable, err := s.countReclaimable(ctx)
		if err != nil {
			return stats, err
		}
		stats.LeasesReclaimed = reclaimable

		prunable, err := s.countPrunable(ctx)
		if err != nil {
			return stats, err
		}
		stats.WorkersPruned = prunable
	} else {
		reclaimed, err := s.engine.ReclaimExpiredLeases(ctx)
		if err != nil {
			return stats, err
		}
		stats.LeasesReclaimed = reclaimed

		pruned, err := s.workerStatus.PruneStale(ctx, s.staleWorkerAfter)
		if err != nil {
			return stats, err
		}
		stats.WorkersPruned = pruned
	}

	removed, freed, err := s.sweepTempFiles(librarySlug, dryRun)
	if err != nil {
		return stats, err
	}
	stats.TempFilesRemoved = removed
	stats.TempBytesFreed = freed

	s.log.Info("maintenance sweep complete",
		"dry_run", dryRun,
		"leases_reclaimed", stats.LeasesReclaimed,
		"workers_pruned", stats.WorkersPruned,
		"temp_files_removed", stats.TempFilesRemoved,
		"temp_bytes_freed", stats.TempBytesFreed)
	return stats, nil
}

func (s *Sweeper) countReclaimable(ctx context.Context) (int64, error) {
	processing, err := s.assets.List(ctx, "", models.StatusProcessing, 0)
	if err != nil {
		return 0, err
	}
	now := time.Now()
	var n int64
	for _, a := range processing {
		if a.LeaseExpiresAt != nil && a.LeaseExpiresAt.Before(now) {
			n++
		}
	}
	return n, nil
}

func (s *Sweeper) countPrunable(ctx context.Context) (int64, error) {
	workers, err := s.workerStatus.List(ctx)
	if err != nil {
		return 0, err
	}
	cutoff := time.Now().Add(-s.staleWorkerAfter)
	var n int64
	for _, w := range workers {
		if w.State != models.WorkerStateOffline && w.LastHeartbeatAt.Before(cutoff) {
			n++
		}
	}
	return n, nil
}

// sweepTempFiles deletes ephemeral transcode scratch files
// (<data_dir>/tmp/<library>/<uuid>.mp4, spec.md §6.2) older than
// tempFileAfter. A file's mtime, not a lock, is the live-transcode signal:
// ffmpeg continuously extends an in-progress transcode's mtime, so only a
// genuinely abandoned file can be older than the threshold (spec.md §5
// "a live transcode is in progress on the same host").
func (s *Sweeper) sweepTempFiles(librarySlug string, dryRun bool) (int, int64, error) {
	root := filepath.Join(s.dataDir, "tmp")
	if librarySlug != "" {
		root = filepath.Join(root, librarySlug)
	}

	var removed int
	var freed int64
	cutoff := time.Now().Add(-s.tempFileAfter)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.ModTime().After(cutoff) {
			return nil
		}
		if !dryRun {
			if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
				return rmErr
			}
		}
		removed++
		freed += info.Size()
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return removed, freed, err
	}
	return removed, freed, nil
}

// RetryPoisoned resets every poisoned asset in librarySlug (or every
// library, if empty) back to pending with retry_count and error_message
// cleared — the only escape hatch from the poison state named in spec.md
// §7 ("never reclaimed automatically; only by maintenance retry-poisoned").
func (s *Sweeper) RetryPoisoned(ctx context.Context, librarySlug string, dryRun bool) (int, error) {
	poisoned, err := s.assets.List(ctx, librarySlug, models.StatusPoisoned, 0)
	if err != nil {
		return 0, err
	}
	if dryRun {
		return len(poisoned), nil
	}
	for _, a := range poisoned {
		if err := s.assets.Update(ctx, a.ID, map[string]interface{}{
			"status":        models.StatusPending,
			"retry_count":   0,
			"error_message": "",
		}); err != nil {
			return 0, err
		}
	}
	return len(poisoned), nil
}
