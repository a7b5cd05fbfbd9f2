// Package worker implements the Worker Lifecycle Framework (spec.md §4.2):
// the run-loop, concurrent heartbeat, OS-signal/command handling, and flight
// log shared by every stage (scanner, image/video proxy, image/video AI).
// Stage-specific behavior is injected as a Processor; this package only
// knows how to claim, dispatch, and account for one asset at a time.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/mediasearch/core/internal/apperr"
	"github.com/mediasearch/core/internal/logger"
	"github.com/mediasearch/core/internal/models"
	"github.com/mediasearch/core/internal/queue"
	"github.com/mediasearch/core/internal/repos"
)

// ErrCancelled is returned by a Processor when should_stop() fired mid-work.
// The run-loop treats this as a clean release, not a failure: the asset's
// lease is reverted but retry_count and error_message are untouched
// (spec.md §4.2 "shutdown must ... release the lease").
var ErrCancelled = errors.New("worker: cancelled by shutdown")

// Processor performs the stage-specific work for one claimed asset. It must
// call shouldStop() between inner work units (per directory/frame/scene,
// spec.md §5 "Cancellation") and return ErrCancelled promptly if it fires.
// On success the asset's own status transition must already be durable
// (Processor is responsible for calling AssetRepo.Update/Create as needed);
// the run-loop only claims, dispatches, and resolves failure.
type Processor func(ctx context.Context, asset *models.Asset, shouldStop func() bool) error

// Config configures one worker process. Exactly one worker role runs per OS
// process (spec.md §5 "Scheduling model").
type Config struct {
	WorkerID    string
	Hostname    string
	Stage       queue.Stage
	LibrarySlug string // empty with All=true to span every active library
	All         bool

	Once              bool // process at most one asset then return
	PollInterval      time.Duration
	HeartbeatInterval time.Duration
	ForensicsDir      string
}

// Worker drives the claim/process/heartbeat loop for one Config.
type Worker struct {
	cfg     Config
	engine  *queue.Engine
	status  repos.WorkerStatusRepo
	sysMeta repos.SystemMetadataRepo
	process Processor
	log     *logger.Logger
	flight  *flightLog

	state   atomic.Value // models.WorkerState
	paused  atomic.Bool
	stopped atomic.Bool

	processedCount atomic.Int64
	failedCount    atomic.Int64
}

func New(cfg Config, engine *queue.Engine, status repos.WorkerStatusRepo, sysMeta repos.SystemMetadataRepo, process Processor, log *logger.Logger) *Worker {
	w := &Worker{
		cfg:     cfg,
		engine:  engine,
		status:  status,
		sysMeta: sysMeta,
		process: process,
		log:     log.With("component", "Worker", "worker_id", cfg.WorkerID, "stage", cfg.Stage.Name),
		flight:  newFlightLog(),
	}
	w.state.Store(models.WorkerStateIdle)
	return w
}

// Debugf and Infof record to the flight log only — they never reach the
// regular logger in steady state (spec.md §4.2 "DEBUG/INFO never hit disk").
func (w *Worker) Debugf(msg string, kv ...interface{}) { w.flight.record("DEBUG", msg, kv...) }
func (w *Worker) Infof(msg string, kv ...interface{})  { w.flight.record("INFO", msg, kv...) }

// Warnf and Errorf record to both the flight log and the regular logger —
// these are the lines an operator should see without waiting for a dump.
func (w *Worker) Warnf(msg string, kv ...interface{}) {
	w.flight.record("WARN", msg, kv...)
	w.log.Warn(msg, kv...)
}
func (w *Worker) Errorf(msg string, kv ...interface{}) {
	w.flight.record("ERROR", msg, kv...)
	w.log.Error(msg, kv...)
}

// Run performs the startup schema-version check, writes the initial status
// row, then enters the run-loop until shutdown (or, with Once, until one
// asset has been processed or no work is found). ctx cancellation (e.g. a
// parent process's own shutdown) ends the run-loop at its next poll wait;
// unlike a shutdown command it does not make shouldStop report true and
// writes no offline heartbeat.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.checkSchemaVersion(ctx); err != nil {
		return err
	}
	if err := w.heartbeatOnce(ctx); err != nil {
		w.log.Warn("initial heartbeat write failed", "error", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	hbCtx, cancelHB := context.WithCancel(ctx)
	defer cancelHB()
	go w.heartbeatLoop(hbCtx)

	go func() {
		select {
		case <-sigCh:
			w.log.Info("received OS signal, requesting graceful shutdown")
			w.stopped.Store(true)
		case <-ctx.Done():
		}
	}()

	return w.runLoop(ctx)
}

func (w *Worker) checkSchemaVersion(ctx context.Context) error {
	stored, err := w.sysMeta.Get(ctx, models.MetaKeySchemaVersion)
	if errors.Is(err, apperr.ErrNotFound) {
		return &apperr.ConfigError{Reason: "system_metadata has no schema_version row; run migrations first"}
	}
	if err != nil {
		return err
	}
	if stored != models.CurrentSchemaVersion {
		return &apperr.ConfigError{Reason: "schema_version mismatch: database has " + stored + ", build expects " + models.CurrentSchemaVersion}
	}
	return nil
}

func (w *Worker) runLoop(ctx context.Context) error {
	for {
		if err := w.obeyCommandIfAny(ctx); err != nil {
			w.log.Warn("command handling failed", "error", err)
		}

		if w.paused.Load() {
			if w.sleepOrDone(ctx, w.cfg.PollInterval) {
				return nil
			}
			continue
		}
		if w.stopped.Load() {
			w.log.Info("shutting down")
			_ = w.setHeartbeatState(ctx, models.WorkerStateOffline)
			return nil
		}

		asset, err := w.engine.Claim(ctx, w.cfg.WorkerID, w.cfg.Stage, w.cfg.LibrarySlug, w.cfg.All)
		if errors.Is(err, apperr.ErrNoWork) {
			if w.cfg.Once {
				return nil
			}
			if w.sleepOrDone(ctx, w.cfg.PollInterval) {
				return nil
			}
			continue
		}
		if err != nil {
			w.Errorf("claim failed", "error", err)
			if w.sleepOrDone(ctx, w.cfg.PollInterval) {
				return nil
			}
			continue
		}

		w.processOne(ctx, asset)
		if w.cfg.Once {
			return nil
		}
	}
}

func (w *Worker) processOne(ctx context.Context, asset *models.Asset) {
	w.state.Store(models.WorkerStateProcessing)
	w.Infof("processing asset", "asset_id", asset.ID, "rel_path", asset.RelPath)

	err := w.process(ctx, asset, w.shouldStop)

	switch {
	case err == nil:
		w.processedCount.Add(1)
	case errors.Is(err, ErrCancelled):
		w.Infof("asset release on cancellation", "asset_id", asset.ID)
		if rErr := w.engine.Release(ctx, asset.ID); rErr != nil {
			w.Errorf("release failed", "asset_id", asset.ID, "error", rErr)
		}
	default:
		w.failedCount.Add(1)
		w.Errorf("asset processing failed", "asset_id", asset.ID, "error", err)
		if fErr := w.engine.Fail(ctx, asset.ID, err); fErr != nil {
			w.Errorf("fail-recording failed", "asset_id", asset.ID, "error", fErr)
		}
	}

	w.state.Store(models.WorkerStateIdle)
}

// shouldStop is the should_stop() predicate passed to every Processor
// (spec.md §5 "Cancellation"). Pause does not interrupt in-flight work —
// only a shutdown request does.
func (w *Worker) shouldStop() bool {
	return w.stopped.Load()
}

func (w *Worker) obeyCommandIfAny(ctx context.Context) error {
	cmd, err := w.status.GetPendingCommand(ctx, w.cfg.WorkerID)
	if err != nil {
		return err
	}
	switch cmd {
	case models.CommandNone:
		return nil
	case models.CommandPause:
		w.paused.Store(true)
		w.state.Store(models.WorkerStatePaused)
	case models.CommandResume:
		w.paused.Store(false)
		w.state.Store(models.WorkerStateIdle)
	case models.CommandShutdown:
		w.stopped.Store(true)
	case models.CommandForensicDump:
		if path, fErr := w.flight.flush(w.cfg.ForensicsDir, w.cfg.WorkerID); fErr != nil {
			w.log.Warn("forensic dump failed", "error", fErr)
		} else {
			w.log.Info("forensic dump written", "path", path)
		}
	}
	return w.status.ClearCommand(ctx, w.cfg.WorkerID)
}

func (w *Worker) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.heartbeatOnce(ctx); err != nil {
				w.log.Warn("heartbeat failed", "error", err)
			}
		}
	}
}

func (w *Worker) heartbeatOnce(ctx context.Context) error {
	return w.setHeartbeatState(ctx, w.currentState())
}

func (w *Worker) setHeartbeatState(ctx context.Context, state models.WorkerState) error {
	stats, _ := json.Marshal(map[string]int64{
		"processed": w.processedCount.Load(),
		"failed":    w.failedCount.Load(),
	})
	return w.status.Heartbeat(ctx, w.cfg.WorkerID, w.cfg.Hostname, state, stats)
}

func (w *Worker) currentState() models.WorkerState {
	if s, ok := w.state.Load().(models.WorkerState); ok {
		return s
	}
	return models.WorkerStateIdle
}

// sleepOrDone waits d or until ctx is cancelled, returning true in the
// latter case so callers can unwind instead of looping once more.
func (w *Worker) sleepOrDone(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return true
	case <-t.C:
		return false
	}
}
